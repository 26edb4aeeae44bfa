// Package intent classifies user utterances into the closed intent
// vocabulary of the chatbot and extracts their entity slots.
package intent

// Type is one of the fixed intents the classifier can produce. The set is
// closed: labels outside it are coerced to Desconhecido at the parsing
// boundary, so downstream dispatch can switch over Type exhaustively.
type Type int

const (
	Desconhecido Type = iota
	BuscarConteudoDisciplina
	AprofundarTopico
	ConsultarInformacaoInstitucional
	BuscarVideoEducacional
	ExplicarFuncionalidades
	Saudacao
	ModoGenerativo
	ErroProcessamento
)

var labels = map[Type]string{
	Desconhecido:                     "desconhecido",
	BuscarConteudoDisciplina:         "buscar_conteudo_disciplina",
	AprofundarTopico:                 "aprofundar_topico",
	ConsultarInformacaoInstitucional: "consultar_informacao_institucional",
	BuscarVideoEducacional:           "buscar_video_educacional",
	ExplicarFuncionalidades:          "explicar_funcionalidades",
	Saudacao:                         "saudacao",
	ModoGenerativo:                   "modo_generativo",
	ErroProcessamento:                "erro_processamento",
}

var byLabel = func() map[string]Type {
	m := make(map[string]Type, len(labels))
	for t, l := range labels {
		m[l] = t
	}
	return m
}()

// String returns the wire label of the intent.
func (t Type) String() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return labels[Desconhecido]
}

// ParseLabel maps a wire label back to its Type. Unknown labels report false.
func ParseLabel(s string) (Type, bool) {
	t, ok := byLabel[s]
	return t, ok
}

// Result is the classification outcome: the detected intent and its entity
// slots (discipline, topic, campus, location, subject...).
type Result struct {
	Type     Type
	Entities map[string]string
}

// Entity returns the named slot, or "" when absent.
func (r Result) Entity(key string) string {
	return r.Entities[key]
}

// Turn is one prior exchange line used as classification context.
type Turn struct {
	Role string // "user" or "bot"
	Text string
}
