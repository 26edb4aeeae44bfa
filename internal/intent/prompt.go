package intent

import (
	"fmt"
	"strings"
)

const systemPromptTemplate = `Analise o texto do usuário para um chatbot educacional universitário.
Objetivo: identificar a 'intent' (intenção) e extrair 'entities' (entidades).
Retorne APENAS um objeto JSON válido com as chaves 'intent' e 'entities'.

INTENÇÕES DISPONÍVEIS:
- 'buscar_conteudo_disciplina': Materiais, ementas, links de disciplinas.
- 'aprofundar_topico': Explicações conceituais sobre um tema.
- 'consultar_informacao_institucional': Locais, horários, contatos, FAQ, secretaria.
- 'buscar_video_educacional': Solicitação explícita de vídeos.
- 'explicar_funcionalidades': O que o bot faz.
- 'saudacao': Oi, olá, tudo bem.
- 'modo_generativo': Conversa livre ou pedido para falar direto com a IA.
- 'desconhecido': Não se encaixa nas anteriores.

EXEMPLOS:

Texto: "Quais disciplinas tem?"
JSON: {"intent": "buscar_conteudo_disciplina", "entities": {"disciplina": ""}}

Texto: "Me dá o conteúdo de matemática?"
JSON: {"intent": "buscar_conteudo_disciplina", "entities": {"disciplina": "matematica"}}

Texto: "Qual o horário da biblioteca em São Leopoldo?"
JSON: {"intent": "consultar_informacao_institucional", "entities": {"local": "biblioteca", "campus": "São Leopoldo", "info": "horarios"}}

Texto: "preciso de um vídeo sobre história do Brasil"
JSON: {"intent": "buscar_video_educacional", "entities": {"assunto": "história do Brasil"}}

Texto: "como você funciona?"
JSON: {"intent": "explicar_funcionalidades", "entities": {}}

Texto: "Oi"
JSON: {"intent": "saudacao", "entities": {}}

Texto: "Quero falar direto com a IA"
JSON: {"intent": "modo_generativo", "entities": {}}

Texto: "Quero saber mais sobre fotossíntese"
JSON: {"intent": "aprofundar_topico", "entities": {"topico": "fotossintese"}}

Texto: "Aprofunda isso"
JSON: {"intent": "aprofundar_topico", "entities": {"topico": ""}}`

// BuildPrompt assembles the classification prompt: instruction block,
// optional soft-exclusion hint from prior negative feedback, optional
// role-labeled conversation history, and the utterance itself.
func BuildPrompt(text string, history []Turn, avoidIntents []string) string {
	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)

	if len(avoidIntents) > 0 {
		quoted := make([]string, len(avoidIntents))
		for i, in := range avoidIntents {
			quoted[i] = "'" + in + "'"
		}
		fmt.Fprintf(&sb, "\n\nOBSERVAÇÃO CRÍTICA: usuários já indicaram que este texto NÃO deve ser classificado como: %s. "+
			"Se estiver em dúvida, prefira 'desconhecido' ou 'modo_generativo'.", strings.Join(quoted, ", "))
	}

	if len(history) > 0 {
		sb.WriteString("\n\nHISTÓRICO RECENTE DA CONVERSA:")
		for _, turn := range history {
			label := "Usuário"
			if turn.Role == "bot" {
				label = "ED"
			}
			fmt.Fprintf(&sb, "\n%s: %s", label, turn.Text)
		}
	}

	fmt.Fprintf(&sb, "\n\n---\nINPUT DO USUÁRIO:\nTexto: %q\n\nRESPOSTA JSON:", text)
	return sb.String()
}
