package content

import "errors"

// ErrNotFound is returned when the catalog has no entry for the requested
// key. Callers must treat it differently from a found-but-empty payload.
var ErrNotFound = errors.New("not found")

// Discipline is one catalog discipline with its alias spellings.
type Discipline struct {
	ID      string   `json:"id"`
	Name    string   `json:"nome"`
	Aliases []string `json:"aliases"`
}

// Topic is a content unit inside a discipline, pre-simplified for
// accessibility (text-to-speech and Libras rendering downstream).
type Topic struct {
	ID             string `json:"id"`
	Title          string `json:"titulo"`
	SimplifiedText string `json:"resumo_simplificado"`
	Example        string `json:"exemplo"`
}

// DisciplineContents is the topic listing for one discipline.
type DisciplineContents struct {
	Discipline string  `json:"disciplina"`
	Topics     []Topic `json:"topicos"`
}

// DeepDive is the long-form explanation of a single topic.
type DeepDive struct {
	Topic   string `json:"topico"`
	Title   string `json:"titulo"`
	Text    string `json:"texto"`
	Example string `json:"exemplo"`
}

// CampusLocations groups the known service locations of one campus.
type CampusLocations struct {
	Campus    string   `json:"campus"`
	Locations []string `json:"locais"`
}

// HoursInfo is the opening-hours payload for a location at a campus.
type HoursInfo struct {
	Local    string   `json:"local"`
	Campus   string   `json:"campus"`
	Horarios []string `json:"horarios"`
}

// FAQItem is one institutional question/answer pair.
type FAQItem struct {
	Question string `json:"pergunta"`
	Answer   string `json:"resposta"`
}

// FAQInfo is the FAQ payload for a location at a campus.
type FAQInfo struct {
	Local  string    `json:"local"`
	Campus string    `json:"campus"`
	Items  []FAQItem `json:"faq"`
}

// ContactsInfo is the contact payload for a location at a campus.
type ContactsInfo struct {
	Local  string `json:"local"`
	Campus string `json:"campus"`
	Phone  string `json:"telefone"`
	Email  string `json:"email"`
}

// Video is one educational video reference.
type Video struct {
	Title   string `json:"titulo"`
	URL     string `json:"url"`
	Channel string `json:"canal"`
}
