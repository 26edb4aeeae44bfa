package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/edbot-dev/edbot/internal/content"
	"github.com/edbot-dev/edbot/internal/intent"
	"github.com/edbot-dev/edbot/internal/providers"
)

const msgCapabilities = `Eu sou o ED, seu assistente educacional acessível. Minhas principais funções são:
- Buscar materiais e informações de disciplinas.
- Responder perguntas sobre a universidade (locais, horários, contatos).
- Recomendar vídeos educativos para seus estudos.
Além disso, posso conversar sobre outros assuntos para te ajudar no que for preciso!`

// dispatch routes a structured intent to its handler. The boolean reports
// whether the handler produced an answer; false means the turn falls through
// to the generative fallback. Greeting-like and error intents are not
// structured and always fall through.
func (r *Responder) dispatch(ctx context.Context, sessionID *int64, result intent.Result) (Reply, bool) {
	var (
		text string
		ok   bool
	)

	switch result.Type {
	case intent.Saudacao, intent.Desconhecido, intent.ModoGenerativo, intent.ErroProcessamento:
		return Reply{}, false
	case intent.BuscarConteudoDisciplina:
		text, ok = r.handleDisciplineContent(ctx, result.Entity("disciplina"))
	case intent.AprofundarTopico:
		text, ok = r.handleDeepDive(ctx, sessionID, result.Entity("topico"))
	case intent.ConsultarInformacaoInstitucional:
		text, ok = r.handleInstitutional(ctx, result)
	case intent.BuscarVideoEducacional:
		text, ok = r.handleVideos(ctx, result.Entity("assunto"))
	case intent.ExplicarFuncionalidades:
		text, ok = msgCapabilities, true
	default:
		return Reply{}, false
	}

	if !ok {
		return Reply{}, false
	}
	return Reply{Text: text, Intent: result.Type.String()}, true
}

// handleDisciplineContent answers a discipline-material query. An empty
// discipline lists the catalog; a miss produces a user-facing not-found
// message rather than falling through (per-intent policy).
func (r *Responder) handleDisciplineContent(ctx context.Context, discipline string) (string, bool) {
	if discipline == "" {
		disciplines, err := r.catalog.Disciplines(ctx)
		if err != nil || len(disciplines) == 0 {
			return "Não consegui consultar as disciplinas agora. Pode tentar de novo em instantes?", true
		}
		names := make([]string, len(disciplines))
		for i, d := range disciplines {
			names[i] = d.Name
		}
		return "Disciplinas disponíveis: " + strings.Join(names, ", ") + ".", true
	}

	contents, err := r.catalog.Contents(ctx, discipline)
	if err != nil || len(contents.Topics) == 0 {
		if err != nil && !errors.Is(err, content.ErrNotFound) {
			slog.Warn("catalog contents lookup failed", "disciplina", discipline, "error", err)
		}
		return fmt.Sprintf("Não encontrei materiais da disciplina '%s'.", discipline), true
	}

	digest := content.SummarizeTopics(contents.Topics)
	return fmt.Sprintf("Aqui está um resumo de %s:\n%s", contents.Discipline, digest), true
}

// handleDeepDive answers a conceptual deep-dive request. Elliptical requests
// ("aprofunda isso") resolve the topic from the session context. A catalog
// miss consults the open-content aggregator; only when that is also empty
// does the turn fall through to generation.
func (r *Responder) handleDeepDive(ctx context.Context, sessionID *int64, topic string) (string, bool) {
	if topic == "" {
		topic = r.sessions.lastTopic(sessionID)
	}
	if topic == "" {
		return "", false
	}

	dive, err := r.catalog.DeepDive(ctx, topic)
	if err == nil {
		var sb strings.Builder
		if dive.Title != "" {
			fmt.Fprintf(&sb, "%s\n", dive.Title)
		}
		sb.WriteString(dive.Text)
		if dive.Example != "" {
			fmt.Fprintf(&sb, "\nEx.: %s", dive.Example)
		}
		return sb.String(), true
	}
	if !errors.Is(err, content.ErrNotFound) {
		slog.Warn("deep dive lookup failed", "topico", topic, "error", err)
	}

	if r.open != nil {
		items, err := r.open.Search(ctx, topic)
		if err == nil && len(items) > 0 {
			return providers.Digest(topic, items), true
		}
		if err != nil {
			slog.Warn("open content search failed", "topico", topic, "error", err)
		}
	}

	return "", false
}

// handleVideos answers an explicit video request; an empty subject or an
// empty catalog result falls through to generation.
func (r *Responder) handleVideos(ctx context.Context, subject string) (string, bool) {
	if subject == "" {
		return "", false
	}

	videos, err := r.catalog.Videos(ctx, subject)
	if err != nil || len(videos) == 0 {
		if err != nil && !errors.Is(err, content.ErrNotFound) {
			slog.Warn("video search failed", "assunto", subject, "error", err)
		}
		return "", false
	}

	if len(videos) > 3 {
		videos = videos[:3]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Encontrei estes vídeos sobre %s:\n", subject)
	for _, v := range videos {
		fmt.Fprintf(&sb, "- %s", v.Title)
		if v.Channel != "" {
			fmt.Fprintf(&sb, " (%s)", v.Channel)
		}
		if v.URL != "" {
			fmt.Fprintf(&sb, ": %s", v.URL)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n"), true
}

// handleInstitutional runs the slot-filling state machine for institutional
// queries. Missing slots are elicited one at a time across turns; the
// classifier re-extracts slots each turn, so no slot memory is kept here.
func (r *Responder) handleInstitutional(ctx context.Context, result intent.Result) (string, bool) {
	local := strings.TrimSpace(result.Entity("local"))
	campus := strings.TrimSpace(result.Entity("campus"))
	info := strings.TrimSpace(result.Entity("info"))
	if info == "" {
		info = "horarios"
	}

	switch {
	case local == "" && campus == "":
		return r.listLocations(ctx), true
	case local != "" && campus == "":
		return fmt.Sprintf("Em qual campus você quer consultar '%s'?", local), true
	case local == "" && campus != "":
		return fmt.Sprintf("Qual local você procura no campus %s?", campus), true
	default:
		return r.institutionalInfo(ctx, info, local, campus), true
	}
}

func (r *Responder) listLocations(ctx context.Context) string {
	campi, err := r.catalog.Locations(ctx)
	if err != nil || len(campi) == 0 {
		if err != nil && !errors.Is(err, content.ErrNotFound) {
			slog.Warn("location listing failed", "error", err)
		}
		return "Não consegui consultar os locais no momento."
	}

	var sb strings.Builder
	sb.WriteString("Estes são os locais que conheço:\n")
	for _, c := range campi {
		fmt.Fprintf(&sb, "%s: %s\n", c.Campus, strings.Join(c.Locations, ", "))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (r *Responder) institutionalInfo(ctx context.Context, info, local, campus string) string {
	notFound := fmt.Sprintf("Não encontrei %s de '%s' em %s.", infoNoun(info), local, campus)

	switch info {
	case "faq":
		faq, err := r.catalog.FAQ(ctx, local, campus)
		if err != nil {
			return notFound
		}
		var sb strings.Builder
		fmt.Fprintf(&sb, "Perguntas frequentes de %s (%s):\n", local, campus)
		for _, item := range faq.Items {
			fmt.Fprintf(&sb, "- %s %s\n", item.Question, item.Answer)
		}
		return strings.TrimRight(sb.String(), "\n")

	case "contatos":
		contacts, err := r.catalog.Contacts(ctx, local, campus)
		if err != nil {
			return notFound
		}
		var parts []string
		if contacts.Phone != "" {
			parts = append(parts, "telefone "+contacts.Phone)
		}
		if contacts.Email != "" {
			parts = append(parts, "e-mail "+contacts.Email)
		}
		return fmt.Sprintf("Contatos de %s (%s): %s.", local, campus, strings.Join(parts, ", "))

	default: // horarios
		hours, err := r.catalog.Hours(ctx, local, campus)
		if err != nil {
			return notFound
		}
		return fmt.Sprintf("Horários de %s (%s): %s.", local, campus, strings.Join(hours.Horarios, "; "))
	}
}

func infoNoun(info string) string {
	switch info {
	case "faq":
		return "as perguntas frequentes"
	case "contatos":
		return "os contatos"
	default:
		return "os horários"
	}
}
