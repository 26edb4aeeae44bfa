// Package pipeline orchestrates a chat turn: intent classification, feedback
// recovery, structured dispatch against the content catalog, and the
// free-form generative fallback.
package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/edbot-dev/edbot/internal/content"
	"github.com/edbot-dev/edbot/internal/feedback"
	"github.com/edbot-dev/edbot/internal/intent"
	"github.com/edbot-dev/edbot/internal/providers"
	"github.com/edbot-dev/edbot/internal/storage"
)

// Reply labels produced by the orchestrator itself, on top of the classifier
// vocabulary.
const (
	LabelGenerativo   = "generativo"
	LabelSimplificado = "generativo_simplificado"
	LabelRecovery     = "feedback_recovery"
	LabelErro         = "erro"
	LabelDesconhecido = "desconhecido"
)

// Fixed user-facing strings. The orchestrator must always answer with a
// well-formed turn, so failures degrade into these.
const (
	msgClarify = "Não entendi. Pode escrever novamente?"
	msgApology = "Desculpe, ocorreu um erro ao tentar gerar uma resposta. Pode tentar novamente?"
)

// Generator is the free-form generative capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier turns an utterance into an intent result.
type Classifier interface {
	Classify(ctx context.Context, text string, history []intent.Turn) intent.Result
}

// FeedbackReader is the slice of the feedback service the orchestrator needs.
type FeedbackReader interface {
	LastUnconsumedNegative(sessionID *int64) (storage.FeedbackRecord, bool, error)
	Consume(id int64) (claimed bool, err error)
	NeedsSimplify(sessionID *int64) bool
	SimilarNegative(text string, minScore float64, limit int) ([]feedback.Match, error)
}

// Catalog is the content lookup façade.
type Catalog interface {
	Disciplines(ctx context.Context) ([]content.Discipline, error)
	Contents(ctx context.Context, discipline string) (content.DisciplineContents, error)
	DeepDive(ctx context.Context, topic string) (content.DeepDive, error)
	Locations(ctx context.Context) ([]content.CampusLocations, error)
	Hours(ctx context.Context, local, campus string) (content.HoursInfo, error)
	FAQ(ctx context.Context, local, campus string) (content.FAQInfo, error)
	Contacts(ctx context.Context, local, campus string) (content.ContactsInfo, error)
	Videos(ctx context.Context, subject string) ([]content.Video, error)
}

// OpenContent is the open educational content aggregator consulted when the
// catalog has no deep dive for a topic.
type OpenContent interface {
	Search(ctx context.Context, term string) ([]providers.Item, error)
}

// Turn is one inbound chat turn.
type Turn struct {
	SessionID *int64
	Text      string
	Simplify  bool
	History   []intent.Turn
}

// Reply is the orchestrated answer.
type Reply struct {
	Text   string
	Intent string
}

// Responder composes the classifier, feedback service, catalog and generator
// into the response pipeline. All collaborators are injected at construction.
type Responder struct {
	classifier Classifier
	gen        Generator
	feedback   FeedbackReader
	catalog    Catalog
	open       OpenContent // optional
	sessions   *sessionContext
}

// NewResponder wires a Responder. open may be nil to disable the open-content
// enrichment of deep dives.
func NewResponder(classifier Classifier, gen Generator, fb FeedbackReader, catalog Catalog, open OpenContent) *Responder {
	return &Responder{
		classifier: classifier,
		gen:        gen,
		feedback:   fb,
		catalog:    catalog,
		open:       open,
		sessions:   newSessionContext(),
	}
}

// Respond runs the decision ladder for one turn. The first matching branch
// wins and each branch is terminal:
//
//  1. empty input          -> fixed clarification
//  2. forced simplify      -> generative, maximally simplified
//  3. classification
//  4. pending negative     -> feedback recovery (claims the record)
//  5. structured dispatch  -> catalog-backed handler
//  6. generative fallback
//
// Respond never fails: collaborator errors degrade into fixed messages.
func (r *Responder) Respond(ctx context.Context, turn Turn) Reply {
	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return Reply{Text: msgClarify, Intent: LabelDesconhecido}
	}

	if turn.Simplify {
		return Reply{Text: r.generate(ctx, simplifyPrompt(text)), Intent: LabelSimplificado}
	}

	result := r.classifier.Classify(ctx, text, turn.History)
	r.sessions.remember(turn.SessionID, result)

	// A pending unresolved complaint beats whatever was classified: the
	// previous answer must be repaired before a new topic is served.
	if reply, ok := r.tryRecovery(ctx, turn.SessionID, text); ok {
		return reply
	}

	if reply, ok := r.dispatch(ctx, turn.SessionID, result); ok {
		return reply
	}

	return Reply{Text: r.generate(ctx, freePrompt(text)), Intent: LabelGenerativo}
}

// tryRecovery checks for an unconsumed negative record on the session and,
// if this call wins the claim, answers with the feedback-augmented prompt.
func (r *Responder) tryRecovery(ctx context.Context, sessionID *int64, text string) (Reply, bool) {
	rec, ok, err := r.feedback.LastUnconsumedNegative(sessionID)
	if err != nil {
		slog.Warn("feedback lookup failed, skipping recovery", "error", err)
		return Reply{}, false
	}
	if !ok {
		return Reply{}, false
	}

	claimed, err := r.feedback.Consume(rec.ID)
	if err != nil {
		slog.Warn("consuming feedback failed, skipping recovery", "record_id", rec.ID, "error", err)
		return Reply{}, false
	}
	if !claimed {
		// A concurrent turn already answered this complaint.
		return Reply{}, false
	}

	needsSimplify := r.feedback.NeedsSimplify(sessionID)

	var similarCount int
	matches, err := r.feedback.SimilarNegative(text, feedback.DefaultSimilarMinScore, feedback.DefaultSimilarLimit)
	if err != nil {
		slog.Warn("similar negative scan failed", "error", err)
	} else {
		similarCount = len(matches)
	}

	prompt := recoveryPrompt(text, needsSimplify, similarCount > 0)
	return Reply{Text: r.generate(ctx, prompt), Intent: LabelRecovery}, true
}

// generate calls the generative capability and absorbs its failure into the
// fixed apology, so no transport error ever reaches the user.
func (r *Responder) generate(ctx context.Context, prompt string) string {
	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("generation failed", "error", err)
		return msgApology
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return msgApology
	}
	return text
}
