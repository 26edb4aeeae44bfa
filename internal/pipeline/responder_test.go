package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edbot-dev/edbot/internal/content"
	"github.com/edbot-dev/edbot/internal/feedback"
	"github.com/edbot-dev/edbot/internal/intent"
	"github.com/edbot-dev/edbot/internal/providers"
	"github.com/edbot-dev/edbot/internal/storage"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeClassifier struct {
	result intent.Result
	texts  []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string, _ []intent.Turn) intent.Result {
	f.texts = append(f.texts, text)
	return f.result
}

type fakeFeedback struct {
	pending      *storage.FeedbackRecord
	pendingErr   error
	claimed      bool
	claimErr     error
	consumedID   int64
	simplify     bool
	matches      []feedback.Match
	matchErr     error
	similarTexts []string
}

func (f *fakeFeedback) LastUnconsumedNegative(_ *int64) (storage.FeedbackRecord, bool, error) {
	if f.pendingErr != nil {
		return storage.FeedbackRecord{}, false, f.pendingErr
	}
	if f.pending == nil {
		return storage.FeedbackRecord{}, false, nil
	}
	return *f.pending, true, nil
}

func (f *fakeFeedback) Consume(id int64) (bool, error) {
	f.consumedID = id
	return f.claimed, f.claimErr
}

func (f *fakeFeedback) NeedsSimplify(_ *int64) bool { return f.simplify }

func (f *fakeFeedback) SimilarNegative(text string, _ float64, _ int) ([]feedback.Match, error) {
	f.similarTexts = append(f.similarTexts, text)
	return f.matches, f.matchErr
}

type fakeCatalog struct {
	disciplines []content.Discipline
	contents    content.DisciplineContents
	contentsErr error
	dive        content.DeepDive
	diveErr     error
	locations   []content.CampusLocations
	hours       content.HoursInfo
	hoursErr    error
	faq         content.FAQInfo
	faqErr      error
	contacts    content.ContactsInfo
	contactsErr error
	videos      []content.Video
	videosErr   error
}

func (f *fakeCatalog) Disciplines(context.Context) ([]content.Discipline, error) {
	return f.disciplines, nil
}

func (f *fakeCatalog) Contents(_ context.Context, _ string) (content.DisciplineContents, error) {
	return f.contents, f.contentsErr
}

func (f *fakeCatalog) DeepDive(_ context.Context, _ string) (content.DeepDive, error) {
	return f.dive, f.diveErr
}

func (f *fakeCatalog) Locations(context.Context) ([]content.CampusLocations, error) {
	return f.locations, nil
}

func (f *fakeCatalog) Hours(_ context.Context, _, _ string) (content.HoursInfo, error) {
	return f.hours, f.hoursErr
}

func (f *fakeCatalog) FAQ(_ context.Context, _, _ string) (content.FAQInfo, error) {
	return f.faq, f.faqErr
}

func (f *fakeCatalog) Contacts(_ context.Context, _, _ string) (content.ContactsInfo, error) {
	return f.contacts, f.contactsErr
}

func (f *fakeCatalog) Videos(_ context.Context, _ string) ([]content.Video, error) {
	return f.videos, f.videosErr
}

type fakeOpen struct {
	items []providers.Item
	err   error
	terms []string
}

func (f *fakeOpen) Search(_ context.Context, term string) ([]providers.Item, error) {
	f.terms = append(f.terms, term)
	return f.items, f.err
}

func classified(t intent.Type, entities map[string]string) *fakeClassifier {
	return &fakeClassifier{result: intent.Result{Type: t, Entities: entities}}
}

func i64(v int64) *int64 { return &v }

func TestRespondEmptyInputClarifies(t *testing.T) {
	r := NewResponder(classified(intent.Saudacao, nil), &fakeGenerator{}, &fakeFeedback{}, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{Text: "   "})

	if reply.Text != msgClarify {
		t.Fatalf("Text = %q, want clarification", reply.Text)
	}
	if reply.Intent != LabelDesconhecido {
		t.Fatalf("Intent = %q, want %q", reply.Intent, LabelDesconhecido)
	}
}

func TestRespondSimplifySkipsClassification(t *testing.T) {
	cls := classified(intent.BuscarConteudoDisciplina, nil)
	gen := &fakeGenerator{reply: "bem simples"}
	r := NewResponder(cls, gen, &fakeFeedback{}, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{Text: "explica de novo", Simplify: true})

	if reply.Intent != LabelSimplificado {
		t.Fatalf("Intent = %q, want %q", reply.Intent, LabelSimplificado)
	}
	if reply.Text != "bem simples" {
		t.Fatalf("Text = %q", reply.Text)
	}
	if len(cls.texts) != 0 {
		t.Fatalf("classifier invoked %d times, want 0", len(cls.texts))
	}
	if len(gen.prompts) != 1 || !strings.Contains(gen.prompts[0], "MAIS SIMPLES") {
		t.Fatalf("prompt = %v, want simplification instructions", gen.prompts)
	}
}

func TestRespondRecoveryClaimsAndAnswers(t *testing.T) {
	fb := &fakeFeedback{
		pending: &storage.FeedbackRecord{ID: 9, SessionID: i64(7)},
		claimed: true,
	}
	gen := &fakeGenerator{reply: "vou reformular"}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, fb, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{SessionID: i64(7), Text: "não entendi nada"})

	if reply.Intent != LabelRecovery {
		t.Fatalf("Intent = %q, want %q", reply.Intent, LabelRecovery)
	}
	if fb.consumedID != 9 {
		t.Fatalf("consumed record %d, want 9", fb.consumedID)
	}
	if reply.Text != "vou reformular" {
		t.Fatalf("Text = %q", reply.Text)
	}
}

func TestRespondRecoveryClaimLostFallsThrough(t *testing.T) {
	fb := &fakeFeedback{
		pending: &storage.FeedbackRecord{ID: 4, SessionID: i64(2)},
		claimed: false, // another turn already repaired this complaint
	}
	gen := &fakeGenerator{reply: "resposta normal"}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, fb, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{SessionID: i64(2), Text: "e agora?"})

	if reply.Intent != LabelGenerativo {
		t.Fatalf("Intent = %q, want generative fallback after lost claim", reply.Intent)
	}
}

func TestRespondRecoveryPromptReflectsFeedbackSignals(t *testing.T) {
	fb := &fakeFeedback{
		pending:  &storage.FeedbackRecord{ID: 1, SessionID: i64(3)},
		claimed:  true,
		simplify: true,
		matches:  []feedback.Match{{Score: 0.9}},
	}
	gen := &fakeGenerator{reply: "ok"}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, fb, &fakeCatalog{}, nil)

	r.Respond(context.Background(), Turn{SessionID: i64(3), Text: "continuo sem entender"})

	if len(gen.prompts) != 1 {
		t.Fatalf("prompts = %d, want 1", len(gen.prompts))
	}
	prompt := gen.prompts[0]
	if !strings.Contains(prompt, "simples") {
		t.Errorf("prompt lacks simplification instruction: %q", prompt)
	}
	if !strings.Contains(prompt, "segundo estilo") {
		t.Errorf("prompt lacks alternative-style instruction: %q", prompt)
	}
}

func TestRespondFeedbackLookupFailureDegrades(t *testing.T) {
	fb := &fakeFeedback{pendingErr: errors.New("db locked")}
	gen := &fakeGenerator{reply: "segue o jogo"}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, fb, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{SessionID: i64(1), Text: "oi de novo"})

	if reply.Intent != LabelGenerativo {
		t.Fatalf("Intent = %q, want generative fallback", reply.Intent)
	}
}

func TestRespondGenerativeFallback(t *testing.T) {
	gen := &fakeGenerator{reply: "fotossíntese é ..."}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, &fakeFeedback{}, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{Text: "o que é fotossíntese?"})

	if reply.Intent != LabelGenerativo {
		t.Fatalf("Intent = %q, want %q", reply.Intent, LabelGenerativo)
	}
	if reply.Text != "fotossíntese é ..." {
		t.Fatalf("Text = %q", reply.Text)
	}
}

func TestRespondGenerationFailureApologizes(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("upstream down")}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, &fakeFeedback{}, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{Text: "me ajuda"})

	if reply.Text != msgApology {
		t.Fatalf("Text = %q, want apology", reply.Text)
	}
	if reply.Intent != LabelGenerativo {
		t.Fatalf("Intent = %q", reply.Intent)
	}
}

func TestRespondEmptyGenerationApologizes(t *testing.T) {
	gen := &fakeGenerator{reply: "  \n "}
	r := NewResponder(classified(intent.ModoGenerativo, nil), gen, &fakeFeedback{}, &fakeCatalog{}, nil)

	reply := r.Respond(context.Background(), Turn{Text: "me ajuda"})

	if reply.Text != msgApology {
		t.Fatalf("Text = %q, want apology", reply.Text)
	}
}
