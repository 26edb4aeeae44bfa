package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edbot-dev/edbot/internal/pipeline"
	"github.com/edbot-dev/edbot/internal/storage"
)

type mockResponder struct {
	reply pipeline.Reply
	turns []pipeline.Turn
}

func (m *mockResponder) Respond(_ context.Context, turn pipeline.Turn) pipeline.Reply {
	m.turns = append(m.turns, turn)
	return m.reply
}

type mockFeedback struct {
	submitted []storage.UpsertParams
	record    storage.FeedbackRecord
	all       []storage.FeedbackRecord
	nextID    int64
	err       error
}

func (m *mockFeedback) Submit(p storage.UpsertParams) (storage.FeedbackRecord, error) {
	m.submitted = append(m.submitted, p)
	return m.record, m.err
}

func (m *mockFeedback) All() ([]storage.FeedbackRecord, error) { return m.all, m.err }

func (m *mockFeedback) NextSessionID() (int64, error) { return m.nextID, m.err }

func newTestHandler(responder *mockResponder, fb *mockFeedback) http.Handler {
	return NewHandler(Deps{Responder: responder, Feedback: fb, Token: "secret"})
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&mockResponder{}, &mockFeedback{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var body map[string]string
	json.NewDecoder(rr.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status=ok", body)
	}
}

func TestChat(t *testing.T) {
	responder := &mockResponder{reply: pipeline.Reply{Text: "aqui está", Intent: "generativo"}}
	h := newTestHandler(responder, &mockFeedback{})

	body := `{"session_id":7,"text":"o que é fotossíntese?","last_messages":[{"role":"user","text":"oi"}]}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var resp ChatResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Text != "aqui está" || resp.DetectedIntent != "generativo" {
		t.Fatalf("resp = %+v", resp)
	}
	if !resp.FeedbackEnabled {
		t.Error("FeedbackEnabled = false, want true for a regular question")
	}

	if len(responder.turns) != 1 {
		t.Fatalf("responder called %d times", len(responder.turns))
	}
	turn := responder.turns[0]
	if turn.SessionID == nil || *turn.SessionID != 7 {
		t.Errorf("SessionID = %v, want 7", turn.SessionID)
	}
	if len(turn.History) != 1 || turn.History[0].Text != "oi" {
		t.Errorf("History = %v", turn.History)
	}
}

func TestChatGreetingDisablesFeedback(t *testing.T) {
	responder := &mockResponder{reply: pipeline.Reply{Text: "Olá!", Intent: "saudacao"}}
	h := newTestHandler(responder, &mockFeedback{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"text":"  Olá "}`)))

	var resp ChatResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.FeedbackEnabled {
		t.Error("FeedbackEnabled = true, want false for the bare greeting")
	}
}

func TestChatValidation(t *testing.T) {
	h := newTestHandler(&mockResponder{}, &mockFeedback{})

	cases := []struct {
		name string
		body string
	}{
		{"missing text", `{"session_id":1}`},
		{"text too long", `{"text":"` + strings.Repeat("a", 501) + `"}`},
		{"bad session id", `{"session_id":0,"text":"oi"}`},
		{"malformed json", `{"text":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tc.body)))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
			}
			var env map[string]map[string]string
			json.NewDecoder(rr.Body).Decode(&env)
			if env["error"]["type"] != "invalid_request_error" {
				t.Errorf("error envelope = %v", env)
			}
		})
	}
}

func TestSubmitFeedback(t *testing.T) {
	sid := int64(3)
	helpful := false
	fb := &mockFeedback{record: storage.FeedbackRecord{ID: 12, SessionID: &sid, Helpful: &helpful}}
	h := newTestHandler(&mockResponder{}, fb)

	body := `{"session_id":3,"user_question":"o que é x?","bot_answer":"x é ...","helpful":false}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if len(fb.submitted) != 1 {
		t.Fatalf("Submit called %d times", len(fb.submitted))
	}
	p := fb.submitted[0]
	if p.Helpful == nil || *p.Helpful {
		t.Errorf("Helpful = %v, want false", p.Helpful)
	}

	var resp FeedbackResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.ID != 12 {
		t.Errorf("ID = %d, want 12", resp.ID)
	}
}

func TestSubmitFeedbackEmptyPayloadRejected(t *testing.T) {
	h := newTestHandler(&mockResponder{}, &mockFeedback{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(`{"session_id":3}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListFeedbackRequiresAuth(t *testing.T) {
	fb := &mockFeedback{all: []storage.FeedbackRecord{{ID: 1}}}
	h := newTestHandler(&mockResponder{}, fb)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/feedback", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("wrong-token status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/feedback", nil)
	req.Header.Set("Authorization", "Bearer secret")
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d, want %d", rr.Code, http.StatusOK)
	}

	var records []FeedbackResponse
	json.NewDecoder(rr.Body).Decode(&records)
	if len(records) != 1 || records[0].ID != 1 {
		t.Fatalf("records = %v", records)
	}
}

func TestListFeedbackDisabledWithoutToken(t *testing.T) {
	fb := &mockFeedback{all: []storage.FeedbackRecord{{ID: 1}}}
	h := NewHandler(Deps{Responder: &mockResponder{}, Feedback: fb, Token: ""})

	for _, header := range []string{"", "Bearer ", "Bearer anything"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/feedback", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Authorization=%q: status = %d, want %d", header, rr.Code, http.StatusUnauthorized)
		}
	}
}

func TestNextSession(t *testing.T) {
	h := newTestHandler(&mockResponder{}, &mockFeedback{nextID: 42})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/session/next", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp map[string]int64
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["session_id"] != 42 {
		t.Fatalf("session_id = %d, want 42", resp["session_id"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHandler(&mockResponder{}, &mockFeedback{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}
