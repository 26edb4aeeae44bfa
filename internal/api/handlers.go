package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/edbot-dev/edbot/internal/intent"
	"github.com/edbot-dev/edbot/internal/pipeline"
	"github.com/edbot-dev/edbot/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

const msgInternalError = "Desculpe, ocorreu um erro inesperado. Pode tentar novamente?"

// Responder is the conversational pipeline the API delegates chat turns to.
type Responder interface {
	Respond(ctx context.Context, turn pipeline.Turn) pipeline.Reply
}

// FeedbackService is the slice of the feedback service the API needs.
type FeedbackService interface {
	Submit(p storage.UpsertParams) (storage.FeedbackRecord, error)
	All() ([]storage.FeedbackRecord, error)
	NextSessionID() (int64, error)
}

// Deps holds the collaborators of the HTTP surface.
type Deps struct {
	Responder Responder
	Feedback  FeedbackService
	Token     string // guards GET /feedback
}

// Message is one prior turn of the conversation, sent by the client for
// classification context.
type Message struct {
	Role string `json:"role" validate:"omitempty,oneof=user bot"`
	Text string `json:"text"`
}

// AskRequest is the POST /chat payload.
type AskRequest struct {
	SessionID    *int64    `json:"session_id" validate:"omitempty,min=1"`
	Text         string    `json:"text" validate:"required,max=500"`
	Simplify     bool      `json:"simplify"`
	LastMessages []Message `json:"last_messages" validate:"max=10,dive"`
}

// ChatResponse is the POST /chat answer.
type ChatResponse struct {
	Text            string `json:"text"`
	DetectedIntent  string `json:"detected_intent"`
	FeedbackEnabled bool   `json:"feedback_enabled"`
}

// FeedbackRequest is the POST /feedback payload. Absent fields leave the
// stored record untouched.
type FeedbackRequest struct {
	ID             *int64  `json:"id" validate:"omitempty,min=1"`
	SessionID      *int64  `json:"session_id" validate:"omitempty,min=1"`
	UserQuestion   *string `json:"user_question" validate:"omitempty,max=2000"`
	BotAnswer      *string `json:"bot_answer"`
	Helpful        *bool   `json:"helpful"`
	DetectedIntent *string `json:"detected_intent" validate:"omitempty,max=64"`
}

// FeedbackResponse mirrors a stored feedback record.
type FeedbackResponse struct {
	ID             int64  `json:"id"`
	SessionID      *int64 `json:"session_id,omitempty"`
	UserQuestion   string `json:"user_question"`
	BotAnswer      string `json:"bot_answer"`
	Helpful        *bool  `json:"helpful"`
	DetectedIntent string `json:"detected_intent,omitempty"`
	Consumed       bool   `json:"consumed"`
	CreatedAt      string `json:"created_at"`
}

// NewHandler returns the HTTP surface of the assistant.
func NewHandler(deps Deps) http.Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())

	r := chi.NewRouter()
	r.Use(RequestID, Logger, Recoverer)

	r.Get("/health", handleHealth)
	r.Post("/chat", handleChat(deps, validate))
	r.Post("/feedback", handleSubmitFeedback(deps, validate))
	r.Get("/session/next", handleNextSession(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/feedback", handleListFeedback(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleChat(deps Deps, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: %v", err)
			return
		}

		history := make([]intent.Turn, 0, len(req.LastMessages))
		for _, m := range req.LastMessages {
			role := m.Role
			if role == "" {
				role = "user"
			}
			history = append(history, intent.Turn{Role: role, Text: m.Text})
		}

		reply := deps.Responder.Respond(r.Context(), pipeline.Turn{
			SessionID: req.SessionID,
			Text:      req.Text,
			Simplify:  req.Simplify,
			History:   history,
		})

		writeJSON(w, http.StatusOK, ChatResponse{
			Text:           reply.Text,
			DetectedIntent: reply.Intent,
			// A bare greeting is not a ratable exchange.
			FeedbackEnabled: strings.TrimSpace(req.Text) != "Olá",
		})
	}
}

func handleSubmitFeedback(deps Deps, validate *validator.Validate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req FeedbackRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if err := validate.Struct(req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request: %v", err)
			return
		}
		if req.ID == nil && req.UserQuestion == nil && req.BotAnswer == nil && req.Helpful == nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "request must carry at least one feedback field")
			return
		}

		rec, err := deps.Feedback.Submit(storage.UpsertParams{
			ID:             req.ID,
			SessionID:      req.SessionID,
			UserQuestion:   req.UserQuestion,
			BotAnswer:      req.BotAnswer,
			Helpful:        req.Helpful,
			DetectedIntent: req.DetectedIntent,
		})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to store feedback: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, toFeedbackResponse(rec))
	}
}

func handleListFeedback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := deps.Feedback.All()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list feedback: %v", err)
			return
		}

		out := make([]FeedbackResponse, len(records))
		for i, rec := range records {
			out[i] = toFeedbackResponse(rec)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleNextSession(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := deps.Feedback.NextSessionID()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to allocate session: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"session_id": id})
	}
}

func toFeedbackResponse(rec storage.FeedbackRecord) FeedbackResponse {
	return FeedbackResponse{
		ID:             rec.ID,
		SessionID:      rec.SessionID,
		UserQuestion:   rec.UserQuestion,
		BotAnswer:      rec.BotAnswer,
		Helpful:        rec.Helpful,
		DetectedIntent: rec.DetectedIntent,
		Consumed:       rec.Consumed,
		CreatedAt:      rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
