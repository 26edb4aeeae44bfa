package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const classifyTimeout = 10 * time.Second

// Generator is the generative capability the classifier runs on.
type Generator interface {
	GenerateJSON(ctx context.Context, prompt string) (string, error)
}

// RejectionHinter supplies intents that were rated unhelpful for questions
// similar to the current one.
type RejectionHinter interface {
	NegativeIntentsForSimilarText(text string, minScore float64) ([]string, error)
}

// DisciplineNormalizer maps free-form discipline spellings to canonical ids.
type DisciplineNormalizer interface {
	Normalize(ctx context.Context, raw string) string
}

// hintMinScore is the similarity cutoff for rejection hints.
const hintMinScore = 0.70

// Classifier turns a user utterance (plus optional history) into an intent
// and entity slots. Every failure mode is absorbed: callers always get a
// Result, never an error.
type Classifier struct {
	gen        Generator
	hints      RejectionHinter
	normalizer DisciplineNormalizer
}

// NewClassifier creates a Classifier. hints and normalizer may be nil, which
// disables the rejection hint and discipline normalization respectively.
func NewClassifier(gen Generator, hints RejectionHinter, normalizer DisciplineNormalizer) *Classifier {
	return &Classifier{gen: gen, hints: hints, normalizer: normalizer}
}

// Classify analyses text and returns the detected intent with entities.
// Generation or parsing failures produce ErroProcessamento with the error
// description in the entities, never a raised error.
func (c *Classifier) Classify(ctx context.Context, text string, history []Turn) Result {
	text = strings.TrimSpace(text)

	ctx, cancel := context.WithTimeout(ctx, classifyTimeout)
	defer cancel()

	var avoid []string
	if c.hints != nil {
		var err error
		avoid, err = c.hints.NegativeIntentsForSimilarText(text, hintMinScore)
		if err != nil {
			slog.Warn("rejection hint lookup failed", "error", err)
			avoid = nil
		}
	}

	prompt := BuildPrompt(text, history, avoid)

	raw, err := c.gen.GenerateJSON(ctx, prompt)
	if err != nil {
		slog.Warn("intent classification generation failed", "error", err)
		return errorResult(err)
	}

	result, err := parseResult(raw)
	if err != nil {
		slog.Warn("unparseable classifier output", "error", err, "response", raw)
		return errorResult(err)
	}

	if c.normalizer != nil {
		if d := result.Entities["disciplina"]; d != "" {
			result.Entities["disciplina"] = c.normalizer.Normalize(ctx, d)
		}
	}

	return result
}

func errorResult(err error) Result {
	return Result{
		Type:     ErroProcessamento,
		Entities: map[string]string{"error": err.Error()},
	}
}

// parseResult decodes the model output into a Result, coercing out-of-
// vocabulary labels to Desconhecido and non-mapping entities to an empty map.
func parseResult(raw string) (Result, error) {
	cleaned, err := extractJSON(raw)
	if err != nil {
		return Result{}, err
	}

	var decoded struct {
		Intent   string          `json:"intent"`
		Entities json.RawMessage `json:"entities"`
	}
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return Result{}, fmt.Errorf("decoding intent object: %w", err)
	}

	t, ok := ParseLabel(decoded.Intent)
	if !ok {
		t = Desconhecido
	}

	return Result{Type: t, Entities: coerceEntities(decoded.Entities)}, nil
}

// coerceEntities flattens the entities value into string slots: strings are
// kept, lists of strings are joined, anything else is dropped.
func coerceEntities(raw json.RawMessage) map[string]string {
	out := make(map[string]string)
	if len(raw) == 0 {
		return out
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return out
	}

	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = val
		case []any:
			var parts []string
			for _, item := range val {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				out[k] = strings.Join(parts, ", ")
			}
		}
	}
	return out
}
