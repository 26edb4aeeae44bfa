package pipeline

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/edbot-dev/edbot/internal/intent"
)

const (
	sessionContextTTL  = 30 * time.Minute
	sessionContextSize = 1024
)

// topicState is the per-session conversational context: the last discipline
// and topic the user talked about. It only serves to resolve elliptical
// follow-ups ("aprofunda isso"); it is never a substitute for the durable
// feedback state.
type topicState struct {
	Discipline string
	Topic      string
}

// sessionContext is an in-process, TTL-bounded cache of topicState keyed by
// session id.
type sessionContext struct {
	cache *expirable.LRU[int64, topicState]
}

func newSessionContext() *sessionContext {
	return &sessionContext{
		cache: expirable.NewLRU[int64, topicState](sessionContextSize, nil, sessionContextTTL),
	}
}

// remember folds the classified entities of a turn into the session's state.
// Empty slots never overwrite remembered values.
func (s *sessionContext) remember(sessionID *int64, result intent.Result) {
	if sessionID == nil {
		return
	}
	state, _ := s.cache.Get(*sessionID)
	changed := false
	if d := result.Entity("disciplina"); d != "" {
		state.Discipline = d
		changed = true
	}
	if t := result.Entity("topico"); t != "" {
		state.Topic = t
		changed = true
	}
	if changed {
		s.cache.Add(*sessionID, state)
	}
}

// lastTopic returns the remembered topic (falling back to the discipline)
// for the session, or "".
func (s *sessionContext) lastTopic(sessionID *int64) string {
	if sessionID == nil {
		return ""
	}
	state, ok := s.cache.Get(*sessionID)
	if !ok {
		return ""
	}
	if state.Topic != "" {
		return state.Topic
	}
	return state.Discipline
}
