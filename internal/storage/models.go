package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// FeedbackRecord is one user rating of a bot answer. Helpful is nil until the
// user actually rates the exchange. Consumed marks negative ratings that have
// already triggered a recovery answer.
type FeedbackRecord struct {
	ID             int64
	SessionID      *int64
	UserQuestion   string
	BotAnswer      string
	Helpful        *bool
	DetectedIntent string
	Consumed       bool
	CreatedAt      time.Time
}

// UpsertParams carries the fields of a feedback submission. Nil pointer fields
// are treated as "not provided": on update they leave the stored value
// untouched, on insert they default to NULL/empty.
type UpsertParams struct {
	ID             *int64
	SessionID      *int64
	UserQuestion   *string
	BotAnswer      *string
	Helpful        *bool
	DetectedIntent *string
}
