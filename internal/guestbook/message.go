// internal/guestbook/message.go
//
// Guestbook message model and wire envelopes.
//
// Context
// -------
// Messages are append-only: created by a user action, never mutated, and
// deleted only out-of-band.  The remote backend wraps list responses in a
// double envelope, `{"json": {"json": [...]}}`, an artifact of its
// serialization layer.  That contract is preserved on ingest and
// flattened immediately; nothing past this package ever sees it.
package guestbook

import (
	"time"

	"github.com/yanizio/folio/internal/schema"
)

// MaxMessageRunes bounds the text length enforced before a POST.
const MaxMessageRunes = 500

// Message is one guestbook entry.
type Message struct {
	ID        string    `json:"id"        validate:"required"`
	Text      string    `json:"text"      validate:"required,max=500"`
	Author    string    `json:"author"    validate:"required"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
	Email     *string   `json:"email,omitempty" validate:"omitempty,email"`
}

// listEnvelope mirrors the backend's double-wrapped list response.
type listEnvelope struct {
	JSON struct {
		JSON []Message `json:"json" validate:"dive"`
	} `json:"json"`
}

var (
	listSchema    = schema.New[listEnvelope]("guestbookList")
	messageSchema = schema.New[Message]("guestbookMessage")
)
