// Package domain contains core concepts of the messaging system.
// This file defines Message entities and content validation rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"viztalk/errors"

	"github.com/google/uuid"
)

// MaxContentLength bounds a message body, counted in runes after trimming.
const MaxContentLength = 5000

// UnknownSender labels a delivered message whose author profile could not be
// resolved. Delivery itself is never blocked by the lookup.
const UnknownSender = "Unknown"

// Message represents an immutable chat event owned by one conversation.
// CreatedAt and Seq are assigned by the storage layer; together they define
// the total order of the conversation.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	SenderID       string
	Content        string
	Lang           string
	CreatedAt      time.Time
	Seq            uint64
}

// DeliveredMessage is a Message joined with its author's profile at delivery
// time. The join is derived per delivery and never persisted.
type DeliveredMessage struct {
	Message
	SenderName  string
	SenderColor string
}

// ValidateContent normalizes and bounds-checks a raw message body.
// It is pure and safe to re-run on every boundary: clients are untrusted and
// the service layer repeats the check before any storage mutation.
func ValidateContent(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return "", errors.ErrContentTooLong
	}
	return trimmed, nil
}
