// Package projection builds in-memory read models from observed events.
// Handles aggregation only; it does not emit events or touch storage.
package projection

import (
	"context"
	"sync"
	"time"

	"viztalk/domain/event"

	"github.com/google/uuid"
)

// ConversationSummary is the per-conversation read model: enough to render
// a conversation list without scanning the message log.
type ConversationSummary struct {
	LastSender   string    `json:"last_sender"`
	LastContent  string    `json:"last_content"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount uint64    `json:"message_count"`
}

// Overview aggregates message events into one summary per conversation.
// Registered as a permanent sink, so it observes every committed message
// regardless of open sessions. The projection is rebuilt empty on restart.
type Overview struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]ConversationSummary
}

func NewOverview() *Overview {
	return &Overview{entries: make(map[uuid.UUID]ConversationSummary)}
}

func (o *Overview) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageInserted)
	if !ok {
		return nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	summary := o.entries[evt.Message.ConversationID]
	summary.LastSender = evt.Message.SenderID
	summary.LastContent = evt.Message.Content
	summary.LastActivity = evt.Message.CreatedAt
	summary.MessageCount++
	o.entries[evt.Message.ConversationID] = summary
	return nil
}

// Summary returns the current read model for a conversation. The second
// return value is false when no message has been observed yet.
func (o *Overview) Summary(conversationID uuid.UUID) (ConversationSummary, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	summary, ok := o.entries[conversationID]
	return summary, ok
}
