package event

import (
	"viztalk/domain"

	"github.com/google/uuid"
)

// DomainEvent is anything the change notifier can fan out to sessions.
type DomainEvent interface {
	// ConversationID scopes delivery. uuid.Nil means global fanout, used by
	// profile changes which every contact list cares about.
	ConversationID() uuid.UUID
}

// MessageInserted signals a committed append to a conversation's log.
// Events for one conversation are published in commit order.
type MessageInserted struct {
	Message domain.Message
}

func (e MessageInserted) ConversationID() uuid.UUID {
	return e.Message.ConversationID
}

// ProfileChanged signals a created or updated directory entry. It carries the
// changed profile so consumers can apply an incremental update instead of
// re-reading the whole directory.
type ProfileChanged struct {
	Profile domain.Profile
}

func (e ProfileChanged) ConversationID() uuid.UUID {
	return uuid.Nil
}
