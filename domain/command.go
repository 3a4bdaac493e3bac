package domain

import "github.com/google/uuid"

// SendMessageCommand carries a message sending intent. Content is the raw
// client input; validation and moderation happen downstream.
type SendMessageCommand struct {
	Conversation uuid.UUID
	SenderID     string
	Content      string
}

// HistoryCommand requests an ordered slice of a conversation's log.
type HistoryCommand struct {
	Conversation uuid.UUID
	Cursor       *string
	Limit        *int
}

// ResolveCommand maps an unordered participant pair to its conversation.
type ResolveCommand struct {
	Requester string
	Peer      string
}
