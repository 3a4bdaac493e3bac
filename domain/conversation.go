// Package domain contains core concepts of the messaging system.
// This file defines Conversation entities and the pair canonicalization rules.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"viztalk/errors"

	"github.com/google/uuid"
)

// Conversation is the unique relationship record between exactly two
// participants. The unordered pair is stored canonically: ParticipantLow is
// always the lexicographically smaller identifier.
type Conversation struct {
	ID              uuid.UUID
	ParticipantLow  string
	ParticipantHigh string
	CreatedAt       time.Time
}

// CanonicalPair orders two participant identifiers deterministically so an
// unordered pair has a single storage representation.
func CanonicalPair(a, b string) (low, high string, err error) {
	if a == b {
		return "", "", errors.ErrSelfConversation
	}
	if b < a {
		a, b = b, a
	}
	return a, b, nil
}

// NewConversation builds a conversation for the given pair, canonicalized.
func NewConversation(a, b string) (Conversation, error) {
	low, high, err := CanonicalPair(a, b)
	if err != nil {
		return Conversation{}, err
	}
	return Conversation{
		ID:              uuid.New(),
		ParticipantLow:  low,
		ParticipantHigh: high,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// PairKey is the canonical storage key of the unordered participant pair.
func (c Conversation) PairKey() string {
	return c.ParticipantLow + "|" + c.ParticipantHigh
}

// Includes reports whether the participant belongs to this conversation.
func (c Conversation) Includes(participantID string) bool {
	return c.ParticipantLow == participantID || c.ParticipantHigh == participantID
}

// PeerOf returns the other participant of the pair, or "" for a stranger.
func (c Conversation) PeerOf(participantID string) string {
	switch participantID {
	case c.ParticipantLow:
		return c.ParticipantHigh
	case c.ParticipantHigh:
		return c.ParticipantLow
	}
	return ""
}
