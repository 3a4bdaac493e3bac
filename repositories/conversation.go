//go:generate go run go.uber.org/mock/mockgen -source=conversation.go -destination=../mocks/mock_conversation_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"time"

	"viztalk/domain"
	"viztalk/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IConversationRepository interface {
	Find(a, b string) (domain.Conversation, error)
	FindByID(id uuid.UUID) (domain.Conversation, error)
	Create(conv domain.Conversation) error
}

type ConversationRepository struct {
	db *badger.DB
}

func NewConversationRepository(db *badger.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// diskConversation is the storage representation of a conversation.
type diskConversation struct {
	ID              string    `json:"id"`
	ParticipantLow  string    `json:"participant_low"`
	ParticipantHigh string    `json:"participant_high"`
	CreatedAt       time.Time `json:"created_at"`
}

func pairKey(low, high string) []byte {
	return []byte(fmt.Sprintf("conv:pair:%s|%s", low, high))
}

func idKey(id uuid.UUID) []byte {
	return []byte("conv:id:" + id.String())
}

// Find resolves the conversation of an unordered pair. The pair is
// canonicalized first, so both argument orders hit the same key.
func (c ConversationRepository) Find(a, b string) (domain.Conversation, error) {
	low, high, err := domain.CanonicalPair(a, b)
	if err != nil {
		return domain.Conversation{}, err
	}
	return c.get(pairKey(low, high))
}

func (c ConversationRepository) FindByID(id uuid.UUID) (domain.Conversation, error) {
	return c.get(idKey(id))
}

// Create conditionally inserts a conversation under its canonical pair key.
// The existence check and the write share one update transaction; Badger
// serializes conflicting updates, so concurrent first-contact racers cannot
// both insert. The loser observes ErrConversationExists (or a transaction
// conflict, mapped to the same sentinel) and must re-read.
func (c ConversationRepository) Create(conv domain.Conversation) error {
	key := pairKey(conv.ParticipantLow, conv.ParticipantHigh)
	bytes, err := json.Marshal(fromConversation(conv))
	if err != nil {
		return err
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return errors.ErrConversationExists
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		return txn.Set(idKey(conv.ID), bytes)
	})
	if goerrors.Is(err, badger.ErrConflict) {
		return errors.ErrConversationExists
	}
	return err
}

func (c ConversationRepository) get(key []byte) (domain.Conversation, error) {
	var disk diskConversation
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Conversation{}, errors.ErrConversationNotFound
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	return toConversation(disk)
}

func fromConversation(conv domain.Conversation) diskConversation {
	return diskConversation{
		ID:              conv.ID.String(),
		ParticipantLow:  conv.ParticipantLow,
		ParticipantHigh: conv.ParticipantHigh,
		CreatedAt:       conv.CreatedAt,
	}
}

func toConversation(disk diskConversation) (domain.Conversation, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Conversation{}, err
	}
	return domain.Conversation{
		ID:              parsedID,
		ParticipantLow:  disk.ParticipantLow,
		ParticipantHigh: disk.ParticipantHigh,
		CreatedAt:       disk.CreatedAt.UTC(),
	}, nil
}
