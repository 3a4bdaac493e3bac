//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"viztalk/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// sequenceBandwidth is how many sequence numbers Badger leases at once.
const sequenceBandwidth = 64

type IMessageRepository interface {
	Append(conversationID uuid.UUID, senderID, content, lang string) (domain.Message, error)
	History(conversationID uuid.UUID, cursor *string, limit *int) ([]domain.Message, *string, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
	seq *badger.Sequence
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:msg"), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, log: log, seq: seq}, nil
}

// Close releases the unused part of the leased sequence back to Badger.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

// diskMessage is the storage representation of a message.
type diskMessage struct {
	ID           string    `json:"id"`
	Conversation string    `json:"conversation_id"`
	Sender       string    `json:"sender_id"`
	Content      string    `json:"content"`
	Lang         string    `json:"lang,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	Seq          uint64    `json:"seq"`
}

// messageKey formats "msg:{conversation}:{timestamp_padded}:{seq_padded}".
//  1. The 19-digit zero-padded nanosecond timestamp makes lexicographic key
//     order equal chronological order within a conversation prefix.
//  2. The padded sequence number breaks ties between messages committed in
//     the same nanosecond, so the total order is never ambiguous.
func messageKey(msg domain.Message) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%012d",
		msg.ConversationID,
		msg.CreatedAt.UnixNano(),
		msg.Seq,
	))
}

// Append assigns the message identity, timestamp, and sequence number at the
// storage layer, then persists it. Clients never supply ordering metadata.
func (m *MessageRepository) Append(conversationID uuid.UUID, senderID, content, lang string) (domain.Message, error) {
	seq, err := m.seq.Next()
	if err != nil {
		return domain.Message{}, err
	}
	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Lang:           lang,
		CreatedAt:      time.Now().UTC(),
		Seq:            seq,
	}
	bytes, err := json.Marshal(fromMessage(msg))
	if err != nil {
		return domain.Message{}, err
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(msg), bytes)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// History retrieves messages for a conversation using a forward prefix scan,
// oldest first. The whole read happens inside one View transaction, so it is
// a consistent snapshot even while other participants keep appending.
// An optional cursor resumes the scan after a previously returned page.
func (m *MessageRepository) History(conversationID uuid.UUID, cursor *string, limit *int) ([]domain.Message, *string, error) {
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("msg:%s:", conversationID)
		prefix := []byte(prefixStr)
		prefixLen := len(prefixStr)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		seekKey := prefix
		if cursor != nil {
			seekKey = append(append([]byte{}, prefix...), []byte(*cursor)...)
		}
		it.Seek(seekKey)

		// The cursor points at the last key of the previous page.
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit != nil && len(byteMessages) == *limit {
				m.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *limit))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[prefixLen:])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	// Nothing scanned means nothing to resume from.
	if lastKey == "" {
		return nil, nil, nil
	}

	var messages []domain.Message
	for _, b := range byteMessages {
		var disk diskMessage
		if err = json.Unmarshal(b, &disk); err != nil {
			return nil, nil, err
		}
		message, err := toMessage(disk)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	return messages, &lastKey, nil
}

func fromMessage(msg domain.Message) diskMessage {
	return diskMessage{
		ID:           msg.ID.String(),
		Conversation: msg.ConversationID.String(),
		Sender:       msg.SenderID,
		Content:      msg.Content,
		Lang:         msg.Lang,
		CreatedAt:    msg.CreatedAt,
		Seq:          msg.Seq,
	}
}

func toMessage(disk diskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	parsedConv, err := uuid.Parse(disk.Conversation)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             parsedID,
		ConversationID: parsedConv,
		SenderID:       disk.Sender,
		Content:        disk.Content,
		Lang:           disk.Lang,
		CreatedAt:      disk.CreatedAt.UTC(),
		Seq:            disk.Seq,
	}, nil
}
