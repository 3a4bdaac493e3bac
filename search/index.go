// Package search maintains a full-text index over committed messages.
// The index is fed by the fanout path as a permanent sink; queries are
// always scoped to one conversation.
package search

import (
	"context"
	"log/slog"
	"time"

	"viztalk/domain/event"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
)

type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Consume implements contract.EventSink: every committed message becomes a
// document. Indexing failures are the sink's own problem and never affect
// message delivery.
func (i *Index) Consume(_ context.Context, e event.DomainEvent) error {
	evt, ok := e.(event.MessageInserted)
	if !ok {
		return nil
	}
	msg := evt.Message
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("conversation_id", msg.ConversationID.String()).StoreValue()).
		AddField(bluge.NewKeywordField("sender_id", msg.SenderID).StoreValue()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("lang", msg.Lang)).
		AddField(bluge.NewStoredOnlyField("created_at", []byte(msg.CreatedAt.Format(time.RFC3339Nano))))
	return i.writer.Update(doc.ID(), doc)
}

// Hit is one search result, reconstructed from stored fields.
type Hit struct {
	MessageID string
	SenderID  string
	Content   string
	CreatedAt time.Time
}

// Search runs a match query over message content, restricted to the given
// conversation. Results come back most relevant first.
func (i *Index) Search(ctx context.Context, conversationID uuid.UUID, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Error("Failed to close index reader", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(conversationID.String()).SetField("conversation_id"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "sender_id":
				hit.SenderID = string(value)
			case "content":
				hit.Content = string(value)
			case "created_at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					hit.CreatedAt = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
