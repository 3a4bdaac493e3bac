package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"viztalk/contract"
	"viztalk/domain"
	"viztalk/domain/event"

	"github.com/google/uuid"
)

var errSessionClosed = fmt.Errorf("session closed")

// ProfileReader is the lookup a session uses to join sender metadata onto a
// message at delivery time. Backed by the read-through cache in production.
type ProfileReader interface {
	Lookup(participantID string) (domain.Profile, error)
}

// SessionHandlers are the client-side callbacks of a subscription session.
// OnProfile may be nil when the client has no contact list open.
type SessionHandlers struct {
	OnMessage func(msg domain.DeliveredMessage)
	OnProfile func(profile domain.Profile)
}

// Session is a per-client realtime channel scoped to one conversation.
// Events arrive through a bounded queue drained by a dedicated pump
// goroutine, so one slow client never stalls the fanout path.
type Session struct {
	ID           uuid.UUID
	conversation uuid.UUID
	queue        chan event.DomainEvent
	handlers     SessionHandlers
	profiles     ProfileReader
	registry     contract.IRegistry
	log          *slog.Logger
	done         chan struct{}
	closeOnce    sync.Once
}

func newSession(log *slog.Logger, conversationID uuid.UUID, queueSize int,
	handlers SessionHandlers, profiles ProfileReader, registry contract.IRegistry) *Session {
	return &Session{
		ID:           uuid.New(),
		conversation: conversationID,
		queue:        make(chan event.DomainEvent, queueSize),
		handlers:     handlers,
		profiles:     profiles,
		registry:     registry,
		log:          log,
		done:         make(chan struct{}),
	}
}

// Consume is called by the fanout worker. It never blocks: a full queue
// drops the event for this session only, and a closed session reports
// errSessionClosed so the fanout path unregisters it.
func (s *Session) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case <-s.done:
		return errSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	select {
	case s.queue <- e:
		return nil
	default:
		s.log.Warn("Session queue full, dropping event", "session_id", s.ID)
		return nil
	}
}

// Close unregisters the session immediately and stops the pump. Closing
// twice is a no-op.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.registry.Unsubscribe(s.ID)
	})
}

func (s *Session) pump() {
	for {
		select {
		case <-s.done:
			return
		case e := <-s.queue:
			// Events still queued when Close ran must not reach the client.
			select {
			case <-s.done:
				return
			default:
			}
			s.dispatch(e)
		}
	}
}

func (s *Session) dispatch(e event.DomainEvent) {
	switch evt := e.(type) {
	case event.MessageInserted:
		s.handlers.OnMessage(s.join(evt.Message))
	case event.ProfileChanged:
		if s.handlers.OnProfile != nil {
			s.handlers.OnProfile(evt.Profile)
		}
	default:
		s.log.Debug(fmt.Sprintf("Not implemented event : %v", evt))
	}
}

// join performs exactly one profile lookup per message. A failed lookup
// falls back to the unknown-sender label; delivery itself never blocks on
// the auxiliary read.
func (s *Session) join(msg domain.Message) domain.DeliveredMessage {
	delivered := domain.DeliveredMessage{Message: msg, SenderName: domain.UnknownSender}
	profile, err := s.profiles.Lookup(msg.SenderID)
	if err != nil {
		s.log.Debug("Sender profile lookup failed, delivering anyway",
			"sender_id", msg.SenderID, "error", err)
		return delivered
	}
	delivered.SenderName = profile.Username
	delivered.SenderColor = profile.AvatarColor
	return delivered
}
