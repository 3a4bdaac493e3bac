package runtime

import (
	"sync"

	"viztalk/contract"
	"viztalk/domain/event"

	"github.com/google/uuid"
)

type Set map[uuid.UUID]struct{}

// Registry tracks open subscription sessions. Message events reach only the
// sessions of their conversation; profile changes reach every session, since
// the contact list needs each directory update.
type Registry struct {
	mu             sync.RWMutex
	sessions       map[uuid.UUID]contract.EventSink
	conversations  map[uuid.UUID]uuid.UUID // session -> conversation
	byConversation map[uuid.UUID]Set
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:       make(map[uuid.UUID]contract.EventSink),
		conversations:  make(map[uuid.UUID]uuid.UUID),
		byConversation: make(map[uuid.UUID]Set),
	}
}

// Subscribe registers a session's sink under its conversation scope.
// If the conversation has no index entry yet, it is initialized on the fly.
func (r *Registry) Subscribe(sessionID, conversationID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = sink
	r.conversations[sessionID] = conversationID

	if _, ok := r.byConversation[conversationID]; !ok {
		r.byConversation[conversationID] = make(Set)
	}
	r.byConversation[conversationID][sessionID] = struct{}{}
}

// Unsubscribe removes a session. Calling it for an unknown session is a
// no-op, which makes session Close idempotent. Empty conversation sets are
// removed so the index does not leak one entry per conversation switch.
func (r *Registry) Unsubscribe(sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conversationID, ok := r.conversations[sessionID]
	if !ok {
		return
	}
	delete(r.sessions, sessionID)
	delete(r.conversations, sessionID)

	if members, ok := r.byConversation[conversationID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.byConversation, conversationID)
		}
	}
}

// Recipients snapshots the sinks an event must reach: the sessions of its
// conversation for scoped events, every session for global ones.
func (r *Registry) Recipients(e event.DomainEvent) []contract.Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e.ConversationID() == uuid.Nil {
		subscribers := make([]contract.Subscriber, 0, len(r.sessions))
		for id, sink := range r.sessions {
			subscribers = append(subscribers, contract.Subscriber{ID: id, Sink: sink})
		}
		return subscribers
	}

	members, ok := r.byConversation[e.ConversationID()]
	if !ok {
		return nil
	}
	var subscribers []contract.Subscriber
	for id := range members {
		if sink, exists := r.sessions[id]; exists {
			subscribers = append(subscribers, contract.Subscriber{ID: id, Sink: sink})
		}
	}
	return subscribers
}
