//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"viztalk/domain/event"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself.
// Can be silly, focused.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives fanned-out domain events. Consume must not block longer
// than the context allows; a sink that reports an error is considered dead.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Subscriber pairs a registered sink with the session handle that owns it,
// so the fanout path can unregister a dead sink by handle.
type Subscriber struct {
	ID   uuid.UUID
	Sink EventSink
}

type IRegistry interface {
	Subscribe(sessionID, conversationID uuid.UUID, sink EventSink)
	Unsubscribe(sessionID uuid.UUID)
	Recipients(e event.DomainEvent) []Subscriber
}
