package workers

import (
	"context"
	"log/slog"
	"time"

	"viztalk/contract"
	"viztalk/domain/event"
)

// FanoutWorker drains the committed-event channel and delivers each event to
// every registered sink. A single goroutine drains the channel, so each
// listener observes events in the exact order they were committed.
//
// Permanent sinks (search index, projections) receive every event and are
// never unregistered; session sinks that report an error are dropped from
// the registry without affecting the others.
type FanoutWorker struct {
	log            *slog.Logger
	events         chan event.DomainEvent
	registry       contract.IRegistry
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewFanoutWorker(log *slog.Logger, events chan event.DomainEvent,
	registry contract.IRegistry, sinkTimeout time.Duration) *FanoutWorker {
	return &FanoutWorker{log: log, events: events, registry: registry, sinkTimeout: sinkTimeout}
}

func (w *FanoutWorker) Add(sinks ...contract.EventSink) *FanoutWorker {
	w.permanentSinks = append(w.permanentSinks, sinks...)
	return w
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout delivers one event to the permanent sinks and to the registry's
// recipients for that event. A dead session sink loses this event only and
// is unregistered; delivery to the remaining sinks continues.
func (w *FanoutWorker) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.permanentSinks {
		if err := w.deliver(ctx, sink, evt); err != nil {
			w.log.Error("Permanent sink failed", "error", err)
		}
	}
	for _, sub := range w.registry.Recipients(evt) {
		if err := w.deliver(ctx, sub.Sink, evt); err != nil {
			w.log.Debug("Unregistering dead sink", "session_id", sub.ID, "error", err)
			w.registry.Unsubscribe(sub.ID)
		}
	}
}

func (w *FanoutWorker) deliver(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) error {
	deliverCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()
	return sink.Consume(deliverCtx, evt)
}
