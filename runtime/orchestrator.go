// Package runtime wires event production, fanout, and session bookkeeping.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	goerrors "errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"viztalk/contract"
	"viztalk/domain"
	"viztalk/domain/event"
	"viztalk/errors"
	"viztalk/moderation"
	"viztalk/repositories"
	"viztalk/runtime/workers"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// lockStripes bounds the number of conversation mutexes; conversations map
// onto stripes by hash so the set never grows with traffic.
const lockStripes = 64

type Orchestrator struct {
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       contract.IRegistry
	conversations  repositories.IConversationRepository
	messages       repositories.IMessageRepository
	profileStore   repositories.IProfileRepository
	profileReader  ProfileReader
	moderator      *moderation.Moderator
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sessionQueue   int
	sinkTimeout    time.Duration
	metricInterval time.Duration
	locks          [lockStripes]sync.Mutex
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry,
	conversations repositories.IConversationRepository,
	messages repositories.IMessageRepository,
	profileStore repositories.IProfileRepository,
	profileReader ProfileReader,
	moderator *moderation.Moderator,
	bufferSize, sessionQueueSize int,
	sinkTimeout, metricInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		conversations:  conversations,
		messages:       messages,
		profileStore:   profileStore,
		profileReader:  profileReader,
		moderator:      moderator,
		events:         make(chan event.DomainEvent, bufferSize),
		sessionQueue:   sessionQueueSize,
		sinkTimeout:    sinkTimeout,
		metricInterval: metricInterval,
	}
}

// Add registers permanent sinks that receive every committed event,
// independent of any session lifecycle.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Start hands the fanout and telemetry workers to the supervisor. The
// supervision loop runs until the context is canceled or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	fanout := workers.NewFanoutWorker(o.log, o.events, o.registry, o.sinkTimeout).
		Add(o.permanentSinks...)
	o.supervisor.Add(fanout)
	o.supervisor.Add(workers.NewTelemetryWorker(o.log, o.metricInterval))

	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(ctx)
}

func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
}

// ResolveConversation maps an unordered participant pair to its single
// conversation, creating it on first contact. Two racers may both attempt
// the insert; the canonical pair key lets only one win, and the loser
// re-reads exactly once to return the winner's conversation.
func (o *Orchestrator) ResolveConversation(requester, peer string) (domain.Conversation, error) {
	conv, err := o.conversations.Find(requester, peer)
	if err == nil {
		return conv, nil
	}
	if goerrors.Is(err, errors.ErrSelfConversation) {
		return domain.Conversation{}, err
	}
	if !goerrors.Is(err, errors.ErrConversationNotFound) {
		return domain.Conversation{}, storageFailure(err)
	}

	fresh, err := domain.NewConversation(requester, peer)
	if err != nil {
		return domain.Conversation{}, err
	}
	err = o.conversations.Create(fresh)
	if err == nil {
		return fresh, nil
	}
	if !goerrors.Is(err, errors.ErrConversationExists) {
		return domain.Conversation{}, storageFailure(err)
	}

	// Lost the first-contact race: one re-read, no further retries.
	conv, err = o.conversations.Find(requester, peer)
	if err != nil {
		return domain.Conversation{}, storageFailure(err)
	}
	return conv, nil
}

// SendMessage validates, moderates, appends, and publishes one message.
// The per-conversation lock holds across append and publish, so the order
// of events in the fanout channel equals the commit order of the log.
func (o *Orchestrator) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	content, err := domain.ValidateContent(cmd.Content)
	if err != nil {
		return domain.Message{}, err
	}

	conv, err := o.conversations.FindByID(cmd.Conversation)
	if err != nil {
		if goerrors.Is(err, errors.ErrConversationNotFound) {
			return domain.Message{}, err
		}
		return domain.Message{}, storageFailure(err)
	}
	// A sender outside the pair is treated as addressing an unknown
	// conversation; the distinction is not leaked.
	if !conv.Includes(cmd.SenderID) {
		return domain.Message{}, errors.ErrConversationNotFound
	}

	if o.moderator != nil {
		content = o.moderator.Censor(content)
	}
	lang := detectLang(content)

	lock := o.lockFor(cmd.Conversation)
	lock.Lock()
	defer lock.Unlock()

	msg, err := o.messages.Append(cmd.Conversation, cmd.SenderID, content, lang)
	if err != nil {
		return domain.Message{}, storageFailure(err)
	}
	o.publish(event.MessageInserted{Message: msg})
	return msg, nil
}

// History returns an ordered snapshot of a conversation's log, oldest first.
func (o *Orchestrator) History(cmd domain.HistoryCommand) ([]domain.Message, *string, error) {
	messages, cursor, err := o.messages.History(cmd.Conversation, cmd.Cursor, cmd.Limit)
	if err != nil {
		return nil, nil, storageFailure(err)
	}
	return messages, cursor, nil
}

// Subscribe opens a realtime session on a conversation. The session starts
// receiving events published after this call; earlier messages come from
// History, which callers load first to avoid a delivery gap.
func (o *Orchestrator) Subscribe(conversationID uuid.UUID, handlers SessionHandlers) *Session {
	s := newSession(o.log, conversationID, o.sessionQueue, handlers, o.profileReader, o.registry)
	o.registry.Subscribe(s.ID, conversationID, s)
	go s.pump()
	return s
}

// SaveProfile upserts a directory entry and announces the change to every
// open session, carrying the entry itself for incremental updates.
func (o *Orchestrator) SaveProfile(ctx context.Context, profile domain.Profile) error {
	if err := o.profileStore.Upsert(profile); err != nil {
		return storageFailure(err)
	}
	o.publish(event.ProfileChanged{Profile: profile})
	return nil
}

// Conversation looks a conversation up by its identifier.
func (o *Orchestrator) Conversation(id uuid.UUID) (domain.Conversation, error) {
	conv, err := o.conversations.FindByID(id)
	if err != nil {
		if goerrors.Is(err, errors.ErrConversationNotFound) {
			return domain.Conversation{}, err
		}
		return domain.Conversation{}, storageFailure(err)
	}
	return conv, nil
}

// Contacts lists every directory entry except the caller's.
func (o *Orchestrator) Contacts(participantID string) ([]domain.Profile, error) {
	profiles, err := o.profileStore.List(participantID)
	if err != nil {
		return nil, storageFailure(err)
	}
	return profiles, nil
}

// publish blocks rather than drops: once a write is committed, registered
// listeners must see its event, even when the caller's request context is
// already canceled. The single fanout drainer keeps the channel short, so
// blocking here is bounded by the buffer, not by listeners.
func (o *Orchestrator) publish(e event.DomainEvent) {
	o.events <- e
}

func (o *Orchestrator) lockFor(conversationID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(conversationID[:])
	return &o.locks[h.Sum32()%lockStripes]
}

func storageFailure(err error) error {
	return fmt.Errorf("%w: %v", errors.ErrStorageUnavailable, err)
}

// detectLang tags content with an ISO 639-3 code when detection is
// confident, "" otherwise.
func detectLang(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
