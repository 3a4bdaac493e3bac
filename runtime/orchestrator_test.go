package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"viztalk/domain"
	"viztalk/errors"
	"viztalk/moderation"
	"viztalk/repositories"
	"viztalk/runtime/workers"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// repoReader adapts the profile repository to the session-side lookup.
type repoReader struct {
	repo repositories.IProfileRepository
}

func (r repoReader) Lookup(participantID string) (domain.Profile, error) {
	return r.repo.Get(participantID)
}

func newTestOrchestrator(t *testing.T, moderator *moderation.Moderator) *Orchestrator {
	t.Helper()
	db := openTestDB(t)
	log := slog.Default()

	messages, err := repositories.NewMessageRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	profiles := repositories.NewProfileRepository(db)

	return NewOrchestrator(
		log,
		workers.NewSupervisor(log, 50*time.Millisecond),
		NewRegistry(),
		repositories.NewConversationRepository(db),
		messages,
		profiles,
		repoReader{repo: profiles},
		moderator,
		64, 64,
		time.Second, time.Hour,
	)
}

func TestOrchestrator_ResolveConversation(t *testing.T) {
	t.Run("should create on first contact and find afterwards", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)

		created, err := o.ResolveConversation("alice", "bob")
		req.NoError(err)
		req.NotEqual(uuid.Nil, created.ID)

		// Resolving the reversed pair must land on the same conversation
		found, err := o.ResolveConversation("bob", "alice")
		req.NoError(err)
		req.Equal(created.ID, found.ID)
	})

	t.Run("should reject a pair of identical participants", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)

		_, err := o.ResolveConversation("alice", "alice")

		req.ErrorIs(err, errors.ErrSelfConversation)
	})

	t.Run("should give every racer the same conversation on first contact", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)

		const racers = 16
		results := make(chan uuid.UUID, racers)
		var wg sync.WaitGroup
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				requester, peer := "alice", "bob"
				if n%2 == 0 {
					requester, peer = peer, requester
				}
				conv, err := o.ResolveConversation(requester, peer)
				req.NoError(err)
				results <- conv.ID
			}(i)
		}
		wg.Wait()
		close(results)

		seen := make(map[uuid.UUID]struct{})
		for id := range results {
			seen[id] = struct{}{}
		}
		req.Len(seen, 1)
	})
}

func TestOrchestrator_SendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("should reject whitespace-only content", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)
		conv, err := o.ResolveConversation("alice", "bob")
		req.NoError(err)

		_, err = o.SendMessage(ctx, domain.SendMessageCommand{
			Conversation: conv.ID,
			SenderID:     "alice",
			Content:      "   \t\n ",
		})

		req.ErrorIs(err, errors.ErrEmptyContent)
	})

	t.Run("should reject content over the length ceiling", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)
		conv, err := o.ResolveConversation("alice", "bob")
		req.NoError(err)

		_, err = o.SendMessage(ctx, domain.SendMessageCommand{
			Conversation: conv.ID,
			SenderID:     "alice",
			Content:      strings.Repeat("a", domain.MaxContentLength+1),
		})

		req.ErrorIs(err, errors.ErrContentTooLong)
	})

	t.Run("should report unknown conversations", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)

		_, err := o.SendMessage(ctx, domain.SendMessageCommand{
			Conversation: uuid.New(),
			SenderID:     "alice",
			Content:      "hello",
		})

		req.ErrorIs(err, errors.ErrConversationNotFound)
	})

	t.Run("should hide the conversation from outsiders", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)
		conv, err := o.ResolveConversation("alice", "bob")
		req.NoError(err)

		_, err = o.SendMessage(ctx, domain.SendMessageCommand{
			Conversation: conv.ID,
			SenderID:     "mallory",
			Content:      "let me in",
		})

		// Outsiders must not learn whether the conversation exists
		req.ErrorIs(err, errors.ErrConversationNotFound)
	})

	t.Run("should append and return history in commit order", func(t *testing.T) {
		req := require.New(t)
		o := newTestOrchestrator(t, nil)
		conv, err := o.ResolveConversation("alice", "bob")
		req.NoError(err)

		for i := 0; i < 5; i++ {
			sender := "alice"
			if i%2 == 1 {
				sender = "bob"
			}
			_, err = o.SendMessage(ctx, domain.SendMessageCommand{
				Conversation: conv.ID,
				SenderID:     sender,
				Content:      fmt.Sprintf("message %d", i),
			})
			req.NoError(err)
		}

		messages, _, err := o.History(domain.HistoryCommand{Conversation: conv.ID})
		req.NoError(err)
		req.Len(messages, 5)
		for i, msg := range messages {
			req.Equal(fmt.Sprintf("message %d", i), msg.Content)
			if i > 0 {
				req.Greater(msg.Seq, messages[i-1].Seq)
				req.False(msg.CreatedAt.Before(messages[i-1].CreatedAt))
			}
		}
	})

	t.Run("should censor banned words before persisting", func(t *testing.T) {
		req := require.New(t)
		moderator, err := moderation.NewModerator([]string{"sardine"}, '*')
		req.NoError(err)
		o := newTestOrchestrator(t, moderator)
		conv, err := o.ResolveConversation("alice", "bob")
		req.NoError(err)

		msg, err := o.SendMessage(ctx, domain.SendMessageCommand{
			Conversation: conv.ID,
			SenderID:     "alice",
			Content:      "I love sardine toast",
		})
		req.NoError(err)
		req.Equal("I love ******* toast", msg.Content)

		// The stored copy is the censored one
		messages, _, err := o.History(domain.HistoryCommand{Conversation: conv.ID})
		req.NoError(err)
		req.Equal("I love ******* toast", messages[0].Content)
	})
}

func collectMessages(out chan<- domain.DeliveredMessage) SessionHandlers {
	return SessionHandlers{
		OnMessage: func(msg domain.DeliveredMessage) { out <- msg },
	}
}

func TestOrchestrator_Subscribe_Delivers_In_Commit_Order(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	conv, err := o.ResolveConversation("alice", "bob")
	req.NoError(err)

	const count = 20
	aliceInbox := make(chan domain.DeliveredMessage, count)
	bobInbox := make(chan domain.DeliveredMessage, count)
	o.Subscribe(conv.ID, collectMessages(aliceInbox))
	o.Subscribe(conv.ID, collectMessages(bobInbox))

	var sent []string
	for i := 0; i < count; i++ {
		sender := "alice"
		if i%2 == 1 {
			sender = "bob"
		}
		msg, err := o.SendMessage(ctx, domain.SendMessageCommand{
			Conversation: conv.ID,
			SenderID:     sender,
			Content:      fmt.Sprintf("hello %d", i),
		})
		req.NoError(err)
		sent = append(sent, msg.Content)
	}

	for _, inbox := range []chan domain.DeliveredMessage{aliceInbox, bobInbox} {
		var got []string
		for i := 0; i < count; i++ {
			select {
			case msg := <-inbox:
				got = append(got, msg.Content)
			case <-time.After(2 * time.Second):
				req.Fail("Timed out waiting for delivery")
			}
		}
		// Each listener observes the exact commit order
		req.Equal(sent, got)
	}
}

func TestOrchestrator_Canceled_Sender_Context_Still_Delivers(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	conv, err := o.ResolveConversation("alice", "bob")
	req.NoError(err)

	const count = 50
	inbox := make(chan domain.DeliveredMessage, count)
	o.Subscribe(conv.ID, collectMessages(inbox))

	// A client that disconnects right after POSTing leaves the handler
	// with an already-canceled context. The commit still happened, so
	// every listener must see its event.
	senderCtx, senderCancel := context.WithCancel(context.Background())
	senderCancel()

	for i := 0; i < count; i++ {
		_, err := o.SendMessage(senderCtx, domain.SendMessageCommand{
			Conversation: conv.ID,
			SenderID:     "alice",
			Content:      fmt.Sprintf("hello %d", i),
		})
		req.NoError(err)
	}

	messages, _, err := o.History(domain.HistoryCommand{Conversation: conv.ID})
	req.NoError(err)
	req.Len(messages, count)

	for i := 0; i < count; i++ {
		select {
		case msg := <-inbox:
			req.Equal(fmt.Sprintf("hello %d", i), msg.Content)
		case <-time.After(2 * time.Second):
			req.Failf("Delivery gap", "only %d of %d messages delivered", i, count)
		}
	}
}

func TestOrchestrator_Subscribe_Joins_Sender_Profile(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	req.NoError(o.SaveProfile(ctx, domain.Profile{ID: "alice", Username: "Alice", AvatarColor: "#4363d8"}))

	conv, err := o.ResolveConversation("alice", "bob")
	req.NoError(err)

	inbox := make(chan domain.DeliveredMessage, 1)
	o.Subscribe(conv.ID, collectMessages(inbox))

	_, err = o.SendMessage(ctx, domain.SendMessageCommand{
		Conversation: conv.ID,
		SenderID:     "alice",
		Content:      "hi!",
	})
	req.NoError(err)

	select {
	case msg := <-inbox:
		req.Equal("Alice", msg.SenderName)
		req.Equal("#4363d8", msg.SenderColor)
	case <-time.After(2 * time.Second):
		req.Fail("Timed out waiting for delivery")
	}
}

func TestOrchestrator_SaveProfile_Notifies_Open_Sessions(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	conv, err := o.ResolveConversation("alice", "bob")
	req.NoError(err)

	updates := make(chan domain.Profile, 1)
	o.Subscribe(conv.ID, SessionHandlers{
		OnMessage: func(msg domain.DeliveredMessage) {},
		OnProfile: func(profile domain.Profile) { updates <- profile },
	})

	req.NoError(o.SaveProfile(ctx, domain.Profile{ID: "carol", Username: "Carol"}))

	select {
	case profile := <-updates:
		req.Equal("Carol", profile.Username)
	case <-time.After(2 * time.Second):
		req.Fail("Timed out waiting for the profile update")
	}
}

func TestOrchestrator_Closed_Session_Stops_Receiving(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.Start(ctx)
	defer o.Stop()

	conv, err := o.ResolveConversation("alice", "bob")
	req.NoError(err)

	closedInbox := make(chan domain.DeliveredMessage, 1)
	openInbox := make(chan domain.DeliveredMessage, 1)
	closed := o.Subscribe(conv.ID, collectMessages(closedInbox))
	o.Subscribe(conv.ID, collectMessages(openInbox))

	closed.Close()

	_, err = o.SendMessage(ctx, domain.SendMessageCommand{
		Conversation: conv.ID,
		SenderID:     "alice",
		Content:      "still here?",
	})
	req.NoError(err)

	// The surviving session gets the message
	select {
	case msg := <-openInbox:
		req.Equal("still here?", msg.Content)
	case <-time.After(2 * time.Second):
		req.Fail("Timed out waiting for delivery")
	}

	// The closed one stays silent
	select {
	case <-closedInbox:
		req.Fail("Closed session must not receive messages")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestOrchestrator_Contacts_Excludes_Caller(t *testing.T) {
	req := require.New(t)
	o := newTestOrchestrator(t, nil)

	ctx := context.Background()
	req.NoError(o.SaveProfile(ctx, domain.Profile{ID: "alice", Username: "Alice"}))
	req.NoError(o.SaveProfile(ctx, domain.Profile{ID: "bob", Username: "Bob"}))

	contacts, err := o.Contacts("alice")
	req.NoError(err)
	req.Len(contacts, 1)
	req.Equal("bob", contacts[0].ID)
}
