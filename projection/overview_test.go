package projection

import (
	"context"
	"testing"
	"time"

	"viztalk/domain"
	"viztalk/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func insert(t *testing.T, o *Overview, conversationID uuid.UUID, sender, content string) {
	t.Helper()
	require.NoError(t, o.Consume(context.Background(), event.MessageInserted{Message: domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       sender,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}}))
}

func TestOverview_Tracks_Last_Message_And_Count(t *testing.T) {
	req := require.New(t)
	overview := NewOverview()
	conversation := uuid.New()

	// Given no message observed yet
	_, ok := overview.Summary(conversation)
	req.False(ok)

	insert(t, overview, conversation, "alice", "hello")
	insert(t, overview, conversation, "bob", "hi!")

	summary, ok := overview.Summary(conversation)
	req.True(ok)
	req.Equal("bob", summary.LastSender)
	req.Equal("hi!", summary.LastContent)
	req.EqualValues(2, summary.MessageCount)
}

func TestOverview_Keeps_Conversations_Separate(t *testing.T) {
	req := require.New(t)
	overview := NewOverview()
	first := uuid.New()
	second := uuid.New()

	insert(t, overview, first, "alice", "first conversation")
	insert(t, overview, second, "carol", "second conversation")

	summary, ok := overview.Summary(first)
	req.True(ok)
	req.Equal("first conversation", summary.LastContent)
	req.EqualValues(1, summary.MessageCount)
}

func TestOverview_Ignores_Profile_Events(t *testing.T) {
	req := require.New(t)
	overview := NewOverview()

	req.NoError(overview.Consume(context.Background(), event.ProfileChanged{
		Profile: domain.Profile{ID: "alice"},
	}))

	_, ok := overview.Summary(uuid.Nil)
	req.False(ok)
}
