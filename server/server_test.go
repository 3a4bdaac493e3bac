package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"viztalk/auth"
	"viztalk/domain"
	"viztalk/errors"
	"viztalk/mocks"
	"viztalk/projection"
	"viztalk/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	chat   *mocks.MockIChatService
	auth   *mocks.MockIAuthService
	tokens *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctrl := gomock.NewController(t)
	chat := mocks.NewMockIChatService(ctrl)
	authSvc := mocks.NewMockIAuthService(ctrl)
	tokens := auth.NewTokenManager("handler-test-secret", time.Hour)
	srv := NewServer(slog.Default(), chat, authSvc, tokens)
	return &testServer{
		router: srv.Router(),
		chat:   chat,
		auth:   authSvc,
		tokens: tokens,
	}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) tokenFor(t *testing.T, userID, username string) string {
	t.Helper()
	token, err := ts.tokens.Generate(userID, username)
	require.NoError(t, err)
	return token
}

func TestServer_Register(t *testing.T) {
	t.Run("should return created with token on success", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Register(gomock.Any(), "alice@example.com", "alice", "ComplexPass123").
			Return(services.Token("signed-token"), nil)

		rec := ts.request(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email":    "alice@example.com",
			"username": "alice",
			"password": "ComplexPass123",
		})

		req.Equal(http.StatusCreated, rec.Code)
		req.Contains(rec.Body.String(), "signed-token")
	})

	t.Run("should return conflict when email is taken", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Register(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(services.Token(""), errors.ErrUserAlreadyExists)

		rec := ts.request(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email":    "alice@example.com",
			"username": "alice",
			"password": "ComplexPass123",
		})

		req.Equal(http.StatusConflict, rec.Code)
	})

	t.Run("should reject missing fields before reaching the service", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		rec := ts.request(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
			"email": "alice@example.com",
		})

		req.Equal(http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Login(t *testing.T) {
	t.Run("should return token for valid credentials", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Login("bob@example.com", "Secret123456").
			Return(services.Token("signed-token"), nil)

		rec := ts.request(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"email":    "bob@example.com",
			"password": "Secret123456",
		})

		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), "signed-token")
	})

	t.Run("should return unauthorized for bad credentials", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		ts.auth.EXPECT().
			Login(gomock.Any(), gomock.Any()).
			Return(services.Token(""), errors.ErrInvalidCredentials)

		rec := ts.request(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{
			"email":    "bob@example.com",
			"password": "wrong",
		})

		req.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func TestServer_Authorize(t *testing.T) {
	t.Run("should reject requests without a token", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		rec := ts.request(t, http.MethodGet, "/api/v1/contacts", "", nil)

		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject tokens signed with another key", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		foreign := auth.NewTokenManager("some-other-secret", time.Hour)
		token, err := foreign.Generate("u1", "mallory")
		req.NoError(err)

		rec := ts.request(t, http.MethodGet, "/api/v1/contacts", token, nil)

		req.Equal(http.StatusUnauthorized, rec.Code)
	})

	t.Run("should pass the caller identity to handlers", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		ts.chat.EXPECT().
			Contacts("user-1").
			Return([]domain.Profile{{ID: "user-2", Username: "bob"}}, nil)

		rec := ts.request(t, http.MethodGet, "/api/v1/contacts", ts.tokenFor(t, "user-1", "alice"), nil)

		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), "bob")
	})
}

func TestServer_ResolveConversation(t *testing.T) {
	t.Run("should resolve a conversation with a peer", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		conv := domain.Conversation{ID: uuid.New(), ParticipantLow: "user-1", ParticipantHigh: "user-2"}
		ts.chat.EXPECT().
			ResolveConversation("user-1", "user-2").
			Return(conv, nil)

		rec := ts.request(t, http.MethodPost, "/api/v1/conversations",
			ts.tokenFor(t, "user-1", "alice"), gin.H{"peer_id": "user-2"})

		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), conv.ID.String())
	})

	t.Run("should reject a conversation with oneself", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		ts.chat.EXPECT().
			ResolveConversation("user-1", "user-1").
			Return(domain.Conversation{}, errors.ErrSelfConversation)

		rec := ts.request(t, http.MethodPost, "/api/v1/conversations",
			ts.tokenFor(t, "user-1", "alice"), gin.H{"peer_id": "user-1"})

		req.Equal(http.StatusBadRequest, rec.Code)
	})
}

func TestServer_History(t *testing.T) {
	t.Run("should return messages for a participant", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		conv := domain.Conversation{ID: uuid.New(), ParticipantLow: "user-1", ParticipantHigh: "user-2"}
		ts.chat.EXPECT().Conversation(conv.ID).Return(conv, nil)
		ts.chat.EXPECT().
			LoadHistory(domain.HistoryCommand{Conversation: conv.ID}).
			Return([]domain.Message{{ID: uuid.New(), Content: "hello"}}, nil, nil)

		rec := ts.request(t, http.MethodGet, "/api/v1/conversations/"+conv.ID.String()+"/messages",
			ts.tokenFor(t, "user-1", "alice"), nil)

		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), "hello")
	})

	t.Run("should hide conversations the caller is not part of", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		conv := domain.Conversation{ID: uuid.New(), ParticipantLow: "user-2", ParticipantHigh: "user-3"}
		ts.chat.EXPECT().Conversation(conv.ID).Return(conv, nil)

		rec := ts.request(t, http.MethodGet, "/api/v1/conversations/"+conv.ID.String()+"/messages",
			ts.tokenFor(t, "user-1", "alice"), nil)

		req.Equal(http.StatusNotFound, rec.Code)
	})

	t.Run("should reject a malformed conversation id", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		rec := ts.request(t, http.MethodGet, "/api/v1/conversations/not-a-uuid/messages",
			ts.tokenFor(t, "user-1", "alice"), nil)

		req.Equal(http.StatusBadRequest, rec.Code)
	})
}

func TestServer_Summary(t *testing.T) {
	t.Run("should return the read model for a participant", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		conv := domain.Conversation{ID: uuid.New(), ParticipantLow: "user-1", ParticipantHigh: "user-2"}
		ts.chat.EXPECT().Conversation(conv.ID).Return(conv, nil)
		ts.chat.EXPECT().
			Summary(conv.ID).
			Return(projection.ConversationSummary{LastSender: "user-2", LastContent: "latest", MessageCount: 3}, true)

		rec := ts.request(t, http.MethodGet, "/api/v1/conversations/"+conv.ID.String()+"/summary",
			ts.tokenFor(t, "user-1", "alice"), nil)

		req.Equal(http.StatusOK, rec.Code)
		req.Contains(rec.Body.String(), "latest")
	})
}

func TestServer_SendMessage(t *testing.T) {
	t.Run("should create a message", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		conversationID := uuid.New()
		ts.chat.EXPECT().
			SendMessage(gomock.Any(), domain.SendMessageCommand{
				Conversation: conversationID,
				SenderID:     "user-1",
				Content:      "hello there",
			}).
			Return(domain.Message{ID: uuid.New(), Content: "hello there"}, nil)

		rec := ts.request(t, http.MethodPost, "/api/v1/conversations/"+conversationID.String()+"/messages",
			ts.tokenFor(t, "user-1", "alice"), gin.H{"content": "hello there"})

		req.Equal(http.StatusCreated, rec.Code)
	})

	t.Run("should map content validation failures to bad request", func(t *testing.T) {
		req := require.New(t)
		ts := newTestServer(t)

		conversationID := uuid.New()
		ts.chat.EXPECT().
			SendMessage(gomock.Any(), gomock.Any()).
			Return(domain.Message{}, errors.ErrContentTooLong)

		rec := ts.request(t, http.MethodPost, "/api/v1/conversations/"+conversationID.String()+"/messages",
			ts.tokenFor(t, "user-1", "alice"), gin.H{"content": "way too long"})

		req.Equal(http.StatusBadRequest, rec.Code)
	})
}
