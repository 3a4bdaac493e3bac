//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"

	"viztalk/domain"
	"viztalk/projection"
	"viztalk/runtime"
	"viztalk/search"

	"github.com/google/uuid"
)

type IChatService interface {
	ResolveConversation(requester, peer string) (domain.Conversation, error)
	SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error)
	LoadHistory(cmd domain.HistoryCommand) ([]domain.Message, *string, error)
	Subscribe(conversationID uuid.UUID, handlers runtime.SessionHandlers) *runtime.Session
	Conversation(id uuid.UUID) (domain.Conversation, error)
	Contacts(participantID string) ([]domain.Profile, error)
	SearchMessages(ctx context.Context, conversationID uuid.UUID, terms string, limit int) ([]search.Hit, error)
	Summary(conversationID uuid.UUID) (projection.ConversationSummary, bool)
}

// ChatService is the surface the presentation layer talks to. It delegates
// to the orchestrator and keeps no state of its own.
type ChatService struct {
	orchestrator *runtime.Orchestrator
	index        *search.Index
	overview     *projection.Overview
}

func NewChatService(o *runtime.Orchestrator, index *search.Index, overview *projection.Overview) *ChatService {
	return &ChatService{orchestrator: o, index: index, overview: overview}
}

func (s *ChatService) ResolveConversation(requester, peer string) (domain.Conversation, error) {
	return s.orchestrator.ResolveConversation(requester, peer)
}

func (s *ChatService) SendMessage(ctx context.Context, cmd domain.SendMessageCommand) (domain.Message, error) {
	return s.orchestrator.SendMessage(ctx, cmd)
}

func (s *ChatService) LoadHistory(cmd domain.HistoryCommand) ([]domain.Message, *string, error) {
	return s.orchestrator.History(cmd)
}

func (s *ChatService) Subscribe(conversationID uuid.UUID, handlers runtime.SessionHandlers) *runtime.Session {
	return s.orchestrator.Subscribe(conversationID, handlers)
}

func (s *ChatService) Conversation(id uuid.UUID) (domain.Conversation, error) {
	return s.orchestrator.Conversation(id)
}

func (s *ChatService) Contacts(participantID string) ([]domain.Profile, error) {
	return s.orchestrator.Contacts(participantID)
}

func (s *ChatService) SearchMessages(ctx context.Context, conversationID uuid.UUID, terms string, limit int) ([]search.Hit, error) {
	return s.index.Search(ctx, conversationID, terms, limit)
}

func (s *ChatService) Summary(conversationID uuid.UUID) (projection.ConversationSummary, bool) {
	return s.overview.Summary(conversationID)
}
