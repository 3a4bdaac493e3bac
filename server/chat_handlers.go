package server

import (
	"net/http"
	"strconv"

	"viztalk/domain"
	"viztalk/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type resolveRequest struct {
	PeerID string `json:"peer_id" binding:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) handleContacts(c *gin.Context) {
	profiles, err := s.chat.Contacts(participantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": profiles})
}

func (s *Server) handleResolveConversation(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := s.chat.ResolveConversation(participantID(c), req.PeerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}

func (s *Server) handleHistory(c *gin.Context) {
	conv, ok := s.conversationForCaller(c)
	if !ok {
		return
	}

	cmd := domain.HistoryCommand{Conversation: conv.ID}
	if cursor := c.Query("cursor"); cursor != "" {
		cmd.Cursor = lo.ToPtr(cursor)
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		cmd.Limit = lo.ToPtr(limit)
	}

	messages, next, err := s.chat.LoadHistory(cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages, "next_cursor": next})
}

func (s *Server) handleSendMessage(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := s.chat.SendMessage(c.Request.Context(), domain.SendMessageCommand{
		Conversation: conversationID,
		SenderID:     participantID(c),
		Content:      req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": msg})
}

// handleSummary serves the in-memory read model. A conversation with no
// message observed since startup yields an empty summary, not an error.
func (s *Server) handleSummary(c *gin.Context) {
	conv, ok := s.conversationForCaller(c)
	if !ok {
		return
	}

	summary, _ := s.chat.Summary(conv.ID)
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) handleSearch(c *gin.Context) {
	conv, ok := s.conversationForCaller(c)
	if !ok {
		return
	}

	terms := c.Query("q")
	if terms == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}
	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	hits, err := s.chat.SearchMessages(c.Request.Context(), conv.ID, terms, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hits": hits})
}

// conversationForCaller resolves the :id path parameter and enforces that
// the caller is one of the two participants. Outsiders get the same 404 as
// an unknown conversation.
func (s *Server) conversationForCaller(c *gin.Context) (domain.Conversation, bool) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return domain.Conversation{}, false
	}

	conv, err := s.chat.Conversation(conversationID)
	if err != nil {
		respondError(c, err)
		return domain.Conversation{}, false
	}
	if !conv.Includes(participantID(c)) {
		respondError(c, errors.ErrConversationNotFound)
		return domain.Conversation{}, false
	}
	return conv, true
}
