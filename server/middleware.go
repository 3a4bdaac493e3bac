package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ctxParticipantID = "participant_id"
	ctxUsername      = "username"
)

// Authorize validates the bearer token and stores the caller's identity on
// the request context for downstream handlers.
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromHeader(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
			return
		}

		claims, err := s.tokens.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ctxParticipantID, claims.UserID)
		c.Set(ctxUsername, claims.Username)
		c.Next()
	}
}

func tokenFromHeader(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	// WebSocket clients in browsers cannot set headers on the upgrade
	// request, so the token may arrive as a query parameter instead.
	return c.Query("token")
}

func participantID(c *gin.Context) string {
	return c.GetString(ctxParticipantID)
}
