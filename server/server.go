// Package server exposes the chat core over HTTP and WebSocket.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"viztalk/auth"
	"viztalk/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Server struct {
	log    *slog.Logger
	chat   services.IChatService
	auth   services.IAuthService
	tokens *auth.TokenManager
}

func NewServer(log *slog.Logger, chat services.IChatService,
	authSvc services.IAuthService, tokens *auth.TokenManager) *Server {
	return &Server{
		log:    log,
		chat:   chat,
		auth:   authSvc,
		tokens: tokens,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api/v1")
	api.POST("/auth/register", s.handleRegister)
	api.POST("/auth/login", s.handleLogin)

	authorized := api.Group("/")
	authorized.Use(s.Authorize())
	authorized.GET("/contacts", s.handleContacts)
	authorized.POST("/conversations", s.handleResolveConversation)
	authorized.GET("/conversations/:id/messages", s.handleHistory)
	authorized.GET("/conversations/:id/summary", s.handleSummary)
	authorized.POST("/conversations/:id/messages", s.handleSendMessage)
	authorized.GET("/conversations/:id/search", s.handleSearch)
	authorized.GET("/conversations/:id/ws", s.handleSubscribe)

	return r
}

// Run serves the router until the context is canceled, then drains
// in-flight requests before returning.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
