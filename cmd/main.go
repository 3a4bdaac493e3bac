package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"viztalk/auth"
	"viztalk/cache"
	"viztalk/internal"
	"viztalk/moderation"
	"viztalk/projection"
	"viztalk/repositories"
	"viztalk/runtime"
	"viztalk/runtime/workers"
	"viztalk/search"
	"viztalk/server"
	"viztalk/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.NewLogger(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Moderation
	maskRune, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}
	words, err := moderation.LoadWordlists()
	if err != nil {
		return fmt.Errorf("wordlists loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words, maskRune)
	if err != nil {
		return fmt.Errorf("moderator setup failed: %w", err)
	}

	// 4. Repositories & Permanent Sinks
	conversationRepository := repositories.NewConversationRepository(db)
	messageRepository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer func() {
		_ = messageRepository.Close()
	}()
	profileRepository := repositories.NewProfileRepository(db)
	userRepository := repositories.NewUserRepository(db)

	profileCache, err := cache.NewProfileCache(profileRepository, log)
	if err != nil {
		return fmt.Errorf("profile cache setup failed: %w", err)
	}
	defer profileCache.Close()

	index, err := search.Open(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("search index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing search index...")
		_ = index.Close()
	}()

	// 5. Supervision & Orchestration
	sup := workers.NewSupervisor(log, config.RestartInterval)
	registry := runtime.NewRegistry()
	orchestrator := runtime.NewOrchestrator(
		log, sup, registry,
		conversationRepository, messageRepository, profileRepository,
		profileCache, moderator,
		config.BufferSize, config.SessionQueueSize,
		config.SinkTimeout, config.MetricInterval,
	)
	overview := projection.NewOverview()
	orchestrator.Add(index, profileCache, overview)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orchestrator.Start(ctx)

	if config.DebugPort > 0 {
		internal.StartDebugServer(log, db, config.DebugPort)
	}

	// 7. HTTP Surface
	tokens := auth.NewTokenManager(config.AuthSecret, config.AuthTokenDuration)
	chatService := services.NewChatService(orchestrator, index, overview)
	authService := services.NewAuthService(log, userRepository, tokens, orchestrator)
	srv := server.NewServer(log, chatService, authService, tokens)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	if err := srv.Run(ctx, address); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	// 8. Final Cleanup
	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
