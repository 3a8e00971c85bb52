package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"forum-lab/auth"
	"forum-lab/internal"
	"forum-lab/moderation"
	"forum-lab/observability"
	"forum-lab/repositories"
	"forum-lab/runtime"
	"forum-lab/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

//go:embed censored/words.txt
var censoredWords []byte

// application groups the exposed services. The presentation layer drives
// these; nothing else is public.
type application struct {
	Auth      services.IAuthService
	Forum     services.IForumService
	Messaging services.IMessagingService
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes every component and keeps the process alive until a
// shutdown signal. Returning the error instead of exiting lets the deferred
// store closers execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.GetLoggerFromString(config.LogLevel)

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Moderation
	mask, err := MaskRune(config.ModerationMask)
	if err != nil {
		return err
	}
	moderator, err := moderation.NewModerator(moderation.ParseWords(censoredWords), mask, log)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}

	// 4. Repositories, registry, services
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)
	topicRepository := repositories.NewTopicRepository(db, blugeWriter, log)

	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor(log)
	publisher := runtime.NewPublisher(log, registry, monitor)
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)

	app := application{
		Auth: services.NewAuthService(userRepository, tokens),
		Forum: services.NewForumService(log, topicRepository, userRepository,
			moderator, config.TopicsPerPage, config.PostsPerPage),
		Messaging: services.NewMessagingService(log, messageRepository,
			userRepository, registry, publisher, moderator, config.MaxContentLength),
	}
	// 5. Telemetry, debug inspector & signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go monitor.Listen(ctx, config.StatsInterval)
	internal.StartDebugServer(db, monitor, log, config.Host, config.DebugPort)

	// Startup self-check: a failing list here means the store is unusable.
	_, total, err := app.Forum.ListTopics(1)
	if err != nil {
		return fmt.Errorf("store self-check failed: %w", err)
	}
	log.Info("forum core ready",
		"topics", total,
		"badger", config.BadgerFilepath,
		"bluge", config.BlugeFilepath)
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	return nil
}
