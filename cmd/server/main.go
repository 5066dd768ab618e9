package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ohtalk/auth"
	"ohtalk/contract"
	"ohtalk/internal"
	"ohtalk/moderation"
	"ohtalk/repositories"
	"ohtalk/runtime"
	"ohtalk/runtime/workers"
	"ohtalk/services"
	"ohtalk/transport"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes reported to the service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ohtalk terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal arrives. Returning
// instead of exiting lets the deferred closes run.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	censorCharacter, err := internal.CharacterRune(config.CensorCharacter)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	store, err := repositories.NewStore(db)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = store.Close() }()

	// 3. Core services
	moderator, err := moderation.NewModerator(config.Words(), censorCharacter, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderation setup failed: %w", err)
	}
	registry := runtime.NewRegistry()
	authService := services.NewAuthService(store.Users, auth.NewTokenIssuer(config.AuthSecret, config.AuthTokenDuration))
	dispatcher := services.NewDispatcher(store.Store, registry, authService, logger,
		services.WithHistoryLimit(config.HistoryLimit),
		services.WithModerator(moderator),
	)

	// 4. Listener, bound now so that a busy port fails the start
	listener := transport.NewListener(config.Address(), dispatcher, registry, logger,
		transport.WithIdleTimeout(config.IdleTimeout),
	)
	if err = listener.Listen(); err != nil {
		return exitRuntime, err
	}

	// 5. Supervision
	sup := workers.NewSupervisor(logger)
	sup.Add(listener, workers.NewStatsReporter(logger, registry, config.StatsInterval))
	if config.DebugPort > 0 {
		sup.Add(internal.NewDebugServer(db, config.DebugPort, nil, statsProvider(registry), logger))
	}

	logger.Info("Starting ohtalk", "address", listener.Addr())
	sup.Run(ctx)

	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// buildBadgerOpts hands badger our logger. WithLoggingLevel is not used
// since it would replace the logger with badger's default one.
func buildBadgerOpts(config internal.Config, logger *slog.Logger) badger.Options {
	return badger.DefaultOptions(config.BadgerFilepath).WithLogger(newBadgerLogger(logger))
}

func statsProvider(registry contract.IRegistry) internal.StatsProvider {
	return func() map[string]any {
		return map[string]any{"online": registry.Count()}
	}
}
