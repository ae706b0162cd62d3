package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/boardsync/internal/api/ws"
	"github.com/gosuda/boardsync/internal/config"
	"github.com/gosuda/boardsync/internal/coordinator"
	"github.com/gosuda/boardsync/internal/domain"
	"github.com/gosuda/boardsync/internal/reconciler"
	"github.com/gosuda/boardsync/internal/server"
	"github.com/gosuda/boardsync/internal/session"
	"github.com/gosuda/boardsync/internal/store/feed"
	"github.com/gosuda/boardsync/internal/store/postgres"
	redisstore "github.com/gosuda/boardsync/internal/store/redis"
)

const usage = `usage: boardsync [serve | watch <board-id>]`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("boardsync failed")
	}
}

func run(args []string) error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("BOARDSYNC_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("BOARDSYNC_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := "serve"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "serve":
		return serve(ctx, cfg)
	case "watch":
		if len(args) != 2 {
			return errors.New(usage)
		}
		return watch(ctx, cfg, domain.ConfirmedID(args[1]))
	default:
		return errors.New(usage)
	}
}

// connect opens the database and the Redis channel and returns the store
// wrapped so that its writes are published.
func connect(ctx context.Context, cfg *config.Config) (*postgres.Store, *redisstore.PubSub, *feed.Store, error) {
	if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
		return nil, nil, nil, fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
	}

	// Connect to PostgreSQL.
	store, err := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Database.Migrate {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, nil, nil, err
		}
	}

	// Connect to Redis.
	pubsub, err := redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}

	return store, pubsub, feed.New(store, pubsub), nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, pubsub, published, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer pubsub.Close()

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, published, pubsub, store)

	// Start server in background goroutine.
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// watch opens one board in a local session fed by the websocket relay and logs
// every change and activity until interrupted.
func watch(ctx context.Context, cfg *config.Config, boardID domain.ID) error {
	store, pubsub, published, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	defer pubsub.Close()

	sess := session.New(published, ws.NewClient(cfg.Sync.RelayURL), session.Options{
		Coordinator: coordinator.Options{
			WriteTimeout: cfg.Sync.WriteTimeout,
			Rollback:     coordinator.Strategy(cfg.Sync.RollbackStrategy),
			UserID:       cfg.Sync.UserID,
		},
		Reconciler: reconciler.Options{
			SubscribeTimeout: cfg.Sync.SubscribeTimeout,
		},
		ResyncOnFailure: cfg.Sync.ResyncOnFailure,
	})
	defer sess.Close()

	rec := sess.Reconciler()
	rec.OnActivity(func(a domain.Activity) {
		log.Info().Str("action", a.Action).Str("user_id", a.UserID).Interface("metadata", a.Metadata).Msg("activity")
	})
	rec.OnChange(func(c domain.Change) {
		board := sess.Board()
		ev := log.Info().Str("event", string(c.Type)).Str("table", string(c.Table))
		if board != nil {
			ev = ev.Int("columns", len(board.Columns))
		}
		ev.Msg("change applied")
	})

	board, err := sess.OpenBoard(ctx, boardID)
	if err != nil {
		return err
	}
	log.Info().Str("board_id", board.ID.String()).Str("title", board.Title).Int("columns", len(board.Columns)).Msg("board opened")

	waitCtx, waitCancel := context.WithTimeout(ctx, cfg.Sync.SubscribeTimeout)
	err = rec.WaitActive(waitCtx)
	waitCancel()
	if err != nil {
		log.Warn().Err(err).Str("state", rec.State().String()).Msg("live updates unavailable")
	}

	<-ctx.Done()
	log.Info().Msg("stopped")
	return nil
}
