package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/auth"
	"ai-quiz-service/internal/config"
	"ai-quiz-service/internal/infra/memory"
	"ai-quiz-service/internal/infra/postgres"
	rediscache "ai-quiz-service/internal/infra/redis"
	"ai-quiz-service/internal/infra/sqlite"
	transport "ai-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), g.cfg, g.listenPort())
		},
	}
}

// openAttempts chooses Postgres, then SQLite, then memory, and puts the Redis
// cache in front when configured. The returned func releases connections.
func openAttempts(ctx context.Context, cfg config.Config) (app.AttemptRepository, func(), error) {
	var (
		repo    app.AttemptRepository
		closers []func()
	)
	switch {
	case cfg.Postgres.URL != "":
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, pool.Close)
		repo = postgres.NewAttemptStore(pool)
	case cfg.SQLite.Path != "":
		store, err := sqlite.NewAttemptStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = store.Close() })
		repo = store
	default:
		log.Printf("no database configured, attempts are kept in memory")
		repo = memory.NewAttemptStore()
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })
		repo = rediscache.NewAttemptCache(client, repo, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), nil)
	}

	return repo, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func runServer(ctx context.Context, cfg config.Config, finalPort string) error {

	issuer, err := auth.NewIssuer(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	repo, closeRepo, err := openAttempts(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	logger := log.Default()
	gen, err := buildGenerator(cfg, nil, logger)
	if err != nil {
		return err
	}
	if gen == nil {
		log.Printf("no question generator configured, generation is disabled")
	}

	handler := transport.NewRouter(transport.RouterDeps{
		Attempts:  app.NewAttemptService(repo),
		Generator: gen,
		Verifier:  issuer,
		Session:   sessionOptions(cfg, logger),
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
