package cli

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-quiz-service/internal/app"
	"ai-quiz-service/internal/auth"
	"ai-quiz-service/internal/config"
	"ai-quiz-service/internal/gateway"
	"ai-quiz-service/internal/tui"
	"github.com/spf13/cobra"
)

// NewPlayCmd runs a quiz in the terminal against the configured backend.
func NewPlayCmd(g *globals) *cobra.Command {
	opts := tui.Options{}
	var offline bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), g.cfg, opts, offline)
		},
	}
	cmd.Flags().StringVar(&opts.Topic, "topic", "Go basics", "quiz topic")
	cmd.Flags().StringVar(&opts.Difficulty, "difficulty", "medium", "easy, medium or hard")
	cmd.Flags().IntVar(&opts.Count, "count", 5, "number of questions")
	cmd.Flags().StringVar(&opts.ResumeID, "resume", "", "resume a saved quiz by id")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "disable colors")
	cmd.Flags().BoolVar(&offline, "offline", false, "do not save progress or results")
	return cmd
}

func runPlay(ctx context.Context, cfg config.Config, opts tui.Options, offline bool) error {
	logger := log.New(io.Discard, "", 0)

	var remote *gateway.HTTPClient
	if cfg.Gateway.BaseURL != "" {
		remote = gateway.NewHTTPClient(cfg.Gateway.BaseURL, tokenSource(cfg), gateway.Options{
			FlushTimeout: config.TTLDuration(cfg.Gateway.Timeout, 10*time.Second),
			Logger:       logger,
		})
	}
	gen, err := buildGenerator(cfg, remote, logger)
	if err != nil {
		return err
	}

	var gw app.Gateway
	if remote != nil && !offline {
		gw = remote
	}
	session := app.NewSession(gen, gw, sessionOptions(cfg, logger))
	runErr := tui.Run(ctx, session, os.Stdout, opts)

	if remote != nil {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := remote.Drain(drainCtx); err != nil {
			log.Printf("progress may not have been saved: %v", err)
		}
	}
	return runErr
}

func tokenSource(cfg config.Config) auth.TokenSource {
	if os.Getenv("QUIZ_TOKEN") != "" {
		return auth.EnvToken("QUIZ_TOKEN")
	}
	if path := expandHome(cfg.Gateway.TokenFile); path != "" {
		return auth.NewFileToken(path)
	}
	return nil
}

func expandHome(path string) string {
	path = strings.TrimSpace(path)
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
