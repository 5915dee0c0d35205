package cli

import (
	"os"

	"ai-quiz-service/internal/config"
	"github.com/spf13/cobra"
)

// globals carries the persistent flags and the config they resolve to.
// Subcommands read cfg after the root's PersistentPreRunE has run.
type globals struct {
	configPath string
	port       string
	cfg        config.Config
}

// listenPort prefers --port (or PORT), then server.port, then 8080.
func (g *globals) listenPort() string {
	switch {
	case g.port != "":
		return g.port
	case g.cfg.Server.Port != "":
		return g.cfg.Server.Port
	default:
		return "8080"
	}
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:          "quiz-service",
		Short:        "AI generated quizzes with timed, resumable sessions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return err
			}
			g.cfg = cfg
			return nil
		},
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "config/config.yaml"
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", defaultConfig, "path to YAML config")
	flags.StringVar(&g.port, "port", os.Getenv("PORT"), "port to listen on (overrides server.port)")

	cmd.AddCommand(
		NewStartCmd(g),
		NewMigrateCmd(g),
		NewPlayCmd(g),
		NewTokenCmd(g),
	)
	return cmd
}
