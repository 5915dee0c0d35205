package cli

import (
	"fmt"
	"time"

	"ai-quiz-service/internal/auth"
	"ai-quiz-service/internal/config"
	"github.com/spf13/cobra"
)

// NewTokenCmd issues a bearer token signed with auth.secret, optionally
// saving it where the play command looks for it.
func NewTokenCmd(g *globals) *cobra.Command {
	var (
		userID string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := g.cfg
			issuer, err := auth.NewIssuer(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
			if err != nil {
				return err
			}
			token, err := issuer.Issue(userID)
			if err != nil {
				return err
			}
			if save {
				path := expandHome(cfg.Gateway.TokenFile)
				if path == "" {
					return fmt.Errorf("gateway.token_file is not configured")
				}
				if err := auth.NewFileToken(path).Save(token); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", path)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to issue the token for")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().BoolVar(&save, "save", false, "write the token to gateway.token_file")
	return cmd
}
