package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/synapse/internal/auth"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			authCfg := opts.cfg.Auth()
			if ttl <= 0 {
				ttl = authCfg.TokenTTL
			}
			issuer := auth.NewIssuer(authCfg.JWTSecret, ttl)
			if !issuer.Enabled() {
				return fmt.Errorf("cannot mint a token: %w (set JWT_SECRET or auth.jwt_secret)", auth.ErrNoSecret)
			}

			token, err := issuer.Sign(userID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	tokenCmd.Flags().StringVarP(&userID, "user", "u", "", "user id to embed in the token")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: auth.token_ttl)")
	_ = tokenCmd.MarkFlagRequired("user")
	return tokenCmd
}
