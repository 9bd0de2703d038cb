package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var tokenRefresh bool

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show or refresh the API access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "estimate")
		if err != nil {
			return err
		}
		defer env.Close()

		if tokenRefresh {
			t, err := env.Session.RefreshToken(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Token refreshed at %s.\n", t.Date.Format(time.RFC3339))
			return nil
		}

		if _, err := env.Session.Token(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Access token is valid.")
		return nil
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenRefresh, "refresh", false, "issue a new token even if the stored one is still valid")
	rootCmd.AddCommand(tokenCmd)
}
