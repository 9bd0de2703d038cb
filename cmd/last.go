package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxsirene/reseller-cli/internal/report"
)

var (
	lastURL    string
	lastFormat string
)

var lastCmd = &cobra.Command{
	Use:   "last",
	Short: "Show the last estimate if it was run for this product",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "estimate")
		if err != nil {
			return err
		}
		defer env.Close()

		set, err := env.Orchestrator.Last(ctx, lastURL)
		if err != nil {
			return err
		}
		if set == nil {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No stored estimate for this product.")
			return nil
		}

		delivery, err := deliveryCoordinates(cmd, env)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), report.Format(lastFormat), set, delivery)
	},
}

func init() {
	lastCmd.Flags().StringVar(&lastURL, "url", "", "marketplace product page URL")
	lastCmd.Flags().StringVar(&lastFormat, "format", string(report.FormatText), "output format: text, json, geojson or yaml")
	_ = lastCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(lastCmd)
}
