package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxsirene/reseller-cli/internal/model"
	"github.com/oxsirene/reseller-cli/internal/report"
)

var (
	estimateURL     string
	estimateFormat  string
	estimateAddress string
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Rank the resellers of a product by delivery distance",
	Example: `  reseller estimate --url "https://www.amazon.fr/dp/B07XYZ"
  reseller estimate --url "https://www.cdiscount.com/f-123.html" --address "10 rue de Rivoli Paris" --format geojson`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "estimate")
		if err != nil {
			return err
		}
		defer env.Close()

		cid, err := env.CorrelationID(ctx)
		if err != nil {
			return err
		}

		if estimateAddress != "" {
			if _, err := env.Locator.Resolve(ctx, cid.String(), estimateAddress); err != nil {
				return eris.Wrap(err, "set delivery location")
			}
		}

		set, err := env.Orchestrator.Run(ctx, estimateURL, cid)
		if err != nil {
			return err
		}

		zap.L().Info("estimate finished",
			zap.String("correlation_id", cid.String()),
			zap.Int("resellers", len(set.Estimates)),
		)

		delivery, err := deliveryCoordinates(cmd, env)
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), report.Format(estimateFormat), set, delivery)
	},
}

// deliveryCoordinates returns the stored delivery point for route links.
func deliveryCoordinates(cmd *cobra.Command, env *appEnv) (*model.Coordinates, error) {
	loc, err := env.Session.DeliveryLocation(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !loc.HasCoordinates() {
		return nil, nil
	}
	return loc.Coordinates, nil
}

func init() {
	estimateCmd.Flags().StringVar(&estimateURL, "url", "", "marketplace product page URL")
	estimateCmd.Flags().StringVar(&estimateFormat, "format", string(report.FormatText), "output format: text, json, geojson or yaml")
	estimateCmd.Flags().StringVar(&estimateAddress, "address", "", "set the delivery location before estimating")
	_ = estimateCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(estimateCmd)
}
