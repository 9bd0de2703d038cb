package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/oxsirene/reseller-cli/internal/model"
)

var (
	locateAddress string
	locateIP      string
	locateLon     float64
	locateLat     float64
	locateShow    bool
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Set the delivery location",
	Long:  "Sets the delivery location from an address, coordinates or an IP address. Without flags, the caller's public IP is used.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "estimate")
		if err != nil {
			return err
		}
		defer env.Close()

		if locateShow {
			loc, err := env.Session.DeliveryLocation(ctx)
			if err != nil {
				return err
			}
			return printLocation(cmd, loc)
		}

		cid, err := env.CorrelationID(ctx)
		if err != nil {
			return err
		}

		var loc *model.Location
		switch {
		case cmd.Flags().Changed("lon") || cmd.Flags().Changed("lat"):
			loc, err = env.Locator.FromCoordinates(ctx, cid.String(), model.Coordinates{Lon: locateLon, Lat: locateLat})
		case locateIP != "":
			loc, err = env.Locator.FromIP(ctx, cid.String(), locateIP)
		default:
			// Resolve stores the location itself.
			loc, err = env.Locator.Resolve(ctx, cid.String(), locateAddress)
			if err != nil {
				return err
			}
			return printLocation(cmd, loc)
		}
		if err != nil {
			return err
		}
		if err := env.Session.SetDeliveryLocation(ctx, *loc); err != nil {
			return eris.Wrap(err, "save delivery location")
		}
		return printLocation(cmd, loc)
	},
}

func printLocation(cmd *cobra.Command, loc *model.Location) error {
	out := cmd.OutOrStdout()
	if !loc.HasCoordinates() {
		_, err := fmt.Fprintln(out, "No delivery location set.")
		return err
	}
	_, err := fmt.Fprintf(out, "%s\n%.6f, %.6f\n", loc.Address, loc.Coordinates.Lat, loc.Coordinates.Lon)
	return err
}

func init() {
	locateCmd.Flags().StringVar(&locateAddress, "address", "", "postal address")
	locateCmd.Flags().StringVar(&locateIP, "ip", "", "IP address to geolocate")
	locateCmd.Flags().Float64Var(&locateLon, "lon", 0, "longitude")
	locateCmd.Flags().Float64Var(&locateLat, "lat", 0, "latitude")
	locateCmd.Flags().BoolVar(&locateShow, "show", false, "print the stored delivery location")
	locateCmd.MarkFlagsMutuallyExclusive("address", "ip", "lon")
	locateCmd.MarkFlagsMutuallyExclusive("address", "ip", "lat")
	locateCmd.MarkFlagsRequiredTogether("lon", "lat")
	rootCmd.AddCommand(locateCmd)
}
