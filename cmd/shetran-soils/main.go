// Command shetran-soils converts Soil-Grids-Schaap van Genuchten rasters
// into the soil category map and soil tables of a SHETRAN library file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shetran.soils/internal/monitoring"
	"github.com/banshee-data/shetran.soils/internal/version"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "shetran-soils",
		Short: "Convert van Genuchten soil rasters to SHETRAN inputs",
		Long: `shetran-soils reads the five Mualem-van Genuchten parameter rasters
(ThetaS, ThetaR, Ksat, Alpha, N) of a Soil-Grids-Schaap export and writes
the SHETRAN soil category map, soil property table and soil detail table.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := monitoring.Configure(verbose); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newConvertCmd(),
		newInspectCmd(),
		newCatalogCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
