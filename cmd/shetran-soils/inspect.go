package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/report"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.asc...",
		Short: "Print the header and value statistics of ASCII grids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fsys := fsutil.OSFileSystem{}

			grids := make([]*ascgrid.Grid, 0, len(args))
			summaries := make([]report.Summary, 0, len(args))
			for _, path := range args {
				g, err := ascgrid.ReadFile(fsys, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s, NoData %g\n", path, g.Describe(), g.NoData)
				grids = append(grids, g)
				summaries = append(summaries, report.SummarizeGrid(path, g))
			}
			fmt.Fprintln(out)
			if err := report.WriteSummaries(out, summaries); err != nil {
				return err
			}

			if len(grids) > 1 {
				if err := ascgrid.CheckShapes(grids...); err != nil {
					fmt.Fprintf(out, "\nwarning: %v\n", err)
				} else {
					fmt.Fprintln(out, "\nall grids share one frame")
				}
			}
			return nil
		},
	}
}
