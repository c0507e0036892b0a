package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shetran.soils/internal/catalog"
	"github.com/banshee-data/shetran.soils/internal/shetran"
)

func newCatalogCmd() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse recorded conversion runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "shetran-runs.db", "Catalogue database path")

	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			runs, err := cat.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tINPUT\tGRID\tTYPES\tCATEGORIES")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%d\t%d\n",
					r.ID[:8], r.StartedAt.Local().Format(time.DateTime), r.InputDir,
					r.NCols, r.NRows, r.SoilTypes, r.Categories)
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")

	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run and its soil types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			run, types, err := cat.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "run        %s\n", run.ID)
			fmt.Fprintf(out, "started    %s (%v)\n", run.StartedAt.Local().Format(time.RFC3339), run.Elapsed)
			fmt.Fprintf(out, "input      %s (resolution %q, Ksat in %s, Alpha in %s)\n", run.InputDir, run.Resolution, run.KsatUnit, run.AlphaUnit)
			fmt.Fprintf(out, "profile    %s\n", run.Profile)
			fmt.Fprintf(out, "grid       %dx%d cells of %g\n", run.NCols, run.NRows, run.CellSize)
			fmt.Fprintf(out, "cells      %d with data, %d NoData, %d partial\n", run.ValidCells, run.NoDataCells, run.PartialCells)
			for _, o := range run.Outputs {
				fmt.Fprintf(out, "output     %-10s %s sha256:%s\n", o.Kind, o.Path, o.SHA256)
			}
			fmt.Fprintln(out)
			return printTypes(out, types)
		},
	}

	del := &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Forget a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(dbPath)
			if err != nil {
				return err
			}
			defer cat.Close()

			run, _, err := cat.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := cat.Delete(cmd.Context(), run.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", run.ID)
			return nil
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}

func printTypes(w io.Writer, types []shetran.SoilType) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "TYPE\tTHETA_S\tTHETA_R\tKSAT(m/d)\tALPHA(1/cm)\tN\t")
	for _, t := range types {
		v := t.Params
		fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t%g\t%g\t\n", t.Number, v.ThetaS, v.ThetaR, v.Ksat, v.Alpha, v.N)
	}
	return tw.Flush()
}
