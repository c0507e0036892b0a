package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/banshee-data/shetran.soils/internal/catalog"
	"github.com/banshee-data/shetran.soils/internal/config"
	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/monitoring"
	"github.com/banshee-data/shetran.soils/internal/report"
	"github.com/banshee-data/shetran.soils/internal/shetran"
	"github.com/banshee-data/shetran.soils/internal/soil"
	"github.com/banshee-data/shetran.soils/internal/watch"
)

type convertFlags struct {
	configPath string
	inputDir   string
	resolution string
	outputDir  string
	layers     string
	format     string
	mapFormat  string
	ksatUnit   string
	alphaUnit  string
	precision  int
	noValidate bool
	catalog    string
	plot       bool
	report     bool
	watch      bool
	debounce   string
}

func newConvertCmd() *cobra.Command {
	var f convertFlags
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a set of parameter rasters",
		Long: `Discovers the VG_ThetaS, VG_ThetaR, VG_Ksat, VG_Alpha and VG_N rasters in the
input directory, assigns soil types and categories to every cell and writes
SoilCats.asc, SoilProperties.txt and SoilDetails.txt to the output directory.

Flags override values from --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.jobConfig(cmd)
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), cmd.OutOrStdout(), cfg, f.watch)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "Job config file (.json, .yaml or .yml)")
	fl.StringVarP(&f.inputDir, "in", "i", ".", "Directory holding the parameter rasters")
	fl.StringVarP(&f.resolution, "resolution", "r", "", "Resolution token in the raster names, e.g. 5km")
	fl.StringVarP(&f.outputDir, "out", "o", ".", "Output directory")
	fl.StringVar(&f.layers, "layers", "", `Soil profile as "token:depth,..." (default: one 2 m layer)`)
	fl.StringVar(&f.format, "format", string(shetran.FormatLibrary), "Table format: library or csv")
	fl.StringVar(&f.mapFormat, "map-format", string(shetran.MapASC), "Category map format: asc or matrix")
	fl.StringVar(&f.ksatUnit, "ksat-unit", "cm/d", "Unit of the Ksat rasters")
	fl.StringVar(&f.alphaUnit, "alpha-unit", "1/cm", "Unit of the Alpha rasters: 1/cm or 1/m")
	fl.IntVar(&f.precision, "precision", shetran.DefaultPrecision, "Decimals kept for parameter values")
	fl.BoolVar(&f.noValidate, "no-validate", false, "Skip physical range checks")
	fl.StringVar(&f.catalog, "catalog", "", "Record the run in this SQLite catalogue")
	fl.BoolVar(&f.plot, "plot", false, "Also write a PNG of the category map")
	fl.BoolVar(&f.report, "report", false, "Also write an HTML report of raster histograms")
	fl.BoolVarP(&f.watch, "watch", "w", false, "Rerun whenever an input raster changes")
	fl.StringVar(&f.debounce, "debounce", "500ms", "Quiet period before a watched rerun")
	return cmd
}

// jobConfig loads --config, if any, then applies the flags the user set.
func (f *convertFlags) jobConfig(cmd *cobra.Command) (*config.JobConfig, error) {
	cfg := config.EmptyJobConfig()
	if f.configPath != "" {
		loaded, err := config.LoadJobConfig(f.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	setString := func(name string, dst **string, v string) {
		if changed(name) || *dst == nil {
			*dst = &v
		}
	}
	setString("in", &cfg.InputDir, f.inputDir)
	setString("resolution", &cfg.Resolution, f.resolution)
	setString("out", &cfg.OutputDir, f.outputDir)
	setString("format", &cfg.Format, f.format)
	setString("map-format", &cfg.MapFormat, f.mapFormat)
	setString("ksat-unit", &cfg.KsatUnit, f.ksatUnit)
	setString("alpha-unit", &cfg.AlphaUnit, f.alphaUnit)
	setString("debounce", &cfg.WatchDebounce, f.debounce)
	if changed("catalog") {
		cfg.CatalogPath = &f.catalog
	}
	if changed("precision") || cfg.Precision == nil {
		cfg.Precision = &f.precision
	}
	if changed("no-validate") {
		v := !f.noValidate
		cfg.CheckRanges = &v
	}
	if changed("plot") {
		cfg.Plot = &f.plot
	}
	if changed("report") {
		cfg.Report = &f.report
	}
	if changed("layers") {
		p, err := soil.ParseProfile(f.layers)
		if err != nil {
			return nil, fmt.Errorf("--layers: %w", err)
		}
		cfg.Layers = p
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runConvert(ctx context.Context, out io.Writer, cfg *config.JobConfig, watchInputs bool) error {
	job, err := cfg.Job()
	if err != nil {
		return err
	}
	fsys := fsutil.OSFileSystem{}

	once := func(ctx context.Context) error {
		res, err := shetran.Convert(ctx, fsys, job)
		if err != nil {
			return err
		}
		printResult(out, res)

		extra, err := report.WriteArtifacts(fsys, job.OutDir, res, cfg.GetPlot(), cfg.GetReport())
		for _, p := range extra {
			fmt.Fprintf(out, "  %-10s %s\n", "artifact", p)
		}
		if err != nil {
			return err
		}

		if path := cfg.GetCatalogPath(); path != "" {
			cat, err := catalog.Open(path)
			if err != nil {
				return err
			}
			defer cat.Close()
			id, err := cat.Record(ctx, job, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-10s %s\n", "run", id)
		}
		return nil
	}

	if err := once(ctx); err != nil {
		if !watchInputs {
			return err
		}
		monitoring.Warnf("initial conversion failed: %v", err)
	}
	if !watchInputs {
		return nil
	}

	w, err := watch.New(watch.Config{
		Dirs:     watchDirs(job),
		Debounce: cfg.GetWatchDebounce(),
		Ignore:   outputPaths(job),
	})
	if err != nil {
		return err
	}
	monitoring.Logf("watching for raster changes, Ctrl-C to stop")
	return w.Run(ctx, func(ctx context.Context, changed []string) error {
		return once(ctx)
	})
}

// watchDirs lists the input directory plus the directories of any pinned
// rasters.
func watchDirs(job shetran.Job) []string {
	seen := map[string]bool{filepath.Clean(job.Source.Dir): true}
	for _, byParam := range job.Source.Paths {
		for _, p := range byParam {
			seen[filepath.Dir(p)] = true
		}
	}
	dirs := make([]string, 0, len(seen))
	for d := range seen {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

func outputPaths(job shetran.Job) []string {
	return []string{
		filepath.Join(job.OutDir, job.MapName),
		filepath.Join(job.OutDir, job.PropertiesName),
		filepath.Join(job.OutDir, job.DetailsName),
	}
}

func printResult(out io.Writer, res *shetran.Result) {
	c := res.Classification
	fmt.Fprintf(out, "%s: %d cells with data, %d NoData", c.Header.Describe(), c.Valid, c.NoData)
	if c.Partial > 0 {
		fmt.Fprintf(out, ", %d partial", c.Partial)
	}
	fmt.Fprintf(out, "\n%d soil types, %d soil categories\n", len(c.Types), len(c.Categories))
	for _, o := range res.Outputs {
		fmt.Fprintf(out, "  %-10s %s (%d bytes, sha256 %s)\n", o.Kind, o.Path, o.Bytes, o.SHA256[:12])
	}
}
