package shetran

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/monitoring"
	"github.com/banshee-data/shetran.soils/internal/security"
	"github.com/banshee-data/shetran.soils/internal/soil"
	"github.com/banshee-data/shetran.soils/internal/units"
)

// Default output file names.
const (
	DefaultMapName        = "SoilCats.asc"
	DefaultPropertiesName = "SoilProperties.txt"
	DefaultDetailsName    = "SoilDetails.txt"
)

// Job is a complete conversion request.
type Job struct {
	Source  soil.Source
	Profile soil.Profile

	OutDir         string
	MapName        string
	PropertiesName string
	DetailsName    string

	Format    Format
	MapFormat MapFormat

	// KsatUnit is the conductivity unit of the Ksat rasters.
	KsatUnit string
	// AlphaUnit is the inverse length unit of the Alpha rasters.
	AlphaUnit string

	Precision      int
	SkipValidation bool
}

// DefaultJob returns a single-layer job reading cm/d rasters from dir.
func DefaultJob(dir, resolution, outDir string) Job {
	return Job{
		Source:         soil.Source{Dir: dir, Resolution: resolution},
		Profile:        soil.DefaultProfile(),
		OutDir:         outDir,
		MapName:        DefaultMapName,
		PropertiesName: DefaultPropertiesName,
		DetailsName:    DefaultDetailsName,
		Format:         FormatLibrary,
		MapFormat:      MapASC,
		KsatUnit:       units.CMPerDay,
		AlphaUnit:      units.PerCM,
		Precision:      DefaultPrecision,
	}
}

// Output describes one written file.
type Output struct {
	Kind   string // "map", "properties" or "details"
	Path   string
	Bytes  int
	SHA256 string
}

// Result summarises a finished conversion.
type Result struct {
	Inputs         []soil.Files
	Stack          *soil.Stack
	Classification *Classification
	Outputs        []Output
	Elapsed        time.Duration
}

// Convert discovers and reads the rasters, classifies every cell and
// writes the three SHETRAN files. Nothing is written unless every input
// passes its checks.
func Convert(ctx context.Context, fsys fsutil.FileSystem, job Job) (*Result, error) {
	start := time.Now()

	if err := job.Profile.Validate(); err != nil {
		return nil, fmt.Errorf("invalid soil profile: %w", err)
	}
	if job.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	factor, err := units.ConductivityFactor(job.KsatUnit, units.MPerDay)
	if err != nil {
		return nil, err
	}
	alphaFactor, err := units.AlphaFactor(job.AlphaUnit, units.PerCM)
	if err != nil {
		return nil, err
	}

	files, err := soil.Discover(fsys, job.Source, job.Profile)
	if err != nil {
		return nil, err
	}
	for li, f := range files {
		for _, p := range soil.Parameters {
			monitoring.Debugf("layer %d %-6s <- %s", li+1, p, f[p])
		}
	}

	stack, err := soil.LoadStack(ctx, fsys, job.Profile, files)
	if err != nil {
		return nil, err
	}

	c, err := Classify(stack, Options{
		KsatFactor:     factor,
		AlphaFactor:    alphaFactor,
		Precision:      job.Precision,
		SkipValidation: job.SkipValidation,
	})
	if err != nil {
		return nil, err
	}

	type render struct {
		kind, name string
		fn         func(w io.Writer) error
	}
	renders := []render{
		{"map", job.MapName, func(w io.Writer) error { return WriteCategoryMap(w, c, job.MapFormat) }},
		{"properties", job.PropertiesName, func(w io.Writer) error { return WriteProperties(w, c, job.Format, job.Precision) }},
		{"details", job.DetailsName, func(w io.Writer) error { return WriteDetails(w, c, job.Format) }},
	}

	bufs := make([][]byte, len(renders))
	paths := make([]string, len(renders))
	for i, r := range renders {
		if err := security.ValidateFileName(r.name); err != nil {
			return nil, fmt.Errorf("%s output: %w", r.kind, err)
		}
		paths[i] = filepath.Join(job.OutDir, r.name)
		if err := security.ValidatePathWithinDirectory(paths[i], job.OutDir); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := r.fn(&buf); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", r.kind, err)
		}
		bufs[i] = buf.Bytes()
	}

	if err := fsys.MkdirAll(job.OutDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	res := &Result{Inputs: files, Stack: stack, Classification: c}
	for i, r := range renders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := paths[i]
		if err := fsutil.WriteFileAtomic(fsys, path, bufs[i], 0644); err != nil {
			return nil, err
		}
		sum := sha256.Sum256(bufs[i])
		res.Outputs = append(res.Outputs, Output{
			Kind:   r.kind,
			Path:   path,
			Bytes:  len(bufs[i]),
			SHA256: hex.EncodeToString(sum[:]),
		})
	}
	res.Elapsed = time.Since(start)

	monitoring.Logf("converted %s: %d valid cells, %d NoData, %d soil types, %d categories in %v",
		c.Header.Describe(), c.Valid, c.NoData+c.Partial, len(c.Types), len(c.Categories), res.Elapsed.Round(time.Millisecond))
	return res, nil
}
