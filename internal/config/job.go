package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/shetran.soils/internal/shetran"
	"github.com/banshee-data/shetran.soils/internal/soil"
	"github.com/banshee-data/shetran.soils/internal/units"
)

// ExampleConfigPath is the path to the documented example job.
const ExampleConfigPath = "config/job.example.yaml"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// JobConfig describes a conversion job. Fields omitted from the file keep
// their defaults, which the Get* methods supply. The same struct decodes
// from JSON or YAML.
type JobConfig struct {
	// Inputs
	InputDir   *string           `json:"input_dir,omitempty" yaml:"input_dir,omitempty"`
	Resolution *string           `json:"resolution,omitempty" yaml:"resolution,omitempty"`
	KsatUnit   *string           `json:"ksat_unit,omitempty" yaml:"ksat_unit,omitempty"`   // unit of the Ksat rasters, e.g. "cm/d"
	AlphaUnit  *string           `json:"alpha_unit,omitempty" yaml:"alpha_unit,omitempty"` // unit of the Alpha rasters, "1/cm" or "1/m"
	Tags       map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`             // parameter -> filename tag
	// Files pins rasters explicitly: layer token -> parameter -> path.
	Files  map[string]map[string]string `json:"files,omitempty" yaml:"files,omitempty"`
	Layers []soil.Layer                 `json:"layers,omitempty" yaml:"layers,omitempty"`

	// Outputs
	OutputDir      *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	MapName        *string `json:"map_name,omitempty" yaml:"map_name,omitempty"`
	PropertiesName *string `json:"properties_name,omitempty" yaml:"properties_name,omitempty"`
	DetailsName    *string `json:"details_name,omitempty" yaml:"details_name,omitempty"`
	Format         *string `json:"format,omitempty" yaml:"format,omitempty"`
	MapFormat      *string `json:"map_format,omitempty" yaml:"map_format,omitempty"`
	Precision      *int    `json:"precision,omitempty" yaml:"precision,omitempty"`
	CheckRanges    *bool   `json:"validate,omitempty" yaml:"validate,omitempty"`

	// Extras
	CatalogPath   *string `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	Plot          *bool   `json:"plot,omitempty" yaml:"plot,omitempty"`
	Report        *bool   `json:"report,omitempty" yaml:"report,omitempty"`
	WatchDebounce *string `json:"watch_debounce,omitempty" yaml:"watch_debounce,omitempty"` // duration string like "500ms"
}

// Helper functions to create pointers
func ptrBool(v bool) *bool       { return &v }
func ptrString(v string) *string { return &v }
func ptrInt(v int) *int          { return &v }

// EmptyJobConfig returns a JobConfig with all fields set to nil.
func EmptyJobConfig() *JobConfig {
	return &JobConfig{}
}

// DefaultJobConfig returns a JobConfig with every scalar set to its default.
func DefaultJobConfig() *JobConfig {
	return &JobConfig{
		InputDir:       ptrString("."),
		Resolution:     ptrString(""),
		KsatUnit:       ptrString(units.CMPerDay),
		AlphaUnit:      ptrString(units.PerCM),
		OutputDir:      ptrString("."),
		MapName:        ptrString(shetran.DefaultMapName),
		PropertiesName: ptrString(shetran.DefaultPropertiesName),
		DetailsName:    ptrString(shetran.DefaultDetailsName),
		Format:         ptrString(string(shetran.FormatLibrary)),
		MapFormat:      ptrString(string(shetran.MapASC)),
		Precision:      ptrInt(shetran.DefaultPrecision),
		CheckRanges:    ptrBool(true),
		Plot:           ptrBool(false),
		Report:         ptrBool(false),
		WatchDebounce:  ptrString("500ms"),
	}
}

// LoadJobConfig loads a JobConfig from a .json, .yaml or .yml file.
// The file is validated to ensure it is under the max file size.
func LoadJobConfig(path string) (*JobConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyJobConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	// Relative directories are resolved against the config file.
	base := filepath.Dir(cleanPath)
	for _, p := range []*string{cfg.InputDir, cfg.OutputDir, cfg.CatalogPath} {
		if p != nil && *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	for _, byParam := range cfg.Files {
		for k, v := range byParam {
			if v != "" && !filepath.IsAbs(v) {
				byParam[k] = filepath.Join(base, v)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *JobConfig) Validate() error {
	if c.KsatUnit != nil && !units.IsValidConductivity(*c.KsatUnit) {
		return fmt.Errorf("ksat_unit must be one of %s, got %q", units.GetValidConductivityString(), *c.KsatUnit)
	}
	if c.AlphaUnit != nil {
		if _, err := units.AlphaFactor(*c.AlphaUnit, units.PerCM); err != nil {
			return fmt.Errorf("alpha_unit: %w", err)
		}
	}
	if c.Format != nil {
		if _, err := shetran.ParseFormat(*c.Format); err != nil {
			return err
		}
	}
	if c.MapFormat != nil {
		if _, err := shetran.ParseMapFormat(*c.MapFormat); err != nil {
			return err
		}
	}
	if c.Precision != nil && (*c.Precision < 0 || *c.Precision > 15) {
		return fmt.Errorf("precision must be between 0 and 15, got %d", *c.Precision)
	}
	if len(c.Layers) > 0 {
		if err := soil.Profile(c.Layers).Validate(); err != nil {
			return fmt.Errorf("layers: %w", err)
		}
	}
	for name := range c.Tags {
		if _, err := soil.ParseParameter(name); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
	}
	for token, byParam := range c.Files {
		for name := range byParam {
			if _, err := soil.ParseParameter(name); err != nil {
				return fmt.Errorf("files[%s]: %w", token, err)
			}
		}
	}
	if c.WatchDebounce != nil && *c.WatchDebounce != "" {
		if _, err := time.ParseDuration(*c.WatchDebounce); err != nil {
			return fmt.Errorf("invalid watch_debounce '%s': %w", *c.WatchDebounce, err)
		}
	}
	return nil
}

func getString(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}

func getBool(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// GetInputDir returns the input_dir value or the default.
func (c *JobConfig) GetInputDir() string { return getString(c.InputDir, ".") }

// GetResolution returns the resolution value or the default (match any).
func (c *JobConfig) GetResolution() string { return getString(c.Resolution, "") }

// GetKsatUnit returns the ksat_unit value or the default.
func (c *JobConfig) GetKsatUnit() string { return getString(c.KsatUnit, units.CMPerDay) }

// GetAlphaUnit returns the alpha_unit value or the default.
func (c *JobConfig) GetAlphaUnit() string { return getString(c.AlphaUnit, units.PerCM) }

// GetOutputDir returns the output_dir value or the default.
func (c *JobConfig) GetOutputDir() string { return getString(c.OutputDir, ".") }

// GetFormat returns the format value or the default.
func (c *JobConfig) GetFormat() string { return getString(c.Format, string(shetran.FormatLibrary)) }

// GetMapFormat returns the map_format value or the default.
func (c *JobConfig) GetMapFormat() string { return getString(c.MapFormat, string(shetran.MapASC)) }

// GetPrecision returns the precision value or the default.
func (c *JobConfig) GetPrecision() int {
	if c.Precision == nil {
		return shetran.DefaultPrecision
	}
	return *c.Precision
}

// GetCheckRanges returns the validate value or the default.
func (c *JobConfig) GetCheckRanges() bool { return getBool(c.CheckRanges, true) }

// GetCatalogPath returns the catalog path, empty when no catalogue is kept.
func (c *JobConfig) GetCatalogPath() string { return getString(c.CatalogPath, "") }

// GetPlot returns the plot value or the default.
func (c *JobConfig) GetPlot() bool { return getBool(c.Plot, false) }

// GetReport returns the report value or the default.
func (c *JobConfig) GetReport() bool { return getBool(c.Report, false) }

// GetWatchDebounce parses and returns the WatchDebounce as a time.Duration.
func (c *JobConfig) GetWatchDebounce() time.Duration {
	if c.WatchDebounce == nil || *c.WatchDebounce == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetProfile returns the configured layers or the single 2 m layer.
func (c *JobConfig) GetProfile() soil.Profile {
	if len(c.Layers) == 0 {
		return soil.DefaultProfile()
	}
	return soil.Profile(c.Layers)
}

// Job builds the conversion request described by the configuration.
func (c *JobConfig) Job() (shetran.Job, error) {
	if err := c.Validate(); err != nil {
		return shetran.Job{}, err
	}
	format, err := shetran.ParseFormat(c.GetFormat())
	if err != nil {
		return shetran.Job{}, err
	}
	mapFormat, err := shetran.ParseMapFormat(c.GetMapFormat())
	if err != nil {
		return shetran.Job{}, err
	}

	src := soil.Source{Dir: c.GetInputDir(), Resolution: c.GetResolution()}
	if len(c.Tags) > 0 {
		src.Tags = make(map[soil.Parameter]string, len(c.Tags))
		for name, tag := range c.Tags {
			p, _ := soil.ParseParameter(name)
			src.Tags[p] = tag
		}
	}
	if len(c.Files) > 0 {
		src.Paths = make(map[string]map[soil.Parameter]string, len(c.Files))
		for token, byParam := range c.Files {
			m := make(map[soil.Parameter]string, len(byParam))
			for name, path := range byParam {
				p, _ := soil.ParseParameter(name)
				m[p] = path
			}
			src.Paths[token] = m
		}
	}

	return shetran.Job{
		Source:         src,
		Profile:        c.GetProfile(),
		OutDir:         c.GetOutputDir(),
		MapName:        getString(c.MapName, shetran.DefaultMapName),
		PropertiesName: getString(c.PropertiesName, shetran.DefaultPropertiesName),
		DetailsName:    getString(c.DetailsName, shetran.DefaultDetailsName),
		Format:         format,
		MapFormat:      mapFormat,
		KsatUnit:       c.GetKsatUnit(),
		AlphaUnit:      c.GetAlphaUnit(),
		Precision:      c.GetPrecision(),
		SkipValidation: !c.GetCheckRanges(),
	}, nil
}
