package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/monitoring"
	"github.com/banshee-data/shetran.soils/internal/shetran"
)

// Artifact file names, written next to the SHETRAN outputs.
const (
	PlotName   = "SoilCats.png"
	ReportName = "SoilReport.html"
)

// WriteArtifacts writes the requested plot and report for a finished
// conversion into dir and returns the paths written.
func WriteArtifacts(fsys fsutil.FileSystem, dir string, res *shetran.Result, withPlot, withReport bool) ([]string, error) {
	var written []string
	c := res.Classification
	title := fmt.Sprintf("Soil categories (%s)", c.Header.Describe())

	if withPlot {
		png, err := PlotCategoryMap(c, title)
		if err != nil {
			return written, err
		}
		path := filepath.Join(dir, PlotName)
		if err := fsutil.WriteFileAtomic(fsys, path, png, 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if withReport && res.Stack != nil {
		var buf bytes.Buffer
		if err := WriteHistogramPage(&buf, title, res.Stack, c); err != nil {
			return written, err
		}
		path := filepath.Join(dir, ReportName)
		if err := fsutil.WriteFileAtomic(fsys, path, buf.Bytes(), 0644); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	for _, p := range written {
		monitoring.Debugf("wrote %s", p)
	}
	return written, nil
}
