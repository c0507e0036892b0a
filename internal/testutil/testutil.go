// Package testutil provides shared test fixtures for the soil grid
// conversion packages.
//
// Fixtures write small ASCII grids into a filesystem using the naming the
// GIS pre-processing produces: VG_<Param>[_<layer>]_<resolution>.asc.
package testutil

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/fsutil"
)

// ParamTags are the default raster tags in ThetaS, ThetaR, Ksat, Alpha, N
// order.
var ParamTags = [5]string{"VG_ThetaS", "VG_ThetaR", "VG_Ksat", "VG_Alpha", "VG_N"}

// NoData is the dataset sentinel used in fixtures.
const NoData = -999.0

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// Header returns a small 5 km frame with ncols x nrows cells.
func Header(ncols, nrows int) ascgrid.Header {
	return ascgrid.Header{
		NCols:    ncols,
		NRows:    nrows,
		XLL:      250000,
		YLL:      100000,
		CellSize: 5000,
		NoData:   -9999,
	}
}

// ASC renders a grid file from a header and row-major values.
func ASC(h ascgrid.Header, values ...float64) []byte {
	g := &ascgrid.Grid{Header: h, Values: values}
	var buf bytes.Buffer
	if _, err := g.WriteTo(&buf); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// FileName returns the fixture name for a parameter raster.
func FileName(tag, layer, resolution string) string {
	if layer == "" {
		return fmt.Sprintf("%s_%s.asc", tag, resolution)
	}
	return fmt.Sprintf("%s_%s_%s.asc", tag, layer, resolution)
}

// WriteLayer writes the five parameter rasters of one layer into dir.
// cells holds one [ThetaS, ThetaR, Ksat, Alpha, N] tuple per cell in
// row-major order; use NoData for missing values.
func WriteLayer(t testing.TB, fsys fsutil.FileSystem, dir, layer, resolution string, h ascgrid.Header, cells [][5]float64) {
	t.Helper()
	if len(cells) != h.Cells() {
		t.Fatalf("fixture has %d cells, header wants %d", len(cells), h.Cells())
	}
	AssertNoError(t, fsys.MkdirAll(dir, 0755))
	for p, tag := range ParamTags {
		vals := make([]float64, len(cells))
		for i, c := range cells {
			vals[i] = c[p]
		}
		path := filepath.Join(dir, FileName(tag, layer, resolution))
		AssertNoError(t, fsys.WriteFile(path, ASC(h, vals...), 0644))
	}
}

// Loam, Sand and Clay are plausible Schaap parameter sets (Ksat in cm/d).
var (
	Loam = [5]float64{0.43, 0.078, 24.96, 0.036, 1.56}
	Sand = [5]float64{0.38, 0.053, 642.98, 0.035, 3.18}
	Clay = [5]float64{0.46, 0.098, 14.75, 0.015, 1.25}
	Void = [5]float64{NoData, NoData, NoData, NoData, NoData}
)
