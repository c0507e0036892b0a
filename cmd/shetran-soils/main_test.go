package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/shetran.soils/internal/catalog"
	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/shetran"
	"github.com/banshee-data/shetran.soils/internal/soil"
	"github.com/banshee-data/shetran.soils/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "gis")
	testutil.WriteLayer(t, fsutil.OSFileSystem{}, dir, "", "5km", testutil.Header(2, 2), [][5]float64{
		testutil.Loam, testutil.Sand, testutil.Void, testutil.Loam,
	})
	return dir
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "shetran-soils "))
}

func TestConvert(t *testing.T) {
	in := writeFixture(t)
	outDir := filepath.Join(t.TempDir(), "out")
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := execute(t, "convert", "--in", in, "--resolution", "5km", "--out", outDir,
		"--catalog", db, "--plot", "--report")
	require.NoError(t, err)
	assert.Contains(t, out, "2 soil types, 2 soil categories")

	for _, name := range []string{
		shetran.DefaultMapName, shetran.DefaultPropertiesName, shetran.DefaultDetailsName,
		"SoilCats.png", "SoilReport.html",
	} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	details, err := os.ReadFile(filepath.Join(outDir, shetran.DefaultDetailsName))
	require.NoError(t, err)
	assert.Contains(t, string(details), "<SoilDetail>2, 1, 2, 2.0</SoilDetail>")

	cat, err := catalog.Open(db)
	require.NoError(t, err)
	runs, err := cat.List(context.Background(), 0)
	require.NoError(t, err)
	require.NoError(t, cat.Close())
	require.Len(t, runs, 1)

	listOut, err := execute(t, "catalog", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, listOut, runs[0].ID[:8])

	showOut, err := execute(t, "catalog", "show", "--db", db, runs[0].ID[:8])
	require.NoError(t, err)
	assert.Contains(t, showOut, runs[0].ID)
	assert.Contains(t, showOut, "THETA_S")
	assert.Contains(t, showOut, "SoilProperties.txt")

	delOut, err := execute(t, "catalog", "delete", "--db", db, runs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, delOut, "deleted "+runs[0].ID)

	_, err = execute(t, "catalog", "show", "--db", db, runs[0].ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestConvert_CSVMatrix(t *testing.T) {
	in := writeFixture(t)
	outDir := t.TempDir()

	_, err := execute(t, "convert", "-i", in, "-r", "5km", "-o", outDir, "--format", "csv", "--map-format", "matrix")
	require.NoError(t, err)

	m, err := os.ReadFile(filepath.Join(outDir, shetran.DefaultMapName))
	require.NoError(t, err)
	assert.Equal(t, "1 2\n-9999 1\n", string(m))

	props, err := os.ReadFile(filepath.Join(outDir, shetran.DefaultPropertiesName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(props), "SoilProperty,SoilNumber,"))
}

func TestConvert_ConfigFileWithOverride(t *testing.T) {
	in := writeFixture(t)
	outDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "job.yaml")
	body := "input_dir: " + in + "\nresolution: 5km\noutput_dir: /nonexistent-dir-overridden\nformat: csv\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0644))

	_, err := execute(t, "convert", "--config", cfgPath, "--out", outDir)
	require.NoError(t, err)

	props, err := os.ReadFile(filepath.Join(outDir, shetran.DefaultPropertiesName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(props), "SoilProperty,"), "format comes from the config file")
}

func TestConvert_Layers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gis")
	h := testutil.Header(2, 1)
	testutil.WriteLayer(t, fsutil.OSFileSystem{}, dir, "sl1", "5km", h, [][5]float64{testutil.Loam, testutil.Sand})
	testutil.WriteLayer(t, fsutil.OSFileSystem{}, dir, "sl2", "5km", h, [][5]float64{testutil.Clay, testutil.Clay})
	outDir := t.TempDir()

	_, err := execute(t, "convert", "-i", dir, "-r", "5km", "-o", outDir, "--layers", "sl1:0.5,sl2:2")
	require.NoError(t, err)

	details, err := os.ReadFile(filepath.Join(outDir, shetran.DefaultDetailsName))
	require.NoError(t, err)
	assert.Contains(t, string(details), "<SoilDetail>1, 2, 2, 2.0</SoilDetail>")
	assert.Contains(t, string(details), "<SoilDetail>2, 1, 3, 0.5</SoilDetail>")
}

func TestConvert_Errors(t *testing.T) {
	in := writeFixture(t)

	tests := []struct {
		name string
		args []string
	}{
		{"wrong resolution", []string{"-r", "1km"}},
		{"bad format", []string{"-r", "5km", "--format", "xml"}},
		{"bad layers", []string{"-r", "5km", "--layers", "a:2,b:1"}},
		{"bad unit", []string{"-r", "5km", "--ksat-unit", "inch/yr"}},
		{"bad alpha unit", []string{"-r", "5km", "--alpha-unit", "1/ft"}},
		{"missing config", []string{"--config", filepath.Join(in, "nope.yaml")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outDir := t.TempDir()
			args := append([]string{"convert", "-i", in, "-o", outDir}, tt.args...)
			_, err := execute(t, args...)
			require.Error(t, err)

			entries, err := os.ReadDir(outDir)
			require.NoError(t, err)
			assert.Empty(t, entries, "no outputs on failure")
		})
	}
}

func TestInspect(t *testing.T) {
	in := writeFixture(t)
	ts := filepath.Join(in, testutil.FileName("VG_ThetaS", "", "5km"))
	n := filepath.Join(in, testutil.FileName("VG_N", "", "5km"))

	out, err := execute(t, "inspect", ts, n)
	require.NoError(t, err)
	assert.Contains(t, out, "2x2 cells of 5000")
	assert.Contains(t, out, "RASTER")
	assert.Contains(t, out, "all grids share one frame")

	_, err = execute(t, "inspect")
	assert.Error(t, err)

	_, err = execute(t, "inspect", filepath.Join(in, "missing.asc"))
	assert.Error(t, err)
}

func TestWatchDirs(t *testing.T) {
	job := shetran.DefaultJob("/data/in", "", "/out")
	assert.Equal(t, []string{"/data/in"}, watchDirs(job))

	job.Source.Paths = map[string]map[soil.Parameter]string{
		"": {soil.Ksat: "/data/pinned/ks.asc", soil.N: "/data/in/n.asc"},
	}
	assert.Equal(t, []string{"/data/in", "/data/pinned"}, watchDirs(job))
	assert.Equal(t, []string{"/out/SoilCats.asc", "/out/SoilProperties.txt", "/out/SoilDetails.txt"}, outputPaths(job))
}
