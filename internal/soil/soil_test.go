package soil_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/soil"
	"github.com/banshee-data/shetran.soils/internal/testutil"
)

func TestParameterNames(t *testing.T) {
	tests := []struct {
		p    soil.Parameter
		name string
		tag  string
		unit string
	}{
		{soil.ThetaS, "ThetaS", "VG_ThetaS", "cm3/cm3"},
		{soil.ThetaR, "ThetaR", "VG_ThetaR", "cm3/cm3"},
		{soil.Ksat, "Ksat", "VG_Ksat", "cm/d"},
		{soil.Alpha, "Alpha", "VG_Alpha", "1/cm"},
		{soil.N, "N", "VG_N", "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.p.String())
			assert.Equal(t, tt.tag, tt.p.Tag())
			assert.Equal(t, tt.unit, tt.p.Unit())

			got, err := soil.ParseParameter(tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.p, got)
		})
	}
	assert.Equal(t, "Parameter(9)", soil.Parameter(9).String())
}

func TestParseParameter(t *testing.T) {
	p, err := soil.ParseParameter(" ksat ")
	require.NoError(t, err)
	assert.Equal(t, soil.Ksat, p)

	_, err = soil.ParseParameter("porosity")
	assert.Error(t, err)
}

func TestVanGenuchten_GetSet(t *testing.T) {
	var v soil.VanGenuchten
	for i, p := range soil.Parameters {
		v.Set(p, float64(i+1))
	}
	assert.Equal(t, soil.VanGenuchten{ThetaS: 1, ThetaR: 2, Ksat: 3, Alpha: 4, N: 5}, v)
	for i, p := range soil.Parameters {
		assert.Equal(t, float64(i+1), v.Get(p))
	}
}

func TestVanGenuchten_Validate(t *testing.T) {
	good := soil.VanGenuchten{ThetaS: 0.43, ThetaR: 0.078, Ksat: 0.2496, Alpha: 0.036, N: 1.56}
	require.NoError(t, good.Validate())

	tests := []struct {
		name  string
		edit  func(v *soil.VanGenuchten)
		param soil.Parameter
	}{
		{"thetaS zero", func(v *soil.VanGenuchten) { v.ThetaS = 0 }, soil.ThetaS},
		{"thetaS above one", func(v *soil.VanGenuchten) { v.ThetaS = 1.2 }, soil.ThetaS},
		{"thetaR negative", func(v *soil.VanGenuchten) { v.ThetaR = -0.01 }, soil.ThetaR},
		{"thetaR equals thetaS", func(v *soil.VanGenuchten) { v.ThetaR = v.ThetaS }, soil.ThetaR},
		{"ksat zero", func(v *soil.VanGenuchten) { v.Ksat = 0 }, soil.Ksat},
		{"alpha negative", func(v *soil.VanGenuchten) { v.Alpha = -1 }, soil.Alpha},
		{"n equals one", func(v *soil.VanGenuchten) { v.N = 1 }, soil.N},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := good
			tt.edit(&v)
			err := v.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, soil.ErrOutOfRange))

			var re *soil.RangeError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.param, re.Param)
		})
	}

	thetaOne := good
	thetaOne.ThetaS = 1
	assert.NoError(t, thetaOne.Validate())
}

func TestProfile(t *testing.T) {
	require.NoError(t, soil.DefaultProfile().Validate())
	assert.Equal(t, "2", soil.DefaultProfile().String())

	p, err := soil.ParseProfile("sl1:0.05, sl2:0.15,sl3:0.3")
	require.NoError(t, err)
	want := soil.Profile{{Token: "sl1", BaseDepth: 0.05}, {Token: "sl2", BaseDepth: 0.15}, {Token: "sl3", BaseDepth: 0.3}}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "sl1:0.05,sl2:0.15,sl3:0.3", p.String())

	bad := []string{
		"",
		"sl1:x",
		"sl1:0.3,sl2:0.2",
		"0.5,sl2:1",
		"sl1:0.1,sl1:0.2",
		"-1",
	}
	for _, s := range bad {
		_, err := soil.ParseProfile(s)
		assert.Error(t, err, "profile %q", s)
	}
	assert.Error(t, soil.Profile{}.Validate())
}

func TestDiscover_SingleLayer(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteLayer(t, mfs, "/gis", "", "5km", testutil.Header(1, 1), [][5]float64{testutil.Loam})
	testutil.WriteLayer(t, mfs, "/gis", "", "1km", testutil.Header(1, 1), [][5]float64{testutil.Loam})
	require.NoError(t, mfs.WriteFile("/gis/VG_Ns_5km.asc", []byte("decoy"), 0644))

	files, err := soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, soil.DefaultProfile())
	require.NoError(t, err)
	require.Len(t, files, 1)

	want := soil.Files{
		"/gis/VG_ThetaS_5km.asc",
		"/gis/VG_ThetaR_5km.asc",
		"/gis/VG_Ksat_5km.asc",
		"/gis/VG_Alpha_5km.asc",
		"/gis/VG_N_5km.asc",
	}
	assert.Equal(t, want, files[0])
}

func TestDiscover_Layers(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	h := testutil.Header(1, 1)
	testutil.WriteLayer(t, mfs, "/gis", "sl1", "5km", h, [][5]float64{testutil.Loam})
	testutil.WriteLayer(t, mfs, "/gis", "sl10", "5km", h, [][5]float64{testutil.Clay})

	profile := soil.Profile{{Token: "sl1", BaseDepth: 0.05}, {Token: "sl10", BaseDepth: 2}}
	files, err := soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, profile)
	require.NoError(t, err)
	assert.Equal(t, "/gis/VG_Alpha_sl1_5km.asc", files[0][soil.Alpha])
	assert.Equal(t, "/gis/VG_Alpha_sl10_5km.asc", files[1][soil.Alpha])
}

func TestDiscover_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	h := testutil.Header(1, 1)
	testutil.WriteLayer(t, mfs, "/gis", "sl1", "5km", h, [][5]float64{testutil.Loam})
	testutil.WriteLayer(t, mfs, "/gis", "sl2", "5km", h, [][5]float64{testutil.Loam})

	// Untagged single layer sees both sl1 and sl2 rasters.
	_, err := soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, soil.DefaultProfile())
	assert.True(t, errors.Is(err, soil.ErrAmbiguousParameter), "got %v", err)

	_, err = soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "1km"}, soil.DefaultProfile())
	assert.True(t, errors.Is(err, soil.ErrMissingParameter), "got %v", err)

	require.NoError(t, mfs.Remove("/gis/VG_N_sl2_5km.asc"))
	profile := soil.Profile{{Token: "sl1", BaseDepth: 0.5}, {Token: "sl2", BaseDepth: 1}}
	_, err = soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, profile)
	require.Error(t, err)
	assert.True(t, errors.Is(err, soil.ErrMissingParameter))
	assert.Contains(t, err.Error(), "N (layer 2/sl2)")
}

func TestDiscover_TagsAndPins(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	h := testutil.Header(1, 1)
	testutil.WriteLayer(t, mfs, "/gis", "", "5km", h, [][5]float64{testutil.Loam})
	require.NoError(t, mfs.Rename("/gis/VG_N_5km.asc", "/gis/shape_n_5km.asc"))
	require.NoError(t, mfs.WriteFile("/elsewhere/ks.asc", testutil.ASC(h, 1), 0644))

	src := soil.Source{
		Dir:        "/gis",
		Resolution: "5km",
		Tags:       map[soil.Parameter]string{soil.N: "shape_n"},
		Paths:      map[string]map[soil.Parameter]string{"": {soil.Ksat: "/elsewhere/ks.asc"}},
	}
	files, err := soil.Discover(mfs, src, soil.DefaultProfile())
	require.NoError(t, err)
	assert.Equal(t, "/gis/shape_n_5km.asc", files[0][soil.N])
	assert.Equal(t, "/elsewhere/ks.asc", files[0][soil.Ksat])
	assert.Equal(t, filepath.Join("/gis", "*5km*.asc"), src.Pattern())
	assert.Equal(t, filepath.Join("/gis", "*.asc"), soil.Source{Dir: "/gis"}.Pattern())
}

func TestLoadStack(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	h := testutil.Header(2, 2)
	partial := testutil.Loam
	partial[soil.Alpha] = testutil.NoData
	testutil.WriteLayer(t, mfs, "/gis", "", "5km", h, [][5]float64{testutil.Loam, testutil.Void, partial, testutil.Sand})

	files, err := soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, soil.DefaultProfile())
	require.NoError(t, err)

	stack, err := soil.LoadStack(context.Background(), mfs, soil.DefaultProfile(), files)
	require.NoError(t, err)
	assert.Equal(t, 4, stack.Cells())
	assert.True(t, stack.Header.SameShape(h))
	assert.Equal(t, files[0][soil.Ksat], stack.Grid(0, soil.Ksat).Path)

	states := []soil.CellState{soil.CellValid, soil.CellNoData, soil.CellPartial, soil.CellValid}
	var buf []soil.VanGenuchten
	for i, want := range states {
		var got soil.CellState
		buf, got = stack.Cell(i, buf)
		assert.Equal(t, want, got, "cell %d", i)
	}

	buf, _ = stack.Cell(3, buf)
	require.Len(t, buf, 1)
	assert.Equal(t, testutil.Sand[soil.Ksat], buf[0].Ksat)
}

func TestLoadStack_ShapeMismatch(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteLayer(t, mfs, "/gis", "", "5km", testutil.Header(1, 1), [][5]float64{testutil.Loam})
	require.NoError(t, mfs.WriteFile("/gis/VG_N_5km.asc", testutil.ASC(testutil.Header(2, 1), 1.5, 1.5), 0644))

	files, err := soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, soil.DefaultProfile())
	require.NoError(t, err)

	_, err = soil.LoadStack(context.Background(), mfs, soil.DefaultProfile(), files)
	assert.True(t, errors.Is(err, ascgrid.ErrShapeMismatch), "got %v", err)
}

func TestLoadStack_Errors(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	testutil.WriteLayer(t, mfs, "/gis", "", "5km", testutil.Header(1, 1), [][5]float64{testutil.Loam})
	require.NoError(t, mfs.WriteFile("/gis/VG_Alpha_5km.asc", []byte("ncols 1\n"), 0644))

	files, err := soil.Discover(mfs, soil.Source{Dir: "/gis", Resolution: "5km"}, soil.DefaultProfile())
	require.NoError(t, err)

	_, err = soil.LoadStack(context.Background(), mfs, soil.DefaultProfile(), files)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ascgrid.ErrMalformed))
	assert.Contains(t, err.Error(), "Alpha")

	_, err = soil.LoadStack(context.Background(), mfs, soil.Profile{{BaseDepth: 1}, {Token: "x", BaseDepth: 2}}, files)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = soil.LoadStack(ctx, mfs, soil.DefaultProfile(), files)
	assert.ErrorIs(t, err, context.Canceled)
}
