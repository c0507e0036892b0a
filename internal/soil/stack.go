package soil

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/monitoring"
)

// CellState classifies a cell across every raster of a stack.
type CellState int

const (
	// CellValid has data in every raster.
	CellValid CellState = iota
	// CellNoData has NoData in every raster.
	CellNoData
	// CellPartial has NoData in some rasters only; it is treated as NoData.
	CellPartial
)

// LayerGrids holds the five rasters of one layer.
type LayerGrids struct {
	Layer Layer
	Grids [NumParameters]*ascgrid.Grid
}

// Stack is a profile's rasters, all sharing one frame.
type Stack struct {
	Header ascgrid.Header
	Layers []LayerGrids
}

// LoadStack reads every raster named in files, concurrently, and checks
// they overlay. files[i] belongs to profile[i].
func LoadStack(ctx context.Context, fsys fsutil.FileSystem, profile Profile, files []Files) (*Stack, error) {
	if len(files) != len(profile) {
		return nil, fmt.Errorf("have files for %d layers, profile has %d", len(files), len(profile))
	}

	layers := make([]LayerGrids, len(profile))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for li := range profile {
		layers[li].Layer = profile[li]
		for _, p := range Parameters {
			path := files[li][p]
			eg.Go(func() error {
				if err := egCtx.Err(); err != nil {
					return err
				}
				g, err := ascgrid.ReadFile(fsys, path)
				if err != nil {
					return fmt.Errorf("%s: %w", p, err)
				}
				monitoring.Debugf("read %s %s: %s, %d valid cells", p, path, g.Describe(), g.Valid())
				layers[li].Grids[p] = g
				return nil
			})
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	all := make([]*ascgrid.Grid, 0, len(layers)*NumParameters)
	for _, l := range layers {
		all = append(all, l.Grids[:]...)
	}
	if err := ascgrid.CheckShapes(all...); err != nil {
		return nil, err
	}
	return &Stack{Header: all[0].Header, Layers: layers}, nil
}

// Cells returns the number of cells in the frame.
func (s *Stack) Cells() int { return s.Header.Cells() }

// Cell gathers the raw parameter sets of cell i, top layer first, and its
// NoData state. The returned slice is only meaningful for CellValid.
func (s *Stack) Cell(i int, buf []VanGenuchten) ([]VanGenuchten, CellState) {
	buf = buf[:0]
	missing, total := 0, 0
	for _, l := range s.Layers {
		var v VanGenuchten
		for _, p := range Parameters {
			g := l.Grids[p]
			x := g.Values[i]
			total++
			if g.IsNoData(x) {
				missing++
			}
			v.Set(p, x)
		}
		buf = append(buf, v)
	}
	switch missing {
	case 0:
		return buf, CellValid
	case total:
		return buf, CellNoData
	default:
		return buf, CellPartial
	}
}

// Grid returns the raster of parameter p in layer li.
func (s *Stack) Grid(li int, p Parameter) *ascgrid.Grid { return s.Layers[li].Grids[p] }
