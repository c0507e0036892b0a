package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/shetran.soils/internal/shetran"
)

// categoryGrid adapts a classification to plotter.GridXYZ. Rows are
// flipped so the northern edge is drawn at the top.
type categoryGrid struct {
	c *shetran.Classification
}

func (g categoryGrid) Dims() (c, r int) { return g.c.Header.NCols, g.c.Header.NRows }

func (g categoryGrid) Z(c, r int) float64 {
	h := g.c.Header
	n := g.c.Map[(h.NRows-1-r)*h.NCols+c]
	if n == shetran.MapNoData {
		return math.NaN()
	}
	return float64(n)
}

func (g categoryGrid) X(c int) float64 { return g.origin(g.c.Header.XLL) + float64(c)*g.c.Header.CellSize }

func (g categoryGrid) Y(r int) float64 { return g.origin(g.c.Header.YLL) + float64(r)*g.c.Header.CellSize }

// origin returns the centre coordinate of the lower-left cell.
func (g categoryGrid) origin(ll float64) float64 {
	if g.c.Header.Center {
		return ll
	}
	return ll + g.c.Header.CellSize/2
}

// PlotCategoryMap renders the category map as a PNG heat map.
func PlotCategoryMap(c *shetran.Classification, title string) ([]byte, error) {
	if c.Header.Cells() == 0 {
		return nil, fmt.Errorf("empty category map")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Easting"
	p.Y.Label.Text = "Northing"

	n := len(c.Categories)
	if n < 2 {
		n = 2
	}
	hm := plotter.NewHeatMap(categoryGrid{c}, palette.Heat(n, 1))
	hm.Min = 1
	hm.Max = float64(n)
	hm.NaN = color.Transparent
	p.Add(hm)

	// Keep cells square.
	h := c.Header
	width := 8 * vg.Inch
	height := width * vg.Length(float64(h.NRows)/float64(h.NCols))
	if height < 2*vg.Inch {
		height = 2 * vg.Inch
	}
	if height > 16*vg.Inch {
		height = 16 * vg.Inch
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	return buf.Bytes(), nil
}
