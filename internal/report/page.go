package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/shetran.soils/internal/shetran"
	"github.com/banshee-data/shetran.soils/internal/soil"
)

// DefaultBins is the number of histogram bins per raster.
const DefaultBins = 20

// Bin is one histogram bar covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram bins ascending values into n equal-width bins.
func Histogram(sorted []float64, n int) []Bin {
	if len(sorted) == 0 || n < 1 {
		return nil
	}
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	dividers := floats.Span(make([]float64, n+1), lo, hi)
	// The last divider is exclusive.
	dividers[n] = math.Nextafter(hi, math.Inf(1))

	counts := stat.Histogram(nil, dividers, sorted, nil)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i] = Bin{Lo: dividers[i], Hi: dividers[i+1], Count: int(counts[i])}
	}
	return bins
}

// WriteHistogramPage renders an HTML page with one histogram per raster
// of the stack and a bar chart of cells per category.
func WriteHistogramPage(w io.Writer, title string, stack *soil.Stack, c *shetran.Classification) error {
	page := components.NewPage()
	page.PageTitle = title

	if c != nil {
		page.AddCharts(categoryChart(c))
	}
	for li := range stack.Layers {
		for _, p := range soil.Parameters {
			name := gridName(stack, li, p)
			page.AddCharts(histogramChart(name, p.Unit(), validValues(stack.Grid(li, p))))
		}
	}

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func categoryChart(c *shetran.Classification) *charts.Bar {
	counts := c.CategoryCounts()
	x := make([]string, 0, len(c.Categories))
	y := make([]opts.BarData, 0, len(c.Categories))
	for _, cat := range c.Categories {
		x = append(x, strconv.Itoa(cat.Number))
		y = append(y, opts.BarData{Value: counts[cat.Number]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Cells per soil category",
			Subtitle: fmt.Sprintf("%d categories, %d soil types, %d data cells", len(c.Categories), len(c.Types), c.Valid),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "cells"}),
	)
	bar.SetXAxis(x).AddSeries("cells", y)
	return bar
}

func histogramChart(name, unit string, sorted []float64) *charts.Bar {
	bins := Histogram(sorted, DefaultBins)
	x := make([]string, len(bins))
	y := make([]opts.BarData, len(bins))
	for i, b := range bins {
		x[i] = strconv.FormatFloat(b.Lo, 'g', 4, 64)
		y[i] = opts.BarData{Value: b.Count}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "360px"}),
		charts.WithTitleOpts(opts.Title{Title: name, Subtitle: fmt.Sprintf("%d data cells, unit %s", len(sorted), unit)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries(name, y)
	return bar
}
