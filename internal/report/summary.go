// Package report describes converted soil grids for people: summary
// statistics, a PNG of the category map and an HTML page of histograms.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/soil"
)

// Summary holds descriptive statistics for the data cells of one raster.
type Summary struct {
	Name   string
	Cells  int
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
	Median float64
}

// NoData returns the number of cells without data.
func (s Summary) NoData() int { return s.Cells - s.Count }

// validValues returns the data cells of g in ascending order.
func validValues(g *ascgrid.Grid) []float64 {
	x := make([]float64, 0, len(g.Values))
	for _, v := range g.Values {
		if !g.IsNoData(v) {
			x = append(x, v)
		}
	}
	sort.Float64s(x)
	return x
}

// SummarizeGrid computes statistics over the data cells of g.
func SummarizeGrid(name string, g *ascgrid.Grid) Summary {
	s := Summary{Name: name, Cells: len(g.Values)}
	x := validValues(g)
	s.Count = len(x)
	if s.Count == 0 {
		return s
	}
	s.Min = floats.Min(x)
	s.Max = floats.Max(x)
	s.Median = stat.Quantile(0.5, stat.Empirical, x, nil)
	if s.Count == 1 {
		s.Mean = x[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(x, nil)
	return s
}

// Summarize computes statistics for every raster of a stack, layer by
// layer in parameter order.
func Summarize(stack *soil.Stack) []Summary {
	out := make([]Summary, 0, len(stack.Layers)*soil.NumParameters)
	for li := range stack.Layers {
		for _, p := range soil.Parameters {
			out = append(out, SummarizeGrid(gridName(stack, li, p), stack.Grid(li, p)))
		}
	}
	return out
}

func gridName(stack *soil.Stack, li int, p soil.Parameter) string {
	if len(stack.Layers) == 1 {
		return p.String()
	}
	if tok := stack.Layers[li].Layer.Token; tok != "" {
		return fmt.Sprintf("%s/%s", tok, p)
	}
	return fmt.Sprintf("layer%d/%s", li+1, p)
}

// WriteSummaries prints a fixed-width table of summaries.
func WriteSummaries(w io.Writer, ss []Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RASTER\tCELLS\tNODATA\tMIN\tMAX\tMEAN\tSTDDEV\tMEDIAN")
	for _, s := range ss {
		if s.Count == 0 {
			fmt.Fprintf(tw, "%s\t%d\t%d\t-\t-\t-\t-\t-\n", s.Name, s.Cells, s.NoData())
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.6g\t%.6g\t%.6g\t%.6g\t%.6g\n",
			s.Name, s.Cells, s.NoData(), s.Min, s.Max, s.Mean, s.StdDev, s.Median)
	}
	return tw.Flush()
}
