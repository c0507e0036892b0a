// Package shetran turns stacks of van Genuchten rasters into the soil
// sections of a SHETRAN library file: a category map, the soil property
// table and the per-category layer details.
package shetran

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/monitoring"
	"github.com/banshee-data/shetran.soils/internal/soil"
)

// MapNoData marks cells outside the soil mask in the category map.
const MapNoData = -9999

// DefaultPrecision is the number of decimals written for parameters. Soil
// types are distinguished at this precision.
const DefaultPrecision = 6

// Options controls how raster values become soil types.
type Options struct {
	// KsatFactor converts the raster Ksat unit to m/d.
	KsatFactor float64
	// AlphaFactor converts the raster alpha unit to 1/cm.
	AlphaFactor float64
	// Precision is the number of decimals kept; values are rounded before
	// soil types are compared.
	Precision int
	// SkipValidation disables physical range checks.
	SkipValidation bool
}

// SoilType is a distinct parameter set, numbered from 1.
type SoilType struct {
	Number int
	Params soil.VanGenuchten
}

// Category is a distinct column of soil types, one per layer, numbered
// from 1.
type Category struct {
	Number int
	Types  []int
}

// Classification is the result of assigning soil types and categories to
// every cell of a stack.
type Classification struct {
	Header     ascgrid.Header
	Profile    soil.Profile
	Types      []SoilType
	Categories []Category
	Map        []int // category number per cell, MapNoData outside the mask

	Valid   int
	NoData  int
	Partial int
}

// CellError locates a rejected value.
type CellError struct {
	Path     string
	Row, Col int // 1-based
	Layer    int // 1-based
	Err      error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%s: row %d col %d (layer %d): %v", e.Path, e.Row, e.Col, e.Layer, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// Classify numbers soil types and categories in order of first appearance,
// scanning cells row by row from the north-west corner and layers from the
// surface down.
func Classify(stack *soil.Stack, opts Options) (*Classification, error) {
	if opts.KsatFactor == 0 {
		opts.KsatFactor = 1
	}
	if opts.AlphaFactor == 0 {
		opts.AlphaFactor = 1
	}
	if opts.Precision < 0 || opts.Precision > 15 {
		return nil, fmt.Errorf("precision must be between 0 and 15, got %d", opts.Precision)
	}
	scale := math.Pow(10, float64(opts.Precision))

	c := &Classification{
		Header:  stack.Header,
		Map:     make([]int, stack.Cells()),
		Profile: make(soil.Profile, len(stack.Layers)),
	}
	for i, l := range stack.Layers {
		c.Profile[i] = l.Layer
	}

	typeIndex := make(map[soil.VanGenuchten]int)
	catIndex := make(map[string]int)
	column := make([]int, len(stack.Layers))
	key := make([]byte, 0, 8*len(stack.Layers))
	var cell []soil.VanGenuchten

	for i := range c.Map {
		var state soil.CellState
		cell, state = stack.Cell(i, cell)
		switch state {
		case soil.CellNoData:
			c.NoData++
			c.Map[i] = MapNoData
			continue
		case soil.CellPartial:
			c.Partial++
			c.Map[i] = MapNoData
			continue
		}
		c.Valid++

		key = key[:0]
		for li, v := range cell {
			v.Ksat *= opts.KsatFactor
			v.Alpha *= opts.AlphaFactor
			if !opts.SkipValidation {
				if err := v.Validate(); err != nil {
					return nil, cellError(stack, i, li, err)
				}
			}
			for _, p := range soil.Parameters {
				v.Set(p, math.Round(v.Get(p)*scale)/scale)
			}
			n, ok := typeIndex[v]
			if !ok {
				n = len(c.Types) + 1
				typeIndex[v] = n
				c.Types = append(c.Types, SoilType{Number: n, Params: v})
			}
			column[li] = n
			key = strconv.AppendInt(key, int64(n), 10)
			key = append(key, ',')
		}

		n, ok := catIndex[string(key)]
		if !ok {
			n = len(c.Categories) + 1
			catIndex[string(key)] = n
			c.Categories = append(c.Categories, Category{Number: n, Types: append([]int(nil), column...)})
		}
		c.Map[i] = n
	}

	if c.Partial > 0 {
		monitoring.Warnf("%d cells have NoData in some but not all rasters; written as NoData", c.Partial)
	}
	if c.Valid == 0 {
		monitoring.Warnf("no cell has data in every raster")
	}
	monitoring.Debugf("classified %d cells: %d soil types, %d categories", c.Valid, len(c.Types), len(c.Categories))
	return c, nil
}

func cellError(stack *soil.Stack, i, li int, err error) error {
	path := ""
	var re *soil.RangeError
	if errors.As(err, &re) {
		path = stack.Grid(li, re.Param).Path
	}
	row, col := i/stack.Header.NCols, i%stack.Header.NCols
	return &CellError{Path: path, Row: row + 1, Col: col + 1, Layer: li + 1, Err: err}
}

// CategoryCounts returns the number of cells per category, indexed by
// category number (index 0 unused).
func (c *Classification) CategoryCounts() []int {
	counts := make([]int, len(c.Categories)+1)
	for _, n := range c.Map {
		if n != MapNoData {
			counts[n]++
		}
	}
	return counts
}
