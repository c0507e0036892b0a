package shetran

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/banshee-data/shetran.soils/internal/ascgrid"
	"github.com/banshee-data/shetran.soils/internal/soil"
)

// Format selects the layout of the property and detail tables.
type Format string

const (
	// FormatLibrary writes SHETRAN library file elements.
	FormatLibrary Format = "library"
	// FormatCSV writes comma separated rows wrapped in element markers.
	FormatCSV Format = "csv"
)

// MapFormat selects the layout of the category map.
type MapFormat string

const (
	// MapASC writes an ASCII grid with header.
	MapASC MapFormat = "asc"
	// MapMatrix writes the bare integer matrix.
	MapMatrix MapFormat = "matrix"
)

// ParseFormat validates a table format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatLibrary, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (valid: library, csv)", s)
}

// ParseMapFormat validates a map format name.
func ParseMapFormat(s string) (MapFormat, error) {
	switch f := MapFormat(strings.ToLower(s)); f {
	case MapASC, MapMatrix:
		return f, nil
	}
	return "", fmt.Errorf("unknown map format %q (valid: asc, matrix)", s)
}

const (
	propertiesComment = "<!--SoilNumber, SoilType, Saturated Water Content, Residual Water Content, Saturated Conductivity (m/day), vanGenuchten- alpha (cm-1), vanGenuchten-n-->"
	detailsComment    = "<!--Soil Category, Soil Layer, Soil Type, Depth at base of layer (m)-->"
	propertiesHeader  = "SoilProperty,SoilNumber,SoilType,VG_ThetaS,VG_ThetaR,VG_Ksat,VG_alpha,VG_n,</SoilProperty>"
	detailsHeader     = "<SoilDetails>,SoilCategory,SoilLayer,SoilType,Depth[m],</SoilDetails>"
)

// WriteCategoryMap writes one category number per cell, row by row.
func WriteCategoryMap(w io.Writer, c *Classification, mf MapFormat) error {
	return ascgrid.WriteInts(w, c.Header, c.Map, MapNoData, mf != MapMatrix)
}

// WriteProperties writes one row per soil type.
func WriteProperties(w io.Writer, c *Classification, f Format, precision int) error {
	bw := bufio.NewWriter(w)
	num := func(x float64) string { return strconv.FormatFloat(x, 'f', precision, 64) }

	if f == FormatCSV {
		fmt.Fprintln(bw, propertiesHeader)
	} else {
		fmt.Fprintln(bw, propertiesComment)
	}
	for _, t := range c.Types {
		vals := make([]string, 0, soil.NumParameters)
		for _, p := range soil.Parameters {
			vals = append(vals, num(t.Params.Get(p)))
		}
		if f == FormatCSV {
			fmt.Fprintf(bw, "<SoilProperty>,%d,%d,%s,</SoilProperty>\n", t.Number, t.Number, strings.Join(vals, ","))
		} else {
			fmt.Fprintf(bw, "<SoilProperty>%d, Soil %d, %s</SoilProperty>\n", t.Number, t.Number, strings.Join(vals, ", "))
		}
	}
	return bw.Flush()
}

// WriteDetails writes one row per category and layer.
func WriteDetails(w io.Writer, c *Classification, f Format) error {
	bw := bufio.NewWriter(w)
	if f == FormatCSV {
		fmt.Fprintln(bw, detailsHeader)
	} else {
		fmt.Fprintln(bw, detailsComment)
	}
	for _, cat := range c.Categories {
		for li, t := range cat.Types {
			depth := formatDepth(c.Profile[li].BaseDepth)
			if f == FormatCSV {
				fmt.Fprintf(bw, "<SoilDetail>,%d,%d,%d,%s,</SoilDetail>\n", cat.Number, li+1, t, depth)
			} else {
				fmt.Fprintf(bw, "<SoilDetail>%d, %d, %d, %s</SoilDetail>\n", cat.Number, li+1, t, depth)
			}
		}
	}
	return bw.Flush()
}

// formatDepth prints the shortest exact form, always with a decimal point.
func formatDepth(d float64) string {
	s := strconv.FormatFloat(d, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
