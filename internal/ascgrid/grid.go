// Package ascgrid reads and writes ESRI ASCII raster grids (.asc), the
// interchange format produced by the GIS pre-processing of the soil
// parameter rasters and consumed by SHETRAN for its category maps.
package ascgrid

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/shetran.soils/internal/fsutil"
)

const (
	// DefaultNoData is used when a grid header carries no NODATA_value.
	DefaultNoData = -9999.0

	// DatasetNoData is the sentinel written by the Schaap parameter
	// extraction for cells outside the land mask.
	DatasetNoData = -999.0

	// coordTolerance bounds float differences in header comparisons.
	coordTolerance = 1e-9

	maxLineBytes = 64 << 20
)

var (
	// ErrMalformed marks any syntactic problem with a grid file.
	ErrMalformed = errors.New("malformed ascii grid")

	// ErrShapeMismatch is returned when two grids do not overlay exactly.
	ErrShapeMismatch = errors.New("grid shapes differ")
)

// Header is the georeferencing block at the top of an ASCII grid.
type Header struct {
	NCols    int
	NRows    int
	XLL      float64
	YLL      float64
	Center   bool // XLL/YLL refer to the lower-left cell centre, not its corner
	CellSize float64
	NoData   float64
}

// Cells returns the number of cells described by the header.
func (h Header) Cells() int { return h.NCols * h.NRows }

// SameShape reports whether two headers describe the same raster frame.
func (h Header) SameShape(o Header) bool {
	return h.NCols == o.NCols && h.NRows == o.NRows && h.Center == o.Center &&
		math.Abs(h.XLL-o.XLL) <= coordTolerance &&
		math.Abs(h.YLL-o.YLL) <= coordTolerance &&
		math.Abs(h.CellSize-o.CellSize) <= coordTolerance
}

// Describe gives a short human readable summary of the frame.
func (h Header) Describe() string {
	return fmt.Sprintf("%dx%d cells of %g at (%g, %g)", h.NCols, h.NRows, h.CellSize, h.XLL, h.YLL)
}

// Write emits the header lines. The NoData line uses noData rather than
// h.NoData so writers can normalise it.
func (h Header) Write(w io.Writer, noData float64) error {
	xk, yk := "xllcorner", "yllcorner"
	if h.Center {
		xk, yk = "xllcenter", "yllcenter"
	}
	_, err := fmt.Fprintf(w, "ncols         %d\nnrows         %d\n%-13s %s\n%-13s %s\ncellsize      %s\nNODATA_value  %s\n",
		h.NCols, h.NRows,
		xk, formatFloat(h.XLL),
		yk, formatFloat(h.YLL),
		formatFloat(h.CellSize),
		formatFloat(noData))
	return err
}

// Grid is a raster of float values in row-major order, row 0 being the
// northernmost row as stored in the file.
type Grid struct {
	Header
	Path   string
	Values []float64
}

// Index returns the offset of (row, col) in Values.
func (g *Grid) Index(row, col int) int { return row*g.NCols + col }

// RowCol is the inverse of Index.
func (g *Grid) RowCol(i int) (row, col int) { return i / g.NCols, i % g.NCols }

// At returns the value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.Values[g.Index(row, col)] }

// CellID numbers cells sequentially from 1 in row-major order, including
// NoData cells.
func (g *Grid) CellID(row, col int) int { return 1 + g.NCols*row + col }

// IsNoData reports whether v is the grid's NoData value or the dataset
// sentinel.
func (g *Grid) IsNoData(v float64) bool {
	return v == g.NoData || v == DatasetNoData || math.IsNaN(v)
}

// Valid counts the cells holding data.
func (g *Grid) Valid() int {
	n := 0
	for _, v := range g.Values {
		if !g.IsNoData(v) {
			n++
		}
	}
	return n
}

// WriteTo writes the grid in ASCII grid format.
func (g *Grid) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	if err := g.Header.Write(cw, g.NoData); err != nil {
		return cw.n, err
	}
	for r := 0; r < g.NRows; r++ {
		row := g.Values[r*g.NCols : (r+1)*g.NCols]
		for c, v := range row {
			if c > 0 {
				cw.writeString(" ")
			}
			cw.writeString(formatFloat(v))
		}
		cw.writeString("\n")
	}
	return cw.n, cw.Flush()
}

// ReadFile opens and parses the grid at path.
func ReadFile(fsys fsutil.FileSystem, path string) (*Grid, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open grid: %w", err)
	}
	defer f.Close()

	g, err := Read(f, path)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Read parses an ASCII grid. name is used in error messages and recorded
// as the grid's Path.
func Read(r io.Reader, name string) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	h, pending, line, err := readHeader(sc, name)
	if err != nil {
		return nil, err
	}

	g := &Grid{Header: h, Path: name, Values: make([]float64, 0, h.Cells())}
	parse := func(tok string, line int) error {
		if len(g.Values) == h.Cells() {
			return fmt.Errorf("%s: line %d: more than %d values: %w", name, line, h.Cells(), ErrMalformed)
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			row, col := g.RowCol(len(g.Values))
			return fmt.Errorf("%s: row %d col %d: bad value %q: %w", name, row+1, col+1, tok, ErrMalformed)
		}
		g.Values = append(g.Values, v)
		return nil
	}

	for _, tok := range pending {
		if err := parse(tok, line); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		line++
		for _, tok := range strings.Fields(sc.Text()) {
			if err := parse(tok, line); err != nil {
				return nil, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to read grid: %w", name, err)
	}
	if len(g.Values) != h.Cells() {
		return nil, fmt.Errorf("%s: expected %d values (%d rows x %d cols), found %d: %w",
			name, h.Cells(), h.NRows, h.NCols, len(g.Values), ErrMalformed)
	}
	return g, nil
}

// readHeader consumes header lines and returns the fields of the first
// body line, already split, along with its line number.
func readHeader(sc *bufio.Scanner, name string) (Header, []string, int, error) {
	h := Header{NoData: DefaultNoData}
	seen := make(map[string]bool)
	var stErr []string
	line := 0
	var xCenter, yCenter bool

	setFloat := func(key, val string, dst *float64) {
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			stErr = append(stErr, fmt.Sprintf("failed to read '%s': %v", key, err))
			return
		}
		*dst = v
	}
	setInt := func(key, val string, dst *int) {
		v, err := strconv.Atoi(val)
		if err != nil {
			stErr = append(stErr, fmt.Sprintf("failed to read '%s': %v", key, err))
			return
		}
		*dst = v
	}

	var body []string
	for sc.Scan() {
		line++
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		key := strings.ToLower(f[0])
		if !isHeaderKey(key) {
			body = f
			break
		}
		if len(f) != 2 {
			stErr = append(stErr, fmt.Sprintf("line %d: expected '%s <value>'", line, f[0]))
			continue
		}
		switch key {
		case "ncols":
			setInt(key, f[1], &h.NCols)
		case "nrows":
			setInt(key, f[1], &h.NRows)
		case "xllcorner", "yllcorner", "xllcenter", "yllcenter":
			center := strings.HasSuffix(key, "center")
			if key[0] == 'x' {
				xCenter = center
				setFloat(key, f[1], &h.XLL)
			} else {
				yCenter = center
				setFloat(key, f[1], &h.YLL)
			}
			key = key[:1] + "ll"
		case "cellsize":
			setFloat(key, f[1], &h.CellSize)
		case "nodata_value":
			setFloat(key, f[1], &h.NoData)
		}
		seen[key] = true
	}
	if err := sc.Err(); err != nil {
		return h, nil, line, fmt.Errorf("%s: failed to read header: %w", name, err)
	}

	for _, k := range []string{"ncols", "nrows", "xll", "yll", "cellsize"} {
		if !seen[k] {
			stErr = append(stErr, fmt.Sprintf("missing header key '%s'", k))
		}
	}
	if seen["xll"] && seen["yll"] && xCenter != yCenter {
		stErr = append(stErr, "origin mixes corner and center keys")
	}
	h.Center = xCenter && yCenter
	if seen["ncols"] && h.NCols <= 0 {
		stErr = append(stErr, fmt.Sprintf("ncols must be positive, got %d", h.NCols))
	}
	if seen["nrows"] && h.NRows <= 0 {
		stErr = append(stErr, fmt.Sprintf("nrows must be positive, got %d", h.NRows))
	}
	if seen["cellsize"] && h.CellSize <= 0 {
		stErr = append(stErr, fmt.Sprintf("cellsize must be positive, got %g", h.CellSize))
	}
	if len(stErr) > 0 {
		return h, nil, line, fmt.Errorf("%s: %s: %w", name, strings.Join(stErr, "; "), ErrMalformed)
	}
	return h, body, line, nil
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

// CheckShapes returns ErrShapeMismatch naming the first grid that does not
// overlay the first one.
func CheckShapes(grids ...*Grid) error {
	if len(grids) < 2 {
		return nil
	}
	ref := grids[0]
	for _, g := range grids[1:] {
		if !ref.SameShape(g.Header) {
			return fmt.Errorf("%s (%s) vs %s (%s): %w",
				ref.Path, ref.Describe(), g.Path, g.Describe(), ErrShapeMismatch)
		}
	}
	return nil
}

// WriteInts writes an integer raster, optionally preceded by an ASCII grid
// header, one line per row.
func WriteInts(w io.Writer, h Header, values []int, noData int, withHeader bool) error {
	if len(values) != h.Cells() {
		return fmt.Errorf("expected %d values, got %d", h.Cells(), len(values))
	}
	bw := bufio.NewWriter(w)
	if withHeader {
		if err := h.Write(bw, float64(noData)); err != nil {
			return err
		}
	}
	buf := make([]byte, 0, 16)
	for r := 0; r < h.NRows; r++ {
		for c := 0; c < h.NCols; c++ {
			if c > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendInt(buf[:0], int64(values[r*h.NCols+c]), 10)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (c *countingWriter) writeString(s string) {
	n, _ := c.w.WriteString(s)
	c.n += int64(n)
}

func (c *countingWriter) Flush() error { return c.w.Flush() }
