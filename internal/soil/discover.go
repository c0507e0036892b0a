package soil

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/banshee-data/shetran.soils/internal/fsutil"
	"github.com/banshee-data/shetran.soils/internal/monitoring"
)

var (
	// ErrMissingParameter is returned when no file matches a parameter.
	ErrMissingParameter = errors.New("no grid found for parameter")

	// ErrAmbiguousParameter is returned when several files match a parameter.
	ErrAmbiguousParameter = errors.New("several grids match parameter")
)

// Files maps each parameter of one layer to its raster path.
type Files [NumParameters]string

// Source describes where the rasters of a profile live.
type Source struct {
	Dir        string
	Resolution string // filename fragment, e.g. "5km"; empty matches any

	// Tags overrides the filename tag per parameter (default Parameter.Tag).
	Tags map[Parameter]string

	// Paths pins explicit files per layer token, bypassing discovery.
	Paths map[string]map[Parameter]string
}

// Pattern returns the doublestar glob selecting candidate rasters.
func (s Source) Pattern() string {
	if s.Resolution == "" {
		return filepath.Join(s.Dir, "*.asc")
	}
	return filepath.Join(s.Dir, "*"+s.Resolution+"*.asc")
}

func (s Source) tag(p Parameter) string {
	if t, ok := s.Tags[p]; ok && t != "" {
		return t
	}
	return p.Tag()
}

// Discover resolves the five rasters of every layer of the profile.
func Discover(fsys fsutil.FileSystem, src Source, profile Profile) ([]Files, error) {
	candidates, err := fsys.Glob(src.Pattern())
	if err != nil {
		return nil, err
	}
	monitoring.Debugf("found %d candidate grids for %s", len(candidates), src.Pattern())

	out := make([]Files, len(profile))
	for li, layer := range profile {
		pinned := src.Paths[layer.Token]
		for _, p := range Parameters {
			if path, ok := pinned[p]; ok && path != "" {
				out[li][p] = path
				continue
			}
			var hits []string
			for _, c := range candidates {
				base := filepath.Base(c)
				if containsToken(base, src.tag(p)) && (layer.Token == "" || containsToken(base, layer.Token)) {
					hits = append(hits, c)
				}
			}
			switch len(hits) {
			case 0:
				return nil, fmt.Errorf("%s (layer %s) in %s: %w", p, layerName(li, layer), src.Pattern(), ErrMissingParameter)
			case 1:
				out[li][p] = hits[0]
			default:
				return nil, fmt.Errorf("%s (layer %s): %s: %w", p, layerName(li, layer), strings.Join(hits, ", "), ErrAmbiguousParameter)
			}
		}
	}
	return out, nil
}

func layerName(i int, l Layer) string {
	if l.Token == "" {
		return fmt.Sprintf("%d", i+1)
	}
	return fmt.Sprintf("%d/%s", i+1, l.Token)
}

// containsToken reports whether tok occurs in s delimited by non
// alphanumeric characters, so "VG_N" does not match "VG_Ns" and "sl1" does
// not match "sl10".
func containsToken(s, tok string) bool {
	if tok == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(s[from:], tok)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(tok)
		if boundary(s, start-1) && boundary(s, end) {
			return true
		}
		from = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	r := rune(s[i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
