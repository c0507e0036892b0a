package soil

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDepth is the base depth, in metres, of the single-layer profile.
const DefaultDepth = 2.0

// Layer is one soil horizon. Token selects its rasters by filename; an
// empty token matches files without a layer marker.
type Layer struct {
	Token     string  `json:"token,omitempty" yaml:"token,omitempty"`
	BaseDepth float64 `json:"base_depth" yaml:"base_depth"`
}

// Profile is an ordered list of layers from the surface down.
type Profile []Layer

// DefaultProfile returns a single 2 m layer.
func DefaultProfile() Profile {
	return Profile{{BaseDepth: DefaultDepth}}
}

// Validate checks depths increase strictly and that layers are
// distinguishable by token.
func (p Profile) Validate() error {
	if len(p) == 0 {
		return fmt.Errorf("soil profile has no layers")
	}
	seen := make(map[string]bool, len(p))
	prev := 0.0
	for i, l := range p {
		if !(l.BaseDepth > prev) {
			return fmt.Errorf("layer %d: base depth %g must exceed %g", i+1, l.BaseDepth, prev)
		}
		prev = l.BaseDepth
		if len(p) > 1 && l.Token == "" {
			return fmt.Errorf("layer %d: token required when the profile has more than one layer", i+1)
		}
		if seen[l.Token] {
			return fmt.Errorf("layer %d: duplicate token %q", i+1, l.Token)
		}
		seen[l.Token] = true
	}
	return nil
}

// ParseProfile reads a compact "token:depth,token:depth" description, e.g.
// "sl1:0.05,sl2:0.15". A lone depth ("2.0") gives a single untagged layer.
func ParseProfile(s string) (Profile, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty profile")
	}
	var p Profile
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		token, depth := "", part
		if i := strings.LastIndex(part, ":"); i >= 0 {
			token, depth = strings.TrimSpace(part[:i]), strings.TrimSpace(part[i+1:])
		}
		d, err := strconv.ParseFloat(depth, 64)
		if err != nil {
			return nil, fmt.Errorf("layer %q: bad depth: %w", part, err)
		}
		p = append(p, Layer{Token: token, BaseDepth: d})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// String renders the profile in the form accepted by ParseProfile.
func (p Profile) String() string {
	parts := make([]string, len(p))
	for i, l := range p {
		d := strconv.FormatFloat(l.BaseDepth, 'f', -1, 64)
		if l.Token == "" {
			parts[i] = d
		} else {
			parts[i] = l.Token + ":" + d
		}
	}
	return strings.Join(parts, ",")
}
