// Package soil models the Mualem–van Genuchten hydraulic parameter rasters
// that feed a SHETRAN soil library: which files hold which parameter, how a
// profile of layers is assembled, and what a physically valid parameter set
// looks like.
package soil

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/shetran.soils/internal/units"
)

// Parameter identifies one of the five van Genuchten rasters.
type Parameter int

const (
	ThetaS Parameter = iota
	ThetaR
	Ksat
	Alpha
	N

	// NumParameters is the number of rasters per layer.
	NumParameters = 5
)

// Parameters lists every parameter in output column order.
var Parameters = [NumParameters]Parameter{ThetaS, ThetaR, Ksat, Alpha, N}

var paramNames = [NumParameters]string{"ThetaS", "ThetaR", "Ksat", "Alpha", "N"}

// String returns the short name, e.g. "ThetaS".
func (p Parameter) String() string {
	if p < 0 || int(p) >= NumParameters {
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
	return paramNames[p]
}

// Tag returns the default filename tag of the parameter's raster.
func (p Parameter) Tag() string { return "VG_" + p.String() }

// Unit returns the unit of the parameter as it appears in the source rasters.
func (p Parameter) Unit() string {
	switch p {
	case ThetaS, ThetaR:
		return "cm3/cm3"
	case Ksat:
		return units.CMPerDay
	case Alpha:
		return units.PerCM
	default:
		return "-"
	}
}

// ParseParameter accepts the short name or the VG_ tag, case-insensitively.
func ParseParameter(s string) (Parameter, error) {
	k := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "vg_")
	for i, name := range paramNames {
		if strings.ToLower(name) == k {
			return Parameter(i), nil
		}
	}
	return 0, fmt.Errorf("unknown soil parameter %q (valid: ThetaS, ThetaR, Ksat, Alpha, N)", s)
}

// ErrOutOfRange marks a parameter value outside its physical range.
var ErrOutOfRange = errors.New("parameter out of range")

// VanGenuchten holds the Mualem–van Genuchten parameters of one soil.
// Ksat is in whatever unit the caller has converted to; SHETRAN wants m/d.
type VanGenuchten struct {
	ThetaS float64
	ThetaR float64
	Ksat   float64
	Alpha  float64
	N      float64
}

// Get returns the value of parameter p.
func (v VanGenuchten) Get(p Parameter) float64 {
	switch p {
	case ThetaS:
		return v.ThetaS
	case ThetaR:
		return v.ThetaR
	case Ksat:
		return v.Ksat
	case Alpha:
		return v.Alpha
	default:
		return v.N
	}
}

// Set assigns parameter p.
func (v *VanGenuchten) Set(p Parameter, x float64) {
	switch p {
	case ThetaS:
		v.ThetaS = x
	case ThetaR:
		v.ThetaR = x
	case Ksat:
		v.Ksat = x
	case Alpha:
		v.Alpha = x
	default:
		v.N = x
	}
}

// RangeError reports which parameter failed validation.
type RangeError struct {
	Param  Parameter
	Value  float64
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s=%g %s", e.Param, e.Value, e.Reason)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Validate checks the physical ranges: 0 < θs ≤ 1, 0 ≤ θr < θs, Ks > 0,
// α > 0, n > 1.
func (v VanGenuchten) Validate() error {
	switch {
	case !(v.ThetaS > 0 && v.ThetaS <= 1):
		return &RangeError{ThetaS, v.ThetaS, "must be in (0, 1]"}
	case !(v.ThetaR >= 0):
		return &RangeError{ThetaR, v.ThetaR, "must be non-negative"}
	case !(v.ThetaR < v.ThetaS):
		return &RangeError{ThetaR, v.ThetaR, fmt.Sprintf("must be below ThetaS (%g)", v.ThetaS)}
	case !(v.Ksat > 0):
		return &RangeError{Ksat, v.Ksat, "must be positive"}
	case !(v.Alpha > 0):
		return &RangeError{Alpha, v.Alpha, "must be positive"}
	case !(v.N > 1):
		return &RangeError{N, v.N, "must be greater than 1"}
	}
	return nil
}
