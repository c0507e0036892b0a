// Package units provides shared constants and conversions for soil
// hydraulic units.
package units

import "fmt"

// Conductivity unit constants
const (
	CMPerDay  = "cm/d"
	MPerDay   = "m/d"
	MMPerHour = "mm/h"
	CMPerHour = "cm/h"
	MPerSec   = "m/s"
)

// Inverse length unit constants (van Genuchten alpha)
const (
	PerCM = "1/cm"
	PerM  = "1/m"
)

// ValidConductivityUnits contains all valid conductivity unit values
var ValidConductivityUnits = []string{CMPerDay, MPerDay, MMPerHour, CMPerHour, MPerSec}

// metresPerDay holds the factor taking one unit of conductivity to m/d.
var metresPerDay = map[string]float64{
	CMPerDay:  0.01,
	MPerDay:   1,
	MMPerHour: 0.024,
	CMPerHour: 0.24,
	MPerSec:   86400,
}

// IsValidConductivity checks if the given unit is a known conductivity unit
func IsValidConductivity(unit string) bool {
	_, ok := metresPerDay[unit]
	return ok
}

// GetValidConductivityString returns a comma-separated string of valid units for error messages
func GetValidConductivityString() string {
	return "cm/d, m/d, mm/h, cm/h, m/s"
}

// ConductivityFactor returns the multiplier converting from one
// conductivity unit to another.
func ConductivityFactor(from, to string) (float64, error) {
	f, ok := metresPerDay[from]
	if !ok {
		return 0, fmt.Errorf("unknown conductivity unit %q (valid: %s)", from, GetValidConductivityString())
	}
	t, ok := metresPerDay[to]
	if !ok {
		return 0, fmt.Errorf("unknown conductivity unit %q (valid: %s)", to, GetValidConductivityString())
	}
	return f / t, nil
}

// AlphaFactor returns the multiplier converting van Genuchten alpha
// between inverse length units.
func AlphaFactor(from, to string) (float64, error) {
	scale := func(u string) (float64, error) {
		switch u {
		case PerCM:
			return 100, nil
		case PerM:
			return 1, nil
		default:
			return 0, fmt.Errorf("unknown alpha unit %q (valid: 1/cm, 1/m)", u)
		}
	}
	f, err := scale(from)
	if err != nil {
		return 0, err
	}
	t, err := scale(to)
	if err != nil {
		return 0, err
	}
	return f / t, nil
}
