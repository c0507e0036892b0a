package units

import (
	"math"
	"testing"
)

func TestIsValidConductivity(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"cm per day", CMPerDay, true},
		{"m per day", MPerDay, true},
		{"mm per hour", MMPerHour, true},
		{"cm per hour", CMPerHour, true},
		{"m per second", MPerSec, true},
		{"invalid unit", "ft/d", false},
		{"empty unit", "", false},
		{"uppercase", "CM/D", false}, // Case-sensitive
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValidConductivity(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValidConductivity(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidConductivityString(t *testing.T) {
	if len(ValidConductivityUnits) != 5 {
		t.Fatalf("expected 5 units, got %d", len(ValidConductivityUnits))
	}
	result := GetValidConductivityString()
	expected := "cm/d, m/d, mm/h, cm/h, m/s"
	if result != expected {
		t.Errorf("GetValidConductivityString() = %s, want %s", result, expected)
	}
}

func TestConductivityFactor(t *testing.T) {
	f, err := ConductivityFactor(CMPerDay, MPerDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(f-0.01) > 1e-15 {
		t.Errorf("cm/d -> m/d = %g, want 0.01", f)
	}

	f, err = ConductivityFactor(MPerDay, CMPerDay)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(f-100) > 1e-9 {
		t.Errorf("m/d -> cm/d = %g, want 100", f)
	}

	if _, err := ConductivityFactor("ft/d", MPerDay); err == nil {
		t.Error("expected error for unknown source unit")
	}
	if _, err := ConductivityFactor(MPerDay, "ft/d"); err == nil {
		t.Error("expected error for unknown target unit")
	}
}

func TestAlphaFactor(t *testing.T) {
	f, err := AlphaFactor(PerCM, PerM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f != 100 {
		t.Errorf("1/cm -> 1/m = %g, want 100", f)
	}
	f, err = AlphaFactor(PerCM, PerCM)
	if err != nil || f != 1 {
		t.Errorf("identity factor = %g, %v", f, err)
	}
	if _, err := AlphaFactor("1/ft", PerM); err == nil {
		t.Error("expected error for unknown unit")
	}
	if _, err := AlphaFactor(PerM, "1/ft"); err == nil {
		t.Error("expected error for unknown unit")
	}
}
