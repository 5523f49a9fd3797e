package units

import (
	"math"
	"testing"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestLengthToMass(t *testing.T) {
	// 10 m of 1.75 mm PLA at 1.24 g/cm3
	mass, err := LengthToMass(10, 1.75, 1.24)
	if err != nil {
		t.Fatalf("LengthToMass failed: %v", err)
	}
	if !almostEqual(mass, 29.825, 0.01) {
		t.Errorf("Expected ~29.83g, got %.4f", mass)
	}
}

func TestLengthToMassLargerDiameter(t *testing.T) {
	thin, err := LengthToMass(10, 1.75, 1.24)
	if err != nil {
		t.Fatalf("LengthToMass failed: %v", err)
	}
	thick, err := LengthToMass(10, 2.85, 1.24)
	if err != nil {
		t.Fatalf("LengthToMass failed: %v", err)
	}
	if thick <= thin {
		t.Errorf("2.85mm filament should weigh more per meter: %.2f vs %.2f", thick, thin)
	}
}

func TestMassToLengthRoundTrip(t *testing.T) {
	cases := []struct {
		lengthM  float64
		diameter float64
		density  float64
	}{
		{10, 1.75, 1.24},
		{333.3, 1.75, 1.27},
		{5, 2.85, 1.04},
		{0.5, 1.75, 1.20},
	}
	for _, tc := range cases {
		mass, err := LengthToMass(tc.lengthM, tc.diameter, tc.density)
		if err != nil {
			t.Fatalf("LengthToMass(%v) failed: %v", tc, err)
		}
		back, err := MassToLength(mass, tc.diameter, tc.density)
		if err != nil {
			t.Fatalf("MassToLength(%v) failed: %v", tc, err)
		}
		if !almostEqual(back, tc.lengthM, 1e-9) {
			t.Errorf("Round trip drifted: %v -> %v -> %v", tc.lengthM, mass, back)
		}
	}
}

func TestConversionRejectsNonPositiveInputs(t *testing.T) {
	if _, err := LengthToMass(10, 0, 1.24); err == nil {
		t.Error("Expected error for zero diameter")
	}
	if _, err := LengthToMass(10, 1.75, -1); err == nil {
		t.Error("Expected error for negative density")
	}
	if _, err := LengthToMass(-5, 1.75, 1.24); err == nil {
		t.Error("Expected error for negative length")
	}
	if _, err := MassToLength(-5, 1.75, 1.24); err == nil {
		t.Error("Expected error for negative mass")
	}
	if _, err := MassToLength(100, -1.75, 1.24); err == nil {
		t.Error("Expected error for negative diameter")
	}
}

func TestNetMass(t *testing.T) {
	if got := NetMass(1200, 200); got != 1000 {
		t.Errorf("Expected 1000, got %v", got)
	}
	// Scale reads less than the empty spool weighs: floor at zero, never
	// negative.
	if got := NetMass(150, 200); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
	if got := NetMass(200, 200); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}

func TestDensityForMaterial(t *testing.T) {
	cases := []struct {
		material string
		want     float64
	}{
		{"PLA", 1.24},
		{"pla", 1.24},
		{"PETG", 1.27},
		{"petg", 1.27},
		{"ABS", 1.04},
		{"TPU", 1.20},
		{"Unobtainium", DefaultDensity},
		{"", DefaultDensity},
	}
	for _, tc := range cases {
		if got := DensityForMaterial(tc.material); got != tc.want {
			t.Errorf("DensityForMaterial(%q) = %v, want %v", tc.material, got, tc.want)
		}
	}
}

func TestIsStandardDiameter(t *testing.T) {
	if !IsStandardDiameter(1.75) {
		t.Error("1.75 should be standard")
	}
	if !IsStandardDiameter(2.85) {
		t.Error("2.85 should be standard")
	}
	if IsStandardDiameter(3.0) {
		t.Error("3.0 should not be standard")
	}
}
