// Package units provides filament unit conversion: length to mass, mass to
// length, and gross to net spool weight. All functions are pure.
package units

import (
	"math"
	"strings"

	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
)

// Densities in g/cm³ for common filament materials.
const (
	DensityPLA  = 1.24
	DensityPETG = 1.27
	DensityABS  = 1.04
	DensityTPU  = 1.20
)

// DefaultDensity is used when a material is not in the density table. PLA is
// by far the most common material, so its density is the least-wrong guess;
// the approximation is deliberate, not an oversight.
const DefaultDensity = DensityPLA

// StandardDiameters lists the nominal filament diameters in mm.
var StandardDiameters = []float64{1.75, 2.85}

var densityTable = map[string]float64{
	"PLA":  DensityPLA,
	"PETG": DensityPETG,
	"ABS":  DensityABS,
	"TPU":  DensityTPU,
}

// LengthToMass converts a filament length in meters to mass in grams for the
// given diameter (mm) and density (g/cm³).
func LengthToMass(lengthM, diameterMM, densityGCM3 float64) (float64, error) {
	if lengthM <= 0 || diameterMM <= 0 || densityGCM3 <= 0 {
		return 0, apperrors.New(apperrors.ErrInvalid, "length, diameter and density must all be positive")
	}
	// Cross-sectional area in cm²: radius is diameterMM/2 mm = diameterMM/20 cm.
	area := math.Pi * math.Pow(diameterMM/20, 2)
	return lengthM * 100 * area * densityGCM3, nil
}

// MassToLength converts a mass in grams to filament length in meters for the
// given diameter (mm) and density (g/cm³). The positivity precondition also
// guards the division.
func MassToLength(massG, diameterMM, densityGCM3 float64) (float64, error) {
	if massG <= 0 || diameterMM <= 0 || densityGCM3 <= 0 {
		return 0, apperrors.New(apperrors.ErrInvalid, "mass, diameter and density must all be positive")
	}
	area := math.Pi * math.Pow(diameterMM/20, 2)
	return massG / (area * densityGCM3) / 100, nil
}

// NetMass converts a gross spool weight to net filament mass by subtracting
// the tare (empty reel) weight. A negative result is floored at zero: scales
// mis-read, users weigh the wrong spool, and a negative net mass is operator
// error rather than an exceptional condition.
func NetMass(grossG, tareG float64) float64 {
	if net := grossG - tareG; net > 0 {
		return net
	}
	return 0
}

// DensityForMaterial looks up the density for a material name,
// case-insensitively. Unknown materials fall back to DefaultDensity.
func DensityForMaterial(material string) float64 {
	if d, ok := densityTable[strings.ToUpper(strings.TrimSpace(material))]; ok {
		return d
	}
	return DefaultDensity
}

// IsStandardDiameter reports whether d is one of the nominal diameters.
func IsStandardDiameter(d float64) bool {
	for _, std := range StandardDiameters {
		if d == std {
			return true
		}
	}
	return false
}
