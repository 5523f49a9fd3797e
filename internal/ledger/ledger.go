// Package ledger owns the quantity-tracking invariants of a spool. Every
// function here is a pure transition: it takes a spool value, validates the
// requested change, and returns an updated copy. A rejected transition
// returns the input unchanged, so callers never observe a partial write.
// Persistence is the caller's responsibility.
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/units"
	"github.com/tzuhan/filatrack/backend/internal/uuid"
)

// CreateSpec carries the user-supplied fields for a new spool.
type CreateSpec struct {
	Brand           string           `json:"brand"`
	Material        string           `json:"material"`
	ColorName       string           `json:"color_name"`
	ColorHex        string           `json:"color_hex"`
	DiameterMM      float64          `json:"diameter_mm"` // 0 means "use the settings default"
	InitialMassG    float64          `json:"initial_mass_g"`
	TareMassG       *float64         `json:"tare_mass_g,omitempty"`
	DensityOverride *float64         `json:"density_override,omitempty"`
	MinTempC        *float64         `json:"min_temp_c,omitempty"`
	MaxTempC        *float64         `json:"max_temp_c,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	AcquiredAt      int64            `json:"acquired_at,omitempty"` // 0 means now
	Note            string           `json:"note,omitempty"`
}

// New creates a spool from spec. The remaining mass starts equal to the
// initial mass and the spool is active.
func New(spec CreateSpec, settings models.Settings) (models.Spool, error) {
	if spec.InitialMassG <= 0 {
		return models.Spool{}, apperrors.New(apperrors.ErrInvalidAmount, "initial mass must be positive")
	}
	diameter := spec.DiameterMM
	if diameter == 0 {
		diameter = settings.DefaultDiameterMM
	}
	if diameter <= 0 {
		return models.Spool{}, apperrors.New(apperrors.ErrInvalid, "diameter must be positive")
	}
	acquired := spec.AcquiredAt
	if acquired == 0 {
		acquired = time.Now().Unix()
	}
	now := time.Now().Unix()
	return models.Spool{
		ID:              models.UUID(uuid.New()),
		Brand:           spec.Brand,
		Material:        spec.Material,
		ColorName:       spec.ColorName,
		ColorHex:        NormalizeHex(spec.ColorHex),
		DiameterMM:      diameter,
		InitialMassG:    spec.InitialMassG,
		RemainingMassG:  spec.InitialMassG,
		TareMassG:       spec.TareMassG,
		DensityOverride: spec.DensityOverride,
		MinTempC:        spec.MinTempC,
		MaxTempC:        spec.MaxTempC,
		Price:           spec.Price,
		AcquiredAt:      acquired,
		Archived:        false,
		Note:            spec.Note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ApplyConsumption subtracts massG from the spool's remaining mass, flooring
// at zero. Hitting exactly zero archives the spool in the same transition;
// there is no intermediate state where the mass is updated but archival is
// still undecided.
func ApplyConsumption(s models.Spool, massG float64) (models.Spool, error) {
	if massG <= 0 {
		return s, apperrors.New(apperrors.ErrInvalidAmount, "consumed mass must be positive")
	}
	remaining := s.RemainingMassG - massG
	if remaining < 0 {
		remaining = 0
	}
	s.RemainingMassG = remaining
	if remaining == 0 {
		s.Archived = true
	}
	s.Touch()
	return s, nil
}

// ReviseStock restates the spool's initial mass, e.g. after the user corrects
// the nominal weight. The amount consumed so far is preserved: the new
// remaining mass is newInitial minus the prior consumption, clamped to
// [0, newInitial].
func ReviseStock(s models.Spool, newInitialG float64) (models.Spool, error) {
	if newInitialG <= 0 {
		return s, apperrors.New(apperrors.ErrInvalidAmount, "initial mass must be positive")
	}
	consumed := s.ConsumedMassG()
	remaining := newInitialG - consumed
	if remaining < 0 {
		remaining = 0
	}
	if remaining > newInitialG {
		remaining = newInitialG
	}
	s.InitialMassG = newInitialG
	s.RemainingMassG = remaining
	if remaining == 0 {
		s.Archived = true
	}
	s.Touch()
	return s, nil
}

// SetRemaining is the manual correction path: the user re-weighs the spool
// and states the remaining mass directly. The value is clamped to
// [0, initial]; reaching zero archives the spool. Raising the mass of an
// archived spool does not un-archive it; that takes an explicit Restore.
func SetRemaining(s models.Spool, massG float64) (models.Spool, error) {
	if massG < 0 {
		return s, apperrors.New(apperrors.ErrInvalidAmount, "remaining mass cannot be negative")
	}
	if massG > s.InitialMassG {
		massG = s.InitialMassG
	}
	s.RemainingMassG = massG
	if massG == 0 {
		s.Archived = true
	}
	s.Touch()
	return s, nil
}

// Archive marks the spool archived. Archival is a visibility filter, not a
// deletion; the spool and its usage records survive.
func Archive(s models.Spool) models.Spool {
	s.Archived = true
	s.Touch()
	return s
}

// Restore un-archives a spool.
func Restore(s models.Spool) models.Spool {
	s.Archived = false
	s.Touch()
	return s
}

// RemainingPercent returns the remaining mass as a percentage of the initial
// mass. A zero initial mass cannot occur through New, but imported or legacy
// data must not crash a derived read, so it yields 0.
func RemainingPercent(s models.Spool) float64 {
	if s.InitialMassG == 0 {
		return 0
	}
	return s.RemainingMassG / s.InitialMassG * 100
}

// IsLowStock reports whether the spool is below the configured low-stock
// threshold.
func IsLowStock(s models.Spool, settings models.Settings) bool {
	return RemainingPercent(s) < settings.LowStockPercent
}

// Density returns the density used for this spool's length conversions:
// the per-spool override when set, otherwise the material table value.
func Density(s models.Spool) float64 {
	if s.DensityOverride != nil && *s.DensityOverride > 0 {
		return *s.DensityOverride
	}
	return units.DensityForMaterial(s.Material)
}

// RemainingLengthM returns the estimated remaining filament length in meters.
func RemainingLengthM(s models.Spool) (float64, error) {
	if s.RemainingMassG == 0 {
		return 0, nil
	}
	return units.MassToLength(s.RemainingMassG, s.DiameterMM, Density(s))
}

// NormalizeHex strips a leading '#' and uppercases a 6-hex-digit color
// string. Anything malformed is returned stripped but otherwise untouched;
// color strings are display data, not safety-critical.
func NormalizeHex(hex string) string {
	return strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(hex), "#"))
}
