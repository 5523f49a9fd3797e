// Package models provides data model definitions for the FilaTrack core.
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// UUID is a wrapper around string for UUID v4 type safety.
type UUID string

// Value implements driver.Valuer for UUID.
func (u UUID) Value() (driver.Value, error) {
	return string(u), nil
}

// Scan implements sql.Scanner for UUID.
func (u *UUID) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(v)
	case []byte:
		*u = UUID(v)
	default:
		return fmt.Errorf("cannot scan %T into UUID", value)
	}
	return nil
}

// String returns the string representation of the UUID.
func (u UUID) String() string {
	return string(u)
}

// Spool represents a physical filament roll. It is the aggregate root of the
// inventory: every usage record belongs to exactly one spool.
//
// Mass fields are net grams (filament only, reel excluded). The invariant
// 0 <= RemainingMassG <= InitialMassG holds after every committed transition;
// the ledger package owns the transitions that preserve it.
type Spool struct {
	ID              UUID             `db:"id" json:"id"`
	Brand           string           `db:"brand" json:"brand"`
	Material        string           `db:"material" json:"material"`
	ColorName       string           `db:"color_name" json:"color_name"`
	ColorHex        string           `db:"color_hex" json:"color_hex"` // 6 hex digits, no '#'
	DiameterMM      float64          `db:"diameter_mm" json:"diameter_mm"`
	InitialMassG    float64          `db:"initial_mass_g" json:"initial_mass_g"`
	RemainingMassG  float64          `db:"remaining_mass_g" json:"remaining_mass_g"`
	TareMassG       *float64         `db:"tare_mass_g" json:"tare_mass_g,omitempty"`
	DensityOverride *float64         `db:"density_override" json:"density_override,omitempty"`
	MinTempC        *float64         `db:"min_temp_c" json:"min_temp_c,omitempty"`
	MaxTempC        *float64         `db:"max_temp_c" json:"max_temp_c,omitempty"`
	Price           *decimal.Decimal `db:"price" json:"price,omitempty"` // exact decimal text
	AcquiredAt      int64            `db:"acquired_at" json:"acquired_at"`
	Archived        bool             `db:"archived" json:"archived"`
	Note            string           `db:"note" json:"note,omitempty"`
	CreatedAt       int64            `db:"created_at" json:"created_at"`
	UpdatedAt       int64            `db:"updated_at" json:"updated_at"`
}

// TableName returns the table name for Spool.
func (Spool) TableName() string {
	return "spools"
}

// ConsumedMassG returns the absolute amount consumed so far.
func (s *Spool) ConsumedMassG() float64 {
	return s.InitialMassG - s.RemainingMassG
}

// AcquiredAtTime returns AcquiredAt as time.Time.
func (s *Spool) AcquiredAtTime() time.Time {
	return time.Unix(s.AcquiredAt, 0)
}

// Touch updates the UpdatedAt timestamp.
func (s *Spool) Touch() {
	s.UpdatedAt = time.Now().Unix()
}
