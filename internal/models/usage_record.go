package models

import "time"

// UsageCategory classifies what a usage record was consumed on.
type UsageCategory string

const (
	CategoryPrint       UsageCategory = "print"
	CategoryFailedPrint UsageCategory = "failed_print"
	CategoryCalibration UsageCategory = "calibration"
	CategoryAdjustment  UsageCategory = "adjustment"
)

// Valid reports whether the category is one of the known values.
func (c UsageCategory) Valid() bool {
	switch c {
	case CategoryPrint, CategoryFailedPrint, CategoryCalibration, CategoryAdjustment:
		return true
	}
	return false
}

// UsageRecord is an immutable consumption event against a single spool.
// Records are only created through the usage recorder or import; they are
// never mutated afterwards and are deleted only when their spool is deleted.
type UsageRecord struct {
	ID        UUID          `db:"id" json:"id"`
	SpoolID   UUID          `db:"spool_id" json:"spool_id"`
	MassG     float64       `db:"mass_g" json:"mass_g"` // always > 0
	Category  UsageCategory `db:"category" json:"category"`
	Label     string        `db:"label" json:"label,omitempty"`
	Timestamp int64         `db:"timestamp" json:"timestamp"` // may be backdated
	CreatedAt int64         `db:"created_at" json:"created_at"`
}

// TableName returns the table name for UsageRecord.
func (UsageRecord) TableName() string {
	return "usage_records"
}

// Time returns the usage timestamp as time.Time.
func (r *UsageRecord) Time() time.Time {
	return time.Unix(r.Timestamp, 0)
}
