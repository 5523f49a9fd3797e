// Package export provides the import/export reconciler: it serializes the
// full inventory to a versioned portable document and merges or replaces an
// incoming document against the existing inventory.
package export

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/uuid"
)

// SchemaVersion is the document version this build reads and writes.
const SchemaVersion = "1.0"

// Document is the portable export format. All timestamps are RFC3339 UTC;
// prices are exact decimal text. Every persisted attribute round-trips.
type Document struct {
	Version        string               `json:"version"`
	ExportedAt     time.Time            `json:"exported_at"`
	Spools         []SpoolEntry         `json:"spools"`
	MaterialColors []MaterialColorEntry `json:"material_colors"`
	Settings       *SettingsEntry       `json:"settings,omitempty"`
}

// SpoolEntry is a spool with its embedded usage history.
type SpoolEntry struct {
	ID              string           `json:"id"`
	Brand           string           `json:"brand"`
	Material        string           `json:"material"`
	ColorName       string           `json:"color_name"`
	ColorHex        string           `json:"color_hex"`
	DiameterMM      float64          `json:"diameter_mm"`
	InitialMassG    float64          `json:"initial_mass_g"`
	RemainingMassG  float64          `json:"remaining_mass_g"`
	TareMassG       *float64         `json:"tare_mass_g,omitempty"`
	DensityOverride *float64         `json:"density_override,omitempty"`
	MinTempC        *float64         `json:"min_temp_c,omitempty"`
	MaxTempC        *float64         `json:"max_temp_c,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	AcquiredAt      time.Time        `json:"acquired_at"`
	Archived        bool             `json:"archived"`
	Note            string           `json:"note,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Usage           []UsageEntry     `json:"usage"`
}

// UsageEntry is a usage record inside its owning spool's entry. The owning
// spool is implied by nesting, which makes orphaned records impossible to
// express in a document.
type UsageEntry struct {
	ID        string               `json:"id"`
	MassG     float64              `json:"mass_g"`
	Category  models.UsageCategory `json:"category"`
	Label     string               `json:"label,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	CreatedAt time.Time            `json:"created_at"`
}

// MaterialColorEntry is one registry binding.
type MaterialColorEntry struct {
	ID        string    `json:"id"`
	Material  string    `json:"material"`
	ColorHex  string    `json:"color_hex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsEntry is the singleton settings record.
type SettingsEntry struct {
	DefaultDiameterMM float64   `json:"default_diameter_mm"`
	LowStockPercent   float64   `json:"low_stock_percent"`
	CurrencySymbol    string    `json:"currency_symbol"`
	Language          string    `json:"language"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Validate performs the structural checks that must pass before any write:
// a supported version tag, well-formed unique spool and usage-record
// identities, and every spool satisfying the creation precondition. A
// document failing here is rejected wholesale.
func (d *Document) Validate() error {
	if d.Version == "" {
		return apperrors.New(apperrors.ErrSchemaInvalid, "document is missing a version tag")
	}
	if d.Version != SchemaVersion {
		return apperrors.Newf(apperrors.ErrSchemaInvalid, "unsupported document version %q", d.Version)
	}
	seen := make(map[string]bool, len(d.Spools))
	seenUsage := make(map[string]bool)
	for i := range d.Spools {
		sp := &d.Spools[i]
		if !uuid.IsValid(sp.ID) {
			return apperrors.Newf(apperrors.ErrSchemaInvalid, "spool %d has malformed id %q", i, sp.ID)
		}
		if seen[sp.ID] {
			return apperrors.Newf(apperrors.ErrSchemaInvalid, "duplicate spool id %s", sp.ID)
		}
		seen[sp.ID] = true
		if sp.InitialMassG <= 0 {
			return apperrors.Newf(apperrors.ErrSchemaInvalid, "spool %s has non-positive initial mass", sp.ID)
		}
		if sp.RemainingMassG < 0 || sp.RemainingMassG > sp.InitialMassG {
			return apperrors.Newf(apperrors.ErrSchemaInvalid,
				"spool %s remaining mass %.2f outside [0, %.2f]", sp.ID, sp.RemainingMassG, sp.InitialMassG)
		}
		for j := range sp.Usage {
			u := &sp.Usage[j]
			if !uuid.IsValid(u.ID) {
				return apperrors.Newf(apperrors.ErrSchemaInvalid, "usage record %d of spool %s has malformed id %q", j, sp.ID, u.ID)
			}
			if seenUsage[u.ID] {
				return apperrors.Newf(apperrors.ErrSchemaInvalid, "duplicate usage record id %s", u.ID)
			}
			seenUsage[u.ID] = true
			if u.MassG <= 0 {
				return apperrors.Newf(apperrors.ErrSchemaInvalid, "usage record %s has non-positive mass", u.ID)
			}
			if u.Category != "" && !u.Category.Valid() {
				return apperrors.Newf(apperrors.ErrSchemaInvalid, "usage record %s has unknown category %q", u.ID, u.Category)
			}
		}
	}
	for i := range d.MaterialColors {
		if !uuid.IsValid(d.MaterialColors[i].ID) {
			return apperrors.Newf(apperrors.ErrSchemaInvalid, "material color %d has malformed id %q", i, d.MaterialColors[i].ID)
		}
	}
	return nil
}

// EntityCount returns the number of writable entities in the document:
// spools, usage records, material colors, and the settings record.
func (d *Document) EntityCount() int {
	n := len(d.Spools) + len(d.MaterialColors)
	for i := range d.Spools {
		n += len(d.Spools[i].Usage)
	}
	if d.Settings != nil {
		n++
	}
	return n
}

// =====================================================
// Model <-> document conversion
// =====================================================

func spoolToEntry(s *models.Spool, usage []*models.UsageRecord) SpoolEntry {
	entry := SpoolEntry{
		ID:              s.ID.String(),
		Brand:           s.Brand,
		Material:        s.Material,
		ColorName:       s.ColorName,
		ColorHex:        s.ColorHex,
		DiameterMM:      s.DiameterMM,
		InitialMassG:    s.InitialMassG,
		RemainingMassG:  s.RemainingMassG,
		TareMassG:       s.TareMassG,
		DensityOverride: s.DensityOverride,
		MinTempC:        s.MinTempC,
		MaxTempC:        s.MaxTempC,
		Price:           s.Price,
		AcquiredAt:      time.Unix(s.AcquiredAt, 0).UTC(),
		Archived:        s.Archived,
		Note:            s.Note,
		CreatedAt:       time.Unix(s.CreatedAt, 0).UTC(),
		UpdatedAt:       time.Unix(s.UpdatedAt, 0).UTC(),
		Usage:           make([]UsageEntry, 0, len(usage)),
	}
	for _, rec := range usage {
		entry.Usage = append(entry.Usage, UsageEntry{
			ID:        rec.ID.String(),
			MassG:     rec.MassG,
			Category:  rec.Category,
			Label:     rec.Label,
			Timestamp: time.Unix(rec.Timestamp, 0).UTC(),
			CreatedAt: time.Unix(rec.CreatedAt, 0).UTC(),
		})
	}
	return entry
}

func entryToSpool(e *SpoolEntry) *models.Spool {
	return &models.Spool{
		ID:              models.UUID(e.ID),
		Brand:           e.Brand,
		Material:        e.Material,
		ColorName:       e.ColorName,
		ColorHex:        e.ColorHex,
		DiameterMM:      e.DiameterMM,
		InitialMassG:    e.InitialMassG,
		RemainingMassG:  e.RemainingMassG,
		TareMassG:       e.TareMassG,
		DensityOverride: e.DensityOverride,
		MinTempC:        e.MinTempC,
		MaxTempC:        e.MaxTempC,
		Price:           e.Price,
		AcquiredAt:      e.AcquiredAt.Unix(),
		Archived:        e.Archived,
		Note:            e.Note,
		CreatedAt:       e.CreatedAt.Unix(),
		UpdatedAt:       e.UpdatedAt.Unix(),
	}
}

func entryToUsage(spoolID models.UUID, e *UsageEntry) *models.UsageRecord {
	category := e.Category
	if category == "" {
		category = models.CategoryPrint
	}
	return &models.UsageRecord{
		ID:        models.UUID(e.ID),
		SpoolID:   spoolID,
		MassG:     e.MassG,
		Category:  category,
		Label:     e.Label,
		Timestamp: e.Timestamp.Unix(),
		CreatedAt: e.CreatedAt.Unix(),
	}
}

func colorToEntry(mc *models.MaterialColor) MaterialColorEntry {
	return MaterialColorEntry{
		ID:        mc.ID.String(),
		Material:  mc.Material,
		ColorHex:  mc.ColorHex,
		CreatedAt: time.Unix(mc.CreatedAt, 0).UTC(),
		UpdatedAt: time.Unix(mc.UpdatedAt, 0).UTC(),
	}
}

func entryToColor(e *MaterialColorEntry) *models.MaterialColor {
	return &models.MaterialColor{
		ID:        models.UUID(e.ID),
		Material:  e.Material,
		ColorHex:  e.ColorHex,
		CreatedAt: e.CreatedAt.Unix(),
		UpdatedAt: e.UpdatedAt.Unix(),
	}
}

func settingsToEntry(st *models.Settings) *SettingsEntry {
	return &SettingsEntry{
		DefaultDiameterMM: st.DefaultDiameterMM,
		LowStockPercent:   st.LowStockPercent,
		CurrencySymbol:    st.CurrencySymbol,
		Language:          st.Language,
		UpdatedAt:         time.Unix(st.UpdatedAt, 0).UTC(),
	}
}

func entryToSettings(e *SettingsEntry) *models.Settings {
	return &models.Settings{
		DefaultDiameterMM: e.DefaultDiameterMM,
		LowStockPercent:   e.LowStockPercent,
		CurrencySymbol:    e.CurrencySymbol,
		Language:          e.Language,
		UpdatedAt:         e.UpdatedAt.Unix(),
	}
}
