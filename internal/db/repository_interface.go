// Package db provides repository interfaces for FilaTrack data models.
package db

import (
	"github.com/tzuhan/filatrack/backend/internal/models"
)

// SpoolRepository defines operations for spool persistence.
// This interface allows mocking for testing and keeps the ledger's
// collaborators narrow.
type SpoolRepository interface {
	// CreateSpool inserts a spool exactly as given.
	CreateSpool(s *models.Spool) error

	// GetSpool retrieves a spool by ID.
	GetSpool(id string) (*models.Spool, error)

	// ListSpools returns all spools, optionally including archived ones.
	ListSpools(includeArchived bool) ([]*models.Spool, error)

	// ListSpoolsByMaterial returns all spools of a material.
	ListSpoolsByMaterial(material string) ([]*models.Spool, error)

	// UpdateSpool overwrites a spool's fields.
	UpdateSpool(s *models.Spool) error

	// DeleteSpool deletes a spool and fans out to its usage records.
	DeleteSpool(id string) error
}

// UsageRepository defines operations for usage record persistence.
type UsageRepository interface {
	// CreateUsageRecord inserts a usage record exactly as given.
	CreateUsageRecord(rec *models.UsageRecord) error

	// ListUsageRecords returns a spool's usage records, oldest first.
	ListUsageRecords(spoolID string) ([]*models.UsageRecord, error)
}

// MaterialColorRepository defines operations for the material color registry.
type MaterialColorRepository interface {
	CreateMaterialColor(mc *models.MaterialColor) error
	GetMaterialColorByName(material string) (*models.MaterialColor, error)
	ListMaterialColors() ([]*models.MaterialColor, error)
	UpdateMaterialColor(mc *models.MaterialColor) error
	DeleteAllMaterialColors() error
	CountMaterialColors() (int, error)
}

// SettingsRepository defines operations for the singleton settings record.
type SettingsRepository interface {
	GetSettings() (*models.Settings, error)
	SaveSettings(st *models.Settings) error
}

// LedgerRepository groups the repositories the usage recorder needs.
type LedgerRepository interface {
	SpoolRepository
	UsageRepository
}

// ReconcilerRepository groups everything the import/export reconciler needs.
type ReconcilerRepository interface {
	SpoolRepository
	UsageRepository
	MaterialColorRepository
	SettingsRepository
}

// Ensure *Repository implements the interfaces at compile time.
var (
	_ SpoolRepository         = (*Repository)(nil)
	_ UsageRepository         = (*Repository)(nil)
	_ MaterialColorRepository = (*Repository)(nil)
	_ SettingsRepository      = (*Repository)(nil)
	_ LedgerRepository        = (*Repository)(nil)
	_ ReconcilerRepository    = (*Repository)(nil)
)
