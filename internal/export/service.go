package export

import (
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tzuhan/filatrack/backend/internal/db"
	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/logging"
	"github.com/tzuhan/filatrack/backend/internal/models"
)

// Policy selects how an incoming document is reconciled against the
// existing inventory.
type Policy string

const (
	// PolicyMerge preserves existing data: a spool identity that already
	// exists wins outright and the incoming copy is skipped, so re-importing
	// an old snapshot cannot resurrect stale quantities over newer edits.
	PolicyMerge Policy = "merge"

	// PolicyReplace discards the existing inventory and adopts the document
	// wholesale, preserving the document's identities.
	PolicyReplace Policy = "replace"
)

// importState tracks the reconciler through a single import run.
type importState string

const (
	stateValidating      importState = "validating"
	stateApplyingReplace importState = "applying_replace"
	stateApplyingMerge   importState = "applying_merge"
	stateCommitted       importState = "committed"
	stateFailed          importState = "failed"
)

func enterState(state importState) {
	logging.Debug("import state", map[string]interface{}{"state": string(state)})
}

// Service provides inventory export and import reconciliation. It drives the
// same repository primitives used everywhere else; it is not a second
// implementation of ledger logic.
type Service struct {
	repo db.ReconcilerRepository
}

// NewService creates a new export Service.
func NewService(repo db.ReconcilerRepository) *Service {
	return &Service{repo: repo}
}

// ExportResult describes a completed file export.
type ExportResult struct {
	FilePath   string        `json:"file_path"`
	SizeBytes  int64         `json:"size_bytes"`
	SpoolCount int           `json:"spool_count"`
	UsageCount int           `json:"usage_count"`
	Checksum   string        `json:"checksum"`
	Duration   time.Duration `json:"duration_ns"`
}

// ImportResult describes an import run. When the run fails partway through,
// Committed of Total reports how many entities were already written; this
// design does not roll back (merge re-runs are idempotent on identity,
// replace re-runs should start from a known-clean state).
type ImportResult struct {
	SpoolsCreated   int           `json:"spools_created"`
	SpoolsSkipped   int           `json:"spools_skipped"`
	UsageCreated    int           `json:"usage_created"`
	ColorsCreated   int           `json:"colors_created"`
	ColorsSkipped   int           `json:"colors_skipped"`
	SettingsApplied bool          `json:"settings_applied"`
	Committed       int           `json:"committed"`
	Total           int           `json:"total"`
	Duration        time.Duration `json:"duration_ns"`
}

// Export serializes the full inventory: every spool including archived ones
// with its complete usage history, all material color bindings, and the
// settings record if one exists.
func (s *Service) Export() (*Document, error) {
	spools, err := s.repo.ListSpools(true)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to list spools", err)
	}

	doc := &Document{
		Version:        SchemaVersion,
		ExportedAt:     time.Now().UTC(),
		Spools:         make([]SpoolEntry, 0, len(spools)),
		MaterialColors: []MaterialColorEntry{},
	}

	for _, spool := range spools {
		usage, err := s.repo.ListUsageRecords(spool.ID.String())
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrExportFailed,
				fmt.Sprintf("failed to list usage for spool %s", spool.ID), err)
		}
		doc.Spools = append(doc.Spools, spoolToEntry(spool, usage))
	}

	colors, err := s.repo.ListMaterialColors()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to list material colors", err)
	}
	for _, mc := range colors {
		doc.MaterialColors = append(doc.MaterialColors, colorToEntry(mc))
	}

	settings, err := s.repo.GetSettings()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to load settings", err)
	}
	if settings != nil {
		doc.Settings = settingsToEntry(settings)
	}

	return doc, nil
}

// ExportToFile writes the export document as indented JSON.
func (s *Service) ExportToFile(path string) (*ExportResult, error) {
	startTime := time.Now()

	doc, err := s.Export()
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to serialize document", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrExportFailed, "failed to write export file", err)
	}

	usageCount := 0
	for i := range doc.Spools {
		usageCount += len(doc.Spools[i].Usage)
	}
	result := &ExportResult{
		FilePath:   path,
		SizeBytes:  int64(len(data)),
		SpoolCount: len(doc.Spools),
		UsageCount: usageCount,
		Checksum:   fmt.Sprintf("%x", sha256.Sum256(data)),
		Duration:   time.Since(startTime),
	}
	logging.Info("inventory exported", map[string]interface{}{
		"path":   result.FilePath,
		"spools": result.SpoolCount,
		"usage":  result.UsageCount,
	})
	return result, nil
}

// Import reconciles a document against the existing inventory under the
// given policy. Validation runs before any write; a structurally invalid
// document is rejected with zero side effects. Once applying, writes commit
// entity by entity and a failure stops the run without rolling back what
// was already committed - the returned result carries the counts.
func (s *Service) Import(doc *Document, policy Policy) (*ImportResult, error) {
	startTime := time.Now()
	result := &ImportResult{Total: doc.EntityCount()}

	enterState(stateValidating)
	if err := doc.Validate(); err != nil {
		enterState(stateFailed)
		return result, err
	}

	var err error
	switch policy {
	case PolicyReplace:
		enterState(stateApplyingReplace)
		err = s.applyReplace(doc, result)
	case PolicyMerge:
		enterState(stateApplyingMerge)
		err = s.applyMerge(doc, result)
	default:
		return result, apperrors.Newf(apperrors.ErrInvalid, "unknown import policy %q", policy)
	}

	result.Duration = time.Since(startTime)
	if err != nil {
		enterState(stateFailed)
		logging.Error("import failed", err, map[string]interface{}{
			"policy":    string(policy),
			"committed": result.Committed,
			"total":     result.Total,
		})
		return result, err
	}
	enterState(stateCommitted)
	logging.Info("import committed", map[string]interface{}{
		"policy":    string(policy),
		"committed": result.Committed,
		"total":     result.Total,
	})
	return result, nil
}

// ImportFromFile reads and reconciles a document file.
func (s *Service) ImportFromFile(path string, policy Policy) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrImportFailed, "failed to read import file", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSchemaInvalid, "document is not valid JSON", err)
	}
	return s.Import(&doc, policy)
}

// applyReplace deletes the existing inventory and recreates the document's
// entities verbatim. Settings is overwritten in place, never deleted, so the
// "exactly one settings" invariant holds for concurrent readers throughout.
func (s *Service) applyReplace(doc *Document, result *ImportResult) error {
	existing, err := s.repo.ListSpools(true)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to list existing spools", err)
	}
	for _, spool := range existing {
		// DeleteSpool fans out to the spool's usage records.
		if err := s.repo.DeleteSpool(spool.ID.String()); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailed,
				fmt.Sprintf("failed to delete spool %s", spool.ID), err)
		}
	}
	if err := s.repo.DeleteAllMaterialColors(); err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to clear material colors", err)
	}

	for i := range doc.Spools {
		if err := s.createSpoolEntry(&doc.Spools[i], result); err != nil {
			return err
		}
	}
	for i := range doc.MaterialColors {
		if err := s.repo.CreateMaterialColor(entryToColor(&doc.MaterialColors[i])); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailed,
				fmt.Sprintf("failed to create material color %q", doc.MaterialColors[i].Material), err)
		}
		result.ColorsCreated++
		result.Committed++
	}

	return s.applySettings(doc, result)
}

// applyMerge adds unseen entities and leaves everything existing untouched.
func (s *Service) applyMerge(doc *Document, result *ImportResult) error {
	for i := range doc.Spools {
		entry := &doc.Spools[i]
		_, err := s.repo.GetSpool(entry.ID)
		if err == nil {
			// Existing spool wins outright, usage records included.
			result.SpoolsSkipped++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return apperrors.Wrap(apperrors.ErrWriteFailed,
				fmt.Sprintf("failed to look up spool %s", entry.ID), err)
		}
		if err := s.createSpoolEntry(entry, result); err != nil {
			return err
		}
	}

	for i := range doc.MaterialColors {
		entry := &doc.MaterialColors[i]
		_, err := s.repo.GetMaterialColorByName(entry.Material)
		if err == nil {
			result.ColorsSkipped++
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return apperrors.Wrap(apperrors.ErrWriteFailed,
				fmt.Sprintf("failed to look up material color %q", entry.Material), err)
		}
		if err := s.repo.CreateMaterialColor(entryToColor(entry)); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailed,
				fmt.Sprintf("failed to create material color %q", entry.Material), err)
		}
		result.ColorsCreated++
		result.Committed++
	}

	return s.applySettings(doc, result)
}

// createSpoolEntry persists one document spool and its usage records with
// their original identities.
func (s *Service) createSpoolEntry(entry *SpoolEntry, result *ImportResult) error {
	if err := s.repo.CreateSpool(entryToSpool(entry)); err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed,
			fmt.Sprintf("failed to create spool %s", entry.ID), err)
	}
	result.SpoolsCreated++
	result.Committed++
	for j := range entry.Usage {
		rec := entryToUsage(models.UUID(entry.ID), &entry.Usage[j])
		if err := s.repo.CreateUsageRecord(rec); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailed,
				fmt.Sprintf("failed to create usage record %s", rec.ID), err)
		}
		result.UsageCreated++
		result.Committed++
	}
	return nil
}

// applySettings overwrites the singleton settings record with the incoming
// values. A singleton has no "skip" option under either policy.
func (s *Service) applySettings(doc *Document, result *ImportResult) error {
	if doc.Settings == nil {
		return nil
	}
	if err := s.repo.SaveSettings(entryToSettings(doc.Settings)); err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to save settings", err)
	}
	result.SettingsApplied = true
	result.Committed++
	return nil
}
