// Package usage provides the write path for logging filament consumption.
// One print job may draw from several spools; the recorder applies each
// entry independently so a bad entry never blocks the others.
package usage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/tzuhan/filatrack/backend/internal/db"
	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/ledger"
	"github.com/tzuhan/filatrack/backend/internal/logging"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/uuid"
)

// Notice is a non-fatal condition surfaced alongside a successful entry.
type Notice string

// NoticeClampedToAvailable means the requested mass exceeded the spool's
// remaining mass and was clamped down to exactly what was available.
const NoticeClampedToAvailable Notice = "CLAMPED_TO_AVAILABLE"

// Entry is one requested consumption against one spool.
type Entry struct {
	SpoolID   models.UUID          `json:"spool_id"`
	MassG     float64              `json:"mass_g"`
	Label     string               `json:"label,omitempty"`
	Category  models.UsageCategory `json:"category,omitempty"` // defaults to print
	Timestamp int64                `json:"timestamp,omitempty"` // 0 means now; may be backdated
}

// EntryResult is the per-entry outcome. Exactly one of Record or Err is set.
type EntryResult struct {
	Entry  Entry
	Record *models.UsageRecord
	Spool  *models.Spool // post-transition state, set on success
	Notice Notice
	Err    error
}

// Result is the outcome of one RecordUsage call.
type Result struct {
	Entries   []EntryResult
	Committed int // entries fully persisted (record + spool update)
}

// Recorder applies consumption entries to spools and persists the outcome.
type Recorder struct {
	repo db.LedgerRepository
}

// NewRecorder creates a new Recorder.
func NewRecorder(repo db.LedgerRepository) *Recorder {
	return &Recorder{repo: repo}
}

// RecordUsage processes the entries in order. Each entry is validated and
// committed independently: an unknown spool or invalid amount fails only its
// own entry. A requested mass larger than the spool's remaining mass is
// clamped to exactly the remaining mass and flagged with
// NoticeClampedToAvailable; the ledger never records more than was
// physically available. Given the same spool states and the same entry
// order, the outcome is identical - there is no randomness in this path.
func (r *Recorder) RecordUsage(entries []Entry) *Result {
	result := &Result{Entries: make([]EntryResult, 0, len(entries))}
	for _, entry := range entries {
		er := r.apply(entry)
		if er.Err == nil {
			result.Committed++
		} else {
			logging.Warn("usage entry rejected", map[string]interface{}{
				"spool_id": entry.SpoolID.String(),
				"code":     string(apperrors.CodeOf(er.Err)),
			})
		}
		result.Entries = append(result.Entries, er)
	}
	return result
}

// apply validates and commits a single entry.
func (r *Recorder) apply(entry Entry) EntryResult {
	er := EntryResult{Entry: entry}

	if entry.MassG <= 0 {
		er.Err = apperrors.New(apperrors.ErrInvalidAmount, "consumed mass must be positive")
		return er
	}
	category := entry.Category
	if category == "" {
		category = models.CategoryPrint
	}
	if !category.Valid() {
		er.Err = apperrors.Newf(apperrors.ErrInvalid, "unknown usage category %q", category)
		return er
	}

	spool, err := r.repo.GetSpool(entry.SpoolID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			er.Err = apperrors.Newf(apperrors.ErrUnknownSpool, "no spool with id %s", entry.SpoolID)
		} else {
			er.Err = apperrors.Wrap(apperrors.ErrDatabase, "failed to load spool", err)
		}
		return er
	}

	mass := entry.MassG
	if mass > spool.RemainingMassG {
		if spool.RemainingMassG == 0 {
			er.Err = apperrors.Newf(apperrors.ErrInvalidAmount, "spool %s is already empty", spool.ID)
			return er
		}
		mass = spool.RemainingMassG
		er.Notice = NoticeClampedToAvailable
	}

	updated, err := ledger.ApplyConsumption(*spool, mass)
	if err != nil {
		er.Err = err
		return er
	}

	now := time.Now().Unix()
	timestamp := entry.Timestamp
	if timestamp == 0 {
		timestamp = now
	}
	record := &models.UsageRecord{
		ID:        models.UUID(uuid.New()),
		SpoolID:   spool.ID,
		MassG:     mass,
		Category:  category,
		Label:     entry.Label,
		Timestamp: timestamp,
		CreatedAt: now,
	}

	if err := r.repo.CreateUsageRecord(record); err != nil {
		er.Err = apperrors.Wrap(apperrors.ErrWriteFailed, "failed to persist usage record", err)
		return er
	}
	if err := r.repo.UpdateSpool(&updated); err != nil {
		er.Err = apperrors.Wrap(apperrors.ErrWriteFailed, "failed to persist spool update", err)
		return er
	}

	er.Record = record
	er.Spool = &updated
	return er
}
