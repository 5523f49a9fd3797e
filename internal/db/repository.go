// Package db provides CRUD repository operations for FilaTrack data models.
package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tzuhan/filatrack/backend/internal/models"
)

// Repository provides CRUD operations for all models. Records are persisted
// as given: identity and timestamps are assigned by the ledger transitions,
// not here, so the import path can preserve document identities through the
// same methods.
type Repository struct {
	db *sql.DB

	// Prepared statement cache for frequently used queries.
	// Statements are prepared on first use and cached for reuse.
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a new Repository instance.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		// Another goroutine already prepared this, close our duplicate
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}

	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		stmt := value.(*sql.Stmt)
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// =====================================================
// Spool Operations
// =====================================================

const spoolColumns = `id, brand, material, color_name, color_hex, diameter_mm,
	initial_mass_g, remaining_mass_g, tare_mass_g, density_override,
	min_temp_c, max_temp_c, price, acquired_at, archived, note,
	created_at, updated_at`

// CreateSpool inserts a spool exactly as given.
func (r *Repository) CreateSpool(s *models.Spool) error {
	query := `
	INSERT INTO spools (` + spoolColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, s.ID, s.Brand, s.Material, s.ColorName, s.ColorHex,
		s.DiameterMM, s.InitialMassG, s.RemainingMassG,
		nullFloat(s.TareMassG), nullFloat(s.DensityOverride),
		nullFloat(s.MinTempC), nullFloat(s.MaxTempC), nullDecimal(s.Price),
		s.AcquiredAt, s.Archived, s.Note, s.CreatedAt, s.UpdatedAt)
	return err
}

// GetSpool retrieves a spool by ID.
func (r *Repository) GetSpool(id string) (*models.Spool, error) {
	query := `SELECT ` + spoolColumns + ` FROM spools WHERE id = ?`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}
	return scanSpool(stmt.QueryRow(id))
}

// ListSpools returns all spools, newest first. Archived spools are included
// only when includeArchived is set; archival is a visibility filter, not a
// deletion.
func (r *Repository) ListSpools(includeArchived bool) ([]*models.Spool, error) {
	query := `SELECT ` + spoolColumns + ` FROM spools`
	if !includeArchived {
		query += ` WHERE archived = 0`
	}
	query += ` ORDER BY created_at DESC, id`

	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSpools(rows)
}

// ListSpoolsByMaterial returns all spools of a material, case-insensitively.
func (r *Repository) ListSpoolsByMaterial(material string) ([]*models.Spool, error) {
	query := `SELECT ` + spoolColumns + ` FROM spools
		WHERE material = ? COLLATE NOCASE ORDER BY created_at DESC, id`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(material)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSpools(rows)
}

// UpdateSpool overwrites a spool's fields.
func (r *Repository) UpdateSpool(s *models.Spool) error {
	query := `
	UPDATE spools
	SET brand = ?, material = ?, color_name = ?, color_hex = ?, diameter_mm = ?,
		initial_mass_g = ?, remaining_mass_g = ?, tare_mass_g = ?,
		density_override = ?, min_temp_c = ?, max_temp_c = ?, price = ?,
		acquired_at = ?, archived = ?, note = ?, updated_at = ?
	WHERE id = ?
	`
	result, err := r.db.Exec(query, s.Brand, s.Material, s.ColorName, s.ColorHex,
		s.DiameterMM, s.InitialMassG, s.RemainingMassG,
		nullFloat(s.TareMassG), nullFloat(s.DensityOverride),
		nullFloat(s.MinTempC), nullFloat(s.MaxTempC), nullDecimal(s.Price),
		s.AcquiredAt, s.Archived, s.Note, s.UpdatedAt, s.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteSpool permanently deletes a spool and all of its usage records. The
// cascade is an explicit fan-out delete inside one transaction, not a
// framework behavior.
func (r *Repository) DeleteSpool(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM usage_records WHERE spool_id = ?`, id); err != nil {
		return err
	}
	result, err := tx.Exec(`DELETE FROM spools WHERE id = ?`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// CountSpools returns the total number of spools, archived included.
func (r *Repository) CountSpools() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM spools`).Scan(&n)
	return n, err
}

// spoolRow abstracts *sql.Row and *sql.Rows for scanning.
type spoolRow interface {
	Scan(dest ...interface{}) error
}

func scanSpool(row spoolRow) (*models.Spool, error) {
	var s models.Spool
	var tare, density, minTemp, maxTemp sql.NullFloat64
	var price sql.NullString
	err := row.Scan(&s.ID, &s.Brand, &s.Material, &s.ColorName, &s.ColorHex,
		&s.DiameterMM, &s.InitialMassG, &s.RemainingMassG,
		&tare, &density, &minTemp, &maxTemp, &price,
		&s.AcquiredAt, &s.Archived, &s.Note, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.TareMassG = floatPtr(tare)
	s.DensityOverride = floatPtr(density)
	s.MinTempC = floatPtr(minTemp)
	s.MaxTempC = floatPtr(maxTemp)
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err != nil {
			return nil, fmt.Errorf("invalid price stored for spool %s: %w", s.ID, err)
		}
		s.Price = &d
	}
	return &s, nil
}

func scanSpools(rows *sql.Rows) ([]*models.Spool, error) {
	var spools []*models.Spool
	for rows.Next() {
		s, err := scanSpool(rows)
		if err != nil {
			return nil, err
		}
		spools = append(spools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spools, nil
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

// nullDecimal stores prices as exact decimal text, never binary float.
func nullDecimal(d *decimal.Decimal) interface{} {
	if d == nil {
		return nil
	}
	return d.String()
}

// =====================================================
// UsageRecord Operations
// =====================================================

// CreateUsageRecord inserts a usage record exactly as given.
func (r *Repository) CreateUsageRecord(rec *models.UsageRecord) error {
	query := `
	INSERT INTO usage_records (id, spool_id, mass_g, category, label, timestamp, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, rec.ID, rec.SpoolID, rec.MassG, rec.Category,
		rec.Label, rec.Timestamp, rec.CreatedAt)
	return err
}

// ListUsageRecords returns a spool's usage records, oldest first.
func (r *Repository) ListUsageRecords(spoolID string) ([]*models.UsageRecord, error) {
	query := `
	SELECT id, spool_id, mass_g, category, label, timestamp, created_at
	FROM usage_records WHERE spool_id = ? ORDER BY timestamp, created_at, id
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}
	rows, err := stmt.Query(spoolID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		if err := rows.Scan(&rec.ID, &rec.SpoolID, &rec.MassG, &rec.Category,
			&rec.Label, &rec.Timestamp, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountUsageRecords returns the total number of usage records.
func (r *Repository) CountUsageRecords() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM usage_records`).Scan(&n)
	return n, err
}

// =====================================================
// MaterialColor Operations
// =====================================================

// CreateMaterialColor inserts a material color binding. The unique index on
// the material name (COLLATE NOCASE) rejects case-insensitive duplicates.
func (r *Repository) CreateMaterialColor(mc *models.MaterialColor) error {
	query := `
	INSERT INTO material_colors (id, material, color_hex, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, mc.ID, mc.Material, mc.ColorHex, mc.CreatedAt, mc.UpdatedAt)
	return err
}

// GetMaterialColorByName retrieves a binding by material name,
// case-insensitively.
func (r *Repository) GetMaterialColorByName(material string) (*models.MaterialColor, error) {
	query := `
	SELECT id, material, color_hex, created_at, updated_at
	FROM material_colors WHERE material = ? COLLATE NOCASE
	`
	stmt, err := r.PrepareStmt(query)
	if err != nil {
		return nil, err
	}
	var mc models.MaterialColor
	err = stmt.QueryRow(material).Scan(&mc.ID, &mc.Material, &mc.ColorHex,
		&mc.CreatedAt, &mc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &mc, nil
}

// ListMaterialColors returns all bindings ordered by material name.
func (r *Repository) ListMaterialColors() ([]*models.MaterialColor, error) {
	query := `
	SELECT id, material, color_hex, created_at, updated_at
	FROM material_colors ORDER BY material COLLATE NOCASE
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var colors []*models.MaterialColor
	for rows.Next() {
		var mc models.MaterialColor
		if err := rows.Scan(&mc.ID, &mc.Material, &mc.ColorHex,
			&mc.CreatedAt, &mc.UpdatedAt); err != nil {
			return nil, err
		}
		colors = append(colors, &mc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return colors, nil
}

// UpdateMaterialColor overwrites a binding's color.
func (r *Repository) UpdateMaterialColor(mc *models.MaterialColor) error {
	mc.UpdatedAt = time.Now().Unix()
	query := `UPDATE material_colors SET color_hex = ?, updated_at = ? WHERE id = ?`
	result, err := r.db.Exec(query, mc.ColorHex, mc.UpdatedAt, mc.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteAllMaterialColors removes every binding. Used by replace imports.
func (r *Repository) DeleteAllMaterialColors() error {
	_, err := r.db.Exec(`DELETE FROM material_colors`)
	return err
}

// CountMaterialColors returns the number of bindings.
func (r *Repository) CountMaterialColors() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM material_colors`).Scan(&n)
	return n, err
}

// =====================================================
// Settings Operations
// =====================================================

// GetSettings retrieves the single settings record. Returns sql.ErrNoRows
// when settings have never been saved.
func (r *Repository) GetSettings() (*models.Settings, error) {
	query := `
	SELECT default_diameter_mm, low_stock_percent, currency_symbol, language, updated_at
	FROM settings WHERE id = 1
	`
	var st models.Settings
	err := r.db.QueryRow(query).Scan(&st.DefaultDiameterMM, &st.LowStockPercent,
		&st.CurrencySymbol, &st.Language, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveSettings upserts the single settings record in place, so a concurrent
// reader never observes zero settings instances.
func (r *Repository) SaveSettings(st *models.Settings) error {
	st.UpdatedAt = time.Now().Unix()
	query := `
	INSERT INTO settings (id, default_diameter_mm, low_stock_percent, currency_symbol, language, updated_at)
	VALUES (1, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		default_diameter_mm = excluded.default_diameter_mm,
		low_stock_percent = excluded.low_stock_percent,
		currency_symbol = excluded.currency_symbol,
		language = excluded.language,
		updated_at = excluded.updated_at
	`
	_, err := r.db.Exec(query, st.DefaultDiameterMM, st.LowStockPercent,
		st.CurrencySymbol, st.Language, st.UpdatedAt)
	return err
}
