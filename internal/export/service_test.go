package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tzuhan/filatrack/backend/internal/db"
	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/uuid"
)

func setupService(t *testing.T) (*Service, *db.Repository) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	m := db.NewMigrator(database.DB)
	if err := m.Initialize(); err != nil {
		t.Fatalf("Failed to initialize migrator: %v", err)
	}
	if err := m.Up(); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	repo := db.NewRepository(database.DB)
	t.Cleanup(func() { repo.Close() })
	return NewService(repo), repo
}

func seedInventory(t *testing.T, repo *db.Repository) *models.Spool {
	t.Helper()
	now := time.Now().Unix()
	tare := 212.0
	price := decimal.RequireFromString("24.99")
	spool := &models.Spool{
		ID:             models.UUID(uuid.New()),
		Brand:          "Prusament",
		Material:       "PLA",
		ColorName:      "Galaxy Black",
		ColorHex:       "1A1A2E",
		DiameterMM:     1.75,
		InitialMassG:   1000,
		RemainingMassG: 600,
		TareMassG:      &tare,
		Price:          &price,
		AcquiredAt:     now,
		Note:           "first roll",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.CreateSpool(spool); err != nil {
		t.Fatalf("Failed to create spool: %v", err)
	}
	rec := &models.UsageRecord{
		ID:        models.UUID(uuid.New()),
		SpoolID:   spool.ID,
		MassG:     400,
		Category:  models.CategoryPrint,
		Label:     "benchy",
		Timestamp: now,
		CreatedAt: now,
	}
	if err := repo.CreateUsageRecord(rec); err != nil {
		t.Fatalf("Failed to create usage record: %v", err)
	}
	mc := &models.MaterialColor{
		ID:        models.UUID(uuid.New()),
		Material:  "PLA",
		ColorHex:  "4FC3F7",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateMaterialColor(mc); err != nil {
		t.Fatalf("Failed to create material color: %v", err)
	}
	settings := models.DefaultSettings()
	settings.CurrencySymbol = "€"
	if err := repo.SaveSettings(&settings); err != nil {
		t.Fatalf("Failed to save settings: %v", err)
	}
	return spool
}

func TestExportDocument(t *testing.T) {
	svc, repo := setupService(t)
	spool := seedInventory(t, repo)

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if doc.Version != SchemaVersion {
		t.Errorf("Expected version %s, got %s", SchemaVersion, doc.Version)
	}
	if len(doc.Spools) != 1 {
		t.Fatalf("Expected 1 spool, got %d", len(doc.Spools))
	}
	entry := doc.Spools[0]
	if entry.ID != spool.ID.String() {
		t.Errorf("Spool identity must be preserved")
	}
	if len(entry.Usage) != 1 || entry.Usage[0].Label != "benchy" {
		t.Errorf("Usage history should be embedded: %+v", entry.Usage)
	}
	if entry.Price == nil || entry.Price.String() != "24.99" {
		t.Errorf("Price should export as exact decimal, got %v", entry.Price)
	}
	if len(doc.MaterialColors) != 1 {
		t.Errorf("Expected 1 material color, got %d", len(doc.MaterialColors))
	}
	if doc.Settings == nil || doc.Settings.CurrencySymbol != "€" {
		t.Errorf("Settings should be included: %+v", doc.Settings)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("Exported document must validate: %v", err)
	}
}

func TestExportIncludesArchivedSpools(t *testing.T) {
	svc, repo := setupService(t)
	spool := seedInventory(t, repo)
	spool.Archived = true
	if err := repo.UpdateSpool(spool); err != nil {
		t.Fatalf("UpdateSpool failed: %v", err)
	}

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(doc.Spools) != 1 || !doc.Spools[0].Archived {
		t.Error("Archived spools must be part of the export")
	}
}

func TestRoundTripPreservesEverything(t *testing.T) {
	src, srcRepo := setupService(t)
	original := seedInventory(t, srcRepo)

	doc, err := src.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst, dstRepo := setupService(t)
	result, err := dst.Import(doc, PolicyMerge)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.Committed != result.Total {
		t.Errorf("Expected full commit, got %d/%d", result.Committed, result.Total)
	}

	got, err := dstRepo.GetSpool(original.ID.String())
	if err != nil {
		t.Fatalf("GetSpool failed: %v", err)
	}
	if got.RemainingMassG != 600 || got.InitialMassG != 1000 {
		t.Errorf("Masses did not round-trip: %+v", got)
	}
	if got.TareMassG == nil || *got.TareMassG != 212.0 {
		t.Errorf("Tare mass did not round-trip: %v", got.TareMassG)
	}
	if got.Price == nil || got.Price.String() != "24.99" {
		t.Errorf("Price did not round-trip exactly: %v", got.Price)
	}
	if got.AcquiredAt != original.AcquiredAt || got.CreatedAt != original.CreatedAt {
		t.Errorf("Timestamps did not round-trip: %+v", got)
	}

	records, err := dstRepo.ListUsageRecords(original.ID.String())
	if err != nil {
		t.Fatalf("ListUsageRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].MassG != 400 {
		t.Errorf("Usage records did not round-trip: %+v", records)
	}

	settings, err := dstRepo.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.CurrencySymbol != "€" {
		t.Errorf("Settings did not round-trip: %+v", settings)
	}
}

func TestImportMergeSkipsExistingSpools(t *testing.T) {
	svc, repo := setupService(t)
	spool := seedInventory(t, repo)

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	// Simulate a stale snapshot claiming more filament than is left.
	doc.Spools[0].RemainingMassG = 1000
	doc.Spools[0].Note = "stale copy"

	result, err := svc.Import(doc, PolicyMerge)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.SpoolsSkipped != 1 || result.SpoolsCreated != 0 {
		t.Errorf("Existing spool should be skipped wholesale: %+v", result)
	}

	got, err := repo.GetSpool(spool.ID.String())
	if err != nil {
		t.Fatalf("GetSpool failed: %v", err)
	}
	if got.RemainingMassG != 600 || got.Note != "first roll" {
		t.Errorf("Merge must not overwrite the existing spool: %+v", got)
	}
	// The existing usage history wins too; no duplicates.
	records, err := repo.ListUsageRecords(spool.ID.String())
	if err != nil {
		t.Fatalf("ListUsageRecords failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 usage record after merge, got %d", len(records))
	}
}

func TestImportMergeIsIdempotent(t *testing.T) {
	svc, repo := setupService(t)
	seedInventory(t, repo)

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := svc.Import(doc, PolicyMerge); err != nil {
		t.Fatalf("First import failed: %v", err)
	}
	if _, err := svc.Import(doc, PolicyMerge); err != nil {
		t.Fatalf("Second import failed: %v", err)
	}

	count, err := repo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Repeated merges must not duplicate spools, got %d", count)
	}
	usage, err := repo.CountUsageRecords()
	if err != nil {
		t.Fatalf("CountUsageRecords failed: %v", err)
	}
	if usage != 1 {
		t.Errorf("Repeated merges must not duplicate usage records, got %d", usage)
	}
}

func TestImportMergeAddsNewEntities(t *testing.T) {
	src, srcRepo := setupService(t)
	seedInventory(t, srcRepo)
	doc, err := src.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst, dstRepo := setupService(t)
	now := time.Now().Unix()
	local := &models.Spool{
		ID:             models.UUID(uuid.New()),
		Brand:          "eSun",
		Material:       "PETG",
		DiameterMM:     1.75,
		InitialMassG:   500,
		RemainingMassG: 500,
		AcquiredAt:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := dstRepo.CreateSpool(local); err != nil {
		t.Fatalf("CreateSpool failed: %v", err)
	}

	result, err := dst.Import(doc, PolicyMerge)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.SpoolsCreated != 1 {
		t.Errorf("Expected the document spool to be created: %+v", result)
	}
	count, err := dstRepo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected both spools after merge, got %d", count)
	}
}

func TestImportReplaceDiscardsExisting(t *testing.T) {
	src, srcRepo := setupService(t)
	imported := seedInventory(t, srcRepo)
	doc, err := src.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst, dstRepo := setupService(t)
	now := time.Now().Unix()
	local := &models.Spool{
		ID:             models.UUID(uuid.New()),
		Brand:          "eSun",
		Material:       "PETG",
		DiameterMM:     1.75,
		InitialMassG:   500,
		RemainingMassG: 500,
		AcquiredAt:     now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := dstRepo.CreateSpool(local); err != nil {
		t.Fatalf("CreateSpool failed: %v", err)
	}
	localSettings := models.DefaultSettings()
	localSettings.Language = "de"
	if err := dstRepo.SaveSettings(&localSettings); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	result, err := dst.Import(doc, PolicyReplace)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if result.SpoolsCreated != 1 || result.SpoolsSkipped != 0 {
		t.Errorf("Replace should recreate the document verbatim: %+v", result)
	}

	if _, err := dstRepo.GetSpool(local.ID.String()); err == nil {
		t.Error("Replace should have deleted the local spool")
	}
	got, err := dstRepo.GetSpool(imported.ID.String())
	if err != nil {
		t.Fatalf("Imported spool missing: %v", err)
	}
	if got.RemainingMassG != 600 {
		t.Errorf("Imported spool should match the document: %+v", got)
	}

	// Settings is overwritten in place, not deleted.
	settings, err := dstRepo.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if settings.CurrencySymbol != "€" || settings.Language == "de" {
		t.Errorf("Settings should carry the document values: %+v", settings)
	}
}

func TestImportInvalidDocumentHasNoSideEffects(t *testing.T) {
	svc, repo := setupService(t)
	seedInventory(t, repo)

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	extra := doc.Spools[0]
	extra.ID = uuid.New()
	extra.Usage = nil
	extra.RemainingMassG = extra.InitialMassG + 1 // structurally invalid
	doc.Spools = append(doc.Spools, extra)

	before, err := repo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}

	_, err = svc.Import(doc, PolicyReplace)
	if !apperrors.Is(err, apperrors.ErrSchemaInvalid) {
		t.Fatalf("Expected SCHEMA_INVALID, got %v", err)
	}

	after, err := repo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}
	if before != after {
		t.Errorf("Invalid document must leave the inventory untouched: %d -> %d", before, after)
	}
}

func TestImportDuplicateUsageIDsRejectedUpFront(t *testing.T) {
	svc, repo := setupService(t)
	seedInventory(t, repo)

	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	// A second spool reusing an existing usage record id would hit the
	// primary key mid-apply; validation must catch it before any write.
	extra := doc.Spools[0]
	extra.ID = uuid.New()
	extra.Usage = []UsageEntry{doc.Spools[0].Usage[0]}
	doc.Spools = append(doc.Spools, extra)

	spoolsBefore, err := repo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}
	usageBefore, err := repo.CountUsageRecords()
	if err != nil {
		t.Fatalf("CountUsageRecords failed: %v", err)
	}

	_, err = svc.Import(doc, PolicyReplace)
	if !apperrors.Is(err, apperrors.ErrSchemaInvalid) {
		t.Fatalf("Expected SCHEMA_INVALID, got %v", err)
	}

	spoolsAfter, err := repo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}
	usageAfter, err := repo.CountUsageRecords()
	if err != nil {
		t.Fatalf("CountUsageRecords failed: %v", err)
	}
	if spoolsBefore != spoolsAfter || usageBefore != usageAfter {
		t.Errorf("Rejected document must leave the inventory untouched: spools %d -> %d, usage %d -> %d",
			spoolsBefore, spoolsAfter, usageBefore, usageAfter)
	}
}

func TestImportUnknownPolicy(t *testing.T) {
	svc, repo := setupService(t)
	seedInventory(t, repo)
	doc, err := svc.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := svc.Import(doc, Policy("overwrite")); !apperrors.Is(err, apperrors.ErrInvalid) {
		t.Errorf("Expected INVALID_INPUT, got %v", err)
	}
}

func TestExportImportFile(t *testing.T) {
	svc, repo := setupService(t)
	seedInventory(t, repo)

	path := filepath.Join(t.TempDir(), "inventory.json")
	result, err := svc.ExportToFile(path)
	if err != nil {
		t.Fatalf("ExportToFile failed: %v", err)
	}
	if result.SpoolCount != 1 || result.UsageCount != 1 {
		t.Errorf("Unexpected export counts: %+v", result)
	}
	if result.SizeBytes == 0 || len(result.Checksum) != 64 {
		t.Errorf("Export result metadata malformed: %+v", result)
	}

	dst, dstRepo := setupService(t)
	importResult, err := dst.ImportFromFile(path, PolicyMerge)
	if err != nil {
		t.Fatalf("ImportFromFile failed: %v", err)
	}
	if importResult.Committed != importResult.Total {
		t.Errorf("Expected full commit, got %d/%d", importResult.Committed, importResult.Total)
	}
	count, err := dstRepo.CountSpools()
	if err != nil {
		t.Fatalf("CountSpools failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 spool after file round-trip, got %d", count)
	}
}

func TestImportFromFileRejectsBadJSON(t *testing.T) {
	svc, _ := setupService(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := svc.ImportFromFile(path, PolicyMerge); !apperrors.Is(err, apperrors.ErrSchemaInvalid) {
		t.Errorf("Expected SCHEMA_INVALID, got %v", err)
	}
}
