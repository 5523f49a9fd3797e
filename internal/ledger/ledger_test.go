package ledger

import (
	"testing"

	"github.com/shopspring/decimal"

	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/uuid"
)

func testSettings() models.Settings {
	return models.DefaultSettings()
}

func newTestSpool(t *testing.T, initialG float64) models.Spool {
	t.Helper()
	spool, err := New(CreateSpec{
		Brand:        "Prusament",
		Material:     "PLA",
		ColorName:    "Galaxy Black",
		ColorHex:     "#1a1a2e",
		InitialMassG: initialG,
	}, testSettings())
	if err != nil {
		t.Fatalf("Failed to create spool: %v", err)
	}
	return spool
}

func TestNew(t *testing.T) {
	price := decimal.RequireFromString("29.99")
	spool, err := New(CreateSpec{
		Brand:        "Prusament",
		Material:     "PLA",
		ColorHex:     "#1a1a2e",
		InitialMassG: 1000,
		Price:        &price,
	}, testSettings())
	if err != nil {
		t.Fatalf("Failed to create spool: %v", err)
	}
	if !uuid.IsValid(spool.ID.String()) {
		t.Errorf("Expected valid UUID, got %q", spool.ID)
	}
	if spool.RemainingMassG != spool.InitialMassG {
		t.Errorf("New spool should be full: remaining %v, initial %v", spool.RemainingMassG, spool.InitialMassG)
	}
	if spool.Archived {
		t.Error("New spool should be active")
	}
	if spool.DiameterMM != 1.75 {
		t.Errorf("Expected settings default diameter 1.75, got %v", spool.DiameterMM)
	}
	if spool.ColorHex != "1A1A2E" {
		t.Errorf("Expected normalized hex 1A1A2E, got %q", spool.ColorHex)
	}
	if spool.AcquiredAt == 0 || spool.CreatedAt == 0 {
		t.Error("Timestamps should default to now")
	}
	if !spool.Price.Equal(price) {
		t.Errorf("Price should be preserved exactly, got %v", spool.Price)
	}
}

func TestNewRejectsNonPositiveInitialMass(t *testing.T) {
	for _, mass := range []float64{0, -100} {
		_, err := New(CreateSpec{Material: "PLA", InitialMassG: mass}, testSettings())
		if !apperrors.Is(err, apperrors.ErrInvalidAmount) {
			t.Errorf("Expected INVALID_AMOUNT for initial mass %v, got %v", mass, err)
		}
	}
}

func TestNewExplicitDiameterWins(t *testing.T) {
	spool, err := New(CreateSpec{Material: "PETG", InitialMassG: 1000, DiameterMM: 2.85}, testSettings())
	if err != nil {
		t.Fatalf("Failed to create spool: %v", err)
	}
	if spool.DiameterMM != 2.85 {
		t.Errorf("Expected 2.85, got %v", spool.DiameterMM)
	}
}

func TestApplyConsumption(t *testing.T) {
	spool := newTestSpool(t, 1000)

	spool, err := ApplyConsumption(spool, 250)
	if err != nil {
		t.Fatalf("ApplyConsumption failed: %v", err)
	}
	if spool.RemainingMassG != 750 {
		t.Errorf("Expected 750 remaining, got %v", spool.RemainingMassG)
	}
	if spool.Archived {
		t.Error("Spool with stock left should stay active")
	}
}

func TestApplyConsumptionFloorsAtZeroAndArchives(t *testing.T) {
	spool := newTestSpool(t, 100)

	spool, err := ApplyConsumption(spool, 500)
	if err != nil {
		t.Fatalf("ApplyConsumption failed: %v", err)
	}
	if spool.RemainingMassG != 0 {
		t.Errorf("Expected remaining floored at 0, got %v", spool.RemainingMassG)
	}
	if !spool.Archived {
		t.Error("Spool should auto-archive on reaching zero")
	}
}

func TestApplyConsumptionExactlyToZero(t *testing.T) {
	spool := newTestSpool(t, 100)

	spool, err := ApplyConsumption(spool, 100)
	if err != nil {
		t.Fatalf("ApplyConsumption failed: %v", err)
	}
	if spool.RemainingMassG != 0 || !spool.Archived {
		t.Errorf("Expected empty archived spool, got remaining=%v archived=%v",
			spool.RemainingMassG, spool.Archived)
	}
}

func TestApplyConsumptionRejectsNonPositiveMass(t *testing.T) {
	spool := newTestSpool(t, 1000)
	_, err := ApplyConsumption(spool, 0)
	if !apperrors.Is(err, apperrors.ErrInvalidAmount) {
		t.Errorf("Expected INVALID_AMOUNT, got %v", err)
	}
	got, err := ApplyConsumption(spool, -10)
	if err == nil {
		t.Fatal("Expected error for negative mass")
	}
	if got.RemainingMassG != spool.RemainingMassG {
		t.Error("Rejected transition must leave the spool unchanged")
	}
}

func TestReviseStockPreservesConsumption(t *testing.T) {
	spool := newTestSpool(t, 1000)
	spool, err := ApplyConsumption(spool, 400)
	if err != nil {
		t.Fatalf("ApplyConsumption failed: %v", err)
	}

	// Restating the initial mass keeps the 400g already consumed.
	spool, err = ReviseStock(spool, 800)
	if err != nil {
		t.Fatalf("ReviseStock failed: %v", err)
	}
	if spool.InitialMassG != 800 {
		t.Errorf("Expected initial 800, got %v", spool.InitialMassG)
	}
	if spool.RemainingMassG != 400 {
		t.Errorf("Expected remaining 400, got %v", spool.RemainingMassG)
	}
	if spool.Archived {
		t.Error("Spool with stock left should stay active")
	}
}

func TestReviseStockBelowConsumedArchives(t *testing.T) {
	spool := newTestSpool(t, 1000)
	spool, err := ApplyConsumption(spool, 400)
	if err != nil {
		t.Fatalf("ApplyConsumption failed: %v", err)
	}

	spool, err = ReviseStock(spool, 300)
	if err != nil {
		t.Fatalf("ReviseStock failed: %v", err)
	}
	if spool.RemainingMassG != 0 {
		t.Errorf("Expected remaining clamped to 0, got %v", spool.RemainingMassG)
	}
	if !spool.Archived {
		t.Error("Spool revised to empty should archive")
	}
}

func TestReviseStockRejectsNonPositive(t *testing.T) {
	spool := newTestSpool(t, 1000)
	if _, err := ReviseStock(spool, 0); !apperrors.Is(err, apperrors.ErrInvalidAmount) {
		t.Errorf("Expected INVALID_AMOUNT, got %v", err)
	}
}

func TestSetRemaining(t *testing.T) {
	spool := newTestSpool(t, 1000)

	spool, err := SetRemaining(spool, 420.5)
	if err != nil {
		t.Fatalf("SetRemaining failed: %v", err)
	}
	if spool.RemainingMassG != 420.5 {
		t.Errorf("Expected 420.5, got %v", spool.RemainingMassG)
	}
}

func TestSetRemainingClampsToInitial(t *testing.T) {
	spool := newTestSpool(t, 1000)

	spool, err := SetRemaining(spool, 1500)
	if err != nil {
		t.Fatalf("SetRemaining failed: %v", err)
	}
	if spool.RemainingMassG != 1000 {
		t.Errorf("Expected clamp to initial 1000, got %v", spool.RemainingMassG)
	}
}

func TestSetRemainingZeroArchives(t *testing.T) {
	spool := newTestSpool(t, 1000)

	spool, err := SetRemaining(spool, 0)
	if err != nil {
		t.Fatalf("SetRemaining failed: %v", err)
	}
	if !spool.Archived {
		t.Error("Spool set to empty should archive")
	}
}

func TestSetRemainingDoesNotUnarchive(t *testing.T) {
	spool := newTestSpool(t, 1000)
	spool = Archive(spool)

	spool, err := SetRemaining(spool, 500)
	if err != nil {
		t.Fatalf("SetRemaining failed: %v", err)
	}
	if !spool.Archived {
		t.Error("Raising the mass of an archived spool must not un-archive it")
	}
}

func TestSetRemainingRejectsNegative(t *testing.T) {
	spool := newTestSpool(t, 1000)
	if _, err := SetRemaining(spool, -1); !apperrors.Is(err, apperrors.ErrInvalidAmount) {
		t.Errorf("Expected INVALID_AMOUNT, got %v", err)
	}
}

func TestArchiveRestore(t *testing.T) {
	spool := newTestSpool(t, 1000)

	spool = Archive(spool)
	if !spool.Archived {
		t.Error("Archive should mark the spool archived")
	}
	spool = Restore(spool)
	if spool.Archived {
		t.Error("Restore should mark the spool active")
	}
}

func TestRemainingPercent(t *testing.T) {
	spool := newTestSpool(t, 1000)
	spool.RemainingMassG = 250
	if got := RemainingPercent(spool); got != 25 {
		t.Errorf("Expected 25%%, got %v", got)
	}

	// Legacy data may carry a zero initial mass; derived reads must not
	// divide by zero.
	spool.InitialMassG = 0
	if got := RemainingPercent(spool); got != 0 {
		t.Errorf("Expected 0%% for zero initial mass, got %v", got)
	}
}

func TestIsLowStock(t *testing.T) {
	settings := testSettings() // 10% threshold
	spool := newTestSpool(t, 1000)

	spool.RemainingMassG = 99
	if !IsLowStock(spool, settings) {
		t.Error("9.9% should be low stock at a 10% threshold")
	}
	spool.RemainingMassG = 100
	if IsLowStock(spool, settings) {
		t.Error("Exactly 10% should not be low stock")
	}
}

func TestDensityOverride(t *testing.T) {
	spool := newTestSpool(t, 1000)
	if got := Density(spool); got != 1.24 {
		t.Errorf("Expected PLA table density 1.24, got %v", got)
	}
	override := 1.31
	spool.DensityOverride = &override
	if got := Density(spool); got != 1.31 {
		t.Errorf("Expected override 1.31, got %v", got)
	}
}

func TestRemainingLengthM(t *testing.T) {
	spool := newTestSpool(t, 1000)
	lengthM, err := RemainingLengthM(spool)
	if err != nil {
		t.Fatalf("RemainingLengthM failed: %v", err)
	}
	if lengthM <= 0 {
		t.Errorf("Expected positive length, got %v", lengthM)
	}

	spool.RemainingMassG = 0
	lengthM, err = RemainingLengthM(spool)
	if err != nil {
		t.Fatalf("RemainingLengthM failed for empty spool: %v", err)
	}
	if lengthM != 0 {
		t.Errorf("Empty spool should have zero length, got %v", lengthM)
	}
}

func TestNormalizeHex(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"#1a1a2e", "1A1A2E"},
		{"1A1A2E", "1A1A2E"},
		{" #ffcc00 ", "FFCC00"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeHex(tc.in); got != tc.want {
			t.Errorf("NormalizeHex(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
