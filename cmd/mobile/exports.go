// FFI exports for the FilaTrack core. All exported functions use the C
// calling convention and are called from Dart FFI. Inputs and outputs cross
// the boundary as JSON strings; every returned *C.char must be released with
// FreeString. A nil return signals failure and GetLastError carries the
// message.
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tzuhan/filatrack/backend/internal/export"
	"github.com/tzuhan/filatrack/backend/internal/ledger"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/usage"
)

func ready() bool {
	if repo == nil {
		setLastError("core not initialized, call Init first")
		return false
	}
	return true
}

// spoolPatch carries the optional fields of a spool update. Only non-nil
// fields are applied.
type spoolPatch struct {
	Brand           *string          `json:"brand"`
	Material        *string          `json:"material"`
	ColorName       *string          `json:"color_name"`
	ColorHex        *string          `json:"color_hex"`
	DiameterMM      *float64         `json:"diameter_mm"`
	InitialMassG    *float64         `json:"initial_mass_g"`
	RemainingMassG  *float64         `json:"remaining_mass_g"`
	TareMassG       *float64         `json:"tare_mass_g"`
	DensityOverride *float64         `json:"density_override"`
	MinTempC        *float64         `json:"min_temp_c"`
	MaxTempC        *float64         `json:"max_temp_c"`
	Price           *decimal.Decimal `json:"price"`
	AcquiredAt      *int64           `json:"acquired_at"`
	Note            *string          `json:"note"`
}

//export SpoolCreate
// SpoolCreate creates a spool from a JSON creation spec and returns the
// stored spool. The material's chart color is bound as a side effect.
func SpoolCreate(specJSON *C.char) *C.char {
	if !ready() {
		return nil
	}
	var spec ledger.CreateSpec
	if err := json.Unmarshal([]byte(C.GoString(specJSON)), &spec); err != nil {
		setLastError(fmt.Sprintf("Invalid spool spec: %v", err))
		return nil
	}
	spool, err := ledger.New(spec, currentSettings())
	if err != nil {
		setLastError(err.Error())
		return nil
	}
	if err := repo.CreateSpool(&spool); err != nil {
		setLastError(fmt.Sprintf("Failed to create spool: %v", err))
		return nil
	}
	if spool.Material != "" {
		if _, err := registry.ColorFor(spool.Material); err != nil {
			setLastError(fmt.Sprintf("Failed to bind material color: %v", err))
			return nil
		}
	}
	return jsonOut(&spool)
}

//export SpoolGet
func SpoolGet(id *C.char) *C.char {
	if !ready() {
		return nil
	}
	spool, err := repo.GetSpool(C.GoString(id))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to load spool: %v", err))
		return nil
	}
	return jsonOut(spool)
}

//export SpoolList
// SpoolList returns all spools; pass includeArchived != 0 to include
// archived ones.
func SpoolList(includeArchived C.int) *C.char {
	if !ready() {
		return nil
	}
	spools, err := repo.ListSpools(includeArchived != 0)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to list spools: %v", err))
		return nil
	}
	return jsonOut(map[string]interface{}{
		"items": spools,
		"total": len(spools),
	})
}

//export SpoolListByMaterial
// SpoolListByMaterial returns every spool of a material, archived included,
// matching the name case-insensitively.
func SpoolListByMaterial(material *C.char) *C.char {
	if !ready() {
		return nil
	}
	spools, err := repo.ListSpoolsByMaterial(C.GoString(material))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to list spools: %v", err))
		return nil
	}
	return jsonOut(map[string]interface{}{
		"items": spools,
		"total": len(spools),
	})
}

//export SpoolUpdate
// SpoolUpdate applies a JSON patch to a spool. Restating the initial mass
// preserves the amount consumed so far; restating the remaining mass is the
// manual re-weigh path and is clamped to [0, initial].
func SpoolUpdate(id, patchJSON *C.char) *C.char {
	if !ready() {
		return nil
	}
	var patch spoolPatch
	if err := json.Unmarshal([]byte(C.GoString(patchJSON)), &patch); err != nil {
		setLastError(fmt.Sprintf("Invalid spool patch: %v", err))
		return nil
	}
	spool, err := repo.GetSpool(C.GoString(id))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to load spool: %v", err))
		return nil
	}

	s := *spool
	if patch.Brand != nil {
		s.Brand = *patch.Brand
	}
	if patch.Material != nil {
		s.Material = *patch.Material
	}
	if patch.ColorName != nil {
		s.ColorName = *patch.ColorName
	}
	if patch.ColorHex != nil {
		s.ColorHex = ledger.NormalizeHex(*patch.ColorHex)
	}
	if patch.DiameterMM != nil {
		s.DiameterMM = *patch.DiameterMM
	}
	if patch.TareMassG != nil {
		s.TareMassG = patch.TareMassG
	}
	if patch.DensityOverride != nil {
		s.DensityOverride = patch.DensityOverride
	}
	if patch.MinTempC != nil {
		s.MinTempC = patch.MinTempC
	}
	if patch.MaxTempC != nil {
		s.MaxTempC = patch.MaxTempC
	}
	if patch.Price != nil {
		s.Price = patch.Price
	}
	if patch.AcquiredAt != nil {
		s.AcquiredAt = *patch.AcquiredAt
	}
	if patch.Note != nil {
		s.Note = *patch.Note
	}
	if patch.InitialMassG != nil {
		s, err = ledger.ReviseStock(s, *patch.InitialMassG)
		if err != nil {
			setLastError(err.Error())
			return nil
		}
	}
	if patch.RemainingMassG != nil {
		s, err = ledger.SetRemaining(s, *patch.RemainingMassG)
		if err != nil {
			setLastError(err.Error())
			return nil
		}
	}
	s.Touch()

	if err := repo.UpdateSpool(&s); err != nil {
		setLastError(fmt.Sprintf("Failed to update spool: %v", err))
		return nil
	}
	if patch.Material != nil && s.Material != "" {
		if _, err := registry.ColorFor(s.Material); err != nil {
			setLastError(fmt.Sprintf("Failed to bind material color: %v", err))
			return nil
		}
	}
	return jsonOut(&s)
}

//export SpoolDelete
// SpoolDelete removes a spool and its usage records.
func SpoolDelete(id *C.char) *C.char {
	if !ready() {
		return nil
	}
	if err := repo.DeleteSpool(C.GoString(id)); err != nil {
		setLastError(fmt.Sprintf("Failed to delete spool: %v", err))
		return nil
	}
	return C.CString(`{"status":"deleted"}`)
}

//export SpoolArchive
func SpoolArchive(id *C.char) *C.char {
	return spoolSetArchived(id, true)
}

//export SpoolRestore
func SpoolRestore(id *C.char) *C.char {
	return spoolSetArchived(id, false)
}

func spoolSetArchived(id *C.char, archived bool) *C.char {
	if !ready() {
		return nil
	}
	spool, err := repo.GetSpool(C.GoString(id))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to load spool: %v", err))
		return nil
	}
	var s models.Spool
	if archived {
		s = ledger.Archive(*spool)
	} else {
		s = ledger.Restore(*spool)
	}
	if err := repo.UpdateSpool(&s); err != nil {
		setLastError(fmt.Sprintf("Failed to update spool: %v", err))
		return nil
	}
	return jsonOut(&s)
}

//export SpoolStats
// SpoolStats returns the derived quantities of a spool: remaining percent,
// estimated remaining length, effective density, consumption and low-stock
// state under the current settings.
func SpoolStats(id *C.char) *C.char {
	if !ready() {
		return nil
	}
	spool, err := repo.GetSpool(C.GoString(id))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to load spool: %v", err))
		return nil
	}
	lengthM, err := ledger.RemainingLengthM(*spool)
	if err != nil {
		setLastError(err.Error())
		return nil
	}
	settings := currentSettings()
	return jsonOut(map[string]interface{}{
		"spool_id":           spool.ID,
		"remaining_percent":  ledger.RemainingPercent(*spool),
		"remaining_length_m": lengthM,
		"consumed_mass_g":    spool.ConsumedMassG(),
		"density":            ledger.Density(*spool),
		"low_stock":          ledger.IsLowStock(*spool, settings),
	})
}

//export UsageApply
// UsageApply records a batch of consumption entries. Entries are applied in
// order and independently; the result reports the per-entry outcome
// including clamp notices and error codes.
func UsageApply(entriesJSON *C.char) *C.char {
	if !ready() {
		return nil
	}
	var entries []usage.Entry
	if err := json.Unmarshal([]byte(C.GoString(entriesJSON)), &entries); err != nil {
		setLastError(fmt.Sprintf("Invalid usage entries: %v", err))
		return nil
	}
	result := recorder.RecordUsage(entries)

	type entryOut struct {
		SpoolID string              `json:"spool_id"`
		Record  *models.UsageRecord `json:"record,omitempty"`
		Spool   *models.Spool       `json:"spool,omitempty"`
		Notice  string              `json:"notice,omitempty"`
		Error   string              `json:"error,omitempty"`
	}
	out := struct {
		Entries   []entryOut `json:"entries"`
		Committed int        `json:"committed"`
		Total     int        `json:"total"`
	}{Committed: result.Committed, Total: len(result.Entries)}
	for _, er := range result.Entries {
		eo := entryOut{
			SpoolID: er.Entry.SpoolID.String(),
			Record:  er.Record,
			Spool:   er.Spool,
			Notice:  string(er.Notice),
		}
		if er.Err != nil {
			eo.Error = er.Err.Error()
		}
		out.Entries = append(out.Entries, eo)
	}
	return jsonOut(&out)
}

//export UsageList
// UsageList returns a spool's usage records ordered by timestamp.
func UsageList(spoolID *C.char) *C.char {
	if !ready() {
		return nil
	}
	records, err := repo.ListUsageRecords(C.GoString(spoolID))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to list usage records: %v", err))
		return nil
	}
	return jsonOut(map[string]interface{}{
		"items": records,
		"total": len(records),
	})
}

//export MaterialColorFor
// MaterialColorFor returns the chart color bound to a material, allocating
// one for an unseen material.
func MaterialColorFor(material *C.char) *C.char {
	if !ready() {
		return nil
	}
	hex, err := registry.ColorFor(C.GoString(material))
	if err != nil {
		setLastError(fmt.Sprintf("Failed to resolve material color: %v", err))
		return nil
	}
	return jsonOut(map[string]string{"color_hex": hex})
}

//export MaterialColorSet
// MaterialColorSet overrides a material's chart color.
func MaterialColorSet(material, hex *C.char) *C.char {
	if !ready() {
		return nil
	}
	if err := registry.SetColor(C.GoString(material), C.GoString(hex)); err != nil {
		setLastError(fmt.Sprintf("Failed to set material color: %v", err))
		return nil
	}
	return C.CString(`{"status":"updated"}`)
}

//export MaterialColorList
func MaterialColorList() *C.char {
	if !ready() {
		return nil
	}
	colors, err := repo.ListMaterialColors()
	if err != nil {
		setLastError(fmt.Sprintf("Failed to list material colors: %v", err))
		return nil
	}
	return jsonOut(map[string]interface{}{
		"items": colors,
		"total": len(colors),
	})
}

//export SettingsGet
// SettingsGet returns the stored settings, or the defaults when the user has
// never saved any.
func SettingsGet() *C.char {
	if !ready() {
		return nil
	}
	settings := currentSettings()
	return jsonOut(&settings)
}

//export SettingsSave
func SettingsSave(settingsJSON *C.char) *C.char {
	if !ready() {
		return nil
	}
	settings := models.DefaultSettings()
	if err := json.Unmarshal([]byte(C.GoString(settingsJSON)), &settings); err != nil {
		setLastError(fmt.Sprintf("Invalid settings: %v", err))
		return nil
	}
	if err := repo.SaveSettings(&settings); err != nil {
		setLastError(fmt.Sprintf("Failed to save settings: %v", err))
		return nil
	}
	return jsonOut(&settings)
}

//export ExportInventory
// ExportInventory writes the full inventory to path as a portable JSON
// document and returns the export summary.
func ExportInventory(path *C.char) *C.char {
	if !ready() {
		return nil
	}
	result, err := reconciler.ExportToFile(C.GoString(path))
	if err != nil {
		setLastError(err.Error())
		return nil
	}
	return jsonOut(result)
}

//export ImportInventory
// ImportInventory reconciles a document file against the inventory. Policy
// is "merge" or "replace". The returned result carries the per-entity counts
// even when the run failed partway.
func ImportInventory(path, policy *C.char) *C.char {
	if !ready() {
		return nil
	}
	result, err := reconciler.ImportFromFile(C.GoString(path), export.Policy(C.GoString(policy)))
	if err != nil && result == nil {
		setLastError(err.Error())
		return nil
	}
	out := struct {
		*export.ImportResult
		Error string `json:"error,omitempty"`
	}{ImportResult: result}
	if err != nil {
		setLastError(err.Error())
		out.Error = err.Error()
	}
	return jsonOut(&out)
}

//export RecognizeLabel
// RecognizeLabel sends a base64-encoded label photo to the recognition
// service and returns normalized field suggestions. Requires a prior
// SetRecognitionEndpoint call.
func RecognizeLabel(imageBase64, filename *C.char) *C.char {
	if !ready() {
		return nil
	}
	if recognizer == nil {
		setLastError("recognition endpoint not configured")
		return nil
	}
	image, err := base64.StdEncoding.DecodeString(C.GoString(imageBase64))
	if err != nil {
		setLastError(fmt.Sprintf("Invalid image encoding: %v", err))
		return nil
	}
	suggestion, err := recognizer.Recognize(context.Background(), image, C.GoString(filename))
	if err != nil {
		setLastError(err.Error())
		return nil
	}
	return jsonOut(suggestion)
}
