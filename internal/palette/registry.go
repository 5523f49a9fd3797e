// Package palette maintains the material-to-color registry used for chart
// and legend consistency. Assignments are deterministic: the same sequence
// of materials always ends up with the same colors.
package palette

import (
	"database/sql"
	"errors"
	"hash/fnv"
	"strings"
	"time"

	"github.com/tzuhan/filatrack/backend/internal/db"
	apperrors "github.com/tzuhan/filatrack/backend/internal/errors"
	"github.com/tzuhan/filatrack/backend/internal/ledger"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/uuid"
)

// DefaultMaterials is the material list seeded on first run.
var DefaultMaterials = []string{
	"PLA", "PLA+", "PETG", "ABS", "TPU", "ASA", "PC", "PA", "PVA", "HIPS",
}

// DefaultPalette is the color rotation for material assignment. It is
// shorter than DefaultMaterials on purpose: seeding wraps around.
var DefaultPalette = []string{
	"4FC3F7", // light blue
	"81C784", // green
	"FFB74D", // orange
	"E57373", // red
	"BA68C8", // purple
	"FFD54F", // yellow
	"4DB6AC", // teal
	"A1887F", // brown
}

// Registry allocates and persists material color bindings.
type Registry struct {
	repo db.MaterialColorRepository
}

// NewRegistry creates a new Registry.
func NewRegistry(repo db.MaterialColorRepository) *Registry {
	return &Registry{repo: repo}
}

// EnsureSeeded populates the registry from the default material list, with
// palette colors assigned cyclically. It only runs against a completely
// empty registry, so calling it again is a no-op and never duplicates
// entries.
func (r *Registry) EnsureSeeded() error {
	count, err := r.repo.CountMaterialColors()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to count material colors", err)
	}
	if count > 0 {
		return nil
	}
	now := time.Now().Unix()
	for i, material := range DefaultMaterials {
		mc := &models.MaterialColor{
			ID:        models.UUID(uuid.New()),
			Material:  material,
			ColorHex:  DefaultPalette[i%len(DefaultPalette)],
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.repo.CreateMaterialColor(mc); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to seed material color", err)
		}
	}
	return nil
}

// ColorFor returns the color bound to a material, matching the name
// case-insensitively. An unseen material gets a color allocated and
// persisted before returning, so this "read" can perform a "write" on first
// use of a material.
func (r *Registry) ColorFor(material string) (string, error) {
	existing, err := r.repo.GetMaterialColorByName(material)
	if err == nil {
		return existing.ColorHex, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.Wrap(apperrors.ErrDatabase, "failed to look up material color", err)
	}

	hex, err := r.allocate(material)
	if err != nil {
		return "", err
	}
	now := time.Now().Unix()
	mc := &models.MaterialColor{
		ID:        models.UUID(uuid.New()),
		Material:  material,
		ColorHex:  hex,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.CreateMaterialColor(mc); err != nil {
		return "", apperrors.Wrap(apperrors.ErrWriteFailed, "failed to persist material color", err)
	}
	return hex, nil
}

// allocate picks the first palette color not already in use. With the whole
// palette taken, it falls back to hashing the lowercased material name into
// the palette; pseudo-random but stable for a given name.
func (r *Registry) allocate(material string) (string, error) {
	colors, err := r.repo.ListMaterialColors()
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrDatabase, "failed to list material colors", err)
	}
	used := make(map[string]bool, len(colors))
	for _, mc := range colors {
		used[mc.ColorHex] = true
	}
	for _, hex := range DefaultPalette {
		if !used[hex] {
			return hex, nil
		}
	}
	h := fnv.New32a()
	h.Write([]byte(strings.ToLower(material)))
	return DefaultPalette[h.Sum32()%uint32(len(DefaultPalette))], nil
}

// SetColor manually overrides (or creates) a material's color binding.
// Automatic assignment never changes an existing binding; this is the only
// way a bound color changes.
func (r *Registry) SetColor(material, hex string) error {
	hex = ledger.NormalizeHex(hex)
	existing, err := r.repo.GetMaterialColorByName(material)
	if err == nil {
		existing.ColorHex = hex
		if err := r.repo.UpdateMaterialColor(existing); err != nil {
			return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to update material color", err)
		}
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to look up material color", err)
	}
	now := time.Now().Unix()
	mc := &models.MaterialColor{
		ID:        models.UUID(uuid.New()),
		Material:  material,
		ColorHex:  hex,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.repo.CreateMaterialColor(mc); err != nil {
		return apperrors.Wrap(apperrors.ErrWriteFailed, "failed to persist material color", err)
	}
	return nil
}
