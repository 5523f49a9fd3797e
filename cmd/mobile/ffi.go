// Package main provides the FFI bridge for mobile platforms.
// Build as shared library: libfilatrack.so (Android) / filatrack.framework (iOS)
package main

/*
#cgo CFLAGS: -Wall -Wextra
#include <stdlib.h>
*/
import "C"
import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/tzuhan/filatrack/backend/internal/db"
	"github.com/tzuhan/filatrack/backend/internal/export"
	"github.com/tzuhan/filatrack/backend/internal/logging"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/palette"
	"github.com/tzuhan/filatrack/backend/internal/recognition"
	"github.com/tzuhan/filatrack/backend/internal/usage"
)

var (
	once       sync.Once
	database   *db.DB
	repo       *db.Repository
	recorder   *usage.Recorder
	registry   *palette.Registry
	reconciler *export.Service
	recognizer *recognition.Client

	lastMu  sync.RWMutex
	lastErr string
)

//export Init
// Init initializes the FilaTrack core against the app's data directory.
// Call GetLastError afterwards to check for failure.
func Init(dataDir *C.char) {
	once.Do(func() {
		var err error
		database, err = db.Open(C.GoString(dataDir))
		if err != nil {
			setLastError(fmt.Sprintf("Failed to open database: %v", err))
			return
		}

		migrator := db.NewMigrator(database.DB)
		if err := migrator.Initialize(); err != nil {
			setLastError(fmt.Sprintf("Failed to initialize migrator: %v", err))
			return
		}
		if err := migrator.Up(); err != nil {
			setLastError(fmt.Sprintf("Failed to apply migrations: %v", err))
			return
		}

		repo = db.NewRepository(database.DB)
		recorder = usage.NewRecorder(repo)
		registry = palette.NewRegistry(repo)
		reconciler = export.NewService(repo)

		if err := registry.EnsureSeeded(); err != nil {
			setLastError(fmt.Sprintf("Failed to seed material colors: %v", err))
			return
		}

		logging.Info("core initialized")
	})
}

//export SetRecognitionEndpoint
// SetRecognitionEndpoint configures the label-recognition service URL.
// Recognition stays disabled until this is called.
func SetRecognitionEndpoint(baseURL *C.char) {
	recognizer = recognition.NewClient(C.GoString(baseURL), recognition.DefaultTimeout)
}

//export Cleanup
// Cleanup releases database resources.
func Cleanup() {
	if repo != nil {
		repo.Close()
	}
	if database != nil {
		database.Close()
	}
}

//export GetLastError
// GetLastError returns the last error message.
// Returns a C string that must be freed by the caller.
func GetLastError() *C.char {
	lastMu.RLock()
	defer lastMu.RUnlock()

	return C.CString(lastErr)
}

//export FreeString
// FreeString frees a string previously returned across the boundary.
func FreeString(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

func setLastError(err string) {
	lastMu.Lock()
	defer lastMu.Unlock()
	lastErr = err
}

// jsonOut marshals v and hands it across the boundary. A marshal failure is
// reported through the last-error slot.
func jsonOut(v interface{}) *C.char {
	data, err := json.Marshal(v)
	if err != nil {
		setLastError(fmt.Sprintf("Failed to serialize: %v", err))
		return nil
	}
	return C.CString(string(data))
}

// currentSettings returns stored settings, falling back to defaults when the
// user has never saved any.
func currentSettings() models.Settings {
	st, err := repo.GetSettings()
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			logging.Warn("failed to load settings, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return models.DefaultSettings()
	}
	return *st
}

func main() {
	// Main function is required for c-shared build mode
	// but is not actually executed when used as shared library
}
