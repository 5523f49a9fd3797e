package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tzuhan/filatrack/backend/internal/db"
	"github.com/tzuhan/filatrack/backend/internal/export"
	"github.com/tzuhan/filatrack/backend/internal/logging"
	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/palette"
	"github.com/tzuhan/filatrack/backend/internal/usage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// services bundles the engine components behind one open call.
type services struct {
	db       *db.DB
	repo     *db.Repository
	recorder *usage.Recorder
	registry *palette.Registry
	export   *export.Service
}

func (s *services) close() {
	if s.repo != nil {
		s.repo.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

var rootCmd = &cobra.Command{
	Use:           "filatrack",
	Short:         "3D-printing filament inventory ledger",
	Long:          "FilaTrack tracks filament spools, records consumption, and reconciles portable inventory snapshots.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(os.Stderr, logging.LogLevel(strings.ToUpper(viper.GetString("log_level"))))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("data-dir", defaultDataDir(), "directory holding the database")
	rootCmd.PersistentFlags().String("log-level", "WARN", "log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().String("recognition-url", "", "label recognition service base URL")
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("recognition_url", rootCmd.PersistentFlags().Lookup("recognition-url"))
}

// initConfig loads an optional config file and the FILATRACK_* environment.
func initConfig() {
	viper.SetConfigName("filatrack")
	viper.SetConfigType("yaml")
	if home, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, "filatrack"))
	}
	viper.AddConfigPath(".")
	viper.SetEnvPrefix("FILATRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// Missing config file is fine; flags and env cover everything.
	_ = viper.ReadInConfig()
}

func defaultDataDir() string {
	if home, err := os.UserConfigDir(); err == nil {
		return filepath.Join(home, "filatrack")
	}
	return "."
}

// openServices opens the database, applies pending migrations, and wires the
// engine. The caller owns the returned close.
func openServices() (*services, error) {
	dataDir := viper.GetString("data_dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	database, err := db.Open(dataDir)
	if err != nil {
		return nil, err
	}
	migrator := db.NewMigrator(database.DB)
	if err := migrator.Initialize(); err != nil {
		database.Close()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		database.Close()
		return nil, err
	}
	repo := db.NewRepository(database.DB)
	registry := palette.NewRegistry(repo)
	if err := registry.EnsureSeeded(); err != nil {
		repo.Close()
		database.Close()
		return nil, err
	}
	return &services{
		db:       database,
		repo:     repo,
		recorder: usage.NewRecorder(repo),
		registry: registry,
		export:   export.NewService(repo),
	}, nil
}

// loadSettings returns stored settings, falling back to the defaults.
func loadSettings(svc *services) models.Settings {
	st, err := svc.repo.GetSettings()
	if err != nil {
		return models.DefaultSettings()
	}
	return *st
}
