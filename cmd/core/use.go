package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tzuhan/filatrack/backend/internal/models"
	"github.com/tzuhan/filatrack/backend/internal/usage"
)

var (
	useLabel    string
	useCategory string
)

var useCmd = &cobra.Command{
	Use:   "use <spool-id> <grams>",
	Short: "Record filament consumption against a spool",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		grams, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid mass %q: %w", args[1], err)
		}

		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.close()

		result := svc.recorder.RecordUsage([]usage.Entry{{
			SpoolID:  models.UUID(args[0]),
			MassG:    grams,
			Label:    useLabel,
			Category: models.UsageCategory(useCategory),
		}})
		er := result.Entries[0]
		if er.Err != nil {
			return er.Err
		}
		if er.Notice != "" {
			fmt.Printf("note: %s, recorded %.1fg\n", er.Notice, er.Record.MassG)
		}
		fmt.Printf("spool %s: %.1fg remaining", er.Spool.ID, er.Spool.RemainingMassG)
		if er.Spool.Archived {
			fmt.Print(" (archived)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	useCmd.Flags().StringVarP(&useLabel, "label", "l", "", "free-form label, e.g. the print job name")
	useCmd.Flags().StringVarP(&useCategory, "category", "c", string(models.CategoryPrint),
		"usage category (print, failed_print, calibration, adjustment)")
	rootCmd.AddCommand(useCmd)
}
