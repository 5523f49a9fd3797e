package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tzuhan/filatrack/backend/internal/export"
)

var importPolicy string

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Export the full inventory to a portable JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.close()

		result, err := svc.export.ExportToFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("exported %d spools, %d usage records to %s (%d bytes, sha256 %s)\n",
			result.SpoolCount, result.UsageCount, result.FilePath, result.SizeBytes, result.Checksum)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Reconcile a previously exported document against the inventory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.close()

		result, err := svc.export.ImportFromFile(args[0], export.Policy(importPolicy))
		if result != nil {
			fmt.Printf("committed %d/%d entities: %d spools created, %d skipped, %d usage records, %d colors created, %d skipped\n",
				result.Committed, result.Total,
				result.SpoolsCreated, result.SpoolsSkipped, result.UsageCreated,
				result.ColorsCreated, result.ColorsSkipped)
		}
		return err
	},
}

func init() {
	importCmd.Flags().StringVarP(&importPolicy, "policy", "p", string(export.PolicyMerge),
		"reconciliation policy (merge or replace)")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
