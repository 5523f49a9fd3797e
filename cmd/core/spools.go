package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tzuhan/filatrack/backend/internal/ledger"
	"github.com/tzuhan/filatrack/backend/internal/models"
)

var (
	spoolsAll      bool
	spoolsMaterial string
)

var spoolsCmd = &cobra.Command{
	Use:   "spools",
	Short: "List spools with remaining stock",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices()
		if err != nil {
			return err
		}
		defer svc.close()

		var spools []*models.Spool
		if spoolsMaterial != "" {
			spools, err = svc.repo.ListSpoolsByMaterial(spoolsMaterial)
		} else {
			spools, err = svc.repo.ListSpools(spoolsAll)
		}
		if err != nil {
			return err
		}
		settings := loadSettings(svc)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tBRAND\tMATERIAL\tCOLOR\tREMAINING\tPERCENT\tSTATE")
		for _, s := range spools {
			state := "active"
			if s.Archived {
				state = "archived"
			} else if ledger.IsLowStock(*s, settings) {
				state = "low"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fg\t%.1f%%\t%s\n",
				s.ID, s.Brand, s.Material, s.ColorName,
				s.RemainingMassG, ledger.RemainingPercent(*s), state)
		}
		return w.Flush()
	},
}

func init() {
	spoolsCmd.Flags().BoolVarP(&spoolsAll, "all", "a", false, "include archived spools")
	spoolsCmd.Flags().StringVarP(&spoolsMaterial, "material", "m", "",
		"only spools of this material (case-insensitive, archived included)")
	rootCmd.AddCommand(spoolsCmd)
}
