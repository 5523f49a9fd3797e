// Command core is the desktop/ops entry point for FilaTrack. It drives the
// same engine the mobile bridge does: inventory listing, usage recording,
// and export/import reconciliation against a local database.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
