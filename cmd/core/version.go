package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the FilaTrack version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("filatrack", Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
