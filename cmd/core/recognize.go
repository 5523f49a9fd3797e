package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tzuhan/filatrack/backend/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Send a spool label photo to the recognition service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		baseURL := viper.GetString("recognition_url")
		if baseURL == "" {
			return fmt.Errorf("no recognition service configured, set --recognition-url or FILATRACK_RECOGNITION_URL")
		}
		image, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		client := recognition.NewClient(baseURL, recognition.DefaultTimeout)
		suggestion, err := client.Recognize(context.Background(), image, filepath.Base(args[0]))
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(suggestion, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
}
