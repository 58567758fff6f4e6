package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vpass/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "vpass",
	Short: "vpass - vehicle passport extraction and sealing CLI",
	Long: `vpass builds tamper-evident vehicle passports from inspection
documents. It extracts VIN, odometer, tyre depth and fault-code fields
from OCR'd reports, assembles them into a passport draft, and seals the
draft with an ECDSA signature over its canonical hash.

Use 'vpass ingest' for the full OCR-to-draft pipeline, 'vpass extract'
to run the field extractors over already-recognized text, and
'vpass seal' / 'vpass verify' for the sealing workflow.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("vpass CLI executed")

		fmt.Println("Welcome to vpass!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
