package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"vpass/internal/extract"
	"vpass/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [text-file]",
	Short: "Run field extractors over recognized document text",
	Long: `Run the VIN, odometer, tyre-depth and fault-code extractors over a
plain text file containing already-recognized document content, and print
the extracted fields as JSON.

Each field is extracted by multiple competing strategies; every candidate
is scored and the winner is reported together with its confidence and the
runner-up candidates, so a reviewer can audit why a value was chosen.

Pass "-" to read the text from stdin.`,
	Example: `  # Extract all fields from a recognized inspection report
  vpass extract report.txt

  # Extract a single field
  vpass extract report.txt --field vin

  # Pipe text in
  cat report.txt | vpass extract -`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("field", "all", "Field to extract: vin, odometer, dtc, tyres or all")
	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	field, _ := cmd.Flags().GetString("field")
	outputPath, _ := cmd.Flags().GetString("output")

	text, err := readTextArg(args[0])
	if err != nil {
		log.Error().Err(err).Str("file", args[0]).Msg("Failed to read input text")
		return err
	}

	log.Info().
		Str("field", field).
		Int("text_length", len(text)).
		Msg("Starting field extraction")

	engine := extract.NewEngine(extract.DefaultConfig())

	var result any
	switch field {
	case "all":
		result, err = engine.ReportFields(text)
	case "vin":
		result, err = engine.VINFromText(text)
	case "odometer":
		result, err = engine.OdometerFromText(text)
	case "dtc":
		result = extract.ClassifyDTC(text)
	case "tyres":
		result = extract.ExtractTyreDepths(text)
	default:
		return fmt.Errorf("unknown field %q: expected vin, odometer, dtc, tyres or all", field)
	}
	if err != nil {
		log.Error().Err(err).Msg("Extraction failed")
		return fmt.Errorf("extraction failed: %w", err)
	}

	return writeJSON(result, outputPath, log)
}

func readTextArg(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("input file not found: %s", path)
		}
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}
