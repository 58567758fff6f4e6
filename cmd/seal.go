package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vpass/internal/config"
	"vpass/internal/logger"
	"vpass/internal/passport"
	"vpass/internal/store"
)

var sealCmd = &cobra.Command{
	Use:   "seal [vin]",
	Short: "Seal the stored passport draft for a VIN",
	Long: `Validate the stored draft for the given VIN, canonicalize it, hash and
sign the canonical bytes, and store the resulting sealed passport.

Sealing requires a PEM-encoded ECDSA P-256 private key, configured via
SEAL_SIGNING_KEY (file path) and identified by SEAL_KEY_ID. A draft that
fails schema validation is never sealed; the violations are reported
instead.

Rewriting the draft after sealing invalidates the stored sealed record;
run seal again to produce a fresh one.`,
	Example: `  # Seal a vehicle's draft
  export SEAL_SIGNING_KEY=keys/seal.pem
  export SEAL_KEY_ID=auction-2026
  vpass seal WAUZZZ8V5KA123456

  # Print the sealed record instead of only storing it
  vpass seal WAUZZZ8V5KA123456 --print`,
	Args: cobra.ExactArgs(1),
	RunE: runSeal,
}

func init() {
	rootCmd.AddCommand(sealCmd)

	sealCmd.Flags().Bool("print", false, "Print the sealed passport as JSON")
	sealCmd.Flags().StringP("output", "o", "", "Output file path (implies --print)")
}

func runSeal(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("seal")

	printSealed, _ := cmd.Flags().GetBool("print")
	outputPath, _ := cmd.Flags().GetString("output")
	vin := strings.ToUpper(strings.TrimSpace(args[0]))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.SigningKeyPath == "" {
		return fmt.Errorf("no signing key configured: set SEAL_SIGNING_KEY to a PEM-encoded ECDSA private key file")
	}

	priv, err := passport.LoadPrivateKey(cfg.SigningKeyPath)
	if err != nil {
		log.Error().Err(err).Str("key", cfg.SigningKeyPath).Msg("Failed to load signing key")
		return fmt.Errorf("failed to load signing key: %w", err)
	}

	sealer, err := passport.NewSealer(priv, cfg.SigningKeyID)
	if err != nil {
		return err
	}

	db, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open passport store: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	draft, err := db.GetDraft(ctx, vin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no draft stored for VIN %s: run 'vpass ingest' first", vin)
		}
		return err
	}

	sealed, err := sealer.Seal(draft)
	if err != nil {
		var verr *passport.ValidationError
		if errors.As(err, &verr) {
			log.Error().
				Str("vin", vin).
				Strs("violations", verr.Violations).
				Msg("Draft failed validation, refusing to seal")
			return fmt.Errorf("draft is not sealable:\n  %s", strings.Join(verr.Violations, "\n  "))
		}
		return err
	}

	if err := db.PutSealed(ctx, sealed); err != nil {
		return err
	}

	log.Info().
		Str("vin", vin).
		Str("key_id", sealed.Seal.KeyID).
		Str("hash", sealed.Seal.Hash).
		Msg("Passport sealed and stored")

	if printSealed || outputPath != "" {
		return writeJSON(sealed, outputPath, log)
	}
	fmt.Printf("Sealed %s (hash %s)\n", vin, sealed.Seal.Hash)
	return nil
}
