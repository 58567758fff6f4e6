package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vpass/internal/config"
	"vpass/internal/logger"
	"vpass/internal/passport"
	"vpass/internal/store"
	"vpass/pkg/models"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [vin-or-file]",
	Short: "Verify a sealed passport's integrity",
	Long: `Recompute the canonical hash of a sealed passport and check its
signature against the configured public key (SEAL_VERIFY_KEY, a
PEM-encoded ECDSA public key file).

The argument is a VIN looked up in the passport store, or a path to a
sealed passport JSON file when --file is set. The result lists every
failure reason; a record verifies only when there are none. Without a
configured public key the hash is still checked but the record is
reported unverifiable.

Exit status is 0 for a valid record and 1 otherwise, so the command can
gate automated pipelines.`,
	Example: `  # Verify a stored sealed passport
  export SEAL_VERIFY_KEY=keys/seal.pub.pem
  vpass verify WAUZZZ8V5KA123456

  # Verify an exported record
  vpass verify sealed.json --file`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool("file", false, "Treat the argument as a sealed passport JSON file")
	verifyCmd.Flags().Bool("json", false, "Output the verdict as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("verify")

	fromFile, _ := cmd.Flags().GetBool("file")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var verifier *passport.Verifier
	if cfg.VerifyKeyPath != "" {
		pub, err := passport.LoadPublicKey(cfg.VerifyKeyPath)
		if err != nil {
			log.Error().Err(err).Str("key", cfg.VerifyKeyPath).Msg("Failed to load verification key")
			return fmt.Errorf("failed to load verification key: %w", err)
		}
		verifier = passport.NewVerifier(pub)
	} else {
		log.Warn().Msg("No verification key configured, records will be reported unverifiable")
		verifier = passport.NewVerifier(nil)
	}

	sealed, err := loadSealed(args[0], fromFile, cfg.StorePath)
	if err != nil {
		return err
	}

	result, err := verifier.Verify(sealed)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := writeJSON(result, "", log); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Printf("VALID   %s (key %s, sealed %s)\n", sealed.VIN, sealed.Seal.KeyID, sealed.Seal.SealedTS)
	} else {
		fmt.Printf("INVALID %s: %s\n", sealed.VIN, strings.Join(result.Reasons, ", "))
	}

	if !result.Valid {
		os.Exit(1)
	}
	return nil
}

func loadSealed(arg string, fromFile bool, storePath string) (*models.PassportSealed, error) {
	if fromFile {
		data, err := os.ReadFile(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read sealed passport file: %w", err)
		}
		var sealed models.PassportSealed
		if err := json.Unmarshal(data, &sealed); err != nil {
			return nil, fmt.Errorf("failed to parse sealed passport: %w", err)
		}
		return &sealed, nil
	}

	db, err := store.NewSQLiteStore(storePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open passport store: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	vin := strings.ToUpper(strings.TrimSpace(arg))
	sealed, err := db.GetSealed(ctx, vin)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no sealed passport stored for VIN %s", vin)
		}
		return nil, err
	}
	return sealed, nil
}
