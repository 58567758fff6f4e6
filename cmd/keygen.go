package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vpass/internal/logger"
	"vpass/internal/passport"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen [output-prefix]",
	Short: "Generate an ECDSA P-256 sealing key pair",
	Long: `Generate a fresh ECDSA P-256 key pair for passport sealing and write
it as two PEM files: <prefix>.pem (private key, mode 0600) and
<prefix>.pub.pem (public key).

Point SEAL_SIGNING_KEY at the private file on the sealing side and
SEAL_VERIFY_KEY at the public file on the verifying side. The private
key never needs to leave the sealing host.`,
	Example: `  # Write keys/seal.pem and keys/seal.pub.pem
  vpass keygen keys/seal`,
	Args: cobra.ExactArgs(1),
	RunE: runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}

func runKeygen(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("keygen")

	prefix := args[0]
	privPath := prefix + ".pem"
	pubPath := prefix + ".pub.pem"

	for _, p := range []string{privPath, pubPath} {
		if _, err := os.Stat(p); err == nil {
			return fmt.Errorf("refusing to overwrite existing key file: %s", p)
		}
	}

	if dir := filepath.Dir(prefix); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create key directory: %w", err)
		}
	}

	priv, err := passport.GenerateKeyPair()
	if err != nil {
		log.Error().Err(err).Msg("Key generation failed")
		return fmt.Errorf("key generation failed: %w", err)
	}

	privPEM, err := passport.MarshalPrivateKeyPEM(priv)
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}
	pubPEM, err := passport.MarshalPublicKeyPEM(&priv.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to encode public key: %w", err)
	}

	if err := os.WriteFile(privPath, privPEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}

	log.Info().
		Str("private_key", privPath).
		Str("public_key", pubPath).
		Msg("Sealing key pair generated")

	fmt.Printf("Private key: %s\nPublic key:  %s\n", privPath, pubPath)
	return nil
}
