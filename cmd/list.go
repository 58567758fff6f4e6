package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vpass/internal/config"
	"vpass/internal/logger"
	"vpass/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored passports",
	Long: `List every VIN with a stored passport draft, marking which ones also
carry a current sealed record.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("list")

	cfg, err := config.Load()
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

	vins, err := db.ListVINs(ctx)
	if err != nil {
		return err
	}
	if len(vins) == 0 {
		fmt.Println("No passports stored.")
		return nil
	}

	for _, vin := range vins {
		state := "draft"
		if _, err := db.GetSealed(ctx, vin); err == nil {
			state = "sealed"
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		fmt.Printf("%s  %s\n", vin, state)
	}

	log.Debug().Int("count", len(vins)).Msg("Passports listed")
	return nil
}
