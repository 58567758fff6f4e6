package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vpass/internal/config"
	"vpass/internal/extract"
	"vpass/internal/logger"
	"vpass/internal/ocr"
	"vpass/internal/passport"
	"vpass/internal/store"
	"vpass/pkg/models"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "OCR inspection documents and store passport drafts",
	Long: `Run the full ingestion pipeline over one or more inspection documents
(PDF, JPEG or PNG): recognize the text via the configured OCR backend,
extract the passport fields, assemble a draft per vehicle and store it in
the passport database.

Files are processed concurrently; OCR calls for different documents are
independent. A draft that already exists for the extracted VIN is merged:
newly extracted fields overwrite their counterparts, everything else is
kept. A VIN that is already bound to a different auction lot is rejected.

The OCR backend is selected with OCR_BACKEND (vision or documentai); the
database path with PASSPORT_STORE_PATH.`,
	Example: `  # Ingest a single inspection report
  vpass ingest report.pdf --lot LOT-2031

  # Ingest a whole capture session concurrently
  vpass ingest photos/*.jpg --lot LOT-2031 --site "Hamburg Nord"

  # Dashboard photo only, limit concurrency
  vpass ingest dash.jpg --lot LOT-2031 --parallel 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("lot", "", "Auction lot identifier (generated when empty)")
	ingestCmd.Flags().String("site", "", "Capture site recorded in provenance")
	ingestCmd.Flags().String("captured-by", "", "Operator recorded in provenance")
	ingestCmd.Flags().Int("parallel", 4, "Maximum documents processed concurrently")
	ingestCmd.Flags().Int("timeout", 300, "Overall timeout in seconds")
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ingest")

	lotID, _ := cmd.Flags().GetString("lot")
	site, _ := cmd.Flags().GetString("site")
	capturedBy, _ := cmd.Flags().GetString("captured-by")
	parallel, _ := cmd.Flags().GetInt("parallel")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	if parallel < 1 {
		parallel = 1
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received interrupt signal, canceling ingestion")
			cancel()
		case <-ctx.Done():
		}
	}()

	svc, err := newOCRService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR service")
		}
	}()

	db, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open passport store: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close passport store")
		}
	}()

	engineCfg := extract.DefaultConfig()
	engineCfg.Odometer.MinKM = cfg.OdometerMinKM
	engineCfg.Odometer.MaxKM = cfg.OdometerMaxKM
	engine := extract.NewEngine(engineCfg)

	log.Info().
		Int("files", len(args)).
		Int("parallel", parallel).
		Str("backend", cfg.OCRBackend).
		Str("lot_id", lotID).
		Msg("Starting ingestion")

	// OCR and extraction run concurrently; draft assembly and store writes
	// are serialized so merges for the same VIN cannot race.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, path := range args {
		g.Go(func() error {
			fields, err := processDocument(gctx, svc, engine, path, log)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			mu.Lock()
			defer mu.Unlock()
			return storeFields(gctx, db, fields, assembleOpts(lotID, site, capturedBy), log)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Ingestion failed")
		return err
	}

	log.Info().Int("files", len(args)).Msg("Ingestion completed")
	return nil
}

func assembleOpts(lotID, site, capturedBy string) passport.AssembleOptions {
	opts := passport.AssembleOptions{LotID: lotID}
	if site != "" || capturedBy != "" {
		opts.Provenance = &models.Provenance{
			CapturedBy: capturedBy,
			Site:       site,
		}
	}
	return opts
}

// processDocument OCRs one file and runs all field extractors over it.
func processDocument(ctx context.Context, svc ocr.Service, engine *extract.Engine, path string, log zerolog.Logger) (*extract.ReportFields, error) {
	mimeType, err := mimeTypeForFile(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	doc, err := svc.Process(ctx, f, mimeType)
	if err != nil {
		return nil, fmt.Errorf("ocr failed: %w", err)
	}

	log.Info().
		Str("file", filepath.Base(path)).
		Int("pages", doc.PageCount).
		Float64("confidence", doc.Confidence).
		Dur("duration", time.Since(start)).
		Msg("Document recognized")

	fields, err := engine.ReportFields(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	// Dashboard photos carry the reading in the word geometry, not in clean
	// report lines; pool the OCR-structure strategies in as well.
	if len(doc.Lines) > 0 || len(doc.Words) > 0 {
		if odo, err := engine.OdometerFromOCR(doc.Lines, doc.Words); err == nil && odo.KM != nil {
			if fields.Odometer.KM == nil || odo.Confidence > fields.Odometer.Confidence {
				fields.Odometer = odo
			}
		}
	}

	return fields, nil
}

// storeFields assembles (or merges into) the draft for the extracted VIN
// and persists it.
func storeFields(ctx context.Context, db store.Store, fields *extract.ReportFields, opts passport.AssembleOptions, log zerolog.Logger) error {
	if fields.VIN.VIN == "" {
		return fmt.Errorf("no VIN could be extracted")
	}

	existing, err := db.GetDraft(ctx, fields.VIN.VIN)
	var draft *models.PassportDraft
	switch {
	case err == nil:
		draft, err = passport.MergeDraft(existing, fields)
		if err != nil {
			return err
		}
	case errors.Is(err, store.ErrNotFound):
		draft, err = passport.AssembleDraft(fields, opts)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if err := db.PutDraft(ctx, draft); err != nil {
		return err
	}

	log.Info().
		Str("vin", draft.VIN).
		Str("lot_id", draft.LotID).
		Bool("vin_valid", fields.VIN.Valid).
		Msg("Passport draft stored")
	return nil
}

// newOCRService selects the backend configured via OCR_BACKEND.
func newOCRService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ocr.Service, error) {
	switch cfg.OCRBackend {
	case "documentai":
		svc, err := ocr.NewDocumentAIService(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Document AI service: %w", err)
		}
		log.Debug().Str("backend", "documentai").Msg("OCR service created")
		return svc, nil
	default:
		svc, err := ocr.NewGoogleVisionService(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Vision service: %w", err)
		}
		log.Debug().Str("backend", "vision").Msg("OCR service created")
		return svc, nil
	}
}

// mimeTypeForFile maps a file extension to the supported MIME types.
func mimeTypeForFile(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ocr.MimePDF, nil
	case ".jpg", ".jpeg":
		return ocr.MimeJPEG, nil
	case ".png":
		return ocr.MimePNG, nil
	default:
		return "", fmt.Errorf("unsupported file type %q: expected .pdf, .jpg or .png", filepath.Ext(path))
	}
}
