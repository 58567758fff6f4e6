package extract

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vpass/internal/logger"
	"vpass/internal/ocr"
	"vpass/pkg/models"
)

// Config bundles the per-domain heuristic parameters.
type Config struct {
	VIN      VINConfig
	Odometer OdometerConfig
}

// DefaultConfig returns the authoritative parameter set for all domains.
func DefaultConfig() Config {
	return Config{
		VIN:      DefaultVINConfig(),
		Odometer: DefaultOdometerConfig(),
	}
}

// Engine runs the field extraction heuristics. It holds no mutable state:
// every call takes immutable input and returns a fresh result, so calls for
// different documents may run fully in parallel.
type Engine struct {
	cfg     Config
	log     zerolog.Logger
	metrics Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics injects a metrics sink. Defaults to a no-op sink.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger overrides the component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// NewEngine creates an extraction engine.
func NewEngine(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		log:     logger.WithComponent("extract-engine"),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ReportFields is the combined extraction output for one inspection report.
type ReportFields struct {
	VIN      VINResult         `json:"vin"`
	Odometer OdometerResult    `json:"odometer"`
	Tyres    *models.TyreDepths `json:"tyres_mm,omitempty"`
	Dtc      models.DtcReport  `json:"dtc"`
}

// VINFromText extracts the best VIN from raw document text.
func (e *Engine) VINFromText(text string) (VINResult, error) {
	const op = "VINFromText"
	if strings.TrimSpace(text) == "" {
		return VINResult{}, WrapExtractError(op, ErrEmptyInput, "")
	}

	cands := VINCandidatesFromText(text, e.cfg.VIN)
	best := PickBestVIN(cands, DocGeneric)
	e.observeVIN(cands, best)
	return buildVINResult(cands, best), nil
}

// VINFromLines extracts the best VIN from OCR line structures. For the
// licence disc document type, checksum validity is a hard filter and lines
// in the lower-middle band get a positional bonus.
func (e *Engine) VINFromLines(lines []ocr.Line, doc DocType) (VINResult, error) {
	const op = "VINFromLines"
	if len(lines) == 0 {
		return VINResult{}, WrapExtractError(op, ErrEmptyInput, "")
	}

	cands := VINCandidatesFromLines(lines, doc, e.cfg.VIN)
	best := PickBestVIN(cands, doc)
	e.observeVIN(cands, best)
	return buildVINResult(cands, best), nil
}

// OdometerFromText extracts the best odometer reading from raw text.
func (e *Engine) OdometerFromText(text string) (OdometerResult, error) {
	const op = "OdometerFromText"
	if strings.TrimSpace(text) == "" {
		return OdometerResult{}, WrapExtractError(op, ErrEmptyInput, "")
	}

	cands := OdometerCandidatesFromText(text, e.cfg.Odometer)
	best := PickBestOdometer(cands)
	e.observeOdometer(cands, best)
	return buildOdometerResult(cands, best, e.cfg.Odometer), nil
}

// OdometerFromOCR pools all three generation strategies over a dashboard
// photograph's OCR output: full-text scan, confident-line scan, and
// digit-group reassembly from word tokens.
func (e *Engine) OdometerFromOCR(lines []ocr.Line, words []ocr.Word) (OdometerResult, error) {
	const op = "OdometerFromOCR"
	if len(lines) == 0 && len(words) == 0 {
		return OdometerResult{}, WrapExtractError(op, ErrEmptyInput, "")
	}

	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}

	var pool []OdometerCandidate
	pool = append(pool, OdometerCandidatesFromText(strings.Join(texts, "\n"), e.cfg.Odometer)...)
	pool = append(pool, OdometerCandidatesFromLines(lines, e.cfg.Odometer)...)
	pool = append(pool, OdometerCandidatesFromWords(words, e.cfg.Odometer)...)
	pool = dedupeOdometerCandidates(pool)

	best := PickBestOdometer(pool)
	e.observeOdometer(pool, best)
	return buildOdometerResult(pool, best, e.cfg.Odometer), nil
}

// ReportFields runs all extractors over one inspection report's text.
func (e *Engine) ReportFields(text string) (*ReportFields, error) {
	const op = "ReportFields"
	if strings.TrimSpace(text) == "" {
		return nil, WrapExtractError(op, ErrEmptyInput, "")
	}
	start := time.Now()

	vin, err := e.VINFromText(text)
	if err != nil {
		return nil, err
	}
	odo, err := e.OdometerFromText(text)
	if err != nil {
		return nil, err
	}
	dtc := ClassifyDTC(text)
	tyres := ExtractTyreDepths(text)

	e.metrics.Count(MetricDtcCodes, len(dtc.Codes))
	e.metrics.Observe(MetricExtractSeconds, time.Since(start).Seconds())

	e.log.Debug().
		Str("vin", vin.VIN).
		Bool("vin_valid", vin.Valid).
		Str("dtc_status", string(dtc.Status)).
		Bool("tyres_found", tyres != nil).
		Msg("Report field extraction completed")

	return &ReportFields{
		VIN:      vin,
		Odometer: odo,
		Tyres:    tyres,
		Dtc:      dtc,
	}, nil
}

func (e *Engine) observeVIN(cands []VINCandidate, best *VINCandidate) {
	e.metrics.Count(MetricVINCandidates, len(cands))
	valid := 0
	for _, c := range cands {
		if c.ChecksumOK {
			valid++
		}
	}
	e.metrics.Count(MetricVINChecksumValid, valid)

	if best != nil {
		e.log.Debug().
			Str("vin", best.VIN).
			Str("source", best.Source).
			Float64("score", best.Score).
			Bool("checksum_ok", best.ChecksumOK).
			Int("candidates", len(cands)).
			Msg("VIN selected")
	}
}

func (e *Engine) observeOdometer(cands []OdometerCandidate, best *OdometerCandidate) {
	e.metrics.Count(MetricOdoCandidates, len(cands))
	if best != nil {
		e.log.Debug().
			Int64("km", best.KM).
			Str("source", best.Source).
			Float64("score", best.Score).
			Int("candidates", len(cands)).
			Msg("Odometer reading selected")
	}
}
