package passport

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vpass/internal/extract"
	"vpass/pkg/models"
)

// Assembly errors.
var (
	ErrNoVIN       = errors.New("no VIN extracted")
	ErrVINMismatch = errors.New("VIN does not match existing passport")
)

// AssembleOptions carries the non-extracted inputs of a draft.
type AssembleOptions struct {
	// LotID identifies the auction lot. Generated when empty.
	LotID string

	// Provenance records capture context. Optional.
	Provenance *models.Provenance

	// Dekra describes the source inspection report. Optional.
	Dekra *models.Dekra
}

// AssembleDraft maps one report's extraction output into a passport draft.
// The VIN is mandatory: a report that yields no VIN cannot anchor a
// passport and the assembly fails rather than producing an orphan record.
func AssembleDraft(fields *extract.ReportFields, opts AssembleOptions) (*models.PassportDraft, error) {
	const op = "AssembleDraft"

	if fields == nil || fields.VIN.VIN == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrNoVIN)
	}

	lotID := opts.LotID
	if lotID == "" {
		lotID = uuid.New().String()
	}

	draft := &models.PassportDraft{
		VIN:        fields.VIN.VIN,
		LotID:      lotID,
		Dekra:      opts.Dekra,
		TyresMM:    fields.Tyres,
		Provenance: opts.Provenance,
	}

	if fields.Odometer.KM != nil {
		draft.Odometer = &models.Odometer{
			KM:     *fields.Odometer.KM,
			Source: "report",
		}
	}

	// The DTC classification is carried even when it is n/a: downstream
	// consumers must be able to distinguish "report silent on codes" from
	// "field never populated".
	dtc := fields.Dtc
	draft.Dtc = &dtc

	if draft.Provenance == nil {
		draft.Provenance = &models.Provenance{TS: time.Now().UTC().Format(time.RFC3339)}
	} else if draft.Provenance.TS == "" {
		draft.Provenance.TS = time.Now().UTC().Format(time.RFC3339)
	}

	return draft, nil
}

// MergeDraft folds freshly extracted fields into an existing draft for the
// same vehicle. The VIN is the identity anchor: a differing extracted VIN
// aborts the merge instead of silently relabeling the record. Extracted
// fields overwrite their counterparts only when present; absent fields
// leave the existing values untouched.
func MergeDraft(existing *models.PassportDraft, fields *extract.ReportFields) (*models.PassportDraft, error) {
	const op = "MergeDraft"

	if existing == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoVIN)
	}
	if fields != nil && fields.VIN.VIN != "" && fields.VIN.VIN != existing.VIN {
		return nil, fmt.Errorf("%s: extracted %s, passport holds %s: %w",
			op, fields.VIN.VIN, existing.VIN, ErrVINMismatch)
	}

	merged := *existing
	if fields == nil {
		return &merged, nil
	}

	if fields.Odometer.KM != nil {
		merged.Odometer = &models.Odometer{
			KM:     *fields.Odometer.KM,
			Source: "report",
		}
	}
	if fields.Tyres != nil {
		merged.TyresMM = fields.Tyres
	}
	if fields.Dtc.Status != models.DtcNA {
		dtc := fields.Dtc
		merged.Dtc = &dtc
	}

	return &merged, nil
}
