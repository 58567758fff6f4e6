package passport

import (
	"errors"
	"testing"

	"vpass/internal/extract"
	"vpass/pkg/models"
)

func reportFields(vin string, km int64) *extract.ReportFields {
	fields := &extract.ReportFields{
		VIN:      extract.VINResult{VIN: vin, Valid: true},
		Odometer: extract.OdometerResult{Unit: "km"},
		Tyres:    &models.TyreDepths{FL: 6.5, FR: 6, RL: 3.5, RR: 3},
		Dtc:      models.DtcReport{Status: models.DtcGreen, Codes: []models.DtcCode{}},
	}
	if km > 0 {
		fields.Odometer.KM = &km
	}
	return fields
}

func TestAssembleDraft(t *testing.T) {
	fields := reportFields("WAUZZZ8V5KA123456", 98432)

	draft, err := AssembleDraft(fields, AssembleOptions{
		LotID:      "LOT-2031",
		Provenance: &models.Provenance{Site: "Hamburg Nord", CapturedBy: "inspector-7"},
	})
	if err != nil {
		t.Fatalf("AssembleDraft: %v", err)
	}

	if draft.VIN != "WAUZZZ8V5KA123456" {
		t.Fatalf("VIN = %q", draft.VIN)
	}
	if draft.LotID != "LOT-2031" {
		t.Fatalf("LotID = %q", draft.LotID)
	}
	if draft.Odometer == nil || draft.Odometer.KM != 98432 {
		t.Fatalf("odometer = %+v", draft.Odometer)
	}
	if draft.TyresMM == nil || draft.TyresMM.FL != 6.5 {
		t.Fatalf("tyres = %+v", draft.TyresMM)
	}
	if draft.Dtc == nil || draft.Dtc.Status != models.DtcGreen {
		t.Fatalf("dtc = %+v", draft.Dtc)
	}
	if draft.Provenance.TS == "" {
		t.Fatal("provenance timestamp not filled")
	}

	// The assembled draft must pass the schema contract as-is.
	if err := ValidateDraft(draft); err != nil {
		t.Fatalf("assembled draft fails validation: %v", err)
	}
}

func TestAssembleDraftGeneratesLotID(t *testing.T) {
	draft, err := AssembleDraft(reportFields("WAUZZZ8V5KA123456", 0), AssembleOptions{})
	if err != nil {
		t.Fatalf("AssembleDraft: %v", err)
	}
	if draft.LotID == "" {
		t.Fatal("expected generated lot id")
	}
	if draft.Odometer != nil {
		t.Fatalf("odometer = %+v, want nil when no reading extracted", draft.Odometer)
	}
}

func TestAssembleDraftRequiresVIN(t *testing.T) {
	if _, err := AssembleDraft(reportFields("", 98432), AssembleOptions{}); !errors.Is(err, ErrNoVIN) {
		t.Fatalf("err = %v, want ErrNoVIN", err)
	}
	if _, err := AssembleDraft(nil, AssembleOptions{}); !errors.Is(err, ErrNoVIN) {
		t.Fatalf("err = %v, want ErrNoVIN", err)
	}
}

func TestMergeDraftOverwritesExtractedFields(t *testing.T) {
	existing, err := AssembleDraft(reportFields("WAUZZZ8V5KA123456", 98432), AssembleOptions{LotID: "LOT-1"})
	if err != nil {
		t.Fatalf("AssembleDraft: %v", err)
	}

	update := reportFields("WAUZZZ8V5KA123456", 99120)
	update.Tyres = nil

	merged, err := MergeDraft(existing, update)
	if err != nil {
		t.Fatalf("MergeDraft: %v", err)
	}
	if merged.Odometer.KM != 99120 {
		t.Fatalf("merged odometer = %d, want 99120", merged.Odometer.KM)
	}
	// Fields absent from the update keep their existing values.
	if merged.TyresMM == nil || merged.TyresMM.FL != 6.5 {
		t.Fatalf("merged tyres = %+v, want existing reading kept", merged.TyresMM)
	}
	if merged.LotID != "LOT-1" {
		t.Fatalf("merged lot = %q", merged.LotID)
	}

	// The original draft is untouched.
	if existing.Odometer.KM != 98432 {
		t.Fatalf("existing draft mutated: %+v", existing.Odometer)
	}
}

func TestMergeDraftRejectsVINMismatch(t *testing.T) {
	existing, err := AssembleDraft(reportFields("WAUZZZ8V5KA123456", 98432), AssembleOptions{LotID: "LOT-1"})
	if err != nil {
		t.Fatalf("AssembleDraft: %v", err)
	}

	_, err = MergeDraft(existing, reportFields("WDD2040082R088866", 50000))
	if !errors.Is(err, ErrVINMismatch) {
		t.Fatalf("err = %v, want ErrVINMismatch", err)
	}
}

func TestMergeDraftSilentDTCKeepsExisting(t *testing.T) {
	existing, err := AssembleDraft(reportFields("WAUZZZ8V5KA123456", 98432), AssembleOptions{LotID: "LOT-1"})
	if err != nil {
		t.Fatalf("AssembleDraft: %v", err)
	}

	update := reportFields("WAUZZZ8V5KA123456", 0)
	update.Dtc = models.DtcReport{Status: models.DtcNA, Codes: []models.DtcCode{}}

	merged, err := MergeDraft(existing, update)
	if err != nil {
		t.Fatalf("MergeDraft: %v", err)
	}
	if merged.Dtc.Status != models.DtcGreen {
		t.Fatalf("merged dtc = %q, want existing green kept over n/a", merged.Dtc.Status)
	}
}
