package passport

import (
	"strings"
	"testing"

	"vpass/pkg/models"
)

func TestValidateDraftAccepts(t *testing.T) {
	if err := ValidateDraft(testDraft()); err != nil {
		t.Fatalf("ValidateDraft: %v", err)
	}
}

func TestValidateDraftMinimal(t *testing.T) {
	draft := &models.PassportDraft{VIN: "WAUZZZ8V5KA123456", LotID: "LOT-1"}
	if err := ValidateDraft(draft); err != nil {
		t.Fatalf("ValidateDraft on minimal draft: %v", err)
	}
}

func TestValidateDraftRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.PassportDraft)
		want   string // substring expected among the violations
	}{
		{
			"vin too short",
			func(d *models.PassportDraft) { d.VIN = "WAUZZZ8V5KA12345" },
			"/vin",
		},
		{
			"vin with excluded letter",
			func(d *models.PassportDraft) { d.VIN = "WAUZZZ8V5KA12345O" },
			"/vin",
		},
		{
			"empty lot id",
			func(d *models.PassportDraft) { d.LotID = "" },
			"/lot_id",
		},
		{
			"tyre depth above limit",
			func(d *models.PassportDraft) { d.TyresMM = &models.TyreDepths{FL: 21, FR: 6, RL: 6, RR: 6} },
			"/tyres_mm",
		},
		{
			"negative odometer",
			func(d *models.PassportDraft) { d.Odometer = &models.Odometer{KM: -1} },
			"/odometer",
		},
		{
			"malformed dtc code",
			func(d *models.PassportDraft) {
				d.Dtc = &models.DtcReport{Status: models.DtcRed, Codes: []models.DtcCode{{Code: "X9999"}}}
			},
			"/dtc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := testDraft()
			tt.mutate(draft)

			err := ValidateDraft(draft)
			if err == nil {
				t.Fatal("expected validation failure")
			}
			ve, ok := IsValidationError(err)
			if !ok {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			joined := strings.Join(ve.Violations, "\n")
			if !strings.Contains(joined, tt.want) {
				t.Fatalf("violations %v do not mention %s", ve.Violations, tt.want)
			}
		})
	}
}
