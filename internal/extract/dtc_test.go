package extract

import (
	"testing"

	"vpass/pkg/models"
)

func TestClassifyDTCNegation(t *testing.T) {
	texts := []string{
		"Engine check: no fault codes",
		"Diagnostics performed. No stored DTCs.",
		"No active error messages reported by the ECU.",
		"no trouble codes found",
	}
	for _, text := range texts {
		report := ClassifyDTC(text)
		if report.Status != models.DtcGreen {
			t.Fatalf("ClassifyDTC(%q).Status = %q, want green", text, report.Status)
		}
		if len(report.Codes) != 0 {
			t.Fatalf("ClassifyDTC(%q) returned codes %v, want none", text, report.Codes)
		}
	}
}

func TestClassifyDTCNegationShortCircuits(t *testing.T) {
	// A confirmed-clean statement wins even when a code-shaped token appears
	// elsewhere in the same report (e.g. in a part number).
	text := "No fault codes stored. Replaced part P0A80 during service."

	report := ClassifyDTC(text)
	if report.Status != models.DtcGreen {
		t.Fatalf("status = %q, want green despite code-shaped token", report.Status)
	}
}

func TestClassifyDTCRed(t *testing.T) {
	text := "MIL ON. Stored DTCs: U0100 P0700"

	report := ClassifyDTC(text)
	if report.Status != models.DtcRed {
		t.Fatalf("status = %q, want red", report.Status)
	}
	if len(report.Codes) != 2 {
		t.Fatalf("codes = %v, want U0100 and P0700", report.Codes)
	}
	if report.Codes[0].Code != "U0100" || report.Codes[1].Code != "P0700" {
		t.Fatalf("codes = %v, want [U0100 P0700]", report.Codes)
	}
}

func TestClassifyDTCAmber(t *testing.T) {
	// Codes without a severity marker are pending, not confirmed.
	text := "Pending: P0420 catalyst efficiency below threshold"

	report := ClassifyDTC(text)
	if report.Status != models.DtcAmber {
		t.Fatalf("status = %q, want amber", report.Status)
	}
	if len(report.Codes) != 1 || report.Codes[0].Code != "P0420" {
		t.Fatalf("codes = %v, want [P0420]", report.Codes)
	}
}

func TestClassifyDTCSectionPresentButEmpty(t *testing.T) {
	// The topic is addressed and explicitly empty: green, not n/a.
	text := "DIAGNOSTIC TROUBLE CODES: none recorded"

	report := ClassifyDTC(text)
	if report.Status != models.DtcGreen {
		t.Fatalf("status = %q, want green", report.Status)
	}
}

func TestClassifyDTCNotAddressed(t *testing.T) {
	// A report silent on the topic must be n/a, never green.
	text := "Bodywork inspected. Minor scratches on rear bumper."

	report := ClassifyDTC(text)
	if report.Status != models.DtcNA {
		t.Fatalf("status = %q, want n/a", report.Status)
	}
}

func TestClassifyDTCDeduplicatesCodes(t *testing.T) {
	text := "Codes: P0300 P0300 P0301"

	report := ClassifyDTC(text)
	if len(report.Codes) != 2 {
		t.Fatalf("codes = %v, want 2 distinct codes", report.Codes)
	}
}

func TestClassifyDTCHexCodes(t *testing.T) {
	// OEM codes with hex digits past position one.
	report := ClassifyDTC("Faults: P0A1F present")
	if report.Status != models.DtcRed {
		t.Fatalf("status = %q, want red", report.Status)
	}
	if len(report.Codes) != 1 || report.Codes[0].Code != "P0A1F" {
		t.Fatalf("codes = %v, want [P0A1F]", report.Codes)
	}
}
