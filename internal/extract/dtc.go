package extract

import (
	"regexp"
	"strings"

	"vpass/pkg/models"
)

var (
	// Explicit negation: "no fault codes", "no active error messages",
	// "no stored DTCs". Checked first and short-circuits extraction, so a
	// stray code-shaped token in the same report cannot override a
	// confirmed-clean statement.
	dtcNegation = regexp.MustCompile(`(?i)\bno\s+(?:active\s+|stored\s+|current\s+|known\s+)?(?:fault|trouble|error|diagnostic)?\s*(?:trouble\s+)?(?:dtc|code|message)s?\b`)

	// Standard OBD-II code shape, generalized to hex digits to tolerate
	// OEM-specific variants.
	dtcCode = regexp.MustCompile(`\b[PCBU][0-9A-F]{4}\b`)

	// Section headers that mark the DTC topic as addressed even when no
	// code tokens are present.
	dtcSection = regexp.MustCompile(`DIAGNOSTIC TROUBLE CODES|DTC\(S\)|DTCS\b|\bDTC\b|FAULT CODES`)

	// Severity markers: any of these near code tokens means the codes are
	// confirmed active or stored, not merely pending.
	dtcActive = regexp.MustCompile(`MIL ON|CURRENT|ACTIVE|PRESENT|PERMANENT|STORED`)
)

// ClassifyDTC derives the fault-code status of an inspection report.
//
// The result is a three-way severity (green < amber < red) plus "n/a" for
// reports that never address the topic. "n/a" must never be conflated with
// green: a report that is silent about fault codes is a weaker signal than
// one that confirms their absence.
func ClassifyDTC(text string) models.DtcReport {
	if dtcNegation.MatchString(text) {
		return models.DtcReport{Status: models.DtcGreen, Codes: []models.DtcCode{}}
	}

	up := strings.ToUpper(text)

	var codes []models.DtcCode
	seen := make(map[string]bool)
	for _, code := range dtcCode.FindAllString(up, -1) {
		if seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, models.DtcCode{Code: code})
	}

	if len(codes) == 0 {
		if dtcSection.MatchString(up) {
			// Section present and explicitly empty.
			return models.DtcReport{Status: models.DtcGreen, Codes: []models.DtcCode{}}
		}
		return models.DtcReport{Status: models.DtcNA, Codes: []models.DtcCode{}}
	}

	status := models.DtcAmber
	if dtcActive.MatchString(up) {
		status = models.DtcRed
	}
	return models.DtcReport{Status: status, Codes: codes}
}
