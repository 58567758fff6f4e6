package extract

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"vpass/internal/ocr"
)

// Odometer candidate sources.
const (
	SourceFullText      = "text"
	SourceConfidentLine = "line"
	SourceDigitGroup    = "digit-group"
)

// OdometerCandidate is one provisional reading in kilometers.
type OdometerCandidate struct {
	KM         int64   `json:"value"`
	Raw        string  `json:"raw"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"` // OCR-reported, 0-100
	Source     string  `json:"source"`
}

// OdometerResult is the envelope returned to callers. KM is nil when
// nothing cleared the plausibility filters, which is an expected outcome
// for poor dashboard photographs, not an error.
type OdometerResult struct {
	KM         *int64              `json:"km"`
	Unit       string              `json:"unit"`
	Candidates []OdometerCandidate `json:"candidates"`
	Confidence float64             `json:"confidence"`
}

// OdometerConfig parameterizes bounds and scoring. Defaults target a used
// vehicle auction population; see DefaultOdometerConfig.
type OdometerConfig struct {
	// Hard plausibility bounds in km. Values outside are rejected, not
	// merely penalized.
	MinKM int64
	MaxKM int64

	// Lines below this OCR confidence are ignored by the per-line strategy.
	LineConfidenceMin float64

	// Scoring terms. Additive, relative ranking only.
	DigitCountBonus float64 // digit count in the typical 4-6 range
	KeywordBonus    float64 // odometer keyword on same or adjacent line
	SeparatorBonus  float64 // thousand-separator formatting
	TripPenalty     float64 // "TRIP" nearby
	ColonPenalty    float64 // colon-containing raw text

	// MilesToKM is the conversion factor applied when the match context
	// names a miles unit.
	MilesToKM float64
}

// DefaultOdometerConfig returns the authoritative bounds and weights.
// Minimum 5,000 km suppresses trip counters and clock look-alikes;
// maximum 2,000,000 km admits high-mileage commercial vehicles.
func DefaultOdometerConfig() OdometerConfig {
	return OdometerConfig{
		MinKM:             5000,
		MaxKM:             2000000,
		LineConfidenceMin: 60,
		DigitCountBonus:   3,
		KeywordBonus:      4,
		SeparatorBonus:    1,
		TripPenalty:       4,
		ColonPenalty:      8,
		MilesToKM:         1.60934,
	}
}

var (
	// Grouped or plain digit runs: "238,574", "238.574", "238 574", "98432".
	odoNumber = regexp.MustCompile(`\d{1,3}(?:[.,\x{00A0} ]\d{3})+|\d{4,7}`)

	// Clock-shaped readings are rejected outright regardless of value.
	clockShape = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

	// Lines matching a speed context are excluded entirely: a speedometer
	// reading is the classic odometer false positive.
	speedContext = regexp.MustCompile(`(?i)km/h|kph|mph|\bspeed\b`)

	odoKeyword  = regexp.MustCompile(`(?i)\bODO(?:METER)?\b|\bMILEAGE\b|\bTOTAL\b|\bKM\b`)
	tripKeyword = regexp.MustCompile(`(?i)\bTRIP\b`)
	milesUnit   = regexp.MustCompile(`(?i)\bmi\b|\bmiles?\b`)

	nonDigit = regexp.MustCompile(`\D`)
)

// OdometerCandidatesFromText scans concatenated document text. Each line is
// its own match context; adjacent lines contribute keyword signals. Pure.
func OdometerCandidatesFromText(text string, cfg OdometerConfig) []OdometerCandidate {
	lines := strings.Split(text, "\n")
	var cands []OdometerCandidate
	for i, line := range lines {
		cands = append(cands, odometerCandidatesFromLine(line, adjacentContext(lines, i), 0, SourceFullText, cfg)...)
	}
	return dedupeOdometerCandidates(cands)
}

// OdometerCandidatesFromLines scans OCR lines above the confidence
// threshold, carrying each line's OCR confidence into its candidates. Pure.
func OdometerCandidatesFromLines(lines []ocr.Line, cfg OdometerConfig) []OdometerCandidate {
	texts := make([]string, len(lines))
	for i, l := range lines {
		texts[i] = l.Text
	}

	var cands []OdometerCandidate
	for i, line := range lines {
		if line.Confidence < cfg.LineConfidenceMin {
			continue
		}
		cands = append(cands, odometerCandidatesFromLine(line.Text, adjacentContext(texts, i), line.Confidence, SourceConfidentLine, cfg)...)
	}
	return dedupeOdometerCandidates(cands)
}

// OdometerCandidatesFromWords reassembles sequences of short digit tokens
// OCR'd as separate words on the same visual row into one reading. Handles
// segmented LCD displays where each digit group is its own token. Pure.
func OdometerCandidatesFromWords(words []ocr.Word, cfg OdometerConfig) []OdometerCandidate {
	rows := groupWordsByRow(words)
	var cands []OdometerCandidate

	for _, row := range rows {
		var digits strings.Builder
		var confSum float64
		var confN int
		var raws []string

		flush := func() {
			if digits.Len() == 0 {
				return
			}
			raw := strings.Join(raws, " ")
			var conf float64
			if confN > 0 {
				conf = confSum / float64(confN)
			}
			if c, ok := buildOdometerCandidate(digits.String(), raw, raw, conf, SourceDigitGroup, cfg); ok {
				cands = append(cands, c)
			}
			digits.Reset()
			confSum, confN = 0, 0
			raws = nil
		}

		for _, w := range row {
			t := strings.TrimSpace(w.Text)
			if len(t) >= 1 && len(t) <= 3 && isAllDigits(t) {
				digits.WriteString(t)
				raws = append(raws, t)
				confSum += w.Confidence
				confN++
				continue
			}
			flush()
		}
		flush()
	}

	return dedupeOdometerCandidates(cands)
}

// odometerCandidatesFromLine extracts candidates from one text line with
// its surrounding keyword context.
func odometerCandidatesFromLine(line, context string, confidence float64, source string, cfg OdometerConfig) []OdometerCandidate {
	if speedContext.MatchString(line) {
		return nil
	}

	var cands []OdometerCandidate
	for _, raw := range odoNumber.FindAllString(line, -1) {
		if c, ok := buildOdometerCandidate(nonDigit.ReplaceAllString(raw, ""), raw, line+"\n"+context, confidence, source, cfg); ok {
			cands = append(cands, c)
		}
	}
	return cands
}

// buildOdometerCandidate normalizes, applies the hard plausibility filters
// and computes the heuristic score. Returns false when the value is
// rejected outright.
func buildOdometerCandidate(digitStr, raw, context string, confidence float64, source string, cfg OdometerConfig) (OdometerCandidate, bool) {
	if clockShape.MatchString(strings.TrimSpace(raw)) {
		return OdometerCandidate{}, false
	}

	value, err := strconv.ParseInt(digitStr, 10, 64)
	if err != nil || value < 10 {
		return OdometerCandidate{}, false
	}

	if milesUnit.MatchString(context) {
		value = int64(math.Round(float64(value) * cfg.MilesToKM))
	}

	if value < cfg.MinKM || value > cfg.MaxKM {
		return OdometerCandidate{}, false
	}

	score := 0.0
	digits := len(digitStr)
	if digits >= 4 && digits <= 6 {
		score += cfg.DigitCountBonus
	}
	if odoKeyword.MatchString(context) {
		score += cfg.KeywordBonus
	}
	if strings.ContainsAny(raw, ".,  ") {
		score += cfg.SeparatorBonus
	}
	if tripKeyword.MatchString(context) {
		score -= cfg.TripPenalty
	}
	if strings.Contains(raw, ":") {
		score -= cfg.ColonPenalty
	}

	return OdometerCandidate{
		KM:         value,
		Raw:        raw,
		Score:      score,
		Confidence: confidence,
		Source:     source,
	}, true
}

// PickBestOdometer selects the highest-scoring candidate; ties go to the
// larger value (larger plausible readings are statistically more likely to
// be the genuine odometer in dashboard photographs).
func PickBestOdometer(cands []OdometerCandidate) *OdometerCandidate {
	if len(cands) == 0 {
		return nil
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score || (c.Score == best.Score && c.KM > best.KM) {
			best = c
		}
	}
	return &best
}

// dedupeOdometerCandidates collapses candidates with the same final value
// to the highest-scoring one.
func dedupeOdometerCandidates(cands []OdometerCandidate) []OdometerCandidate {
	seen := make(map[int64]int, len(cands))
	var out []OdometerCandidate
	for _, c := range cands {
		if idx, ok := seen[c.KM]; ok {
			if c.Score > out[idx].Score {
				out[idx] = c
			}
			continue
		}
		seen[c.KM] = len(out)
		out = append(out, c)
	}
	return out
}

// buildOdometerResult assembles the caller-facing envelope. Confidence
// blends the winner's OCR confidence with its heuristic score, weighted
// 70/30, reported as a fraction.
func buildOdometerResult(cands []OdometerCandidate, best *OdometerCandidate, cfg OdometerConfig) OdometerResult {
	ranked := make([]OdometerCandidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].KM > ranked[j].KM
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}

	result := OdometerResult{Unit: "km", Candidates: ranked}
	if best == nil {
		return result
	}

	maxScore := cfg.DigitCountBonus + cfg.KeywordBonus + cfg.SeparatorBonus
	scoreFrac := 0.0
	if maxScore > 0 {
		scoreFrac = clamp01(best.Score / maxScore)
	}
	result.KM = &best.KM
	result.Confidence = clamp01(0.7*(best.Confidence/100) + 0.3*scoreFrac)
	return result
}

// groupWordsByRow buckets words whose bounding-box vertical centers are
// close enough to sit on one visual row, ordered left to right. Words
// without geometry form a single row in input order.
func groupWordsByRow(words []ocr.Word) [][]ocr.Word {
	const rowTolerance = 0.02

	var loose []ocr.Word
	var boxed []ocr.Word
	for _, w := range words {
		if w.BBox == nil {
			loose = append(loose, w)
		} else {
			boxed = append(boxed, w)
		}
	}

	sort.SliceStable(boxed, func(i, j int) bool {
		return boxed[i].BBox.CenterY() < boxed[j].BBox.CenterY()
	})

	var rows [][]ocr.Word
	for _, w := range boxed {
		placed := false
		for ri := range rows {
			anchor := rows[ri][0]
			if math.Abs(anchor.BBox.CenterY()-w.BBox.CenterY()) <= rowTolerance {
				rows[ri] = append(rows[ri], w)
				placed = true
				break
			}
		}
		if !placed {
			rows = append(rows, []ocr.Word{w})
		}
	}
	for ri := range rows {
		sort.SliceStable(rows[ri], func(i, j int) bool {
			return rows[ri][i].BBox.Left < rows[ri][j].BBox.Left
		})
	}

	if len(loose) > 0 {
		rows = append(rows, loose)
	}
	return rows
}

// adjacentContext joins the lines directly above and below index i, used
// for keyword proximity signals.
func adjacentContext(lines []string, i int) string {
	var parts []string
	if i > 0 {
		parts = append(parts, lines[i-1])
	}
	if i+1 < len(lines) {
		parts = append(parts, lines[i+1])
	}
	return strings.Join(parts, "\n")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
