package extract

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"vpass/internal/ocr"
)

// DocType tells the VIN path which physical document the OCR output came
// from. The licence disc gets positional scoring and a hard checksum filter;
// the generic path keeps checksum-failing candidates as a last-resort tier.
type DocType int

const (
	DocGeneric DocType = iota
	DocLicenceDisc
)

// VIN candidate sources, in dedup priority order.
const (
	SourceKeyword       = "keyword"
	SourcePosition      = "position"
	SourcePattern       = "pattern"
	SourceLine          = "line"
	SourceReconstructed = "reconstructed"
)

// VINCandidate is one provisional VIN with its plausibility score.
type VINCandidate struct {
	VIN        string  `json:"vin"`
	Raw        string  `json:"raw"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"` // OCR-reported, 0-100; 0 when unavailable
	Source     string  `json:"source"`
	ChecksumOK bool    `json:"checksum_ok"`
}

// VINResult is the envelope returned to callers. Candidates surfaces the
// top five VIN strings for operator review.
type VINResult struct {
	VIN        string   `json:"vin"`
	Valid      bool     `json:"vinValid"`
	Candidates []string `json:"candidates"`
	Confidence float64  `json:"confidence"`
}

// VINConfig parameterizes the scoring heuristics. The constants are tuning
// knobs, not probabilities; only their relative order matters.
type VINConfig struct {
	KeywordScore       float64
	PatternScore       float64
	LineScore          float64
	ReconstructedScore float64
	ChecksumBonus      float64

	// Positional scoring for the licence disc: lines whose vertical center
	// falls inside [BandTop, BandBottom] get a bonus that decays with
	// distance from the optimal point.
	PositionBonusMax float64
	BandTop          float64
	BandBottom       float64
	OptimalX         float64
	OptimalY         float64
	DecayRadius      float64
}

// DefaultVINConfig returns the authoritative weight set. The disc band and
// optimal point are empirical: the VIN sits in the lower-middle region of
// the windshield disc.
func DefaultVINConfig() VINConfig {
	return VINConfig{
		KeywordScore:       10,
		PatternScore:       4,
		LineScore:          3,
		ReconstructedScore: 2,
		ChecksumBonus:      5,
		PositionBonusMax:   3,
		BandTop:            0.4,
		BandBottom:         0.8,
		OptimalX:           0.5,
		OptimalY:           0.65,
		DecayRadius:        0.5,
	}
}

var (
	// VIN alphabet excludes I, O, Q (visually ambiguous with 1 and 0).
	vinToken = regexp.MustCompile(`[A-HJ-NPR-Z0-9]{17}`)
	vinExact = regexp.MustCompile(`^[A-HJ-NPR-Z0-9]{17}$`)

	// Keyword anchors, including the OCR-error variant "VN". Captures
	// partials down to 11 characters so the fallback tiers have material
	// when the full VIN did not survive OCR.
	vinKeyword = regexp.MustCompile(`(?:VIN|VN|CHASSIS\s*(?:NO|NUMBER)?|VEHICLE\s*ID(?:ENTIFICATION)?(?:\s*(?:NO|NUMBER)?)?)\s*[:.#-]*\s*([A-HJ-NPR-Z0-9]{11,17})`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

// vinTranslit maps VIN letters to their ISO 3779 numeric values.
// Digits map to themselves.
var vinTranslit = map[byte]int{
	'A': 1, 'B': 2, 'C': 3, 'D': 4, 'E': 5, 'F': 6, 'G': 7, 'H': 8,
	'J': 1, 'K': 2, 'L': 3, 'M': 4, 'N': 5, 'P': 7, 'R': 9,
	'S': 2, 'T': 3, 'U': 4, 'V': 5, 'W': 6, 'X': 7, 'Y': 8, 'Z': 9,
}

// vinWeights are the ISO 3779 position weights. Position 9 (the check
// digit) carries weight 0.
var vinWeights = [17]int{8, 7, 6, 5, 4, 3, 2, 10, 0, 9, 8, 7, 6, 5, 4, 3, 2}

// ValidateVINChecksum reports whether the 17-character VIN satisfies the
// ISO 3779 mod-11 check digit at position 9 (10 maps to 'X').
func ValidateVINChecksum(vin string) bool {
	if !vinExact.MatchString(vin) {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		c := vin[i]
		var v int
		if c >= '0' && c <= '9' {
			v = int(c - '0')
		} else {
			v = vinTranslit[c]
		}
		sum += v * vinWeights[i]
	}
	rem := sum % 11
	check := byte('0' + rem)
	if rem == 10 {
		check = 'X'
	}
	return vin[8] == check
}

// VINCandidatesFromText generates candidates from raw document text using
// the keyword, bare-pattern, line-strip and cross-line strategies. Pure.
func VINCandidatesFromText(text string, cfg VINConfig) []VINCandidate {
	up := strings.ToUpper(text)
	var cands []VINCandidate

	// Strategy 1: keyword-anchored match.
	for _, m := range vinKeyword.FindAllStringSubmatch(up, -1) {
		cands = append(cands, newVINCandidate(m[1], m[0], cfg.KeywordScore, 0, SourceKeyword, cfg))
	}

	// Strategy 3: bare 17-character token anywhere. Tokens that look like a
	// glued-on "VN"/"CHASSIS" prefix and fail the checksum are OCR artifact
	// contamination, not VINs.
	for _, tok := range vinToken.FindAllString(up, -1) {
		if prefixContaminated(tok) && !ValidateVINChecksum(tok) {
			continue
		}
		cands = append(cands, newVINCandidate(tok, tok, cfg.PatternScore, 0, SourcePattern, cfg))
	}

	// Strategy 4: per-line with intra-line whitespace stripped. Handles
	// text split or curved around a disc layout.
	rawLines := strings.Split(up, "\n")
	for _, line := range rawLines {
		stripped := whitespaceRun.ReplaceAllString(line, "")
		for _, tok := range vinToken.FindAllString(stripped, -1) {
			cands = append(cands, newVINCandidate(tok, line, cfg.LineScore, 0, SourceLine, cfg))
		}
	}

	// Strategy 5: cross-line reconstruction for a VIN broken by a wrap.
	// Only checksum-valid tokens count here; the join invents adjacency.
	for i := 0; i+1 < len(rawLines); i++ {
		joined := whitespaceRun.ReplaceAllString(rawLines[i]+rawLines[i+1], "")
		for _, tok := range vinToken.FindAllString(joined, -1) {
			if !ValidateVINChecksum(tok) {
				continue
			}
			cands = append(cands, newVINCandidate(tok, joined, cfg.ReconstructedScore, 0, SourceReconstructed, cfg))
		}
	}

	return dedupeVINCandidates(cands)
}

// VINCandidatesFromLines generates candidates from OCR line structures,
// adding positional scoring when bounding boxes are present. Pure.
func VINCandidatesFromLines(lines []ocr.Line, doc DocType, cfg VINConfig) []VINCandidate {
	var cands []VINCandidate

	for i, line := range lines {
		up := strings.ToUpper(line.Text)
		posBonus := cfg.positionBonus(line.BBox, doc)

		for _, m := range vinKeyword.FindAllStringSubmatch(up, -1) {
			cands = append(cands, newVINCandidate(m[1], m[0], cfg.KeywordScore+posBonus, line.Confidence, SourceKeyword, cfg))
		}

		stripped := whitespaceRun.ReplaceAllString(up, "")
		for _, tok := range vinToken.FindAllString(stripped, -1) {
			source := SourceLine
			score := cfg.LineScore
			if posBonus > 0 {
				source = SourcePosition
			}
			cands = append(cands, newVINCandidate(tok, line.Text, score+posBonus, line.Confidence, source, cfg))
		}

		if i+1 < len(lines) {
			next := lines[i+1]
			joined := whitespaceRun.ReplaceAllString(up+strings.ToUpper(next.Text), "")
			for _, tok := range vinToken.FindAllString(joined, -1) {
				if !ValidateVINChecksum(tok) {
					continue
				}
				conf := (line.Confidence + next.Confidence) / 2
				cands = append(cands, newVINCandidate(tok, joined, cfg.ReconstructedScore+posBonus, conf, SourceReconstructed, cfg))
			}
		}
	}

	return dedupeVINCandidates(cands)
}

// PickBestVIN reduces a candidate list to the single best VIN, or nil.
//
// Checksum-valid candidates always win, ranked by score. On the licence
// disc path validity is a hard filter and there is no fallback. On the
// generic path the fallback order is: any 17-character candidate, then the
// longest candidate found, then nil.
func PickBestVIN(cands []VINCandidate, doc DocType) *VINCandidate {
	if len(cands) == 0 {
		return nil
	}

	ranked := make([]VINCandidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].VIN < ranked[j].VIN
	})

	for i := range ranked {
		if ranked[i].ChecksumOK {
			return &ranked[i]
		}
	}

	if doc == DocLicenceDisc {
		return nil
	}

	for i := range ranked {
		if len(ranked[i].VIN) == 17 {
			return &ranked[i]
		}
	}

	best := 0
	for i := range ranked {
		if len(ranked[i].VIN) > len(ranked[best].VIN) {
			best = i
		}
	}
	return &ranked[best]
}

func newVINCandidate(vin, raw string, score, confidence float64, source string, cfg VINConfig) VINCandidate {
	ok := ValidateVINChecksum(vin)
	if ok {
		score += cfg.ChecksumBonus
	}
	return VINCandidate{
		VIN:        vin,
		Raw:        strings.TrimSpace(raw),
		Score:      score,
		Confidence: confidence,
		Source:     source,
		ChecksumOK: ok,
	}
}

func prefixContaminated(tok string) bool {
	return strings.HasPrefix(tok, "VN") || strings.HasPrefix(tok, "CHASSIS")
}

// positionBonus scores proximity to the empirically optimal VIN location on
// the licence disc. Zero outside the band, for other documents, or when the
// line carries no geometry.
func (cfg VINConfig) positionBonus(b *ocr.BoundingBox, doc DocType) float64 {
	if doc != DocLicenceDisc || b == nil {
		return 0
	}
	cy := b.CenterY()
	if cy < cfg.BandTop || cy > cfg.BandBottom {
		return 0
	}
	dx := b.CenterX() - cfg.OptimalX
	dy := cy - cfg.OptimalY
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist >= cfg.DecayRadius {
		return 0
	}
	return cfg.PositionBonusMax * (1 - dist/cfg.DecayRadius)
}

// dedupeVINCandidates collapses candidates with the same VIN string to the
// highest-scoring one, keeping the earlier source on ties.
func dedupeVINCandidates(cands []VINCandidate) []VINCandidate {
	seen := make(map[string]int, len(cands))
	var out []VINCandidate
	for _, c := range cands {
		if idx, ok := seen[c.VIN]; ok {
			if c.Score > out[idx].Score {
				out[idx] = c
			}
			continue
		}
		seen[c.VIN] = len(out)
		out = append(out, c)
	}
	return out
}

// buildVINResult assembles the caller-facing envelope with the top five
// candidate strings and a blended confidence.
func buildVINResult(cands []VINCandidate, best *VINCandidate) VINResult {
	ranked := make([]VINCandidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].VIN < ranked[j].VIN
	})

	top := make([]string, 0, 5)
	for _, c := range ranked {
		if len(top) == 5 {
			break
		}
		top = append(top, c.VIN)
	}

	if best == nil {
		return VINResult{Candidates: top}
	}

	conf := vinSourceConfidence(best.Source)
	if !best.ChecksumOK {
		conf -= 0.3
	}
	if best.Confidence > 0 {
		conf = 0.7*(best.Confidence/100) + 0.3*conf
	}
	conf = clamp01(conf)

	return VINResult{
		VIN:        best.VIN,
		Valid:      best.ChecksumOK,
		Candidates: top,
		Confidence: conf,
	}
}

func vinSourceConfidence(source string) float64 {
	switch source {
	case SourceKeyword:
		return 0.9
	case SourcePosition:
		return 0.85
	case SourcePattern:
		return 0.75
	case SourceLine:
		return 0.7
	default:
		return 0.6
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
