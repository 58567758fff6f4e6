package extract

import (
	"regexp"
	"strconv"
	"strings"

	"vpass/pkg/models"
)

// tyrePattern matches per-corner tread depth readings like "FL 1 mm" or
// "RR: 2,5mm".
var tyrePattern = regexp.MustCompile(`(?i)\b(FL|FR|RL|RR)\b\s*[:.]?\s*(\d{1,2}(?:[.,]\d)?)\s*mm\b`)

// ExtractTyreDepths pulls per-corner tread depths from report text. Depths
// are clamped to [0,20] mm. Returns nil unless all four corners were found;
// a partial reading is not a usable tyre record.
func ExtractTyreDepths(text string) *models.TyreDepths {
	found := make(map[string]float64, 4)
	for _, m := range tyrePattern.FindAllStringSubmatch(text, -1) {
		corner := strings.ToUpper(m[1])
		if _, ok := found[corner]; ok {
			continue // first reading per corner wins
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", "."), 64)
		if err != nil {
			continue
		}
		found[corner] = clampDepth(v)
	}

	if len(found) < 4 {
		return nil
	}
	return &models.TyreDepths{
		FL: found["FL"],
		FR: found["FR"],
		RL: found["RL"],
		RR: found["RR"],
	}
}

func clampDepth(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 20 {
		return 20
	}
	return v
}
