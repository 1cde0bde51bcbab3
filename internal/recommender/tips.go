package recommender

import (
	"strings"

	"github.com/joelkehle/cropadvisor/internal/advisor"
)

const rotationTip = "Rotate crops and monitor pests for integrated pest management."

// generatedTips derives agronomy hints from the raw field measurements.
func generatedTips(in advisor.FormInput) []string {
	var tips []string
	if in.N < 50 {
		tips = append(tips, "Soil nitrogen is low; apply a nitrogen-rich fertilizer or use legume rotations.")
	}
	if in.P < 30 {
		tips = append(tips, "Phosphorus is low; apply phosphorus fertilizer at planting.")
	}
	if in.K < 80 {
		tips = append(tips, "Potassium is low; consider potash application.")
	}
	if in.Rain < 300 {
		tips = append(tips, "Low rainfall; plan supplemental irrigation and mulching.")
	}
	if strings.Contains(strings.ToLower(in.Soil), "sandy") {
		tips = append(tips, "Sandy soils drain quickly; add organic matter and irrigate appropriately.")
	}
	return append(tips, rotationTip)
}

// mergeTips keeps model tips first, then generated ones, dropping blanks and
// exact duplicates.
func mergeTips(model, generated []string) []string {
	merged := make([]string, 0, len(model)+len(generated))
	seen := map[string]struct{}{}
	for _, list := range [][]string{model, generated} {
		for _, t := range list {
			if strings.TrimSpace(t) == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}
