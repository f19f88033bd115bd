package analysis

import (
	"sort"

	"github.com/perflens/perflens/internal/report"
)

// BuildWeightIndex maps every referenced check id to its owning category and
// its share of that category's total weight. Pure function of the report.
//
// For a category whose positive weights sum to T > 0, the normalized weights
// of its members sum to 1. When T is 0 every member gets normalized weight 0.
// A check referenced by more than one category keeps the entry from the last
// category in sorted id order, which makes the result deterministic.
func BuildWeightIndex(r *report.Report) map[string]WeightInfo {
	index := make(map[string]WeightInfo)
	if r == nil || len(r.Categories) == 0 {
		return index
	}

	catIDs := make([]string, 0, len(r.Categories))
	for id := range r.Categories {
		catIDs = append(catIDs, id)
	}
	sort.Strings(catIDs)

	for _, catID := range catIDs {
		cat := r.Categories[catID]
		if len(cat.AuditRefs) == 0 {
			continue
		}

		total := 0.0
		for _, ref := range cat.AuditRefs {
			if ref.Weight > 0 {
				total += ref.Weight
			}
		}

		for _, ref := range cat.AuditRefs {
			weight := ref.Weight
			if weight < 0 {
				weight = 0
			}
			normalized := 0.0
			if total > 0 && weight > 0 {
				normalized = weight / total
			}
			index[ref.ID] = WeightInfo{
				CategoryID:       catID,
				Weight:           weight,
				NormalizedWeight: normalized,
			}
		}
	}

	return index
}
