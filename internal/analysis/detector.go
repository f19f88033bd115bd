package analysis

import (
	"sort"

	"github.com/perflens/perflens/internal/report"
)

// DetectProblems converts imperfectly scored checks into a ranked problem
// list. Checks scoring a perfect 1 are skipped; everything else produces a
// problem record with a deterministic weighted impact:
//
//	weightedImpact = (1 - score) * 100 * normalizedWeight
//
// A nil score counts as 0 in the impact term (full theoretical impact)
// unless cfg.SkipUnscored is set. Checks not present in the weight index get
// their category from the heuristic classifier with zero weight and impact.
//
// Output order: weighted impact descending, ties kept in the base iteration
// order (audit ids sorted ascending), so identical input always yields
// identical output.
func DetectProblems(r *report.Report, cfg DetectorConfig) []Problem {
	if r == nil || len(r.Audits) == 0 {
		return nil
	}

	classifier := cfg.Classifier
	if len(classifier.Rules) == 0 && classifier.Fallback == "" {
		classifier = DefaultClassifier()
	}

	index := BuildWeightIndex(r)

	auditIDs := make([]string, 0, len(r.Audits))
	for id := range r.Audits {
		auditIDs = append(auditIDs, id)
	}
	sort.Strings(auditIDs)

	problems := make([]Problem, 0, len(auditIDs))
	for _, id := range auditIDs {
		audit := r.Audits[id]
		if audit.Score != nil && *audit.Score >= 1 {
			continue
		}
		if audit.Score == nil && cfg.SkipUnscored {
			continue
		}

		scoreTerm := 0.0
		if audit.Score != nil {
			scoreTerm = *audit.Score
		}

		categoryID := ""
		weight := 0.0
		if info, ok := index[id]; ok {
			categoryID = info.CategoryID
			weight = info.NormalizedWeight
		} else {
			categoryID = classifier.Classify(id)
		}

		problems = append(problems, Problem{
			ID:             id,
			CategoryID:     categoryID,
			Score:          audit.Score,
			Title:          audit.Title,
			Description:    audit.Description,
			Weight:         weight,
			WeightedImpact: (1 - scoreTerm) * 100 * weight,
		})
	}

	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].WeightedImpact > problems[j].WeightedImpact
	})

	return problems
}
