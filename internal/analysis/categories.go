package analysis

import "strings"

// ClassifierRule maps a check-id fragment to a category id.
type ClassifierRule struct {
	Fragment   string
	CategoryID string
}

// Classifier assigns a fallback category to checks whose owning category is
// missing from the report. It is an ordered rule table rather than code so
// the mapping can be extended without touching the ranking logic.
type Classifier struct {
	Rules    []ClassifierRule
	Fallback string
}

// DefaultClassifier returns the built-in fragment table.
func DefaultClassifier() Classifier {
	return Classifier{
		Rules: []ClassifierRule{
			{"paint", "rendering"},
			{"render", "rendering"},
			{"layout", "rendering"},
			{"contentful", "rendering"},
			{"shift", "rendering"},
			{"network", "network"},
			{"server", "network"},
			{"redirect", "network"},
			{"response", "network"},
			{"ttfb", "network"},
			{"javascript", "javascript"},
			{"script", "javascript"},
			{"bootup", "javascript"},
			{"mainthread", "javascript"},
			{"css", "assets"},
			{"font", "assets"},
			{"image", "assets"},
			{"resource", "assets"},
		},
		Fallback: "diagnostics",
	}
}

// Classify returns the category for a check id. First matching fragment wins.
func (c Classifier) Classify(checkID string) string {
	id := strings.ToLower(checkID)
	for _, rule := range c.Rules {
		if strings.Contains(id, rule.Fragment) {
			return rule.CategoryID
		}
	}
	if c.Fallback == "" {
		return "diagnostics"
	}
	return c.Fallback
}
