package analysis

// WeightInfo is the derived weight record for a single check.
type WeightInfo struct {
	CategoryID       string  `json:"category_id"`
	Weight           float64 `json:"weight"`
	NormalizedWeight float64 `json:"normalized_weight"`
}

// Problem is a check that is hurting its category's score, ranked by
// weighted impact.
type Problem struct {
	ID             string   `json:"id"`
	CategoryID     string   `json:"category_id"`
	Score          *float64 `json:"score"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Weight         float64  `json:"weight"`
	WeightedImpact float64  `json:"weighted_impact"`
}

// DetectorConfig controls problem detection.
//
// SkipUnscored decides the fate of checks whose score is absent: by default
// they surface as problems with full theoretical impact, so that
// not-applicable checks never vanish silently from diagnostic output.
type DetectorConfig struct {
	SkipUnscored bool
	Classifier   Classifier
}

// Options controls report assembly.
type Options struct {
	IncludeChains      bool
	IncludeUnusedCode  bool
	MaxRecommendations int
	Locale             string
}

// Chain is one root-to-leaf dependency chain of network requests.
type Chain struct {
	URLs         []string `json:"urls"`
	TransferSize int64    `json:"transfer_size"`
	DurationMs   float64  `json:"duration_ms"`
}

// UnusedFinding reports bytes shipped but never executed or applied.
type UnusedFinding struct {
	URL         string `json:"url"`
	WastedBytes int64  `json:"wasted_bytes"`
	TotalBytes  int64  `json:"total_bytes"`
	Source      string `json:"source"`
}
