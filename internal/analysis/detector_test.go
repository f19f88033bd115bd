package analysis

import (
	"math"
	"testing"

	"github.com/perflens/perflens/internal/report"
)

func TestDetectProblemsWeightedImpact(t *testing.T) {
	r := &report.Report{
		Categories: map[string]report.Category{
			"performance": {
				AuditRefs: []report.AuditRef{
					{ID: "slow-check", Weight: 10},
					{ID: "heavy-check", Weight: 20},
				},
			},
		},
		Audits: map[string]report.Audit{
			"slow-check":  {Score: scoreOf(0.5), Title: "Slow check"},
			"heavy-check": {Score: scoreOf(0.8), Title: "Heavy check"},
		},
	}

	problems := DetectProblems(r, DetectorConfig{})
	if len(problems) != 2 {
		t.Fatalf("expected 2 problems, got %d", len(problems))
	}

	// (1-0.5)*100*(1/3) ≈ 16.667 beats (1-0.8)*100*(2/3) ≈ 13.333
	if problems[0].ID != "slow-check" {
		t.Errorf("expected slow-check ranked first, got %q", problems[0].ID)
	}
	if math.Abs(problems[0].WeightedImpact-16.6667) > 0.001 {
		t.Errorf("WeightedImpact(slow-check) = %v, want ~16.667", problems[0].WeightedImpact)
	}
	if math.Abs(problems[1].WeightedImpact-13.3333) > 0.001 {
		t.Errorf("WeightedImpact(heavy-check) = %v, want ~13.333", problems[1].WeightedImpact)
	}
}

func TestDetectProblemsSkipsPerfectScores(t *testing.T) {
	r := &report.Report{
		Audits: map[string]report.Audit{
			"perfect": {Score: scoreOf(1), Title: "Perfect"},
			"flawed":  {Score: scoreOf(0.9), Title: "Flawed"},
		},
	}

	problems := DetectProblems(r, DetectorConfig{})
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d", len(problems))
	}
	if problems[0].ID != "flawed" {
		t.Errorf("expected flawed, got %q", problems[0].ID)
	}
}

func TestDetectProblemsUnscoredAudits(t *testing.T) {
	r := &report.Report{
		Audits: map[string]report.Audit{
			"not-applicable": {Title: "Not applicable"},
		},
	}

	tests := []struct {
		name     string
		cfg      DetectorConfig
		expected int
	}{
		{"surfaced by default", DetectorConfig{}, 1},
		{"skipped when configured", DetectorConfig{SkipUnscored: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := DetectProblems(r, tt.cfg)
			if len(problems) != tt.expected {
				t.Fatalf("expected %d problems, got %d", tt.expected, len(problems))
			}
			if tt.expected == 1 && problems[0].Score != nil {
				t.Errorf("unscored problem should keep nil score")
			}
		})
	}
}

func TestDetectProblemsMissingCategoryFallback(t *testing.T) {
	r := &report.Report{
		// No categories at all: every audit resolves through the classifier.
		Audits: map[string]report.Audit{
			"largest-contentful-paint": {Score: scoreOf(0.3), Title: "LCP"},
			"server-response-time":     {Score: scoreOf(0.2), Title: "TTFB"},
			"obscure-check":            {Score: scoreOf(0.1), Title: "Obscure"},
		},
	}

	problems := DetectProblems(r, DetectorConfig{})
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %d", len(problems))
	}

	byID := map[string]Problem{}
	for _, p := range problems {
		if p.Weight != 0 || p.WeightedImpact != 0 {
			t.Errorf("%s: weight and impact must be exactly 0 without a weight index entry, got %v/%v",
				p.ID, p.Weight, p.WeightedImpact)
		}
		byID[p.ID] = p
	}

	if byID["largest-contentful-paint"].CategoryID != "rendering" {
		t.Errorf("paint check should classify as rendering, got %q", byID["largest-contentful-paint"].CategoryID)
	}
	if byID["server-response-time"].CategoryID != "network" {
		t.Errorf("server check should classify as network, got %q", byID["server-response-time"].CategoryID)
	}
	if byID["obscure-check"].CategoryID != "diagnostics" {
		t.Errorf("unknown check should fall back to diagnostics, got %q", byID["obscure-check"].CategoryID)
	}
}

func TestDetectProblemsStableTieOrder(t *testing.T) {
	// All impacts are 0, so the sorted-id base order must survive the sort.
	r := &report.Report{
		Audits: map[string]report.Audit{
			"c-check": {Score: scoreOf(0.5)},
			"a-check": {Score: scoreOf(0.5)},
			"b-check": {Score: scoreOf(0.5)},
		},
	}

	for i := 0; i < 10; i++ {
		problems := DetectProblems(r, DetectorConfig{})
		got := []string{problems[0].ID, problems[1].ID, problems[2].ID}
		want := []string{"a-check", "b-check", "c-check"}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("iteration %d: order %v, want %v", i, got, want)
			}
		}
	}
}

func TestDetectProblemsMalformedAuditDefaults(t *testing.T) {
	r := &report.Report{
		Audits: map[string]report.Audit{
			"bare": {Score: scoreOf(0)},
		},
	}

	problems := DetectProblems(r, DetectorConfig{})
	if len(problems) != 1 {
		t.Fatalf("expected 1 problem, got %d", len(problems))
	}
	if problems[0].Title != "" || problems[0].Description != "" {
		t.Errorf("missing title/description should pass through as empty strings")
	}
}

func TestDetectProblemsEmptyInputs(t *testing.T) {
	if got := DetectProblems(nil, DetectorConfig{}); got != nil {
		t.Errorf("nil report should yield nil problems, got %v", got)
	}
	if got := DetectProblems(&report.Report{}, DetectorConfig{}); got != nil {
		t.Errorf("empty report should yield nil problems, got %v", got)
	}
}
