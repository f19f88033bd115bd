package analysis

import (
	"math"
	"testing"

	"github.com/perflens/perflens/internal/report"
)

func scoreOf(v float64) *float64 { return &v }

func TestBuildWeightIndexNormalization(t *testing.T) {
	r := &report.Report{
		Categories: map[string]report.Category{
			"performance": {
				AuditRefs: []report.AuditRef{
					{ID: "first-check", Weight: 10},
					{ID: "second-check", Weight: 20},
				},
			},
		},
		Audits: map[string]report.Audit{},
	}

	index := BuildWeightIndex(r)

	tests := []struct {
		id       string
		expected float64
	}{
		{"first-check", 1.0 / 3.0},
		{"second-check", 2.0 / 3.0},
	}

	for _, tt := range tests {
		info, ok := index[tt.id]
		if !ok {
			t.Fatalf("check %q missing from index", tt.id)
		}
		if math.Abs(info.NormalizedWeight-tt.expected) > 1e-5 {
			t.Errorf("NormalizedWeight(%s) = %v, want %v", tt.id, info.NormalizedWeight, tt.expected)
		}
		if info.CategoryID != "performance" {
			t.Errorf("CategoryID(%s) = %q, want %q", tt.id, info.CategoryID, "performance")
		}
	}
}

func TestBuildWeightIndexSumsToOne(t *testing.T) {
	r := &report.Report{
		Categories: map[string]report.Category{
			"performance": {
				AuditRefs: []report.AuditRef{
					{ID: "a", Weight: 3},
					{ID: "b", Weight: 7},
					{ID: "c", Weight: 25},
					{ID: "d", Weight: 0},
				},
			},
			"accessibility": {
				AuditRefs: []report.AuditRef{
					{ID: "e", Weight: 1},
					{ID: "f", Weight: 1},
				},
			},
		},
	}

	index := BuildWeightIndex(r)

	sums := map[string]float64{}
	for _, info := range index {
		sums[info.CategoryID] += info.NormalizedWeight
	}
	for cat, sum := range sums {
		if math.Abs(sum-1.0) > 1e-5 {
			t.Errorf("normalized weights of %q sum to %v, want 1.0", cat, sum)
		}
	}
	if index["d"].NormalizedWeight != 0 {
		t.Errorf("zero-weight ref should have normalized weight 0, got %v", index["d"].NormalizedWeight)
	}
}

func TestBuildWeightIndexZeroTotal(t *testing.T) {
	r := &report.Report{
		Categories: map[string]report.Category{
			"diagnostics": {
				AuditRefs: []report.AuditRef{
					{ID: "a", Weight: 0},
					{ID: "b", Weight: 0},
				},
			},
		},
	}

	index := BuildWeightIndex(r)

	for id, info := range index {
		if info.NormalizedWeight != 0 {
			t.Errorf("NormalizedWeight(%s) = %v, want 0 for zero-total category", id, info.NormalizedWeight)
		}
	}
	if len(index) != 2 {
		t.Errorf("zero-weight refs must still be indexed, got %d entries", len(index))
	}
}

func TestBuildWeightIndexEmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		r    *report.Report
	}{
		{"nil report", nil},
		{"no categories", &report.Report{}},
		{"empty auditRefs", &report.Report{
			Categories: map[string]report.Category{"performance": {}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := BuildWeightIndex(tt.r)
			if len(index) != 0 {
				t.Errorf("expected empty index, got %d entries", len(index))
			}
		})
	}
}

func TestBuildWeightIndexDuplicateCheckID(t *testing.T) {
	r := &report.Report{
		Categories: map[string]report.Category{
			"alpha": {
				AuditRefs: []report.AuditRef{{ID: "shared", Weight: 5}},
			},
			"beta": {
				AuditRefs: []report.AuditRef{{ID: "shared", Weight: 5}},
			},
		},
	}

	// Categories iterate in sorted id order, so the later one wins.
	for i := 0; i < 10; i++ {
		index := BuildWeightIndex(r)
		if index["shared"].CategoryID != "beta" {
			t.Fatalf("duplicate resolution not deterministic: got %q", index["shared"].CategoryID)
		}
	}
}
