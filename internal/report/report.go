// Package report defines the audit report model and the boundary validation
// that converts untrusted JSON into it. All shape checking happens here, once;
// downstream packages can assume the invariants this package enforces.
package report

import (
	"encoding/json"
	"fmt"
)

// AuditRef ties a check to its category with an importance weight.
// Weights are never negative after parsing.
type AuditRef struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// Category is a named grouping of checks contributing to one headline score.
type Category struct {
	Title     string     `json:"title"`
	Score     *float64   `json:"score"`
	AuditRefs []AuditRef `json:"auditRefs"`
}

// Audit is a single scored diagnostic check. A nil Score means the check was
// not applicable to the audited page.
type Audit struct {
	Score        *float64       `json:"score"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	DisplayValue string         `json:"displayValue"`
	NumericValue *float64       `json:"numericValue"`
	Details      map[string]any `json:"details"`
}

// Report is the top-level audit result: categories of weighted check
// references plus the checks themselves.
type Report struct {
	Categories map[string]Category `json:"categories"`
	Audits     map[string]Audit    `json:"audits"`
}

// Parse decodes raw report JSON into the internal model. Malformed or
// missing categories/audits degrade to empty maps; individual entries with
// the wrong shape are defaulted or dropped. The only error case is a payload
// that is not JSON at all.
func Parse(data []byte) (*Report, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("report is not valid JSON: %w", err)
	}
	return FromValue(raw), nil
}

// FromValue builds a Report from already-decoded JSON. It never fails:
// anything that does not match the expected shape is replaced with its
// zero value.
func FromValue(raw map[string]any) *Report {
	r := &Report{
		Categories: make(map[string]Category),
		Audits:     make(map[string]Audit),
	}
	if raw == nil {
		return r
	}

	if cats, ok := raw["categories"].(map[string]any); ok {
		for id, v := range cats {
			cat, ok := v.(map[string]any)
			if !ok {
				continue
			}
			r.Categories[id] = parseCategory(cat)
		}
	}

	if audits, ok := raw["audits"].(map[string]any); ok {
		for id, v := range audits {
			audit, ok := v.(map[string]any)
			if !ok {
				continue
			}
			r.Audits[id] = parseAudit(audit)
		}
	}

	return r
}

func parseCategory(raw map[string]any) Category {
	cat := Category{
		Title: asString(raw["title"]),
		Score: asScore(raw["score"]),
	}

	refs, ok := raw["auditRefs"].([]any)
	if !ok {
		return cat
	}
	for _, v := range refs {
		ref, ok := v.(map[string]any)
		if !ok {
			continue
		}
		id := asString(ref["id"])
		if id == "" {
			continue
		}
		weight, _ := asFloat(ref["weight"])
		if weight < 0 {
			weight = 0
		}
		cat.AuditRefs = append(cat.AuditRefs, AuditRef{ID: id, Weight: weight})
	}
	return cat
}

func parseAudit(raw map[string]any) Audit {
	audit := Audit{
		Score:        asScore(raw["score"]),
		Title:        asString(raw["title"]),
		Description:  asString(raw["description"]),
		DisplayValue: asString(raw["displayValue"]),
	}
	if n, ok := asFloat(raw["numericValue"]); ok {
		audit.NumericValue = &n
	}
	if details, ok := raw["details"].(map[string]any); ok {
		audit.Details = details
	}
	return audit
}

// asScore parses a check score, clamping to [0, 1]. Anything non-numeric
// (including null) maps to nil, meaning "not applicable".
func asScore(v any) *float64 {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return &f
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
