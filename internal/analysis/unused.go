package analysis

import (
	"sort"

	"github.com/perflens/perflens/internal/report"
)

const maxUnusedFindings = 10

var unusedAuditIDs = []string{"unused-javascript", "unused-css-rules"}

// DetectUnusedCode reads the unused-javascript and unused-css-rules audit
// details and returns the largest wasted-byte findings, biggest first.
// Missing or malformed details yield an empty result.
func DetectUnusedCode(r *report.Report) ([]UnusedFinding, error) {
	if r == nil {
		return nil, nil
	}

	var findings []UnusedFinding
	for _, auditID := range unusedAuditIDs {
		audit, ok := r.Audits[auditID]
		if !ok || audit.Details == nil {
			continue
		}
		items, ok := audit.Details["items"].([]any)
		if !ok {
			continue
		}
		for _, v := range items {
			item, ok := v.(map[string]any)
			if !ok {
				continue
			}
			url, _ := item["url"].(string)
			if url == "" {
				continue
			}
			findings = append(findings, UnusedFinding{
				URL:         url,
				WastedBytes: asInt64(item["wastedBytes"]),
				TotalBytes:  asInt64(item["totalBytes"]),
				Source:      auditID,
			})
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].WastedBytes > findings[j].WastedBytes
	})
	if len(findings) > maxUnusedFindings {
		findings = findings[:maxUnusedFindings]
	}
	return findings, nil
}

func asInt64(v any) int64 {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return int64(f)
}
