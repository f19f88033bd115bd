package analysis

import (
	"sort"

	"github.com/perflens/perflens/internal/report"
)

const (
	chainsAuditID = "critical-request-chains"
	maxChains     = 5
)

// ExtractChains walks the critical-request-chains audit's details tree and
// returns root-to-leaf request chains, longest first. Missing or malformed
// details yield an empty result.
func ExtractChains(r *report.Report) ([]Chain, error) {
	if r == nil {
		return nil, nil
	}
	audit, ok := r.Audits[chainsAuditID]
	if !ok || audit.Details == nil {
		return nil, nil
	}
	roots, ok := audit.Details["chains"].(map[string]any)
	if !ok {
		return nil, nil
	}

	var chains []Chain
	rootIDs := make([]string, 0, len(roots))
	for id := range roots {
		rootIDs = append(rootIDs, id)
	}
	sort.Strings(rootIDs)

	for _, id := range rootIDs {
		node, ok := roots[id].(map[string]any)
		if !ok {
			continue
		}
		chains = append(chains, walkChain(node, nil, 0)...)
	}

	sort.SliceStable(chains, func(i, j int) bool {
		if len(chains[i].URLs) != len(chains[j].URLs) {
			return len(chains[i].URLs) > len(chains[j].URLs)
		}
		return chains[i].TransferSize > chains[j].TransferSize
	})
	if len(chains) > maxChains {
		chains = chains[:maxChains]
	}
	return chains, nil
}

func walkChain(node map[string]any, urls []string, size int64) []Chain {
	if req, ok := node["request"].(map[string]any); ok {
		if url, ok := req["url"].(string); ok && url != "" {
			urls = append(append([]string(nil), urls...), url)
		}
		if ts, ok := req["transferSize"].(float64); ok {
			size += int64(ts)
		}
	}

	children, ok := node["children"].(map[string]any)
	if !ok || len(children) == 0 {
		if len(urls) == 0 {
			return nil
		}
		return []Chain{{URLs: urls, TransferSize: size}}
	}

	childIDs := make([]string, 0, len(children))
	for id := range children {
		childIDs = append(childIDs, id)
	}
	sort.Strings(childIDs)

	var chains []Chain
	for _, id := range childIDs {
		child, ok := children[id].(map[string]any)
		if !ok {
			continue
		}
		chains = append(chains, walkChain(child, urls, size)...)
	}
	if len(chains) == 0 && len(urls) > 0 {
		chains = []Chain{{URLs: urls, TransferSize: size}}
	}
	return chains
}
