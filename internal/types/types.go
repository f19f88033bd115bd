package types

import "encoding/json"

// AnalyzeRequest is the tool-invocation request. Exactly one of ReportData
// or URL must be set: ReportData carries a raw audit report, URL asks the
// service to collect one itself.
type AnalyzeRequest struct {
	ReportData         json.RawMessage `json:"reportData,omitempty"`
	URL                string          `json:"url,omitempty"`
	IncludeChains      bool            `json:"includeChains"`
	IncludeUnusedCode  bool            `json:"includeUnusedCode"`
	MaxRecommendations int             `json:"maxRecommendations"`
	Locale             string          `json:"locale,omitempty"`
}

// ContentBlock is one typed block of the tool response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AnalyzeResponse carries the rendered report as a sequence of content
// blocks, per the host protocol.
type AnalyzeResponse struct {
	Content   []ContentBlock `json:"content"`
	RequestID string         `json:"request_id,omitempty"`
}
