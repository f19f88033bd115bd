// Package collect acquires a performance report by driving a pooled headless
// browser against a target URL. It is the service's report-acquisition
// adapter: the analysis core never knows where a report came from.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/perflens/perflens/internal/browserpool"
	"github.com/perflens/perflens/internal/errors"
	"github.com/perflens/perflens/internal/report"
	"github.com/perflens/perflens/internal/resilience"
)

// snapshot is the raw metrics payload evaluated in the page.
type snapshot struct {
	TTFB                 float64 `json:"ttfb"`
	DomContentLoaded     float64 `json:"domContentLoaded"`
	Load                 float64 `json:"load"`
	FirstContentfulPaint float64 `json:"firstContentfulPaint"`
	TransferBytes        float64 `json:"transferBytes"`
	RequestCount         float64 `json:"requestCount"`
}

// metricsJS gathers navigation timing, paint timing and resource totals.
// Everything is relative to navigation start, in milliseconds.
const metricsJS = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	const paints = performance.getEntriesByType('paint');
	const fcp = paints.find(p => p.name === 'first-contentful-paint');
	const resources = performance.getEntriesByType('resource');
	let transfer = nav ? (nav.transferSize || 0) : 0;
	for (const r of resources) transfer += r.transferSize || 0;
	return {
		ttfb: nav ? nav.responseStart : 0,
		domContentLoaded: nav ? nav.domContentLoadedEventEnd : 0,
		load: nav ? nav.loadEventEnd : 0,
		firstContentfulPaint: fcp ? fcp.startTime : 0,
		transferBytes: transfer,
		requestCount: resources.length + 1
	};
}`

// Collector runs in-browser audits. Navigation goes through the retry
// helper and a circuit breaker so a wedged browser does not take the
// service down with it.
type Collector struct {
	pool       *browserpool.Pool
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
	navTimeout time.Duration
}

// NewCollector creates a collector over a browser pool.
func NewCollector(pool *browserpool.Pool, navTimeout time.Duration) *Collector {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Collector{
		pool:       pool,
		retry:      resilience.DefaultRetryConfig(),
		breaker:    resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		navTimeout: navTimeout,
	}
}

// Collect navigates to url, captures a metrics snapshot and synthesizes a
// report the analysis core can consume.
func (c *Collector) Collect(ctx context.Context, url string) (*report.Report, error) {
	inst, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, errors.WrapError(err, "acquire browser")
	}
	defer c.pool.Release(inst)

	var snap snapshot
	err = c.breaker.Call(func() error {
		return resilience.RetryWithConfig(ctx, c.retry, func() error {
			s, err := c.capture(ctx, inst.Browser, url)
			if err != nil {
				return err
			}
			snap = s
			return nil
		})
	})
	if err != nil {
		return nil, errors.WrapError(err, "collect %s", url)
	}

	return buildReport(snap), nil
}

func (c *Collector) capture(ctx context.Context, browser *rod.Browser, url string) (snapshot, error) {
	var snap snapshot

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return snap, fmt.Errorf("open page: %w", err)
	}
	defer page.Close()

	page = page.Context(ctx).Timeout(c.navTimeout)
	if err := page.Navigate(url); err != nil {
		return snap, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return snap, fmt.Errorf("wait load: %w", err)
	}

	res, err := page.Evaluate(&rod.EvalOptions{JS: metricsJS, ByValue: true})
	if err != nil {
		return snap, fmt.Errorf("evaluate metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), &snap); err != nil {
		return snap, fmt.Errorf("decode metrics: %w", err)
	}
	return snap, nil
}

// Threshold bounds per metric, in the metric's own unit. At or under good
// scores 1, at or over poor scores 0, linear in between.
var thresholds = map[string]struct{ good, poor float64 }{
	"first-contentful-paint": {1800, 4000},
	"interactive":            {3800, 7300},
	"server-response-time":   {600, 1800},
	"total-byte-weight":      {1.6e6, 6e6},
}

func scoreLinear(value, good, poor float64) float64 {
	if value <= good {
		return 1
	}
	if value >= poor {
		return 0
	}
	return (poor - value) / (poor - good)
}

func metricScore(id string, value float64) *float64 {
	t, ok := thresholds[id]
	if !ok {
		return nil
	}
	s := scoreLinear(value, t.good, t.poor)
	return &s
}

// buildReport shapes a snapshot into the report model: one weighted
// performance category plus unweighted diagnostics.
func buildReport(snap snapshot) *report.Report {
	fcp := snap.FirstContentfulPaint
	interactive := snap.Load
	ttfb := snap.TTFB
	bytes := snap.TransferBytes
	requests := snap.RequestCount

	audits := map[string]report.Audit{
		"first-contentful-paint": {
			Score:        metricScore("first-contentful-paint", fcp),
			Title:        "First Contentful Paint",
			Description:  "Time until the first text or image is painted.",
			DisplayValue: fmt.Sprintf("%.1f s", fcp/1000),
			NumericValue: &fcp,
		},
		"interactive": {
			Score:        metricScore("interactive", interactive),
			Title:        "Time to Interactive",
			Description:  "Time until the page is fully loaded and responsive.",
			DisplayValue: fmt.Sprintf("%.1f s", interactive/1000),
			NumericValue: &interactive,
		},
		"server-response-time": {
			Score:        metricScore("server-response-time", ttfb),
			Title:        "Initial server response time",
			Description:  "Time until the first byte of the main document arrived.",
			DisplayValue: fmt.Sprintf("%.0f ms", ttfb),
			NumericValue: &ttfb,
		},
		"total-byte-weight": {
			Score:        metricScore("total-byte-weight", bytes),
			Title:        "Total transfer size",
			Description:  "Combined transfer size of the document and its resources.",
			DisplayValue: fmt.Sprintf("%.0f KB", bytes/1024),
			NumericValue: &bytes,
		},
		// Informational: no score, surfaces through the unscored-problem path.
		"network-requests": {
			Title:        "Network requests",
			Description:  "Number of requests made during page load.",
			DisplayValue: fmt.Sprintf("%.0f requests", requests),
			NumericValue: &requests,
		},
	}

	perfScore := 0.0
	refs := []report.AuditRef{
		{ID: "first-contentful-paint", Weight: 10},
		{ID: "interactive", Weight: 10},
		{ID: "server-response-time", Weight: 5},
		{ID: "total-byte-weight", Weight: 5},
		{ID: "network-requests", Weight: 0},
	}
	total := 0.0
	for _, ref := range refs {
		if ref.Weight <= 0 {
			continue
		}
		if s := audits[ref.ID].Score; s != nil {
			perfScore += *s * ref.Weight
		}
		total += ref.Weight
	}
	if total > 0 {
		perfScore /= total
	}

	return &report.Report{
		Categories: map[string]report.Category{
			"performance": {
				Title:     "Performance",
				Score:     &perfScore,
				AuditRefs: refs,
			},
		},
		Audits: audits,
	}
}
