package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/perflens/perflens/internal/report"
)

// Section headers are a compatibility contract: downstream consumers match
// on them verbatim. Do not reword without coordinating with callers.
const (
	HeaderAnalysis        = "# Deep Performance Analysis"
	HeaderScores          = "## Performance Scores"
	HeaderVitals          = "## Core Web Vitals"
	HeaderRecommendations = "## Prioritized Recommendations"
	HeaderChains          = "## Critical Request Chains"
	HeaderUnusedCode      = "## Unused Code"
)

// DefaultMaxRecommendations bounds the recommendations section when the
// caller does not choose a cap.
const DefaultMaxRecommendations = 5

// DefaultLocale selects the localized duplicate summary block.
const DefaultLocale = "zh-CN"

// coreVitalIDs is the fixed set of well-known checks that get their own
// subsection. Absent ids are silently omitted.
var coreVitalIDs = []string{
	"first-contentful-paint",
	"largest-contentful-paint",
	"total-blocking-time",
	"cumulative-layout-shift",
	"speed-index",
	"interactive",
}

// localizedSummaries holds one fixed summary template per locale. The two
// counts filled in are category count and problem count. The top-level
// localized header is part of the output contract.
var localizedSummaries = map[string]string{
	"zh-CN": "# 深度性能分析报告\n\n本次分析覆盖 %d 个评分类别，共发现 %d 个待优化项。上文的优化建议已按加权影响从高到低排序，建议优先处理排名靠前的项目。\n",
}

// ChainExtractor produces dependency chains from a report.
type ChainExtractor func(*report.Report) ([]Chain, error)

// UnusedCodeDetector produces unused-code findings from a report.
type UnusedCodeDetector func(*report.Report) ([]UnusedFinding, error)

// Assembler renders the full analysis narrative. The supplementary
// collaborators are constructor-injected so a failing analyzer can be
// substituted in tests; a collaborator failure only degrades its own
// section, never the whole report.
type Assembler struct {
	detector DetectorConfig
	chains   ChainExtractor
	unused   UnusedCodeDetector
}

// NewAssembler returns an assembler wired with the built-in analyzers.
func NewAssembler(cfg DetectorConfig) *Assembler {
	return &Assembler{
		detector: cfg,
		chains:   ExtractChains,
		unused:   DetectUnusedCode,
	}
}

// NewAssemblerWith returns an assembler with explicit collaborators.
// A nil collaborator disables its section even when requested.
func NewAssemblerWith(cfg DetectorConfig, chains ChainExtractor, unused UnusedCodeDetector) *Assembler {
	return &Assembler{detector: cfg, chains: chains, unused: unused}
}

// Assemble renders the sectioned analysis text for a report. It is a pure
// single-pass computation: the same report and options always produce
// byte-identical output, and no report shape can make it fail.
func (a *Assembler) Assemble(r *report.Report, opts Options) string {
	text, _ := a.AssembleWithProblems(r, opts)
	return text
}

// AssembleWithProblems renders the report and also returns the ranked
// problems behind the recommendations, so callers that log or inspect the
// ranking do not run detection a second time.
func (a *Assembler) AssembleWithProblems(r *report.Report, opts Options) (string, []Problem) {
	if r == nil {
		r = &report.Report{}
	}
	maxRecs := opts.MaxRecommendations
	if maxRecs <= 0 {
		maxRecs = DefaultMaxRecommendations
	}
	locale := opts.Locale
	if _, ok := localizedSummaries[locale]; !ok {
		locale = DefaultLocale
	}

	problems := DetectProblems(r, a.detector)

	var b strings.Builder
	b.WriteString(HeaderAnalysis)
	b.WriteString("\n\n")

	a.writeScores(&b, r)
	a.writeVitals(&b, r)
	a.writeRecommendations(&b, problems, maxRecs)

	if opts.IncludeChains && a.chains != nil {
		writeSafeSection(&b, HeaderChains, func() string {
			chains, err := a.chains(r)
			if err != nil {
				panic(err)
			}
			return renderChains(chains)
		})
	}
	if opts.IncludeUnusedCode && a.unused != nil {
		writeSafeSection(&b, HeaderUnusedCode, func() string {
			findings, err := a.unused(r)
			if err != nil {
				panic(err)
			}
			return renderUnused(findings)
		})
	}

	fmt.Fprintf(&b, localizedSummaries[locale], len(r.Categories), len(problems))

	return b.String(), problems
}

func (a *Assembler) writeScores(b *strings.Builder, r *report.Report) {
	b.WriteString(HeaderScores)
	b.WriteString("\n\n")

	if len(r.Categories) == 0 {
		b.WriteString("No scored categories in report.\n\n")
		return
	}

	catIDs := make([]string, 0, len(r.Categories))
	for id := range r.Categories {
		catIDs = append(catIDs, id)
	}
	sort.Strings(catIDs)

	for _, id := range catIDs {
		cat := r.Categories[id]
		label := cat.Title
		if label == "" {
			label = id
		}
		if cat.Score != nil {
			fmt.Fprintf(b, "- %s: %d/100\n", label, int(math.Round(*cat.Score*100)))
		} else {
			fmt.Fprintf(b, "- %s: not scored\n", label)
		}
	}
	b.WriteString("\n")
}

func (a *Assembler) writeVitals(b *strings.Builder, r *report.Report) {
	b.WriteString(HeaderVitals)
	b.WriteString("\n\n")

	found := false
	for _, id := range coreVitalIDs {
		audit, ok := r.Audits[id]
		if !ok {
			continue
		}
		found = true
		label := audit.Title
		if label == "" {
			label = id
		}
		value := audit.DisplayValue
		if value == "" && audit.NumericValue != nil {
			value = fmt.Sprintf("%.0f ms", *audit.NumericValue)
		}
		switch {
		case value != "" && audit.Score != nil:
			fmt.Fprintf(b, "- %s: %s (score %d/100)\n", label, value, int(math.Round(*audit.Score*100)))
		case value != "":
			fmt.Fprintf(b, "- %s: %s\n", label, value)
		case audit.Score != nil:
			fmt.Fprintf(b, "- %s: score %d/100\n", label, int(math.Round(*audit.Score*100)))
		default:
			fmt.Fprintf(b, "- %s\n", label)
		}
	}
	if !found {
		b.WriteString("No Core Web Vitals data in report.\n")
	}
	b.WriteString("\n")
}

func (a *Assembler) writeRecommendations(b *strings.Builder, problems []Problem, maxRecs int) {
	b.WriteString(HeaderRecommendations)
	b.WriteString("\n\n")

	if len(problems) == 0 {
		b.WriteString("All checks passed, nothing to recommend.\n\n")
		return
	}

	if len(problems) > maxRecs {
		problems = problems[:maxRecs]
	}
	for i, p := range problems {
		title := p.Title
		if title == "" {
			title = p.ID
		}
		fmt.Fprintf(b, "%d. %s [%s] (impact %.1f)\n", i+1, title, p.CategoryID, p.WeightedImpact)
		if desc := oneLine(p.Description); desc != "" {
			fmt.Fprintf(b, "   %s\n", desc)
		}
	}
	b.WriteString("\n")
}

// writeSafeSection renders an optional section, absorbing any panic from
// the collaborator into a fallback line so the rest of the report survives.
func writeSafeSection(b *strings.Builder, header string, render func() string) {
	b.WriteString(header)
	b.WriteString("\n\n")

	body := func() (out string) {
		defer func() {
			if r := recover(); r != nil {
				out = "Section unavailable: analysis failed.\n"
			}
		}()
		return render()
	}()

	b.WriteString(body)
	b.WriteString("\n")
}

func renderChains(chains []Chain) string {
	if len(chains) == 0 {
		return "No critical request chains detected.\n"
	}
	var b strings.Builder
	for i, chain := range chains {
		fmt.Fprintf(&b, "%d. %d requests, %.1f KB transferred\n", i+1, len(chain.URLs), float64(chain.TransferSize)/1024)
		for _, url := range chain.URLs {
			fmt.Fprintf(&b, "   -> %s\n", url)
		}
	}
	return b.String()
}

func renderUnused(findings []UnusedFinding) string {
	if len(findings) == 0 {
		return "No unused code detected.\n"
	}
	var b strings.Builder
	for i, f := range findings {
		fmt.Fprintf(&b, "%d. %s: %.1f KB unused of %.1f KB (%s)\n",
			i+1, f.URL, float64(f.WastedBytes)/1024, float64(f.TotalBytes)/1024, f.Source)
	}
	return b.String()
}

// oneLine collapses a description to a single line for list rendering.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
