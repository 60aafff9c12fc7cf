package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

const (
	explanationPlaceholder = "Process Ambiguity"
	impactPlaceholder      = "High Latency"
)

type EfficiencyRating string

const (
	RatingOptimized  EfficiencyRating = "OPTIMIZED"
	RatingSubOptimal EfficiencyRating = "SUB-OPTIMAL"
	RatingCritical   EfficiencyRating = "CRITICAL"
)

func RateEfficiency(clarity int) EfficiencyRating {
	switch {
	case clarity > 80:
		return RatingOptimized
	case clarity > 50:
		return RatingSubOptimal
	default:
		return RatingCritical
	}
}

// BuildAuditReport renders the full operational audit as markdown. The
// analysis is read only.
func BuildAuditReport(in lossengine.WorkflowInput, a lossengine.LossAnalysis, generatedAt time.Time) string {
	rating := RateEfficiency(a.ClarityScore)

	var b strings.Builder
	fmt.Fprintf(&b, "# Operational Intelligence Audit\n\n")
	fmt.Fprintf(&b, "- Subject: %s\n", sanitize(in.Name))
	fmt.Fprintf(&b, "- Date: %s\n", generatedAt.Format("January 2, 2006"))
	if a.ID != nil {
		fmt.Fprintf(&b, "- Reference: Workflow #%d\n", *a.ID)
	}
	fmt.Fprintf(&b, "- Diagnosis: %s\n\n", diagnosisLabel(a.DiagnosisSource))
	fmt.Fprintf(&b, "_Confidential. Internal use only._\n\n")

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	fmt.Fprintf(&b, "### At A Glance\n\n")
	fmt.Fprintf(&b, "| Weekly Financial Loss | Clarity Score | Efficiency Rating |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %d/100 | %s |\n\n", inr(a.EstimatedFinancialLoss), a.ClarityScore, rating)

	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Weekly Time Loss | %s hours |\n", humanize.FormatFloat("#,###.#", a.WeeklyTimeLossHours))
	fmt.Fprintf(&b, "| Loss Range (weekly) | %s to %s |\n", inr(a.ConfidenceInterval.Lower), inr(a.ConfidenceInterval.Upper))
	fmt.Fprintf(&b, "| Rework Loss | %s hours per run |\n", humanize.FormatFloat("#,###.#", a.ReworkLossHours))
	fmt.Fprintf(&b, "| Decision Delay Index | %.1f / 10 |\n", a.DecisionDelayIndex)
	fmt.Fprintf(&b, "| Waste Ratio | %.1f%% of %s invested |\n", a.WasteRatio, inr(a.TotalInvestment))
	fmt.Fprintf(&b, "| Severity | %s |\n", a.Severity)
	fmt.Fprintf(&b, "| Industry Benchmark | %d/100 |\n\n", a.IndustryBenchmarkScore)

	fmt.Fprintf(&b, "### The Operations Verdict\n\n")
	fmt.Fprintf(&b, "This workflow is currently operating at a **%s** level. The analysis identified %d major friction points contributing to a %.1f%% waste of total investment. Immediate remediation is recommended to recover the reported capital bleed.\n\n",
		rating, len(a.InvisibleLossPoints), a.WasteRatio)

	fmt.Fprintf(&b, "## Friction Point Analysis\n\n")
	if len(a.InvisibleLossPoints) == 0 {
		fmt.Fprintf(&b, "No structural friction points were detected.\n\n")
	} else {
		fmt.Fprintf(&b, "| Blindspot Issue | Root Cause | Impact |\n|---|---|---|\n")
		for _, p := range a.InvisibleLossPoints {
			impact := strings.TrimSpace(p.Impact)
			if impact == "" {
				impact = impactPlaceholder
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", sanitizeCell(p.Title), sanitizeCell(p.Explanation(explanationPlaceholder)), sanitizeCell(impact))
		}
		fmt.Fprintf(&b, "\n")
		for _, p := range a.InvisibleLossPoints {
			if strings.TrimSpace(p.Reason) == "" {
				continue
			}
			fmt.Fprintf(&b, "- **%s:** %s\n", sanitize(p.Title), sanitize(p.Reason))
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "## Strategic Remediation Roadmap\n\n")
	quick, structural := splitRoadmap(a.Recommendations)
	fmt.Fprintf(&b, "### Phase 1: Quick Wins (0-30 Days)\n\n")
	writeRecommendations(&b, quick)
	fmt.Fprintf(&b, "### Phase 2: Structural Transformation\n\n")
	writeRecommendations(&b, structural)

	fmt.Fprintf(&b, "**Projected Annual Value Unlocked: %s**\n", inr(a.AnnualFinancialLoss()))
	return b.String()
}

func splitRoadmap(recs []lossengine.Recommendation) (quick, structural []lossengine.Recommendation) {
	for _, r := range recs {
		switch r.Type {
		case lossengine.RecommendationAutomate, lossengine.RecommendationEliminate:
			quick = append(quick, r)
		default:
			structural = append(structural, r)
		}
	}
	return quick, structural
}

func writeRecommendations(b *strings.Builder, recs []lossengine.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintf(b, "_None identified._\n\n")
		return
	}
	for _, r := range recs {
		fmt.Fprintf(b, "- **%s**\n  _Impact: %s_\n", sanitize(r.Action), sanitize(r.Impact))
	}
	fmt.Fprintf(b, "\n")
}

func diagnosisLabel(src lossengine.DiagnosisSource) string {
	if src == lossengine.DiagnosisReasoning {
		return "AI-assisted"
	}
	return "Heuristic"
}

func inr(v float64) string {
	return "INR " + humanize.Comma(int64(math.Round(v)))
}

func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

func sanitizeCell(s string) string {
	s = sanitize(s)
	return strings.ReplaceAll(s, "|", "\\|")
}
