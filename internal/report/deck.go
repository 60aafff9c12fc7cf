package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

const (
	deckFrictionPoints = 3
	deckActions        = 5
)

// BuildDeck renders the executive slide deck as markdown. Slides are
// separated by thematic breaks, which the PDF renderer turns into page
// breaks.
func BuildDeck(in lossengine.WorkflowInput, a lossengine.LossAnalysis, generatedAt time.Time) string {
	var slides []string

	var s strings.Builder
	fmt.Fprintf(&s, "# Invisible Business Loss Report\n\n")
	fmt.Fprintf(&s, "## %s\n\n", sanitize(in.Name))
	fmt.Fprintf(&s, "Generated %s\n", generatedAt.Format("2006-01-02"))
	slides = append(slides, s.String())

	s.Reset()
	fmt.Fprintf(&s, "# Executive Summary\n\n")
	fmt.Fprintf(&s, "- Team Size: %d | Approvals: %d | Tools: %d\n", in.PeopleInvolved, in.ApprovalsPerTask, in.ToolCount())
	fmt.Fprintf(&s, "- Financial Impact: %s / week\n", inr(a.EstimatedFinancialLoss))
	fmt.Fprintf(&s, "- Estimated Annual Financial Loss: %s\n", inr(a.AnnualFinancialLoss()))
	fmt.Fprintf(&s, "- Time Wasted: %s hours / week\n", humanize.FormatFloat("#,###.#", a.WeeklyTimeLossHours))
	fmt.Fprintf(&s, "- Clarity Score: %d/100 (Industry Avg: %d)\n", a.ClarityScore, a.IndustryBenchmarkScore)
	fmt.Fprintf(&s, "- Risk Severity: %s\n", a.Severity)
	slides = append(slides, s.String())

	s.Reset()
	fmt.Fprintf(&s, "# Identified Friction Points\n\n")
	points := a.InvisibleLossPoints
	if len(points) > deckFrictionPoints {
		points = points[:deckFrictionPoints]
	}
	if len(points) == 0 {
		fmt.Fprintf(&s, "No structural friction points were detected.\n")
	}
	for _, p := range points {
		impact := strings.TrimSpace(p.Impact)
		if impact == "" {
			impact = impactPlaceholder
		}
		fmt.Fprintf(&s, "- **%s:** %s (Impact: %s)\n", sanitize(p.Title), sanitize(p.Reason), sanitize(impact))
	}
	slides = append(slides, s.String())

	s.Reset()
	fmt.Fprintf(&s, "# Strategic Action Plan\n\n")
	recs := a.Recommendations
	if len(recs) > deckActions {
		recs = recs[:deckActions]
	}
	for _, r := range recs {
		fmt.Fprintf(&s, "- **%s:** %s\n  - Impact: %s\n", strings.ToUpper(string(r.Type)), sanitize(r.Action), sanitize(r.Impact))
	}
	slides = append(slides, s.String())

	return strings.Join(slides, "\n---\n\n")
}
