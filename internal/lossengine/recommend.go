package lossengine

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Recommend returns the remediation list for an input. It is never empty.
func Recommend(in WorkflowInput, f Friction, fin Financials) []Recommendation {
	var recs []Recommendation

	if in.ApprovalsPerTask > 1 {
		savings := approvalRemovalSavings(in, f, fin)
		recs = append(recs, Recommendation{
			Type:                   RecommendationSimplify,
			Action:                 "Implement 'Negative Consent' protocol.",
			Impact:                 fmt.Sprintf("Projected Savings: ₹%s/week", humanize.Comma(int64(savings))),
			SimulatorAction:        "Reduce Approvals by 1",
			ProjectedWeeklySavings: round(savings, 2),
		})
	}

	if in.ToolCount() > 3 {
		recs = append(recs, Recommendation{
			Type:            RecommendationAutomate,
			Action:          "Unify Data Ingestion Layer.",
			Impact:          "Recovers 10+ hours/week per person.",
			SimulatorAction: "Consolidate Tools",
		})
	}

	if in.PeopleInvolved > 5 {
		recs = append(recs, Recommendation{
			Type:            RecommendationRestructure,
			Action:          "Split into Two-Pizza Teams.",
			Impact:          "Reduces coordination overhead by 40%.",
			SimulatorAction: "Reduce Team Size",
		})
	}

	if len(recs) == 0 {
		recs = append(recs, Recommendation{
			Type:   RecommendationReview,
			Action: "Conduct a detailed process audit.",
			Impact: "Uncover further hidden constraints.",
		})
	}
	return recs
}

// approvalRemovalSavings prices dropping one approval step. The hypothetical
// per-run loss leaves rework out and is subtracted from the weekly hours
// figure, not the per-run one; saved reports depend on that exact number.
func approvalRemovalSavings(in WorkflowInput, f Friction, fin Financials) float64 {
	newApproval := approvalFriction(in.ApprovalsPerTask-1, in.PeopleInvolved)
	newLoss := f.Tool + newApproval + f.BaseDelay
	return (fin.WeeklyTimeLossHours - newLoss) * fin.HourlyRate
}
