package lossengine

import "math"

const (
	highSeverityWeeklyLoss   = 500000.0
	mediumSeverityWeeklyLoss = 100000.0

	minClarity = 10
	maxClarity = 100

	activeHoursPerPerson = 2.0
	hoursPerApprovalWait = 24.0
	maxDecisionDelay     = 10.0

	confidenceSpread = 0.15
)

func ClassifySeverity(weeklyFinancialLoss float64) Severity {
	switch {
	case weeklyFinancialLoss > highSeverityWeeklyLoss:
		return SeverityHigh
	case weeklyFinancialLoss > mediumSeverityWeeklyLoss:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func ClarityScore(in WorkflowInput) int {
	score := 100 - 2*in.PeopleInvolved - 5*in.ToolCount() - 10*in.ApprovalsPerTask
	if score < minClarity {
		return minClarity
	}
	if score > maxClarity {
		return maxClarity
	}
	return score
}

// DecisionDelayIndex scores the waiting share of total cycle time on a 0-10 scale.
func DecisionDelayIndex(in WorkflowInput) float64 {
	people := float64(in.PeopleInvolved)
	active := people * activeHoursPerPerson
	wait := in.AvgDelaysHours*people + float64(in.ApprovalsPerTask)*hoursPerApprovalWait
	cycle := active + wait
	if cycle <= 0 {
		return 0
	}
	ddi := round(wait/cycle*maxDecisionDelay, 1)
	return math.Max(0, math.Min(maxDecisionDelay, ddi))
}

func ConfidenceBand(weeklyFinancialLoss float64) ConfidenceInterval {
	return ConfidenceInterval{
		Lower: round(weeklyFinancialLoss*(1-confidenceSpread), 2),
		Upper: round(weeklyFinancialLoss*(1+confidenceSpread), 2),
	}
}
