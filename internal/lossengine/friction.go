package lossengine

import "math"

// Friction holds the per-run hour penalties derived from workflow structure.
type Friction struct {
	Tool      float64 `json:"tool"`
	Approval  float64 `json:"approval"`
	BaseDelay float64 `json:"base_delay"`
	Rework    float64 `json:"rework"`
}

func (f Friction) PerRun() float64 {
	return f.Tool + f.Approval + f.BaseDelay + f.Rework
}

func ComputeFriction(in WorkflowInput) Friction {
	people := float64(in.PeopleInvolved)
	f := Friction{
		Tool:      toolFriction(in.ToolCount(), in.PeopleInvolved),
		Approval:  approvalFriction(in.ApprovalsPerTask, in.PeopleInvolved),
		BaseDelay: in.AvgDelaysHours * people,
	}
	f.Rework = reworkFriction(f.BaseDelay, f.Approval, in.RejectionRate)
	return f
}

// Only tools beyond the second one cost anything.
func toolFriction(toolCount, people int) float64 {
	extra := toolCount - 2
	if extra < 0 {
		extra = 0
	}
	return float64(extra) * 0.5 * float64(people)
}

func approvalFriction(approvals, people int) float64 {
	return float64(approvals) * float64(people) * 1.5
}

func reworkFriction(delayImpact, approvalImpact, rejectionRate float64) float64 {
	return (delayImpact + approvalImpact) * (rejectionRate / 100) * 1.5
}

type Financials struct {
	HourlyRate          float64 `json:"hourly_rate"`
	LossPerRun          float64 `json:"loss_per_run"`
	AnnualFinancialLoss float64 `json:"annual_financial_loss"`
	WeeklyFinancialLoss float64 `json:"weekly_financial_loss"`
	WeeklyTimeLossHours float64 `json:"weekly_time_loss_hours"`
	TotalInvestment     float64 `json:"total_investment"`
	WasteRatio          float64 `json:"waste_ratio"`
}

func HourlyRate(avgAnnualSalary float64) float64 {
	return avgAnnualSalary / HoursPerYear
}

func ComputeFinancials(in WorkflowInput, f Friction) Financials {
	perRun := f.PerRun()
	rate := HourlyRate(in.AvgAnnualSalary)
	volume := float64(in.MonthlyVolume)

	out := Financials{
		HourlyRate: rate,
		LossPerRun: perRun * rate,
	}
	out.AnnualFinancialLoss = out.LossPerRun * volume * MonthsPerYear
	out.WeeklyFinancialLoss = out.AnnualFinancialLoss / WeeksPerYear
	out.WeeklyTimeLossHours = WeeklyHoursFromPerRun(perRun, in.MonthlyVolume)

	out.TotalInvestment = in.TotalProjectBudget
	if out.TotalInvestment <= 0 {
		out.TotalInvestment = in.AvgAnnualSalary * float64(in.PeopleInvolved)
	}
	if out.TotalInvestment > 0 {
		out.WasteRatio = round(out.AnnualFinancialLoss/out.TotalInvestment*100, 1)
	}
	return out
}

func WeeklyHoursFromPerRun(perRun float64, monthlyVolume int) float64 {
	return perRun * float64(monthlyVolume) * MonthsPerYear / WeeksPerYear
}

// PerRunHoursFromWeekly inverts WeeklyHoursFromPerRun.
func PerRunHoursFromWeekly(weekly float64, monthlyVolume int) float64 {
	if monthlyVolume == 0 {
		return 0
	}
	return weekly * WeeksPerYear / (float64(monthlyVolume) * MonthsPerYear)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
