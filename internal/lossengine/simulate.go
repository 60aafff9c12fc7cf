package lossengine

import "math"

// Scenario is a what-if adjustment of the structural knobs of a workflow.
type Scenario struct {
	PeopleInvolved   int `json:"people_involved"`
	ApprovalsPerTask int `json:"approvals_per_task"`
	ToolCount        int `json:"tool_count"`
	MonthlyVolume    int `json:"monthly_volume"`
}

// ScenarioFromInput returns the scenario that reproduces the input as-is.
func ScenarioFromInput(in WorkflowInput) Scenario {
	return Scenario{
		PeopleInvolved:   in.PeopleInvolved,
		ApprovalsPerTask: in.ApprovalsPerTask,
		ToolCount:        in.ToolCount(),
		MonthlyVolume:    in.MonthlyVolume,
	}
}

func (s Scenario) Validate() error {
	var fields []string
	if s.PeopleInvolved < 0 {
		fields = append(fields, "people_involved must be >= 0")
	}
	if s.ApprovalsPerTask < 0 {
		fields = append(fields, "approvals_per_task must be >= 0")
	}
	if s.ToolCount < 0 {
		fields = append(fields, "tool_count must be >= 0")
	}
	if s.MonthlyVolume < 1 {
		fields = append(fields, "monthly_volume must be >= 1")
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// AutoOptimize applies the stock best-practice targets: at most two
// approvals, a two-pizza team and one to three tools.
func AutoOptimize(s Scenario) Scenario {
	return Scenario{
		ApprovalsPerTask: clampInt(int(math.Floor(float64(s.ApprovalsPerTask)*0.5)), 0, 2),
		PeopleInvolved:   max(2, int(math.Floor(float64(s.PeopleInvolved)*0.6))),
		ToolCount:        clampInt(int(math.Floor(float64(s.ToolCount)*0.5)), 1, 3),
		MonthlyVolume:    s.MonthlyVolume,
	}
}

// Gauge is one bar of the simulator chart: the scenario value as a
// percentage of the baseline value, capped at 100.
type Gauge struct {
	Name    string `json:"name"`
	Percent int    `json:"percent"`
}

type SimulationResult struct {
	Scenario            Scenario `json:"scenario"`
	TimeLossPerRunHours float64  `json:"time_loss_per_run_hours"`
	BaselineAnnualCost  float64  `json:"baseline_annual_cost"`
	ProjectedAnnualCost float64  `json:"projected_annual_cost"`
	AnnualSavings       float64  `json:"annual_savings"`
	HoursSavedPerYear   float64  `json:"hours_saved_per_year"`
	PercentOfBaseline   int      `json:"percent_of_baseline"`
	Gauges              []Gauge  `json:"gauges"`
}

// Simulate projects the annual cost of a stored workflow under s. Delays
// are modelled as half fixed wait and half proportional to approvals.
func Simulate(in WorkflowInput, analysis LossAnalysis, s Scenario) SimulationResult {
	people := float64(s.PeopleInvolved)
	tool := toolFriction(s.ToolCount, s.PeopleInvolved)
	approval := approvalFriction(s.ApprovalsPerTask, s.PeopleInvolved)

	origApprovals := in.ApprovalsPerTask
	if origApprovals == 0 {
		origApprovals = 1
	}
	baseWait := in.AvgDelaysHours * 0.5
	perApproval := in.AvgDelaysHours * 0.5 / float64(origApprovals)
	delayImpact := (baseWait + perApproval*float64(s.ApprovalsPerTask)) * people

	rework := reworkFriction(delayImpact, approval, in.RejectionRate)
	perRun := tool + approval + delayImpact + rework

	salary := in.AvgAnnualSalary
	if salary <= 0 {
		salary = DefaultAvgAnnualSalary
	}
	rate := HourlyRate(salary)

	projected := perRun * rate * float64(s.MonthlyVolume) * MonthsPerYear
	baseline := analysis.AnnualFinancialLoss()
	savings := baseline - projected

	res := SimulationResult{
		Scenario:            s,
		TimeLossPerRunHours: round(perRun, 2),
		BaselineAnnualCost:  round(baseline, 2),
		ProjectedAnnualCost: round(projected, 2),
		AnnualSavings:       round(savings, 2),
		HoursSavedPerYear:   round(savings/rate, 1),
		PercentOfBaseline:   percentOf(projected, baseline),
	}
	res.Gauges = []Gauge{
		{Name: "Financial Cost", Percent: res.PercentOfBaseline},
		{Name: "Team Overhead", Percent: percentOf(people, float64(in.PeopleInvolved))},
		{Name: "Approval Drag", Percent: percentOf(float64(s.ApprovalsPerTask), float64(in.ApprovalsPerTask))},
		{Name: "Tool Complexity", Percent: percentOf(float64(s.ToolCount), float64(in.ToolCount()))},
	}
	return res
}

func percentOf(v, baseline float64) int {
	if baseline <= 0 {
		return 0
	}
	return min(100, int(math.Floor(v/baseline*100+0.5)))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
