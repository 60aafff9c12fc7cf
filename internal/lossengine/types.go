package lossengine

import (
	"fmt"
	"strings"
)

const (
	HoursPerYear  = 2000.0
	WeeksPerYear  = 50.0
	MonthsPerYear = 12.0
)

// Defaults applied to fields a caller leaves out of a request body.
const (
	DefaultMonthlyVolume      = 1
	DefaultAvgAnnualSalary    = 2500000.0
	DefaultTotalProjectBudget = 5000000.0
)

type Severity string

const (
	SeverityLow    Severity = "Low"
	SeverityMedium Severity = "Medium"
	SeverityHigh   Severity = "High"
)

type RecommendationType string

const (
	RecommendationSimplify    RecommendationType = "Simplify"
	RecommendationAutomate    RecommendationType = "Automate"
	RecommendationRestructure RecommendationType = "Restructure"
	RecommendationReview      RecommendationType = "Review"
	RecommendationEliminate   RecommendationType = "Eliminate"
)

type DiagnosisSource string

const (
	DiagnosisRules     DiagnosisSource = "rules"
	DiagnosisReasoning DiagnosisSource = "reasoning"
)

type WorkflowInput struct {
	Name               string   `json:"name" yaml:"name"`
	Description        string   `json:"description" yaml:"description"`
	PeopleInvolved     int      `json:"people_involved" yaml:"people_involved"`
	ApprovalsPerTask   int      `json:"approvals_per_task" yaml:"approvals_per_task"`
	ToolsUsed          []string `json:"tools_used" yaml:"tools_used"`
	AvgDelaysHours     float64  `json:"avg_delays_hours" yaml:"avg_delays_hours"`
	RejectionRate      float64  `json:"rejection_rate" yaml:"rejection_rate"`
	MonthlyVolume      int      `json:"monthly_volume" yaml:"monthly_volume"`
	AvgAnnualSalary    float64  `json:"avg_annual_salary" yaml:"avg_annual_salary"`
	TotalProjectBudget float64  `json:"total_project_budget" yaml:"total_project_budget"`
}

// DefaultInput returns a WorkflowInput pre-populated with request defaults.
// Decode a request body into it so absent fields keep their default value.
func DefaultInput() WorkflowInput {
	return WorkflowInput{
		MonthlyVolume:      DefaultMonthlyVolume,
		AvgAnnualSalary:    DefaultAvgAnnualSalary,
		TotalProjectBudget: DefaultTotalProjectBudget,
	}
}

func (in WorkflowInput) ToolCount() int { return len(in.ToolsUsed) }

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid workflow input: " + strings.Join(e.Fields, "; ")
}

// Validate checks the structural contract callers must enforce before
// handing an input to the engine. The engine itself never calls it.
func (in WorkflowInput) Validate() error {
	var fields []string
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, "name is required")
	}
	if in.PeopleInvolved < 0 {
		fields = append(fields, "people_involved must be >= 0")
	}
	if in.ApprovalsPerTask < 0 {
		fields = append(fields, "approvals_per_task must be >= 0")
	}
	if in.AvgDelaysHours < 0 {
		fields = append(fields, "avg_delays_hours must be >= 0")
	}
	if in.MonthlyVolume < 1 {
		fields = append(fields, "monthly_volume must be >= 1")
	}
	if in.AvgAnnualSalary <= 0 {
		fields = append(fields, "avg_annual_salary must be > 0")
	}
	if in.TotalProjectBudget < 0 {
		fields = append(fields, "total_project_budget must be >= 0")
	}
	for i, tool := range in.ToolsUsed {
		if strings.TrimSpace(tool) == "" {
			fields = append(fields, fmt.Sprintf("tools_used[%d] is empty", i))
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// LossPoint is one diagnosed source of invisible cost. RootCause and
// BlindnessReason are optional; reasoning-service output may omit them.
type LossPoint struct {
	Title           string `json:"title"`
	Reason          string `json:"reason"`
	RootCause       string `json:"root_cause,omitempty"`
	BlindnessReason string `json:"blindness_reason,omitempty"`
	Impact          string `json:"impact"`
}

// Explanation returns the best available causal text for renderers,
// falling back to placeholder when neither optional field is set.
func (p LossPoint) Explanation(placeholder string) string {
	if s := strings.TrimSpace(p.RootCause); s != "" {
		return s
	}
	if s := strings.TrimSpace(p.BlindnessReason); s != "" {
		return s
	}
	return placeholder
}

type Recommendation struct {
	Type                   RecommendationType `json:"type"`
	Action                 string             `json:"action"`
	Impact                 string             `json:"impact"`
	SimulatorAction        string             `json:"simulator_action,omitempty"`
	ProjectedWeeklySavings float64            `json:"projected_weekly_savings,omitempty"`
}

type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

type LossAnalysis struct {
	ID                     *int64             `json:"id,omitempty"`
	WeeklyTimeLossHours    float64            `json:"weekly_time_loss_hours"`
	EstimatedFinancialLoss float64            `json:"estimated_financial_loss"`
	ConfidenceInterval     ConfidenceInterval `json:"confidence_interval"`
	DecisionDelayIndex     float64            `json:"decision_delay_index"`
	IndustryBenchmarkScore int                `json:"industry_benchmark_score"`
	ReworkLossHours        float64            `json:"rework_loss_hours"`
	WasteRatio             float64            `json:"waste_ratio"`
	TotalInvestment        float64            `json:"total_investment"`
	Severity               Severity           `json:"severity"`
	ClarityScore           int                `json:"clarity_score"`
	InvisibleLossPoints    []LossPoint        `json:"invisible_loss_points"`
	Recommendations        []Recommendation   `json:"recommendations"`
	DiagnosisSource        DiagnosisSource    `json:"diagnosis_source"`
}

// AnnualFinancialLoss re-annualizes the weekly figure the way reports quote it.
func (a LossAnalysis) AnnualFinancialLoss() float64 {
	return a.EstimatedFinancialLoss * WeeksPerYear
}
