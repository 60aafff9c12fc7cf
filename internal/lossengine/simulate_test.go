package lossengine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateUnchangedScenarioReproducesBaseline(t *testing.T) {
	in := heavyInput()
	analysis := New().Analyze(context.Background(), in)

	res := Simulate(in, analysis, ScenarioFromInput(in))
	assert.InDelta(t, 7845000.0, res.BaselineAnnualCost, 0.01)
	assert.InDelta(t, 7845000.0, res.ProjectedAnnualCost, 0.01)
	assert.InDelta(t, 0.0, res.AnnualSavings, 0.01)
	assert.Equal(t, 100, res.PercentOfBaseline)
	for _, g := range res.Gauges {
		assert.Equal(t, 100, g.Percent, g.Name)
	}
}

func TestAutoOptimize(t *testing.T) {
	got := AutoOptimize(Scenario{PeopleInvolved: 10, ApprovalsPerTask: 3, ToolCount: 4, MonthlyVolume: 4})
	assert.Equal(t, Scenario{PeopleInvolved: 6, ApprovalsPerTask: 1, ToolCount: 2, MonthlyVolume: 4}, got)

	small := AutoOptimize(Scenario{PeopleInvolved: 2, ApprovalsPerTask: 0, ToolCount: 0, MonthlyVolume: 1})
	assert.Equal(t, 2, small.PeopleInvolved)
	assert.Equal(t, 0, small.ApprovalsPerTask)
	assert.Equal(t, 1, small.ToolCount)

	big := AutoOptimize(Scenario{PeopleInvolved: 40, ApprovalsPerTask: 9, ToolCount: 12, MonthlyVolume: 7})
	assert.Equal(t, 24, big.PeopleInvolved)
	assert.Equal(t, 2, big.ApprovalsPerTask)
	assert.Equal(t, 3, big.ToolCount)
	assert.Equal(t, 7, big.MonthlyVolume)
}

func TestSimulateOptimizedScenario(t *testing.T) {
	in := heavyInput()
	analysis := New().Analyze(context.Background(), in)

	res := Simulate(in, analysis, AutoOptimize(ScenarioFromInput(in)))
	assert.InDelta(t, 37.95, res.TimeLossPerRunHours, 1e-9)
	assert.InDelta(t, 2277000.0, res.ProjectedAnnualCost, 0.01)
	assert.InDelta(t, 5568000.0, res.AnnualSavings, 0.01)
	assert.InDelta(t, 4454.4, res.HoursSavedPerYear, 1e-9)
	assert.Equal(t, 29, res.PercentOfBaseline)

	require.Len(t, res.Gauges, 4)
	assert.Equal(t, Gauge{Name: "Team Overhead", Percent: 60}, res.Gauges[1])
	assert.Equal(t, Gauge{Name: "Approval Drag", Percent: 33}, res.Gauges[2])
	assert.Equal(t, Gauge{Name: "Tool Complexity", Percent: 50}, res.Gauges[3])
}

func TestSimulateTreatsZeroApprovalsAsOne(t *testing.T) {
	in := lightInput()
	in.AvgDelaysHours = 4
	analysis := New().Analyze(context.Background(), in)

	// baseline has no approvals: adding two doubles the proportional half of the delay
	res := Simulate(in, analysis, Scenario{PeopleInvolved: 2, ApprovalsPerTask: 2, ToolCount: 0, MonthlyVolume: 1})
	wantDelay := (2.0 + 2.0*2) * 2
	wantApproval := 2 * 2 * 1.5
	assert.InDelta(t, wantDelay+wantApproval, res.TimeLossPerRunHours, 1e-9)
	assert.Equal(t, 100, res.PercentOfBaseline)
	assert.Equal(t, 0, res.Gauges[2].Percent)
}

func TestSimulateZeroBaseline(t *testing.T) {
	in := lightInput()
	analysis := New().Analyze(context.Background(), in)
	res := Simulate(in, analysis, ScenarioFromInput(in))
	assert.Zero(t, res.BaselineAnnualCost)
	assert.Zero(t, res.PercentOfBaseline)
}

func TestScenarioValidate(t *testing.T) {
	require.NoError(t, ScenarioFromInput(heavyInput()).Validate())

	err := Scenario{PeopleInvolved: -1, ToolCount: -2}.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Fields, 3)
}
