package mcptools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/lossaudit/internal/lossengine"
	"github.com/joelkehle/lossaudit/internal/store"
)

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

func newEngine() *lossengine.Engine {
	return lossengine.New(lossengine.WithRandomSource(fixedRand(5)))
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func vendorArgs() map[string]interface{} {
	return map[string]interface{}{
		"name":               "Vendor onboarding",
		"people_involved":    float64(10),
		"approvals_per_task": float64(3),
		"tools_used":         "Jira, Slack,, Excel , SAP",
		"avg_delays_hours":   float64(6),
		"rejection_rate":     float64(10),
		"monthly_volume":     float64(4),
	}
}

func extractJSON(t *testing.T, text string) lossengine.LossAnalysis {
	t.Helper()
	start := strings.Index(text, "```json\n")
	require.GreaterOrEqual(t, start, 0)
	body := text[start+len("```json\n"):]
	end := strings.Index(body, "\n```")
	require.GreaterOrEqual(t, end, 0)
	var a lossengine.LossAnalysis
	require.NoError(t, json.Unmarshal([]byte(body[:end]), &a))
	return a
}

func TestAnalyzeToolDefinition(t *testing.T) {
	def := NewAnalyzeTool(newEngine(), nil).Definition()
	assert.Equal(t, "analyze_workflow", def.Name)
	assert.ElementsMatch(t, []string{"name", "people_involved"}, def.InputSchema.Required)
	assert.Contains(t, def.InputSchema.Properties, "tools_used")
	assert.Contains(t, def.InputSchema.Properties, "total_project_budget")
}

func TestInputFromRequest(t *testing.T) {
	in, err := inputFromRequest(makeReq(vendorArgs()))
	require.NoError(t, err)
	assert.Equal(t, []string{"Jira", "Slack", "Excel", "SAP"}, in.ToolsUsed)
	assert.Equal(t, 10, in.PeopleInvolved)
	assert.Equal(t, 4, in.MonthlyVolume)
	assert.Equal(t, lossengine.DefaultAvgAnnualSalary, in.AvgAnnualSalary)
	assert.Equal(t, lossengine.DefaultTotalProjectBudget, in.TotalProjectBudget)

	bare, err := inputFromRequest(makeReq(map[string]interface{}{"name": "x"}))
	require.NoError(t, err)
	assert.Equal(t, lossengine.DefaultMonthlyVolume, bare.MonthlyVolume)
	assert.Empty(t, bare.ToolsUsed)
}

func TestAnalyzeToolPersists(t *testing.T) {
	st := newTestStore(t)
	tool := NewAnalyzeTool(newEngine(), st)
	tool.clock = func() time.Time { return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC) }

	res, err := tool.Handle(context.Background(), makeReq(vendorArgs()))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(res))

	text := resultText(res)
	assert.True(t, strings.HasPrefix(text, "# Operational Intelligence Audit"))
	assert.Contains(t, text, "- Reference: Workflow #1")
	a := extractJSON(t, text)
	require.NotNil(t, a.ID)
	assert.InDelta(t, 156900.0, a.EstimatedFinancialLoss, 1e-6)

	rec, err := st.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, rec.OwnerID)
	assert.Equal(t, "Vendor onboarding", rec.Name)
}

func TestAnalyzeToolWithoutStore(t *testing.T) {
	res, err := NewAnalyzeTool(newEngine(), nil).Handle(context.Background(), makeReq(vendorArgs()))
	require.NoError(t, err)
	require.False(t, res.IsError)
	a := extractJSON(t, resultText(res))
	assert.Nil(t, a.ID)
	assert.NotContains(t, resultText(res), "Reference:")
}

func TestAnalyzeToolRejectsInvalidInput(t *testing.T) {
	args := vendorArgs()
	args["name"] = "  "
	args["people_involved"] = float64(-3)
	res, err := NewAnalyzeTool(newEngine(), nil).Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Contains(t, resultText(res), "name is required")
	assert.Contains(t, resultText(res), "people_involved must be >= 0")
}

func TestAnalyzeToolRejectsFractionalCounts(t *testing.T) {
	args := vendorArgs()
	args["people_involved"] = 2.7
	args["monthly_volume"] = 1.5
	_, err := inputFromRequest(makeReq(args))
	var ve *lossengine.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"people_involved must be a whole number", "monthly_volume must be a whole number"}, ve.Fields)

	st := newTestStore(t)
	res, err := NewAnalyzeTool(newEngine(), st).Handle(context.Background(), makeReq(args))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Contains(t, resultText(res), "people_involved must be a whole number")

	res, err = NewGetAnalysisTool(st).Handle(context.Background(), makeReq(map[string]interface{}{"id": 1.5}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestGetAnalysisTool(t *testing.T) {
	st := newTestStore(t)
	engine := newEngine()
	_, err := NewAnalyzeTool(engine, st).Handle(context.Background(), makeReq(vendorArgs()))
	require.NoError(t, err)

	tool := NewGetAnalysisTool(st)
	assert.Equal(t, "get_analysis", tool.Definition().Name)

	res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": float64(1)}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, resultText(res), "| INR 156,900 | 30/100 | CRITICAL |")

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{"id": float64(99)}))
	require.NoError(t, err)
	require.True(t, res.IsError)
	assert.Equal(t, "workflow 99 not found", resultText(res))

	res, err = tool.Handle(context.Background(), makeReq(map[string]interface{}{}))
	require.NoError(t, err)
	require.True(t, res.IsError)
}

func TestServerTools(t *testing.T) {
	names := func(tools []server.ServerTool) []string {
		out := make([]string, 0, len(tools))
		for _, st := range tools {
			out = append(out, st.Tool.Name)
		}
		return out
	}
	assert.Equal(t, []string{"analyze_workflow", "get_analysis"}, names(serverTools(newEngine(), newTestStore(t))))
	assert.Equal(t, []string{"analyze_workflow"}, names(serverTools(newEngine(), nil)))
	assert.NotNil(t, NewServer(newEngine(), nil, "test"))
}
