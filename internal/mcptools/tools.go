package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joelkehle/lossaudit/internal/lossengine"
	"github.com/joelkehle/lossaudit/internal/report"
	"github.com/joelkehle/lossaudit/internal/store"
)

type Analyzer interface {
	Analyze(ctx context.Context, in lossengine.WorkflowInput) lossengine.LossAnalysis
}

type RecordStore interface {
	Create(ctx context.Context, in lossengine.WorkflowInput, result lossengine.LossAnalysis, ownerID *int64) (int64, error)
	Get(ctx context.Context, id int64) (store.Record, error)
}

// NewServer builds the stdio MCP server. get_analysis is only offered when
// a store is configured.
func NewServer(engine Analyzer, records RecordStore, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"lossaudit",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.AddTools(serverTools(engine, records)...)
	return s
}

func serverTools(engine Analyzer, records RecordStore) []server.ServerTool {
	analyze := NewAnalyzeTool(engine, records)
	tools := []server.ServerTool{{Tool: analyze.Definition(), Handler: analyze.Handle}}
	if records != nil {
		get := NewGetAnalysisTool(records)
		tools = append(tools, server.ServerTool{Tool: get.Definition(), Handler: get.Handle})
	}
	return tools
}

// AnalyzeTool handles the analyze_workflow MCP tool.
type AnalyzeTool struct {
	engine  Analyzer
	records RecordStore
	clock   func() time.Time
}

func NewAnalyzeTool(engine Analyzer, records RecordStore) *AnalyzeTool {
	return &AnalyzeTool{engine: engine, records: records, clock: time.Now}
}

func (t *AnalyzeTool) Definition() mcp.Tool {
	return mcp.NewTool("analyze_workflow",
		mcp.WithDescription(
			"Estimate the hidden weekly time and money a business workflow loses to coordination overhead, "+
				"approval latency, tool sprawl and rework. Returns an audit report plus the raw analysis JSON.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Workflow name, e.g. 'Vendor onboarding'"),
		),
		mcp.WithString("description",
			mcp.Description("Free-text description of how the workflow runs today"),
		),
		mcp.WithNumber("people_involved",
			mcp.Required(),
			mcp.Description("Number of people who touch one run of the workflow"),
		),
		mcp.WithNumber("approvals_per_task",
			mcp.Description("Sign-offs required per run (default: 0)"),
		),
		mcp.WithString("tools_used",
			mcp.Description("Comma-separated list of tools, e.g. 'Jira, Slack, Excel'"),
		),
		mcp.WithNumber("avg_delays_hours",
			mcp.Description("Average waiting time per run in hours (default: 0)"),
		),
		mcp.WithNumber("rejection_rate",
			mcp.Description("Percentage of runs sent back for rework, 0-100 (default: 0)"),
		),
		mcp.WithNumber("monthly_volume",
			mcp.Description("Runs per month (default: 1)"),
		),
		mcp.WithNumber("avg_annual_salary",
			mcp.Description("Average annual salary of participants in INR (default: 2500000)"),
		),
		mcp.WithNumber("total_project_budget",
			mcp.Description("Total budget invested in the workflow in INR (default: 5000000)"),
		),
	)
}

func (t *AnalyzeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	in, err := inputFromRequest(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := in.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	analysis := t.engine.Analyze(ctx, in)
	if t.records != nil {
		id, err := t.records.Create(ctx, in, analysis, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to save analysis: %v", err)), nil
		}
		analysis.ID = &id
	}

	blob, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	var sb strings.Builder
	sb.WriteString(report.BuildAuditReport(in, analysis, t.clock()))
	sb.WriteString("\n```json\n")
	sb.Write(blob)
	sb.WriteString("\n```\n")
	return mcp.NewToolResultText(sb.String()), nil
}

// inputFromRequest maps tool arguments onto a WorkflowInput. Counts arrive
// as JSON numbers and must be whole.
func inputFromRequest(req mcp.CallToolRequest) (lossengine.WorkflowInput, error) {
	var fields []string
	in := lossengine.WorkflowInput{
		Name:               strings.TrimSpace(req.GetString("name", "")),
		Description:        req.GetString("description", ""),
		PeopleInvolved:     intArg(req, "people_involved", 0, &fields),
		ApprovalsPerTask:   intArg(req, "approvals_per_task", 0, &fields),
		AvgDelaysHours:     req.GetFloat("avg_delays_hours", 0),
		RejectionRate:      req.GetFloat("rejection_rate", 0),
		MonthlyVolume:      intArg(req, "monthly_volume", lossengine.DefaultMonthlyVolume, &fields),
		AvgAnnualSalary:    req.GetFloat("avg_annual_salary", lossengine.DefaultAvgAnnualSalary),
		TotalProjectBudget: req.GetFloat("total_project_budget", lossengine.DefaultTotalProjectBudget),
		ToolsUsed:          []string{},
	}
	for _, tool := range strings.Split(req.GetString("tools_used", ""), ",") {
		if tool = strings.TrimSpace(tool); tool != "" {
			in.ToolsUsed = append(in.ToolsUsed, tool)
		}
	}
	if len(fields) > 0 {
		return lossengine.WorkflowInput{}, &lossengine.ValidationError{Fields: fields}
	}
	return in, nil
}

func intArg(req mcp.CallToolRequest, key string, def int, fields *[]string) int {
	v := req.GetFloat(key, float64(def))
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		*fields = append(*fields, key+" must be a whole number")
		return def
	}
	return int(v)
}

// GetAnalysisTool handles the get_analysis MCP tool.
type GetAnalysisTool struct {
	records RecordStore
	clock   func() time.Time
}

func NewGetAnalysisTool(records RecordStore) *GetAnalysisTool {
	return &GetAnalysisTool{records: records, clock: time.Now}
}

func (t *GetAnalysisTool) Definition() mcp.Tool {
	return mcp.NewTool("get_analysis",
		mcp.WithDescription("Fetch a stored workflow analysis by id and return it as an audit report."),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Workflow id returned by analyze_workflow"),
		),
	)
}

func (t *GetAnalysisTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetFloat("id", 0)
	if raw <= 0 || raw != math.Trunc(raw) {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	id := int64(raw)
	rec, err := t.records.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("workflow %d not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load workflow %d: %v", id, err)), nil
	}
	return mcp.NewToolResultText(report.BuildAuditReport(rec.Input, rec.Result, t.clock())), nil
}
