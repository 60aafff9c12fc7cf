package lossengine

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/joelkehle/lossaudit/internal/lossengine")

const (
	benchmarkFloor = 65
	benchmarkSpan  = 21
)

// RandomSource supplies the benchmark sample. IntN returns a value in [0, n).
type RandomSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type Engine struct {
	reasoning        ReasoningClient
	reasoningTimeout time.Duration
	random           RandomSource
	log              zerolog.Logger
	diagnoser        *TieredDiagnoser
}

type Option func(*Engine)

// WithReasoningClient enables the reasoning tier. A nil client leaves it off.
func WithReasoningClient(c ReasoningClient) Option {
	return func(e *Engine) { e.reasoning = c }
}

func WithReasoningTimeout(d time.Duration) Option {
	return func(e *Engine) { e.reasoningTimeout = d }
}

func WithRandomSource(r RandomSource) Option {
	return func(e *Engine) {
		if r != nil {
			e.random = r
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		reasoningTimeout: DefaultReasoningTimeout,
		random:           globalRand{},
		log:              zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.diagnoser = NewTieredDiagnoser(e.reasoning, e.reasoningTimeout, e.log)
	return e
}

// ReasoningEnabled reports whether Analyze will attempt the reasoning tier.
func (e *Engine) ReasoningEnabled() bool { return e.reasoning != nil }

// Analyze computes a fresh LossAnalysis for in. It never fails: the only
// fallible step, the reasoning tier, degrades to the rule diagnosis. The
// input is expected to have passed Validate; the engine does not re-check it.
func (e *Engine) Analyze(ctx context.Context, in WorkflowInput) LossAnalysis {
	ctx, span := tracer.Start(ctx, "lossengine.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Int("workflow.people", in.PeopleInvolved),
		attribute.Int("workflow.approvals", in.ApprovalsPerTask),
		attribute.Int("workflow.tools", in.ToolCount()),
		attribute.Int("workflow.monthly_volume", in.MonthlyVolume),
	)

	f := ComputeFriction(in)
	fin := ComputeFinancials(in, f)
	points, source := e.diagnoser.Diagnose(ctx, in)

	out := LossAnalysis{
		WeeklyTimeLossHours:    round(fin.WeeklyTimeLossHours, 1),
		EstimatedFinancialLoss: round(fin.WeeklyFinancialLoss, 2),
		ConfidenceInterval:     ConfidenceBand(fin.WeeklyFinancialLoss),
		DecisionDelayIndex:     DecisionDelayIndex(in),
		IndustryBenchmarkScore: benchmarkFloor + e.random.IntN(benchmarkSpan),
		ReworkLossHours:        round(f.Rework, 1),
		WasteRatio:             fin.WasteRatio,
		TotalInvestment:        round(fin.TotalInvestment, 2),
		Severity:               ClassifySeverity(fin.WeeklyFinancialLoss),
		ClarityScore:           ClarityScore(in),
		InvisibleLossPoints:    points,
		Recommendations:        Recommend(in, f, fin),
		DiagnosisSource:        source,
	}
	span.SetAttributes(
		attribute.String("analysis.severity", string(out.Severity)),
		attribute.String("analysis.diagnosis_source", string(out.DiagnosisSource)),
	)
	e.log.Debug().Str("workflow", in.Name).Str("severity", string(out.Severity)).
		Float64("weekly_loss", out.EstimatedFinancialLoss).Str("diagnosis", string(source)).
		Msg("workflow analyzed")
	return out
}
