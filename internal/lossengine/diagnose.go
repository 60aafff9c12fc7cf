package lossengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const DefaultReasoningTimeout = 20 * time.Second

// ReasoningClient is the optional natural-language reasoning service.
type ReasoningClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	errEmptyDiagnosis      = errors.New("reasoning response contained no loss points")
	errIncompleteDiagnosis = errors.New("reasoning response contained a loss point without title or reason")
)

// RuleDiagnoser is the deterministic heuristic tier.
type RuleDiagnoser struct{}

func (RuleDiagnoser) Diagnose(in WorkflowInput) []LossPoint {
	points := []LossPoint{}
	tools := in.ToolCount()

	switch {
	case tools > 3:
		points = append(points, LossPoint{
			Title:           "Cognitive Context Switching",
			Reason:          fmt.Sprintf("Workflow spans %d distinct platforms, forcing mental re-calibration.", tools),
			RootCause:       "Fragmented IT procurement allowed departments to adopt isolated tools without integration strategy.",
			BlindnessReason: "License costs are visible in budgets, but 'attention residue' time loss does not appear on P&L.",
			Impact:          "Reduces deep-work capacity by ~20%.",
		})
	case tools == 0:
		points = append(points, LossPoint{
			Title:           "Digital Opacity",
			Reason:          "Process relies entirely on verbal/manual transmission.",
			RootCause:       "Historical preference for 'speed' over 'structure' during early company growth.",
			BlindnessReason: "Errors are blamed on 'human mistake' rather than 'system design'.",
			Impact:          "High risk of tribal knowledge loss.",
		})
	}

	if in.ApprovalsPerTask > 2 {
		points = append(points, LossPoint{
			Title:           "Decision Latency Accumulation",
			Reason:          fmt.Sprintf("Requires %d distinct sign-offs, creating exponential delays.", in.ApprovalsPerTask),
			RootCause:       "Lack of delegated authority; fear of making autonomous wrong decisions.",
			BlindnessReason: "Managers feel 'productive' when approving, ignoring the cost of the queue they create.",
			Impact:          "Cycle time extends 4x beyond actual working hours.",
		})
	}

	if in.PeopleInvolved > 6 {
		pathways := in.PeopleInvolved * (in.PeopleInvolved - 1) / 2
		points = append(points, LossPoint{
			Title:           "Communication Overhead Entropy",
			Reason:          fmt.Sprintf("%d active participants creates ~%d communication pathways.", in.PeopleInvolved, pathways),
			RootCause:       "Unclear definition of 'consulted' vs 'responsible' (RACI) roles.",
			BlindnessReason: "Large meetings feel like 'collaboration', hiding the reality of 'consensus paralysis'.",
			Impact:          "15% of total time lost clarifying requirements.",
		})
	}
	return points
}

// TieredDiagnoser computes the rule tier, then lets a reasoning-service
// diagnosis replace it wholesale when one parses. Failures never escape.
type TieredDiagnoser struct {
	rules   RuleDiagnoser
	client  ReasoningClient
	timeout time.Duration
	log     zerolog.Logger
}

func NewTieredDiagnoser(client ReasoningClient, timeout time.Duration, log zerolog.Logger) *TieredDiagnoser {
	if timeout <= 0 {
		timeout = DefaultReasoningTimeout
	}
	return &TieredDiagnoser{client: client, timeout: timeout, log: log}
}

func (d *TieredDiagnoser) Diagnose(ctx context.Context, in WorkflowInput) ([]LossPoint, DiagnosisSource) {
	points := d.rules.Diagnose(in)
	if d.client == nil {
		return points, DiagnosisRules
	}

	ctx, span := tracer.Start(ctx, "lossengine.ReasoningTier")
	defer span.End()

	aiPoints, kind, err := d.reason(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fell back to rule tier")
		span.SetAttributes(attribute.String("reasoning.failure", kind))
		d.log.Warn().Err(err).Str("failure", kind).Str("workflow", in.Name).Int("rule_points", len(points)).
			Msg("reasoning tier failed, keeping rule diagnosis")
		return points, DiagnosisRules
	}
	span.SetAttributes(attribute.Int("loss_points", len(aiPoints)))
	return aiPoints, DiagnosisReasoning
}

type generateResult struct {
	raw string
	err error
}

// reason runs one reasoning call and reports a failure kind alongside any
// error: timeout, panic, transport, empty or parse. Providers that classify
// their own errors via FailureKind override the transport kind. The call
// runs in its own goroutine so a client that ignores its context still
// cannot hold the analysis past the timeout.
func (d *TieredDiagnoser) reason(ctx context.Context, in WorkflowInput) ([]LossPoint, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	prompt := BuildDiagnosisPrompt(in)
	done := make(chan generateResult, 1)
	panicked := make(chan any, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				panicked <- r
			}
		}()
		raw, err := d.client.Generate(callCtx, prompt)
		done <- generateResult{raw: raw, err: err}
	}()

	var res generateResult
	select {
	case res = <-done:
	case r := <-panicked:
		return nil, "panic", fmt.Errorf("reasoning client panic: %v", r)
	case <-callCtx.Done():
		return nil, "timeout", fmt.Errorf("reasoning call: %w", callCtx.Err())
	}

	if res.err != nil {
		return nil, callFailureKind(res.err), fmt.Errorf("reasoning call: %w", res.err)
	}
	points, err := ParseLossPoints(res.raw)
	switch {
	case err == nil:
		return points, "", nil
	case errors.Is(err, errEmptyDiagnosis), errors.Is(err, errIncompleteDiagnosis):
		return nil, "empty", err
	default:
		return nil, "parse", err
	}
}

func callFailureKind(err error) string {
	var classified interface{ FailureKind() string }
	switch {
	case errors.As(err, &classified):
		return classified.FailureKind()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "transport"
	}
}

func BuildDiagnosisPrompt(in WorkflowInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Act as a senior business operations consultant. Analyze this workflow description:\n")
	fmt.Fprintf(&b, "%q\n\n", in.Description)
	fmt.Fprintf(&b, "Context: %d people, %d approvals, Tools: %s.\n\n", in.PeopleInvolved, in.ApprovalsPerTask, strings.Join(in.ToolsUsed, ", "))
	fmt.Fprintf(&b, "Identify 3 specific \"Invisible Loss Points\". Return ONLY JSON in this format:\n")
	fmt.Fprintf(&b, "[\n  { \"title\": \"...\", \"reason\": \"...\", \"root_cause\": \"...\", \"blindness_reason\": \"...\", \"impact\": \"...\" }\n]\n")
	fmt.Fprintf(&b, "Keep it professional, insightful, and harsh.")
	return b.String()
}

// ParseLossPoints decodes a reasoning response as a JSON array of loss
// points, tolerating markdown code fences around it.
func ParseLossPoints(raw string) ([]LossPoint, error) {
	clean := stripCodeFences(raw)
	if clean == "" {
		return nil, errEmptyDiagnosis
	}
	var points []LossPoint
	dec := json.NewDecoder(strings.NewReader(clean))
	if err := dec.Decode(&points); err != nil {
		return nil, fmt.Errorf("decode loss points: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode loss points: trailing data after array")
	}
	if len(points) == 0 {
		return nil, errEmptyDiagnosis
	}
	for _, p := range points {
		if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Reason) == "" {
			return nil, errIncompleteDiagnosis
		}
	}
	return points, nil
}

// stripCodeFences removes one markdown fence wrapping the response. Fences
// must start a line, so backticks inside JSON strings are left alone; prose
// around the fenced block is dropped.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	start := -1
	if strings.HasPrefix(s, "```") {
		start = 0
	} else if i := strings.Index(s, "\n```"); i >= 0 {
		start = i + 1
	}
	if start < 0 {
		return s
	}
	body := s[start+len("```"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.LastIndex(body, "\n```"); end >= 0 {
		body = body[:end]
	} else {
		body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	}
	return strings.TrimSpace(body)
}
