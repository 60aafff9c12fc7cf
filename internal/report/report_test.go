package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

type fixedRand int

func (f fixedRand) IntN(int) int { return int(f) }

var generatedAt = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func vendorOnboarding() (lossengine.WorkflowInput, lossengine.LossAnalysis) {
	in := lossengine.WorkflowInput{
		Name:               "Vendor onboarding",
		Description:        "Procurement, legal and finance each review every new vendor.",
		PeopleInvolved:     10,
		ApprovalsPerTask:   3,
		ToolsUsed:          []string{"Jira", "Slack", "Excel", "SAP"},
		AvgDelaysHours:     6,
		RejectionRate:      10,
		MonthlyVolume:      4,
		AvgAnnualSalary:    2500000,
		TotalProjectBudget: 5000000,
	}
	a := lossengine.New(lossengine.WithRandomSource(fixedRand(5))).Analyze(context.Background(), in)
	id := int64(42)
	a.ID = &id
	return in, a
}

func TestRateEfficiency(t *testing.T) {
	assert.Equal(t, RatingOptimized, RateEfficiency(96))
	assert.Equal(t, RatingOptimized, RateEfficiency(81))
	assert.Equal(t, RatingSubOptimal, RateEfficiency(80))
	assert.Equal(t, RatingSubOptimal, RateEfficiency(51))
	assert.Equal(t, RatingCritical, RateEfficiency(50))
	assert.Equal(t, RatingCritical, RateEfficiency(10))
}

func TestBuildAuditReport(t *testing.T) {
	in, a := vendorOnboarding()
	md := BuildAuditReport(in, a, generatedAt)

	assert.True(t, strings.HasPrefix(md, "# Operational Intelligence Audit\n"))
	assert.Contains(t, md, "- Subject: Vendor onboarding")
	assert.Contains(t, md, "- Date: March 2, 2026")
	assert.Contains(t, md, "- Reference: Workflow #42")
	assert.Contains(t, md, "- Diagnosis: Heuristic")
	assert.Contains(t, md, "| INR 156,900 | 30/100 | CRITICAL |")
	assert.Contains(t, md, "| Weekly Time Loss | 125.5 hours |")
	assert.Contains(t, md, "| Loss Range (weekly) | INR 133,365 to INR 180,435 |")
	assert.Contains(t, md, "| Industry Benchmark | 70/100 |")
	assert.Contains(t, md, "identified 3 major friction points contributing to a 156.9% waste")
	assert.Contains(t, md, "| Cognitive Context Switching | Fragmented IT procurement")
	assert.Contains(t, md, "**Projected Annual Value Unlocked: INR 7,845,000**")

	quick := strings.Index(md, "### Phase 1")
	structural := strings.Index(md, "### Phase 2")
	require.Positive(t, quick)
	require.Greater(t, structural, quick)
	assert.Contains(t, md[quick:structural], "Unify Data Ingestion Layer.")
	assert.NotContains(t, md[quick:structural], "Negative Consent")
	assert.Contains(t, md[structural:], "Negative Consent")
	assert.Contains(t, md[structural:], "Split into Two-Pizza Teams.")
}

func TestBuildAuditReportPlaceholders(t *testing.T) {
	in, a := vendorOnboarding()
	a.InvisibleLossPoints = []lossengine.LossPoint{{Title: "Queue | Drift", Reason: "Waits\nstack up."}}
	a.DiagnosisSource = lossengine.DiagnosisReasoning
	md := BuildAuditReport(in, a, generatedAt)

	assert.Contains(t, md, "| Queue \\| Drift | Process Ambiguity | High Latency |")
	assert.Contains(t, md, "- **Queue | Drift:** Waits stack up.")
	assert.Contains(t, md, "- Diagnosis: AI-assisted")
}

func TestBuildAuditReportWithoutLossPoints(t *testing.T) {
	in := lossengine.DefaultInput()
	in.Name = "Hallway sign-off"
	in.PeopleInvolved = 2
	in.ToolsUsed = []string{"Email", "Sheets"}
	a := lossengine.New(lossengine.WithRandomSource(fixedRand(0))).Analyze(context.Background(), in)
	md := BuildAuditReport(in, a, generatedAt)

	assert.Contains(t, md, "No structural friction points were detected.")
	assert.Contains(t, md, "| INR 0 | 86/100 | OPTIMIZED |")
	assert.NotContains(t, md, "Reference:")
	assert.Contains(t, md, "Conduct a detailed process audit.")
}

func TestBuildDeck(t *testing.T) {
	in, a := vendorOnboarding()
	a.Recommendations = append(a.Recommendations,
		lossengine.Recommendation{Type: lossengine.RecommendationEliminate, Action: "a4", Impact: "i4"},
		lossengine.Recommendation{Type: lossengine.RecommendationReview, Action: "a5", Impact: "i5"},
		lossengine.Recommendation{Type: lossengine.RecommendationReview, Action: "a6", Impact: "i6"},
	)
	deck := BuildDeck(in, a, generatedAt)

	slides := strings.Split(deck, "\n---\n\n")
	require.Len(t, slides, 4)
	assert.Contains(t, slides[0], "## Vendor onboarding")
	assert.Contains(t, slides[1], "- Team Size: 10 | Approvals: 3 | Tools: 4")
	assert.Contains(t, slides[1], "- Financial Impact: INR 156,900 / week")
	assert.Contains(t, slides[2], "**Cognitive Context Switching:**")
	assert.Equal(t, 3, strings.Count(slides[2], "\n- "))
	assert.Contains(t, slides[3], "**SIMPLIFY:**")
	assert.Contains(t, slides[3], "a5")
	assert.NotContains(t, slides[3], "a6")
}

func TestBuildHTMLPageBreaks(t *testing.T) {
	in, a := vendorOnboarding()

	doc, err := BuildHTML(AuditDocument(Envelope{Input: in, Analysis: a, GeneratedAt: generatedAt}))
	require.NoError(t, err)
	assert.Contains(t, doc, `<h2 data-page-break-before="true">Friction Point Analysis</h2>`)
	assert.Contains(t, doc, `<td class="rating rating-critical">CRITICAL</td>`)
	assert.Contains(t, doc, "<body class='report'>")
	assert.Contains(t, doc, "<span class='report-badge'>Medium severity</span>")

	deck, err := BuildHTML(DeckDocument(Envelope{Input: in, Analysis: a, GeneratedAt: generatedAt}))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(deck, `<div class="slide-break"></div>`))
	assert.NotContains(t, deck, "<hr")
	assert.Contains(t, deck, "<body class='deck'>")
}

func TestApplyPrintLayoutHooks(t *testing.T) {
	out := applyPrintLayoutHooks(`<h2>Strategic Remediation Roadmap</h2><hr /><td>SUB-OPTIMAL</td><h2>Other</h2>`)
	assert.Equal(t, `<h2 data-page-break-before="true">Strategic Remediation Roadmap</h2>`+
		`<div class="slide-break"></div>`+
		`<td class="rating rating-sub-optimal">SUB-OPTIMAL</td><h2>Other</h2>`, out)
}

func TestPaperSize(t *testing.T) {
	w, h := paperSize(LayoutPortrait)
	assert.Less(t, w, h)
	w, h = paperSize(LayoutLandscape)
	assert.Greater(t, w, h)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in, a := vendorOnboarding()
	path := filepath.Join(t.TempDir(), "nested", "vendor.json")

	require.NoError(t, SaveEnvelope(path, Envelope{Input: in, Analysis: a, GeneratedAt: generatedAt}))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	got, err := LoadEnvelope(path)
	require.NoError(t, err)
	assert.Equal(t, in, got.Input)
	assert.Equal(t, a, got.Analysis)
	assert.True(t, generatedAt.Equal(got.GeneratedAt))
}

func TestLoadEnvelopeErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadEnvelope(filepath.Join(dir, "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"input":`), 0o644))
	_, err = LoadEnvelope(bad)
	require.Error(t, err)

	undated := filepath.Join(dir, "undated.json")
	require.NoError(t, os.WriteFile(undated, []byte(`{"input":{"name":"x"}}`), 0o644))
	_, err = LoadEnvelope(undated)
	require.Error(t, err)
}
