package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

// Envelope is a saved analysis that the render command can rebuild documents from.
type Envelope struct {
	Input       lossengine.WorkflowInput `json:"input"`
	Analysis    lossengine.LossAnalysis  `json:"analysis"`
	GeneratedAt time.Time                `json:"generated_at"`
}

func LoadEnvelope(path string) (Envelope, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, err
	}
	var env Envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope %s: %w", path, err)
	}
	if env.GeneratedAt.IsZero() {
		return Envelope{}, fmt.Errorf("envelope %s: missing generated_at", path)
	}
	return env, nil
}

func SaveEnvelope(path string, env Envelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	blob, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// AuditDocument wraps the audit markdown for portrait PDF output.
func AuditDocument(env Envelope) Document {
	return Document{
		Title:    "Operational Intelligence Audit: " + sanitize(env.Input.Name),
		Markdown: BuildAuditReport(env.Input, env.Analysis, env.GeneratedAt),
		Layout:   LayoutPortrait,
		Meta: []MetaItem{
			{Label: "Workflow", Value: sanitize(env.Input.Name)},
			{Label: "Generated", Value: env.GeneratedAt.UTC().Format(time.RFC3339)},
		},
		Badges: []string{
			string(env.Analysis.Severity) + " severity",
			string(RateEfficiency(env.Analysis.ClarityScore)),
		},
	}
}

func DeckDocument(env Envelope) Document {
	return Document{
		Title:    "Invisible Business Loss Report: " + sanitize(env.Input.Name),
		Markdown: BuildDeck(env.Input, env.Analysis, env.GeneratedAt),
		Layout:   LayoutLandscape,
	}
}
