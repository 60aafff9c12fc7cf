package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joelkehle/lossaudit/internal/lossengine"
	"github.com/joelkehle/lossaudit/internal/report"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		format  string
		save    string
		persist bool
	)
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a workflow definition (YAML or JSON, '-' for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readWorkflow(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if err := in.Validate(); err != nil {
				return err
			}

			engine, err := a.engine()
			if err != nil {
				return err
			}
			analysis := engine.Analyze(cmd.Context(), in)

			if persist {
				st, err := a.openStore()
				if err != nil {
					return err
				}
				defer st.Close()
				id, err := st.Create(cmd.Context(), in, analysis, nil)
				if err != nil {
					return err
				}
				analysis.ID = &id
				a.log.Info().Int64("workflow_id", id).Msg("analysis stored")
			}

			env := report.Envelope{Input: in, Analysis: analysis, GeneratedAt: time.Now().UTC()}
			if save != "" {
				if err := report.SaveEnvelope(save, env); err != nil {
					return fmt.Errorf("save envelope: %w", err)
				}
				a.log.Info().Str("path", save).Msg("envelope saved")
			}
			return writeAnalysis(cmd.OutOrStdout(), format, env)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or markdown")
	cmd.Flags().StringVar(&save, "save", "", "also write a report envelope to this path for later rendering")
	cmd.Flags().BoolVar(&persist, "persist", false, "store the analysis in the database")
	return cmd
}

// readWorkflow decodes a workflow definition. JSON is valid YAML, so one
// decoder serves both; absent fields keep their request defaults.
func readWorkflow(stdin io.Reader, path string) (lossengine.WorkflowInput, error) {
	var (
		blob []byte
		err  error
	)
	if path == "-" {
		blob, err = io.ReadAll(stdin)
	} else {
		blob, err = os.ReadFile(path)
	}
	if err != nil {
		return lossengine.WorkflowInput{}, fmt.Errorf("read workflow: %w", err)
	}
	in := lossengine.DefaultInput()
	if err := yaml.Unmarshal(blob, &in); err != nil {
		return lossengine.WorkflowInput{}, fmt.Errorf("decode workflow %s: %w", path, err)
	}
	return in, nil
}

func writeAnalysis(w io.Writer, format string, env report.Envelope) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env.Analysis)
	case "markdown", "md":
		_, err := io.WriteString(w, report.BuildAuditReport(env.Input, env.Analysis, env.GeneratedAt))
		return err
	default:
		return fmt.Errorf("unknown format %q (want json or markdown)", format)
	}
}
