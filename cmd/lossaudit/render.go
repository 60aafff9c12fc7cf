package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joelkehle/lossaudit/internal/report"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "render ENVELOPE",
		Short: "Rebuild the audit report or slide deck from a saved envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := report.LoadEnvelope(args[0])
			if err != nil {
				return fmt.Errorf("load envelope: %w", err)
			}

			var doc report.Document
			switch format {
			case "markdown", "md":
				return writeOutput(cmd.OutOrStdout(), output, []byte(report.BuildAuditReport(env.Input, env.Analysis, env.GeneratedAt)))
			case "deck":
				return writeOutput(cmd.OutOrStdout(), output, []byte(report.BuildDeck(env.Input, env.Analysis, env.GeneratedAt)))
			case "pdf":
				doc = report.AuditDocument(env)
			case "deck-pdf":
				doc = report.DeckDocument(env)
			default:
				return fmt.Errorf("unknown format %q (want markdown, deck, pdf or deck-pdf)", format)
			}

			if output == "" {
				return errors.New("--output is required for pdf formats")
			}
			pdf, err := report.NewChromiumPDFRenderer(report.DefaultRenderTimeout).Render(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), output, pdf); err != nil {
				return err
			}
			a.log.Info().Str("path", output).Int("bytes", len(pdf)).Msg("pdf written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: markdown, deck, pdf or deck-pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: stdout for markdown formats)")
	return cmd
}

func writeOutput(stdout io.Writer, path string, blob []byte) error {
	if path == "" {
		_, err := stdout.Write(blob)
		return err
	}
	return os.WriteFile(path, blob, 0o644)
}
