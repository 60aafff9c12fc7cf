package main

import (
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/joelkehle/lossaudit/internal/mcptools"
)

func newMCPCmd(a *app) *cobra.Command {
	var noStore bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analysis tools to MCP clients over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.engine()
			if err != nil {
				return err
			}
			if noStore {
				return server.ServeStdio(mcptools.NewServer(engine, nil, version))
			}
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return server.ServeStdio(mcptools.NewServer(engine, st, version))
		},
	}
	cmd.Flags().BoolVar(&noStore, "no-store", false, "analyze without persisting; disables get_analysis")
	return cmd
}
