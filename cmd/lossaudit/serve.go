package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joelkehle/lossaudit/internal/auth"
	"github.com/joelkehle/lossaudit/internal/httpapi"
	"github.com/joelkehle/lossaudit/internal/report"
	"github.com/joelkehle/lossaudit/internal/telemetry"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
				OTLPEndpoint:   a.cfg.Telemetry.OTLPEndpoint,
				ServiceName:    a.cfg.Telemetry.ServiceName,
				ServiceVersion: version,
			})
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(flushCtx); err != nil {
					a.log.Warn().Err(err).Msg("flush traces")
				}
			}()

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			engine, err := a.engine()
			if err != nil {
				return err
			}

			secret := a.cfg.Auth.Secret
			if secret == "" {
				secret = uuid.NewString()
				a.log.Warn().Msg("auth.secret is not set; using an ephemeral signing key, tokens will not survive a restart")
			}
			tokens, err := auth.NewTokenIssuer(secret, a.cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}

			e := httpapi.New(httpapi.Options{
				Engine:      engine,
				Store:       st,
				Auth:        auth.NewService(st, tokens),
				PDF:         report.NewChromiumPDFRenderer(report.DefaultRenderTimeout),
				Logger:      a.log,
				CORSOrigins: a.cfg.Server.CORSOrigins,
				ServiceName: a.cfg.Telemetry.ServiceName,
			})
			return httpapi.Run(ctx, e, a.cfg.Server.Addr, a.log)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8000)")
	mustBind(a.v, "server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
