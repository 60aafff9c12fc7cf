package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/joelkehle/lossaudit/internal/config"
	"github.com/joelkehle/lossaudit/internal/logging"
	"github.com/joelkehle/lossaudit/internal/lossengine"
	"github.com/joelkehle/lossaudit/internal/reasoning"
	"github.com/joelkehle/lossaudit/internal/store"
)

// app carries what every subcommand shares once flags and config are resolved.
type app struct {
	v   *viper.Viper
	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	var configFile string

	root := &cobra.Command{
		Use:           "lossaudit",
		Short:         "Estimate the invisible cost of business workflows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				a.v.SetConfigFile(configFile)
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = logging.New(cfg.Log.Level, cfg.Log.Pretty)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default: ./lossaudit.yaml or ./config/lossaudit.yaml)")
	pf.String("db", "", "SQLite database path")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "human-readable console logs")
	pf.String("reasoning-provider", "", "reasoning provider: auto, anthropic, azure, none")
	mustBind(a.v, "database.path", pf.Lookup("db"))
	mustBind(a.v, "log.level", pf.Lookup("log-level"))
	mustBind(a.v, "log.pretty", pf.Lookup("log-pretty"))
	mustBind(a.v, "reasoning.provider", pf.Lookup("reasoning-provider"))

	root.AddCommand(
		newServeCmd(a),
		newAnalyzeCmd(a),
		newRenderCmd(a),
		newMCPCmd(a),
	)
	return root
}

func (a *app) engine() (*lossengine.Engine, error) {
	client, provider, err := reasoning.NewFromConfig(reasoning.Config{
		Provider:        a.cfg.Reasoning.Provider,
		Model:           a.cfg.Reasoning.Model,
		AzureEndpoint:   a.cfg.Reasoning.AzureEndpoint,
		AzureDeployment: a.cfg.Reasoning.AzureDeployment,
	})
	switch {
	case errors.Is(err, reasoning.ErrMissingCredential):
		a.log.Warn().Err(err).Str("requested", a.cfg.Reasoning.Provider).Msg("reasoning provider has no credential, using rule diagnosis only")
	case err != nil:
		return nil, fmt.Errorf("reasoning client: %w", err)
	}
	a.log.Info().Str("provider", provider).Msg("reasoning tier configured")

	opts := []lossengine.Option{
		lossengine.WithReasoningTimeout(a.cfg.Reasoning.Timeout),
		lossengine.WithLogger(a.log),
	}
	if client != nil {
		opts = append(opts, lossengine.WithReasoningClient(client))
	}
	return lossengine.New(opts...), nil
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	st, err := store.NewSQLiteStore(a.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", a.cfg.Database.Path, err)
	}
	return st, nil
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}
