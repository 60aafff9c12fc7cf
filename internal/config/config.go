package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "LOSSAUDIT"

// Config holds the configuration for every lossaudit subcommand.
type Config struct {
	Server struct {
		Addr        string   `mapstructure:"addr"`
		CORSOrigins []string `mapstructure:"cors_origins"`
	} `mapstructure:"server"`
	Database struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Reasoning struct {
		Provider        string        `mapstructure:"provider"`
		Timeout         time.Duration `mapstructure:"timeout"`
		Model           string        `mapstructure:"model"`
		AzureEndpoint   string        `mapstructure:"azure_endpoint"`
		AzureDeployment string        `mapstructure:"azure_deployment"`
	} `mapstructure:"reasoning"`
	Auth struct {
		Secret   string        `mapstructure:"secret"`
		TokenTTL time.Duration `mapstructure:"token_ttl"`
	} `mapstructure:"auth"`
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`
	Telemetry struct {
		OTLPEndpoint string `mapstructure:"otlp_endpoint"`
		ServiceName  string `mapstructure:"service_name"`
	} `mapstructure:"telemetry"`
}

// New returns a viper instance with defaults, the optional lossaudit.yaml
// search path and LOSSAUDIT_ environment overrides registered.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("database.path", "./lossaudit.db")
	v.SetDefault("reasoning.provider", "auto")
	v.SetDefault("reasoning.timeout", 20*time.Second)
	v.SetDefault("reasoning.model", "")
	v.SetDefault("reasoning.azure_endpoint", "")
	v.SetDefault("reasoning.azure_deployment", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "lossaudit")

	v.SetConfigName("lossaudit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file when one exists and decodes v into a Config.
// A missing file is not an error; a malformed one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Reasoning.Provider = strings.ToLower(strings.TrimSpace(cfg.Reasoning.Provider))
	cfg.Server.CORSOrigins = splitOrigins(cfg.Server.CORSOrigins)
	return &cfg, nil
}

// splitOrigins accepts both a YAML list and a comma-separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, o := range strings.Split(item, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
