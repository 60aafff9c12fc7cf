package reasoning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joelkehle/lossaudit/internal/lossengine"
)

const (
	ProviderAuto      = "auto"
	ProviderAnthropic = "anthropic"
	ProviderAzure     = "azure"
	ProviderNone      = "none"
)

var ErrMissingCredential = errors.New("reasoning credential not set")

type Config struct {
	Provider        string
	Model           string
	AzureEndpoint   string
	AzureDeployment string
}

// NewFromConfig builds the configured reasoning client. A nil client means
// the engine skips the reasoning tier: reasoning is disabled, auto mode found
// no credential, or an explicitly selected provider has no credential. The
// last case also returns ErrMissingCredential, which callers log and ignore.
func NewFromConfig(cfg Config) (lossengine.ReasoningClient, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderAuto
	}

	switch provider {
	case ProviderNone:
		return nil, ProviderNone, nil
	case ProviderAnthropic:
		if !hasEnv("ANTHROPIC_API_KEY") {
			return nil, ProviderNone, fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrMissingCredential)
		}
		c, err := NewAnthropicFromEnv(cfg.Model)
		if err != nil {
			return nil, "", err
		}
		return c, ProviderAnthropic, nil
	case ProviderAzure:
		if !hasEnv("AZURE_OPENAI_KEY") {
			return nil, ProviderNone, fmt.Errorf("%w: AZURE_OPENAI_KEY", ErrMissingCredential)
		}
		c, err := NewAzureFromEnv(cfg.AzureEndpoint, cfg.AzureDeployment)
		if err != nil {
			return nil, "", err
		}
		return c, ProviderAzure, nil
	case ProviderAuto:
		if hasEnv("ANTHROPIC_API_KEY") {
			c, err := NewAnthropicFromEnv(cfg.Model)
			if err != nil {
				return nil, "", err
			}
			return c, ProviderAnthropic, nil
		}
		if hasEnv("AZURE_OPENAI_KEY") && strings.TrimSpace(cfg.AzureEndpoint) != "" {
			c, err := NewAzureFromEnv(cfg.AzureEndpoint, cfg.AzureDeployment)
			if err != nil {
				return nil, "", err
			}
			return c, ProviderAzure, nil
		}
		return nil, ProviderNone, nil
	default:
		return nil, "", fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}
}

func hasEnv(key string) bool {
	return strings.TrimSpace(os.Getenv(key)) != ""
}
