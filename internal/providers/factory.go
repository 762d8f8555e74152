package providers

import (
	"fmt"
	"net/http"

	"github.com/cali-dev/cali/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	ProviderName string // registry name, e.g. "openai", "anthropic"
	APIKey       string
	APIBase      string
	DefaultModel string
	ExtraHeaders map[string]string
	MaxRetries   int
	HTTPClient   *http.Client
}

// New creates the schema.LLMProvider matching p.
func New(p Params) (schema.LLMProvider, error) {
	spec := Resolve(p.ProviderName, p.APIKey, p.APIBase, p.DefaultModel)
	if p.APIKey == "" && !spec.IsLocal {
		return nil, fmt.Errorf("%s: %w (set %s)", spec.Label(), ErrMissingAPIKey, spec.EnvKey)
	}
	if p.APIBase == "" {
		p.APIBase = spec.DefaultAPIBase
	}
	if p.DefaultModel == "" {
		p.DefaultModel = spec.DefaultModel
	}

	switch spec.Kind {
	case KindAnthropic:
		return NewAnthropicProvider(spec.Name, p), nil
	default:
		return NewOpenAIProvider(spec.Name, p), nil
	}
}
