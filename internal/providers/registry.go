package providers

import "strings"

// Kind selects the wire protocol used to talk to a provider.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
)

// ProviderSpec is the metadata record for one LLM provider.
type ProviderSpec struct {
	Name        string   // config value, e.g. "openrouter"
	Keywords    []string // model-name keywords for matching (lowercase)
	EnvKey      string   // env var holding the API key
	DisplayName string   // shown in `cali status`
	Kind        Kind

	DefaultAPIBase string
	DefaultModel   string

	// Gateway providers route any model and are detected by key or base URL.
	IsGateway           bool
	IsLocal             bool // no API key required
	DetectByKeyPrefix   string
	DetectByBaseKeyword string
}

// Label returns the display name, defaulting to Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Providers is the registry. Order = match priority.
var Providers = []ProviderSpec{
	{
		Name:                "openrouter",
		Keywords:            []string{"openrouter"},
		EnvKey:              "OPENROUTER_API_KEY",
		DisplayName:         "OpenRouter",
		Kind:                KindOpenAI,
		DefaultAPIBase:      "https://openrouter.ai/api/v1/",
		DefaultModel:        "openai/gpt-4o",
		IsGateway:           true,
		DetectByKeyPrefix:   "sk-or-",
		DetectByBaseKeyword: "openrouter",
	},
	{
		Name:         "anthropic",
		Keywords:     []string{"anthropic", "claude"},
		EnvKey:       "ANTHROPIC_API_KEY",
		DisplayName:  "Anthropic",
		Kind:         KindAnthropic,
		DefaultModel: "claude-sonnet-4-5",
	},
	{
		Name:         "openai",
		Keywords:     []string{"openai", "gpt", "o1", "o3", "o4"},
		EnvKey:       "OPENAI_API_KEY",
		DisplayName:  "OpenAI",
		Kind:         KindOpenAI,
		DefaultModel: "gpt-4o",
	},
	{
		Name:           "deepseek",
		Keywords:       []string{"deepseek"},
		EnvKey:         "DEEPSEEK_API_KEY",
		DisplayName:    "DeepSeek",
		Kind:           KindOpenAI,
		DefaultAPIBase: "https://api.deepseek.com/v1/",
		DefaultModel:   "deepseek-chat",
	},
	{
		Name:           "groq",
		Keywords:       []string{"groq"},
		EnvKey:         "GROQ_API_KEY",
		DisplayName:    "Groq",
		Kind:           KindOpenAI,
		DefaultAPIBase: "https://api.groq.com/openai/v1/",
	},
	{
		Name:                "ollama",
		Keywords:            []string{"ollama"},
		DisplayName:         "Ollama/Local",
		Kind:                KindOpenAI,
		DefaultAPIBase:      "http://127.0.0.1:11434/v1/",
		IsLocal:             true,
		DetectByBaseKeyword: "11434",
	},
}

// FindByModel matches a standard provider by model-name keyword
// (case-insensitive). Gateways and local providers are skipped; those are
// matched by FindGateway.
func FindByModel(model string) *ProviderSpec {
	lower := strings.ToLower(model)
	prefix, _, _ := strings.Cut(lower, "/")

	for i := range Providers {
		spec := &Providers[i]
		if spec.IsGateway || spec.IsLocal {
			continue
		}
		if strings.Contains(lower, "/") && prefix == spec.Name {
			return spec
		}
	}
	for i := range Providers {
		spec := &Providers[i]
		if spec.IsGateway || spec.IsLocal {
			continue
		}
		for _, kw := range spec.Keywords {
			if strings.Contains(lower, kw) {
				return spec
			}
		}
	}
	return nil
}

// FindGateway detects a gateway or local provider by explicit name, API key
// prefix or API base keyword, in that order.
func FindGateway(providerName, apiKey, apiBase string) *ProviderSpec {
	if providerName != "" {
		if s := FindByName(providerName); s != nil && (s.IsGateway || s.IsLocal) {
			return s
		}
	}
	for i := range Providers {
		spec := &Providers[i]
		if spec.DetectByKeyPrefix != "" && strings.HasPrefix(apiKey, spec.DetectByKeyPrefix) {
			return spec
		}
		if spec.DetectByBaseKeyword != "" && strings.Contains(apiBase, spec.DetectByBaseKeyword) {
			return spec
		}
	}
	return nil
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	for i := range Providers {
		if Providers[i].Name == name {
			return &Providers[i]
		}
	}
	return nil
}

// Resolve picks the ProviderSpec for a configuration: an explicit provider name wins,
// then gateway detection, then the model name. OpenAI is the fallback.
func Resolve(providerName, apiKey, apiBase, model string) *ProviderSpec {
	if s := FindByName(providerName); s != nil {
		return s
	}
	if s := FindGateway("", apiKey, apiBase); s != nil {
		return s
	}
	if s := FindByModel(model); s != nil {
		return s
	}
	return FindByName("openai")
}
