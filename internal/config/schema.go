// Package config defines the configuration schema for cali.
//
// The file lives at ~/.cali/config.yaml. Environment variables (and the
// project's .env files) override it.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cali-dev/cali/internal/providers"
	"github.com/cali-dev/cali/internal/schema"
)

// AgentConfig tunes the session loop.
type AgentConfig struct {
	MaxSteps           int  `yaml:"maxSteps"`
	MaxToolFailures    int  `yaml:"maxToolFailures"`
	MaxProtocolRetries int  `yaml:"maxProtocolRetries"`
	ParallelTools      bool `yaml:"parallelTools"`
}

func defaultAgentConfig() AgentConfig {
	d := schema.DefaultAgentSettings()
	return AgentConfig{
		MaxSteps:           d.MaxSteps,
		MaxToolFailures:    d.MaxToolFailures,
		MaxProtocolRetries: d.MaxProtocolRetries,
	}
}

// ToolsConfig groups tool-level settings.
type ToolsConfig struct {
	// ProjectRoot defaults to the working directory.
	ProjectRoot         string        `yaml:"projectRoot,omitempty"`
	RestrictToProject   bool          `yaml:"restrictToProject"`
	CommandTimeout      time.Duration `yaml:"commandTimeout"`
	ConfigCacheTTL      time.Duration `yaml:"configCacheTTL"`
	LibraryDirectoryURL string        `yaml:"libraryDirectoryURL,omitempty"`
	ReleaseDiffURL      string        `yaml:"releaseDiffURL,omitempty"`
	MetroHost           string        `yaml:"metroHost,omitempty"`
}

func defaultToolsConfig() ToolsConfig {
	return ToolsConfig{
		ConfigCacheTTL: 10 * time.Minute,
	}
}

// SessionConfig controls transcript persistence.
type SessionConfig struct {
	Transcripts bool   `yaml:"transcripts"`
	Dir         string `yaml:"dir,omitempty"`
}

func defaultSessionConfig() SessionConfig {
	return SessionConfig{Transcripts: true, Dir: "~/.cali/sessions"}
}

// Config is the root configuration object.
type Config struct {
	// Provider is a registry name ("openai", "anthropic", ...). Empty means
	// detect from the API key, base URL or model.
	Provider     string            `yaml:"provider,omitempty"`
	Model        string            `yaml:"model,omitempty"`
	APIKey       string            `yaml:"apiKey,omitempty"`
	APIBase      string            `yaml:"apiBase,omitempty"`
	ExtraHeaders map[string]string `yaml:"extraHeaders,omitempty"`
	MaxTokens    int               `yaml:"maxTokens"`
	Temperature  float64           `yaml:"temperature"`

	Agent   AgentConfig   `yaml:"agent"`
	Tools   ToolsConfig   `yaml:"tools"`
	Session SessionConfig `yaml:"session"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	d := schema.DefaultAgentSettings()
	return Config{
		MaxTokens:   d.MaxTokens,
		Temperature: d.Temperature,
		Agent:       defaultAgentConfig(),
		Tools:       defaultToolsConfig(),
		Session:     defaultSessionConfig(),
	}
}

// ProviderSpec returns the registry entry the config resolves to.
func (c *Config) ProviderSpec() *providers.ProviderSpec {
	return providers.Resolve(c.Provider, c.APIKey, c.APIBase, c.Model)
}

// EffectiveModel returns the configured model or the provider's default.
func (c *Config) EffectiveModel() string {
	if c.Model != "" {
		return c.Model
	}
	return c.ProviderSpec().DefaultModel
}

// ProviderParams returns the parameters for providers.New.
func (c *Config) ProviderParams() providers.Params {
	return providers.Params{
		ProviderName: c.ProviderSpec().Name,
		APIKey:       c.APIKey,
		APIBase:      c.APIBase,
		DefaultModel: c.EffectiveModel(),
		ExtraHeaders: c.ExtraHeaders,
	}
}

// AgentSettings converts the config into the agent's settings.
func (c *Config) AgentSettings() schema.AgentSettings {
	s := schema.DefaultAgentSettings()
	s.Model = c.EffectiveModel()
	if c.MaxTokens > 0 {
		s.MaxTokens = c.MaxTokens
	}
	s.Temperature = c.Temperature
	if c.Agent.MaxSteps > 0 {
		s.MaxSteps = c.Agent.MaxSteps
	}
	if c.Agent.MaxToolFailures > 0 {
		s.MaxToolFailures = c.Agent.MaxToolFailures
	}
	if c.Agent.MaxProtocolRetries >= 0 {
		s.MaxProtocolRetries = c.Agent.MaxProtocolRetries
	}
	s.ParallelTools = c.Agent.ParallelTools
	return s
}

// ProjectRoot returns the absolute project root.
func (c *Config) ProjectRoot() string {
	root := c.Tools.ProjectRoot
	if root == "" {
		root = "."
	}
	root = expandHome(root)
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return root
}

// TranscriptDir returns the expanded transcript directory.
func (c *Config) TranscriptDir() string {
	dir := c.Session.Dir
	if dir == "" {
		dir = defaultSessionConfig().Dir
	}
	return expandHome(dir)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
