package config

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cali-dev/cali/internal/providers"
)

const (
	EnvProvider = "AI_PROVIDER"
	EnvModel    = "AI_MODEL"

	dotEnv      = ".env"
	dotEnvLocal = ".env.local"
)

// ConfigPath returns the default configuration file path: ~/.cali/config.yaml.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.yaml")
}

// DataDir returns the cali data directory: ~/.cali.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cali"
	}
	return filepath.Join(home, ".cali")
}

// Load reads and parses the config file at path.
// If path is empty, ConfigPath() is used.
// On parse failure it logs a warning and returns DefaultConfig().
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("Failed to parse config, using defaults", "path", path, "err", err)
		cfg2 := DefaultConfig()
		return &cfg2, nil
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML.
// If path is empty, ConfigPath() is used.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// LoadDotEnv loads .env then .env.local from dir into the process
// environment. Variables already set are kept; missing files are ignored.
func LoadDotEnv(dir string) error {
	for _, name := range []string{dotEnv, dotEnvLocal} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		slog.Debug("Loaded env file", "path", path)
	}
	return nil
}

// ApplyEnv overrides the config with AI_PROVIDER, AI_MODEL and the
// provider API key variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvProvider); v != "" {
		c.Provider = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		c.Model = v
	}
	if c.APIKey != "" {
		return
	}

	if c.Provider != "" {
		if spec := providers.FindByName(c.Provider); spec != nil && spec.EnvKey != "" {
			c.APIKey = os.Getenv(spec.EnvKey)
		}
		return
	}

	for _, spec := range keyLookupOrder(c.Model) {
		if spec.EnvKey == "" {
			continue
		}
		if key := os.Getenv(spec.EnvKey); key != "" {
			c.Provider = spec.Name
			c.APIKey = key
			return
		}
	}
}

// keyLookupOrder puts the provider matching model first, then OpenAI and
// Anthropic, then the rest of the registry.
func keyLookupOrder(model string) []providers.ProviderSpec {
	var order []providers.ProviderSpec
	seen := map[string]bool{}
	add := func(s *providers.ProviderSpec) {
		if s != nil && !seen[s.Name] {
			seen[s.Name] = true
			order = append(order, *s)
		}
	}
	if model != "" {
		add(providers.FindByModel(model))
	}
	add(providers.FindByName("openai"))
	add(providers.FindByName("anthropic"))
	for i := range providers.Providers {
		add(&providers.Providers[i])
	}
	return order
}

// PersistAPIKey writes envKey=key to dir/.env.local and makes sure the file
// is listed in dir/.gitignore.
func PersistAPIKey(dir, envKey, key string) error {
	path := filepath.Join(dir, dotEnvLocal)
	env := map[string]string{}
	if existing, err := godotenv.Read(path); err == nil {
		env = existing
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	env[envKey] = key

	if err := godotenv.Write(env, path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return err
	}
	return ensureIgnored(filepath.Join(dir, ".gitignore"), dotEnvLocal)
}

func ensureIgnored(gitignore, entry string) error {
	f, err := os.OpenFile(gitignore, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", gitignore, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line == entry || line == "/"+entry {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	info, err := f.Stat()
	if err != nil {
		return err
	}
	prefix := ""
	if info.Size() > 0 && !endsWithNewline(f, info.Size()) {
		prefix = "\n"
	}
	_, err = f.WriteString(prefix + entry + "\n")
	return err
}

func endsWithNewline(f *os.File, size int64) bool {
	b := make([]byte, 1)
	if _, err := f.ReadAt(b, size-1); err != nil {
		return true
	}
	return b[0] == '\n'
}
