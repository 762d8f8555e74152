package rnconfig

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cali-dev/cali/internal/runner"
)

// Loader produces a fresh Config for a project root.
type Loader interface {
	Load(ctx context.Context, root string) (*Config, error)
}

// CLILoader runs `npx react-native config` in the project root.
type CLILoader struct {
	runner  runner.Runner
	timeout time.Duration
}

func NewCLILoader(r runner.Runner) *CLILoader {
	return &CLILoader{runner: r, timeout: 2 * time.Minute}
}

func (l *CLILoader) Load(ctx context.Context, root string) (*Config, error) {
	out, err := l.runner.Output(ctx, runner.Command{
		Name:    "npx",
		Args:    []string{"react-native", "config"},
		Dir:     root,
		Timeout: l.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("react-native config: %w", err)
	}
	return Decode([]byte(out))
}

// Decode parses CLI output. Warnings printed before the JSON document are
// skipped.
func Decode(data []byte) (*Config, error) {
	start := bytes.IndexByte(data, '{')
	if start < 0 {
		return nil, errors.New("react-native config: no JSON in output")
	}
	var cfg Config
	if err := json.Unmarshal(data[start:], &cfg); err != nil {
		return nil, fmt.Errorf("react-native config: %w", err)
	}
	return &cfg, nil
}
