// Package providers implements schema.LLMProvider on top of the OpenAI and
// Anthropic SDKs.
package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
)

const defaultMaxTokens = 4096

// ErrMissingAPIKey is returned by New when a hosted provider has no key.
var ErrMissingAPIKey = errors.New("missing API key")

// newCallID fills in tool call ids for backends that omit them.
func newCallID() string {
	return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// apiError turns SDK errors into short messages for the terminal.
func apiError(provider string, err error) error {
	status := 0
	var oe *openai.Error
	var ae *anthropic.Error
	switch {
	case errors.As(err, &oe):
		status = oe.StatusCode
	case errors.As(err, &ae):
		status = ae.StatusCode
	}

	switch status {
	case 0:
		return fmt.Errorf("%s: %w", provider, err)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: invalid API key: %w", provider, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%s: rate limit exceeded: %w", provider, err)
	}
	return fmt.Errorf("%s: HTTP %d: %w", provider, status, err)
}

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage characters. Some models emit truncated tool arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out, nil
	}

	stripped := strings.TrimRight(raw, " \t\n\r}]")
	if !strings.HasSuffix(stripped, "}") {
		stripped += "}"
	}
	if err := json.Unmarshal([]byte(stripped), &out); err == nil {
		return out, nil
	}

	if i := strings.LastIndex(raw, "}"); i >= 0 {
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}
