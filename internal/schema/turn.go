package schema

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a Turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// DefaultResultKind is the tag given to tool results that arrive without one.
const DefaultResultKind = "tool-result"

// ToolCall represents one function call proposed by the model.
type ToolCall struct {
	ID        string         `json:"toolCallId"`
	Name      string         `json:"toolName"`
	Arguments map[string]any `json:"args"`
}

// ArgumentsJSON returns the arguments encoded as a JSON object.
func (tc ToolCall) ArgumentsJSON() string {
	if len(tc.Arguments) == 0 {
		return "{}"
	}
	data, err := json.Marshal(tc.Arguments)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ToolResult is the outcome of executing one ToolCall.
//
// Output is whatever the tool returned on success, or a map carrying an
// "error" string (and optionally an "action" hint) on failure.
type ToolResult struct {
	Kind     string `json:"type"`
	CallID   string `json:"toolCallId"`
	ToolName string `json:"toolName"`
	Output   any    `json:"result"`
}

// NewErrorResult builds a failed ToolResult for call.
func NewErrorResult(call ToolCall, message, action string) ToolResult {
	return ToolResult{
		Kind:     DefaultResultKind,
		CallID:   call.ID,
		ToolName: call.Name,
		Output:   ErrorPayload(message, action),
	}
}

// ErrorPayload returns the canonical {error, action?} map.
func ErrorPayload(message, action string) map[string]any {
	out := map[string]any{"error": message}
	if action != "" {
		out["action"] = action
	}
	return out
}

// IsError reports whether the result carries an error payload.
func (r ToolResult) IsError() bool {
	_, ok := r.errorField()
	return ok
}

// ErrorMessage returns the error string, or "" on success.
func (r ToolResult) ErrorMessage() string {
	msg, _ := r.errorField()
	return msg
}

func (r ToolResult) errorField() (string, bool) {
	m, ok := r.Output.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := m["error"]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Content returns the output encoded as JSON for providers that expect text.
func (r ToolResult) Content() string {
	if s, ok := r.Output.(string); ok {
		return s
	}
	data, err := json.Marshal(r.Output)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(data)
}

// Turn is one entry in the conversation history.
//
// Exactly one of Text, ToolCalls or ToolResults is populated:
//   - system / user: Text
//   - assistant: Text, or ToolCalls when the model requested tools
//   - tool: ToolResults
type Turn struct {
	Role        Role         `json:"role"`
	Text        string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"toolCalls,omitempty"`
	ToolResults []ToolResult `json:"toolResults,omitempty"`
}

func NewSystemTurn(text string) Turn {
	return Turn{Role: RoleSystem, Text: text}
}

func NewUserTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text}
}

func NewAssistantTurn(text string) Turn {
	return Turn{Role: RoleAssistant, Text: text}
}

// NewToolCallTurn records the calls the model requested in one step.
func NewToolCallTurn(calls []ToolCall) Turn {
	out := make([]ToolCall, len(calls))
	copy(out, calls)
	return Turn{Role: RoleAssistant, ToolCalls: out}
}

// NewToolResultTurn records tool results, tagging any result that has no kind.
func NewToolResultTurn(results []ToolResult) Turn {
	return Turn{Role: RoleTool, ToolResults: NormalizeResults(results)}
}

// NormalizeResults returns a copy of results with every empty Kind set to
// DefaultResultKind.
func NormalizeResults(results []ToolResult) []ToolResult {
	out := make([]ToolResult, len(results))
	for i, r := range results {
		if r.Kind == "" {
			r.Kind = DefaultResultKind
		}
		out[i] = r
	}
	return out
}
