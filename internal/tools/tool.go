package tools

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnknownTool means the model named a tool that is not registered.
	// It fails the round instead of being reported back to the model.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArgs wraps every argument validation failure.
	ErrInvalidArgs = errors.New("invalid tool arguments")
)

// Tool is the interface all model-callable tools satisfy.
type Tool interface {
	Name() string
	Description() string
	Params() Params
	// Disruptive reports whether the tool writes to the terminal directly,
	// so the progress indicator must be stopped while it runs.
	Disruptive() bool
	// Execute receives arguments already validated against Params and
	// returns any JSON-serialisable value.
	Execute(ctx context.Context, args Args) (any, error)
}

// ActionError is a failure that carries a hint about what the model should
// do next, usually another tool to call.
type ActionError struct {
	Message string
	Action  string
}

func (e *ActionError) Error() string { return e.Message }

// WithAction returns an error carrying a remedial hint for the model.
func WithAction(action, format string, args ...any) error {
	return &ActionError{Message: fmt.Sprintf(format, args...), Action: action}
}

// Func adapts a plain function into a Tool.
type Func struct {
	name        string
	description string
	params      Params
	disruptive  bool
	fn          func(ctx context.Context, args Args) (any, error)
}

// NewFunc creates a Func tool.
func NewFunc(name, description string, params Params, fn func(ctx context.Context, args Args) (any, error)) *Func {
	return &Func{name: name, description: description, params: params, fn: fn}
}

// Disrupting marks the tool as disruptive and returns it.
func (f *Func) Disrupting() *Func {
	f.disruptive = true
	return f
}

func (f *Func) Name() string        { return f.name }
func (f *Func) Description() string { return f.description }
func (f *Func) Params() Params      { return f.params }
func (f *Func) Disruptive() bool    { return f.disruptive }

func (f *Func) Execute(ctx context.Context, args Args) (any, error) {
	return f.fn(ctx, args)
}

// success is the common {success: true, ...} envelope.
func success(fields ...any) map[string]any {
	out := map[string]any{"success": true}
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok {
			out[k] = fields[i+1]
		}
	}
	return out
}
