package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cali-dev/cali/internal/schema"
)

// Executor runs tool calls against a Registry and turns every outcome into
// a ToolResult. Only ErrUnknownTool escapes as a Go error.
type Executor struct {
	registry *Registry
	guard    *FailureGuard
}

// NewExecutor creates an Executor. guard may be nil.
func NewExecutor(registry *Registry, guard *FailureGuard) *Executor {
	return &Executor{registry: registry, guard: guard}
}

func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs one call. The returned result has no Kind; the caller tags it
// when recording it in history.
func (e *Executor) Execute(ctx context.Context, call schema.ToolCall) (schema.ToolResult, error) {
	tool := e.registry.Get(call.Name)
	if tool == nil {
		return schema.ToolResult{}, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
	}

	result := schema.ToolResult{CallID: call.ID, ToolName: call.Name}

	if !e.guard.Allow(call.Name) {
		slog.Warn("Tool refused after repeated failures", "name", call.Name, "failures", e.guard.Failures(call.Name))
		result.Output = schema.ErrorPayload(
			fmt.Sprintf("%s failed %d times in a row and is disabled for this session", call.Name, e.guard.Limit()),
			"Explain the failure to the user and proceed with the next task.",
		)
		return result, nil
	}

	args, err := tool.Params().Validate(call.Arguments)
	if err != nil {
		slog.Info("Tool arguments rejected", "name", call.Name, "err", err)
		result.Output = schema.ErrorPayload(err.Error(), "")
		e.guard.Record(call.Name, true)
		return result, nil
	}

	slog.Info("Tool call", "name", call.Name, "args", call.ArgumentsJSON())
	start := time.Now()
	out, err := invoke(ctx, tool, args)
	if err != nil {
		slog.Info("Tool failed", "name", call.Name, "elapsed", time.Since(start), "err", err)
		var ae *ActionError
		if errors.As(err, &ae) {
			result.Output = schema.ErrorPayload(ae.Message, ae.Action)
		} else {
			result.Output = schema.ErrorPayload(err.Error(), "")
		}
	} else {
		slog.Debug("Tool finished", "name", call.Name, "elapsed", time.Since(start))
		result.Output = out
	}

	e.guard.Record(call.Name, result.IsError())
	return result, nil
}

// invoke calls the capability and converts a panic into an error.
func invoke(ctx context.Context, tool Tool, args Args) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Tool panicked", "name", tool.Name(), "panic", r, "stack", string(debug.Stack()))
			out = nil
			err = fmt.Errorf("%v", r)
		}
	}()
	return tool.Execute(ctx, args)
}

// ExecuteAll runs calls in order. With parallel set, independent calls run
// concurrently; results keep the order of calls either way.
func (e *Executor) ExecuteAll(ctx context.Context, calls []schema.ToolCall, parallel bool) ([]schema.ToolResult, error) {
	results := make([]schema.ToolResult, len(calls))

	if !parallel || len(calls) < 2 {
		for i, call := range calls {
			r, err := e.Execute(ctx, call)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return results, nil
	}

	// Unknown names fail the whole step before anything runs.
	for _, call := range calls {
		if e.registry.Get(call.Name) == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Name)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			r, err := e.Execute(gctx, call)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
