package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cali-dev/cali/internal/schema"
	"github.com/cali-dev/cali/internal/shared/llmutils"
	"github.com/cali-dev/cali/internal/tools"
)

// ErrCompletion wraps every failure of the model provider.
var ErrCompletion = errors.New("completion failed")

const thinking = "Thinking..."

// Progress reports what the invoker is doing while the user waits.
type Progress interface {
	Start(message string)
	Message(message string)
	Stop(message string)
}

type noProgress struct{}

func (noProgress) Start(string)   {}
func (noProgress) Message(string) {}
func (noProgress) Stop(string)    {}

// Step is one model response and the tool calls it triggered.
type Step struct {
	Text        string
	ToolCalls   []schema.ToolCall
	ToolResults []schema.ToolResult
}

// Turns returns the history entries recording s: the assistant text when
// non-empty, then the tool calls and their results.
func (s Step) Turns() []schema.Turn {
	var out []schema.Turn
	if s.Text != "" {
		out = append(out, schema.NewAssistantTurn(s.Text))
	}
	if len(s.ToolCalls) > 0 {
		out = append(out, schema.NewToolCallTurn(s.ToolCalls))
		out = append(out, schema.NewToolResultTurn(s.ToolResults))
	}
	return out
}

// Round is everything produced between two user answers.
type Round struct {
	Steps []Step
	Text  string
}

// ToolNames lists every tool called during the round, in call order.
func (r Round) ToolNames() []string {
	var names []string
	for _, s := range r.Steps {
		names = append(names, llmutils.ToolNames(s.ToolCalls)...)
	}
	return names
}

// Invoker drives the model through tool calls until it produces a final text
// or runs out of steps.
type Invoker struct {
	provider schema.LLMProvider
	executor *tools.Executor
	settings schema.AgentSettings
	progress Progress
}

// NewInvoker creates an Invoker. progress may be nil.
func NewInvoker(provider schema.LLMProvider, executor *tools.Executor, settings schema.AgentSettings, progress Progress) *Invoker {
	if progress == nil {
		progress = noProgress{}
	}
	if settings.MaxSteps <= 0 {
		settings.MaxSteps = schema.DefaultAgentSettings().MaxSteps
	}
	return &Invoker{provider: provider, executor: executor, settings: settings, progress: progress}
}

// Invoke runs one round against history. history is not modified; the caller
// records the returned steps.
func (inv *Invoker) Invoke(ctx context.Context, system string, history []schema.Turn) (Round, error) {
	turns := make([]schema.Turn, len(history), len(history)+3*inv.settings.MaxSteps)
	copy(turns, history)

	registry := inv.executor.Registry()
	req := schema.ChatRequest{
		System:  system,
		Tools:   registry.Definitions(),
		Options: schema.NewChatOptions(inv.settings.Model, inv.settings.MaxTokens, inv.settings.Temperature),
	}

	var round Round
	for i := 0; i < inv.settings.MaxSteps; i++ {
		req.Turns = turns
		resp, err := inv.provider.Chat(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return round, ctx.Err()
			}
			return round, fmt.Errorf("%w: %w", ErrCompletion, err)
		}

		step := Step{Text: strings.TrimSpace(llmutils.StripThink(resp.Content))}
		if !resp.HasToolCalls() {
			round.Steps = append(round.Steps, step)
			round.Text = step.Text
			slog.Debug("Round finished", "steps", len(round.Steps), "finish_reason", resp.FinishReason)
			return round, nil
		}

		step.ToolCalls = resp.ToolCalls
		names := llmutils.ToolNames(step.ToolCalls)
		disruptive := registry.IsDisruptive(names...)
		slog.Info("Executing tools", "step", i+1, "tools", llmutils.ToolHint(step.ToolCalls), "disruptive", disruptive)

		status := "Executing: " + strings.Join(names, ", ")
		if disruptive {
			// The tools write to the terminal themselves.
			inv.progress.Stop(status)
		} else {
			inv.progress.Message(status)
		}

		results, err := inv.executor.ExecuteAll(ctx, step.ToolCalls, inv.settings.ParallelTools && !disruptive)
		if err != nil {
			return round, err
		}
		if disruptive {
			inv.progress.Start(thinking)
		}

		step.ToolResults = results
		round.Steps = append(round.Steps, step)
		round.Text = step.Text
		turns = append(turns, step.Turns()...)
	}

	slog.Warn("Step limit reached", "max_steps", inv.settings.MaxSteps)
	return round, nil
}
