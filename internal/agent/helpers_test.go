package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cali-dev/cali/internal/interaction"
	"github.com/cali-dev/cali/internal/schema"
	"github.com/cali-dev/cali/internal/session"
	"github.com/cali-dev/cali/internal/tools"
)

// scriptedProvider replays responses in order and records every request.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []schema.LLMResponse
	err       error
	requests  []schema.ChatRequest
}

func (p *scriptedProvider) Chat(_ context.Context, req schema.ChatRequest) (schema.LLMResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	turns := make([]schema.Turn, len(req.Turns))
	copy(turns, req.Turns)
	req.Turns = turns
	p.requests = append(p.requests, req)

	if p.err != nil {
		return schema.LLMResponse{}, p.err
	}
	if len(p.responses) == 0 {
		return schema.LLMResponse{}, errors.New("script exhausted")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) Name() string         { return "scripted" }
func (p *scriptedProvider) DefaultModel() string { return "test-model" }

func text(s string) schema.LLMResponse {
	return schema.LLMResponse{Content: s, FinishReason: "stop"}
}

func calls(names ...string) schema.LLMResponse {
	resp := schema.LLMResponse{FinishReason: "tool_calls"}
	for i, n := range names {
		resp.ToolCalls = append(resp.ToolCalls, schema.ToolCall{ID: fmt.Sprintf("call_%d", i), Name: n, Arguments: map[string]any{}})
	}
	return resp
}

// fakePrompter answers prompts from queues.
type fakePrompter struct {
	selects  []string
	texts    []string
	confirms []bool
	err      error

	asked []string
	steps []string
}

func (p *fakePrompter) Select(_ context.Context, msg string, _ []string) (string, error) {
	p.asked = append(p.asked, "select: "+msg)
	if p.err != nil || len(p.selects) == 0 {
		return "", p.errOrCancel()
	}
	v := p.selects[0]
	p.selects = p.selects[1:]
	return v, nil
}

func (p *fakePrompter) Text(_ context.Context, msg, _ string) (string, error) {
	p.asked = append(p.asked, "text: "+msg)
	if p.err != nil || len(p.texts) == 0 {
		return "", p.errOrCancel()
	}
	v := p.texts[0]
	p.texts = p.texts[1:]
	return v, nil
}

func (p *fakePrompter) Confirm(_ context.Context, msg string) (bool, error) {
	p.asked = append(p.asked, "confirm: "+msg)
	if p.err != nil || len(p.confirms) == 0 {
		return false, p.errOrCancel()
	}
	v := p.confirms[0]
	p.confirms = p.confirms[1:]
	return v, nil
}

func (p *fakePrompter) Step(msg string) { p.steps = append(p.steps, msg) }

func (p *fakePrompter) errOrCancel() error {
	if p.err != nil {
		return p.err
	}
	return interaction.ErrCancelled
}

// recordingProgress keeps every progress event as "verb: message".
type recordingProgress struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingProgress) record(verb, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, verb+": "+msg)
}

func (r *recordingProgress) Start(msg string)   { r.record("start", msg) }
func (r *recordingProgress) Message(msg string) { r.record("message", msg) }
func (r *recordingProgress) Stop(msg string)    { r.record("stop", msg) }

type memoryStore struct {
	saves int
	last  []schema.Turn
}

func (m *memoryStore) Save(t *session.Transcript) error {
	m.saves++
	m.last = t.Turns()
	return nil
}

func testTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc("getAdbPath", "Gets path to ADB", nil,
			func(context.Context, tools.Args) (any, error) { return "/sdk/platform-tools/adb", nil }),
		tools.NewFunc("getAndroidDevices", "Lists devices", nil,
			func(context.Context, tools.Args) (any, error) {
				return []map[string]any{{"id": "emulator-5554", "name": "Pixel_8"}}, nil
			}),
		tools.NewFunc("bootAndroidEmulator", "Boots an emulator", nil,
			func(context.Context, tools.Args) (any, error) { return nil, errors.New("device not found") }),
		tools.NewFunc("crash", "Panics", nil,
			func(context.Context, tools.Args) (any, error) { panic("boom") }),
		tools.NewFunc("buildAndroidApp", "Builds", nil,
			func(context.Context, tools.Args) (any, error) { return map[string]any{"success": true}, nil }).Disrupting(),
	}
}

func newTestInvoker(p schema.LLMProvider, progress Progress, mutate func(*schema.AgentSettings)) *Invoker {
	settings := schema.DefaultAgentSettings()
	if mutate != nil {
		mutate(&settings)
	}
	registry := tools.NewRegistryBuilder().WithTools(testTools()...).Build()
	executor := tools.NewExecutor(registry, tools.NewFailureGuard(settings.MaxToolFailures))
	return NewInvoker(p, executor, settings, progress)
}
