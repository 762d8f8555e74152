package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cali-dev/cali/internal/schema"
	"github.com/cali-dev/cali/internal/tools"
)

func seed() []schema.Turn {
	return []schema.Turn{schema.NewSystemTurn(Greeting), schema.NewUserTurn("run on android")}
}

func TestInvoke_TextOnly(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{text(`{"type":"end","content":"ok"}`)}}
	round, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)

	assert.Equal(t, `{"type":"end","content":"ok"}`, round.Text)
	require.Len(t, round.Steps, 1)
	assert.Empty(t, round.Steps[0].ToolCalls)

	require.Len(t, p.requests, 1)
	req := p.requests[0]
	assert.Equal(t, "sys", req.System)
	assert.Equal(t, "gpt-4o", req.Options.Model)
	assert.Len(t, req.Turns, 2)
	assert.Len(t, req.Tools, len(testTools()))
}

func TestInvoke_ToolStepsFeedBackResults(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("getAdbPath"),
		{Content: "Listing devices.", ToolCalls: calls("getAndroidDevices").ToolCalls},
		text(`{"type":"select","content":"Pick a device","options":["Pixel_8"]}`),
	}}
	progress := &recordingProgress{}
	round, err := newTestInvoker(p, progress, nil).Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)

	require.Len(t, round.Steps, 3)
	assert.Equal(t, []string{"getAdbPath", "getAndroidDevices"}, round.ToolNames())
	assert.Equal(t, "/sdk/platform-tools/adb", round.Steps[0].ToolResults[0].Output)

	// Second request sees the first step's call and result.
	second := p.requests[1].Turns
	require.Len(t, second, 4)
	assert.Equal(t, "getAdbPath", second[2].ToolCalls[0].Name)
	assert.Equal(t, schema.DefaultResultKind, second[3].ToolResults[0].Kind)

	// Third request also sees the assistant text of step two.
	third := p.requests[2].Turns
	require.Len(t, third, 7)
	assert.Equal(t, "Listing devices.", third[4].Text)

	assert.Equal(t, []string{"message: Executing: getAdbPath", "message: Executing: getAndroidDevices"}, progress.events)
}

func TestInvoke_StepBound(t *testing.T) {
	var script []schema.LLMResponse
	for range 15 {
		script = append(script, calls("getAdbPath"))
	}
	p := &scriptedProvider{responses: script}

	round, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)
	assert.Len(t, p.requests, 10)
	assert.Len(t, round.Steps, 10)
	assert.Empty(t, round.Text)
}

func TestInvoke_ToolErrorBecomesPayload(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("bootAndroidEmulator", "crash"),
		text(`{"type":"confirmation","content":"Retry?"}`),
	}}
	round, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)

	results := round.Steps[0].ToolResults
	require.Len(t, results, 2)
	assert.Equal(t, map[string]any{"error": "device not found"}, results[0].Output)
	assert.Equal(t, "boom", results[1].ErrorMessage())
}

func TestInvoke_UnknownToolIsFatal(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{calls("getAdbPath"), calls("nope")}}
	round, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	assert.ErrorIs(t, err, tools.ErrUnknownTool)
	assert.Len(t, round.Steps, 1)
}

func TestInvoke_ProviderErrorWrapped(t *testing.T) {
	p := &scriptedProvider{err: errors.New("openai: invalid API key")}
	_, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	assert.ErrorIs(t, err, ErrCompletion)
	assert.ErrorContains(t, err, "invalid API key")
}

func TestInvoke_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &scriptedProvider{err: context.Canceled}
	_, err := newTestInvoker(p, nil, nil).Invoke(ctx, "sys", seed())
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrCompletion)
}

func TestInvoke_DisruptiveStepStopsProgress(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("getAdbPath", "buildAndroidApp"),
		text(`{"type":"end","content":"built"}`),
	}}
	progress := &recordingProgress{}
	_, err := newTestInvoker(p, progress, func(s *schema.AgentSettings) { s.ParallelTools = true }).
		Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"stop: Executing: getAdbPath, buildAndroidApp",
		"start: Thinking...",
	}, progress.events)
}

func TestInvoke_ParallelKeepsOrder(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("getAndroidDevices", "getAdbPath", "bootAndroidEmulator"),
		text(`{"type":"end","content":"ok"}`),
	}}
	round, err := newTestInvoker(p, nil, func(s *schema.AgentSettings) { s.ParallelTools = true }).
		Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)

	results := round.Steps[0].ToolResults
	require.Len(t, results, 3)
	assert.Equal(t, "getAndroidDevices", results[0].ToolName)
	assert.Equal(t, "getAdbPath", results[1].ToolName)
	assert.True(t, results[2].IsError())
}

func TestInvoke_FailureGuardLocksTool(t *testing.T) {
	var script []schema.LLMResponse
	for range 4 {
		script = append(script, calls("bootAndroidEmulator"))
	}
	script = append(script, text(`{"type":"end","content":"giving up"}`))
	p := &scriptedProvider{responses: script}

	round, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)
	require.Len(t, round.Steps, 5)
	assert.Equal(t, "device not found", round.Steps[2].ToolResults[0].ErrorMessage())
	assert.Contains(t, round.Steps[3].ToolResults[0].ErrorMessage(), "failed 3 times in a row")
}

func TestInvoke_StripsThinkBlocks(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{text("<think>hmm</think>\n" + `{"type":"end","content":"ok"}`)}}
	round, err := newTestInvoker(p, nil, nil).Invoke(context.Background(), "sys", seed())
	require.NoError(t, err)
	assert.Equal(t, `{"type":"end","content":"ok"}`, round.Text)
}

func TestStep_Turns(t *testing.T) {
	s := Step{
		ToolCalls:   []schema.ToolCall{{ID: "1", Name: "getAdbPath"}},
		ToolResults: []schema.ToolResult{{CallID: "1", ToolName: "getAdbPath", Output: "adb"}},
	}
	turns := s.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, schema.RoleAssistant, turns[0].Role)
	assert.Equal(t, schema.RoleTool, turns[1].Role)
	assert.Equal(t, schema.DefaultResultKind, turns[1].ToolResults[0].Kind)

	s.Text = "checking"
	assert.Len(t, s.Turns(), 3)
	assert.Len(t, Step{Text: "final"}.Turns(), 1)
	assert.Empty(t, Step{}.Turns())
}
