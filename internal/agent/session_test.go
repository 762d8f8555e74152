package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cali-dev/cali/internal/protocol"
	"github.com/cali-dev/cali/internal/schema"
	"github.com/cali-dev/cali/internal/session"
)

func newTestSession(p *scriptedProvider, prompter *fakePrompter, progress Progress, opts SessionOptions) *Session {
	if opts.Task == "" {
		opts.Task = "run on android"
	}
	if opts.MaxProtocolRetries == 0 {
		opts.MaxProtocolRetries = 2
	}
	return NewSession(newTestInvoker(p, progress, nil), prompter, progress, opts)
}

func lastUser(turns []schema.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == schema.RoleUser {
			return turns[i].Text
		}
	}
	return ""
}

func TestSession_ConfirmationAnswerIsYes(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		text(`{"type":"confirmation","content":"Start Metro?"}`),
		text(`{"type":"end","content":"Metro started."}`),
	}}
	prompter := &fakePrompter{confirms: []bool{true}}
	s := newTestSession(p, prompter, nil, SessionOptions{})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "yes", lastUser(s.History()))
	assert.Equal(t, []string{"confirm: Start Metro?"}, prompter.asked)

	// The second round saw the answer.
	assert.Equal(t, "yes", lastUser(p.requests[1].Turns))
}

func TestSession_SelectAnswerIsLiteralOption(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		text(`{"type":"select","content":"Pick a platform","options":["ios","android"]}`),
		text(`{"type":"end","content":"Done."}`),
	}}
	prompter := &fakePrompter{selects: []string{"android"}}
	s := newTestSession(p, prompter, nil, SessionOptions{})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, "android", lastUser(s.History()))
}

func TestSession_EndStopsWithoutUserTurn(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{text(`{"type":"end","content":"Build complete."}`)}}
	prompter := &fakePrompter{}
	s := newTestSession(p, prompter, nil, SessionOptions{})

	require.NoError(t, s.Run(context.Background()))
	turns := s.History()
	require.Len(t, turns, 3)
	assert.Equal(t, schema.RoleAssistant, turns[2].Role)
	assert.Equal(t, []string{"Build complete."}, prompter.steps)
	assert.Len(t, p.requests, 1)
}

func TestSession_InitialHistory(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{text(`{"type":"end","content":"ok"}`)}}
	s := newTestSession(p, &fakePrompter{}, nil, SessionOptions{})
	require.NoError(t, s.Run(context.Background()))

	first := p.requests[0]
	assert.Equal(t, SystemPrompt, first.System)
	assert.Equal(t, []schema.Turn{schema.NewSystemTurn(Greeting), schema.NewUserTurn("run on android")}, first.Turns)
}

func TestSession_AsksForTaskWhenEmpty(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{text(`{"type":"end","content":"ok"}`)}}
	prompter := &fakePrompter{texts: []string{"upgrade react native"}}
	s := NewSession(newTestInvoker(p, nil, nil), prompter, nil, SessionOptions{})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"text: " + Greeting}, prompter.asked)
	assert.Equal(t, "upgrade react native", p.requests[0].Turns[1].Text)
}

func TestSession_HistoryIsAppendOnly(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("getAdbPath"),
		text(`{"type":"question","content":"Which port?"}`),
		{Content: "Booting.", ToolCalls: calls("bootAndroidEmulator").ToolCalls},
		text(`{"type":"confirmation","content":"Retry?"}`),
		text(`{"type":"end","content":"bye"}`),
	}}
	prompter := &fakePrompter{texts: []string{"8082"}, confirms: []bool{false}}
	s := newTestSession(p, prompter, nil, SessionOptions{})
	require.NoError(t, s.Run(context.Background()))

	// Each request's turns are a prefix of the next one's.
	for i := 1; i < len(p.requests); i++ {
		prev, next := p.requests[i-1].Turns, p.requests[i].Turns
		require.Greater(t, len(next), len(prev))
		assert.Equal(t, prev, next[:len(prev)])
	}
	final := s.History()
	last := p.requests[len(p.requests)-1].Turns
	assert.Equal(t, last, final[:len(last)])
}

func TestSession_ToolResultsAreTagged(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("bootAndroidEmulator", "getAdbPath"),
		text(`{"type":"end","content":"bye"}`),
	}}
	s := newTestSession(p, &fakePrompter{}, nil, SessionOptions{})
	require.NoError(t, s.Run(context.Background()))

	var found int
	for _, turn := range s.History() {
		for _, r := range turn.ToolResults {
			found++
			assert.Equal(t, schema.DefaultResultKind, r.Kind)
		}
	}
	assert.Equal(t, 2, found)

	tool := s.History()[3]
	require.Equal(t, schema.RoleTool, tool.Role)
	assert.Equal(t, map[string]any{"error": "device not found"}, tool.ToolResults[0].Output)
}

func TestSession_ProgressMessages(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		calls("getAdbPath"),
		text(`{"type":"confirmation","content":"Continue?"}`),
		text(`{"type":"end","content":"bye"}`),
	}}
	progress := &recordingProgress{}
	s := newTestSession(p, &fakePrompter{confirms: []bool{true}}, progress, SessionOptions{})
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{
		"start: Thinking...",
		"message: Executing: getAdbPath",
		"stop: Tools called: getAdbPath",
		"start: Thinking...",
		"stop: Done.",
	}, progress.events)
}

func TestSession_ProtocolRetry(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		text("Here are your options: ios, android"),
		text(`{"type":"end","content":"ok"}`),
	}}
	s := newTestSession(p, &fakePrompter{}, nil, SessionOptions{})
	require.NoError(t, s.Run(context.Background()))

	require.Len(t, p.requests, 2)
	retry := p.requests[1].Turns
	correction := retry[len(retry)-1]
	assert.Equal(t, schema.RoleSystem, correction.Role)
	assert.Contains(t, correction.Text, "Your last reply was rejected")
	assert.Equal(t, "Here are your options: ios, android", retry[len(retry)-2].Text)
}

func TestSession_ProtocolRetriesExhausted(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		text("nope"), text("still nope"), text(`{"type":"select","content":"x","options":[]}`),
	}}
	s := newTestSession(p, &fakePrompter{}, nil, SessionOptions{})

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, protocol.ErrProtocol)
	assert.ErrorContains(t, err, "after 2 retries")
	assert.Len(t, p.requests, 3)
}

func TestSession_CancelledPromptSaysBye(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{text(`{"type":"question","content":"Which port?"}`)}}
	prompter := &fakePrompter{}
	s := newTestSession(p, prompter, nil, SessionOptions{})

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, []string{"Bye!"}, prompter.steps)
	assert.Equal(t, "run on android", lastUser(s.History()))
}

func TestSession_CancelledContextSaysBye(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	prompter := &fakePrompter{}
	s := newTestSession(&scriptedProvider{err: context.Canceled}, prompter, nil, SessionOptions{})

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, []string{"Bye!"}, prompter.steps)
}

func TestSession_CompletionFailure(t *testing.T) {
	store := &memoryStore{}
	s := newTestSession(&scriptedProvider{err: errors.New("rate limit exceeded")}, &fakePrompter{}, nil, SessionOptions{
		Store:      store,
		Transcript: session.NewTranscript("openai", "gpt-4o", ""),
	})

	err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrCompletion)
	assert.Equal(t, 1, store.saves)
	assert.Len(t, store.last, 2)
}

func TestSession_PersistsAfterEveryRound(t *testing.T) {
	p := &scriptedProvider{responses: []schema.LLMResponse{
		text(`{"type":"question","content":"Which port?"}`),
		text(`{"type":"end","content":"ok"}`),
	}}
	store := &memoryStore{}
	s := newTestSession(p, &fakePrompter{texts: []string{"8081"}}, nil, SessionOptions{
		Store:      store,
		Transcript: session.NewTranscript("openai", "gpt-4o", ""),
	})
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 2, store.saves)
	assert.Equal(t, s.History(), store.last)
}
