package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cali-dev/cali/internal/protocol"
)

type fakePrompter struct {
	selectAnswer  string
	textAnswer    string
	confirmAnswer bool
	err           error

	calls []string
	steps []string
	seen  []string
}

func (f *fakePrompter) Select(_ context.Context, message string, options []string) (string, error) {
	f.calls = append(f.calls, "select")
	f.seen = append(f.seen, message)
	f.seen = append(f.seen, options...)
	return f.selectAnswer, f.err
}

func (f *fakePrompter) Text(_ context.Context, message, _ string) (string, error) {
	f.calls = append(f.calls, "text")
	f.seen = append(f.seen, message)
	return f.textAnswer, f.err
}

func (f *fakePrompter) Confirm(_ context.Context, message string) (bool, error) {
	f.calls = append(f.calls, "confirm")
	f.seen = append(f.seen, message)
	return f.confirmAnswer, f.err
}

func (f *fakePrompter) Step(message string) {
	f.calls = append(f.calls, "step")
	f.steps = append(f.steps, message)
}

type unknownMessage struct{ protocol.Message }

func TestResolve_Select(t *testing.T) {
	p := &fakePrompter{selectAnswer: "Pixel_8"}
	ans, err := NewResolver(p).Resolve(context.Background(), protocol.Select{
		Content: "Pick a device",
		Options: []string{"Pixel_8", "iPhone 16"},
	})
	require.NoError(t, err)
	assert.Equal(t, Answer{Text: "Pixel_8"}, ans)
	assert.Equal(t, []string{"select"}, p.calls)
	assert.Equal(t, []string{"Pick a device", "Pixel_8", "iPhone 16"}, p.seen)
}

func TestResolve_Question(t *testing.T) {
	p := &fakePrompter{textAnswer: "8082"}
	ans, err := NewResolver(p).Resolve(context.Background(), protocol.Question{Content: "Which port?"})
	require.NoError(t, err)
	assert.Equal(t, Answer{Text: "8082"}, ans)
	assert.Equal(t, []string{"text"}, p.calls)
}

func TestResolve_Confirmation(t *testing.T) {
	tests := []struct {
		confirm bool
		want    string
	}{
		{true, "yes"},
		{false, "no"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := &fakePrompter{confirmAnswer: tt.confirm}
			ans, err := NewResolver(p).Resolve(context.Background(), protocol.Confirmation{Content: "Start Metro?"})
			require.NoError(t, err)
			assert.Equal(t, Answer{Text: tt.want}, ans)
		})
	}
}

func TestResolve_End(t *testing.T) {
	p := &fakePrompter{}
	ans, err := NewResolver(p).Resolve(context.Background(), protocol.End{Content: "App is running."})
	require.NoError(t, err)
	assert.True(t, ans.Ended)
	assert.False(t, ans.Cancelled)
	assert.Empty(t, ans.Text)
	assert.Equal(t, []string{"App is running."}, p.steps)
}

func TestResolve_CancelEndsSession(t *testing.T) {
	msgs := []protocol.Message{
		protocol.Select{Content: "Pick", Options: []string{"a"}},
		protocol.Question{Content: "What?"},
		protocol.Confirmation{Content: "Sure?"},
	}
	for _, msg := range msgs {
		t.Run(string(msg.Type()), func(t *testing.T) {
			p := &fakePrompter{err: ErrCancelled}
			ans, err := NewResolver(p).Resolve(context.Background(), msg)
			require.NoError(t, err)
			assert.Equal(t, Answer{Ended: true, Cancelled: true}, ans)
		})
	}
}

func TestResolve_PrompterFailure(t *testing.T) {
	p := &fakePrompter{err: errors.New("tty closed")}
	_, err := NewResolver(p).Resolve(context.Background(), protocol.Question{Content: "What?"})
	assert.ErrorContains(t, err, "question prompt: tty closed")
}

func TestResolve_UnknownMessage(t *testing.T) {
	p := &fakePrompter{}
	_, err := NewResolver(p).Resolve(context.Background(), unknownMessage{})
	assert.ErrorContains(t, err, "unsupported message")
	assert.Empty(t, p.calls)
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		msg  protocol.Message
		want State
	}{
		{protocol.Select{Content: "x", Options: []string{"a"}}, AwaitingSelect},
		{protocol.Question{Content: "x"}, AwaitingText},
		{protocol.Confirmation{Content: "x"}, AwaitingConfirm},
		{protocol.End{Content: "x"}, Ended},
	}
	for _, tt := range tests {
		got, err := StateOf(tt.msg)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.want.String())
	}

	_, err := StateOf(unknownMessage{})
	assert.Error(t, err)
}
