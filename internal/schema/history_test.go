package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory_AppendIsStrictPrefixExtension(t *testing.T) {
	h := NewHistory(NewSystemTurn("What do you want to do today?"), NewUserTurn("build the app"))
	before := h.Turns()

	h.Append(NewAssistantTurn("thinking"))
	h.Append(NewToolCallTurn([]ToolCall{{ID: "1", Name: "getAdbPath"}}))

	after := h.Turns()
	require.Len(t, after, len(before)+2)
	assert.Equal(t, before, after[:len(before)])
}

func TestHistory_SnapshotIsIndependent(t *testing.T) {
	h := NewHistory(NewUserTurn("hello"))
	snap := h.Turns()
	snap[0].Text = "mutated"

	assert.Equal(t, "hello", h.Turns()[0].Text)
}

func TestHistory_ToolTurnsAreTagged(t *testing.T) {
	h := NewHistory()
	h.Append(Turn{Role: RoleTool, ToolResults: []ToolResult{
		{CallID: "a", ToolName: "getAdbPath", Output: "/usr/bin/adb"},
		{Kind: "custom", CallID: "b", ToolName: "readFile", Output: map[string]any{"success": true}},
	}})

	got := h.Turns()[0].ToolResults
	assert.Equal(t, DefaultResultKind, got[0].Kind)
	assert.Equal(t, "custom", got[1].Kind)
}

func TestToolResult_ErrorDetection(t *testing.T) {
	ok := ToolResult{Output: map[string]any{"success": true}}
	assert.False(t, ok.IsError())

	list := ToolResult{Output: []any{"ios", "android"}}
	assert.False(t, list.IsError())

	failed := NewErrorResult(ToolCall{ID: "1", Name: "bootAndroidEmulator"}, "device not found", "")
	assert.True(t, failed.IsError())
	assert.Equal(t, "device not found", failed.ErrorMessage())
	assert.JSONEq(t, `{"error":"device not found"}`, failed.Content())
}
