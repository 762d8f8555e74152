package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cali-dev/cali/internal/schema"
)

func sampleTurns() []schema.Turn {
	call := schema.ToolCall{ID: "call_1", Name: "getAdbPath", Arguments: map[string]any{}}
	return []schema.Turn{
		schema.NewSystemTurn("What do you want to do today?"),
		schema.NewUserTurn("run on android"),
		schema.NewToolCallTurn([]schema.ToolCall{call}),
		schema.NewToolResultTurn([]schema.ToolResult{{CallID: "call_1", ToolName: "getAdbPath", Output: "/sdk/platform-tools/adb"}}),
		schema.NewAssistantTurn(`{"type":"end","content":"<b>done</b>"}`),
	}
}

func TestStore_SaveLoad(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "transcripts"))
	require.NoError(t, err)

	tr := NewTranscript("openai", "gpt-4o", "/work/app")
	tr.Record(sampleTurns())
	require.NoError(t, store.Save(tr))

	got, err := store.Load(tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, "gpt-4o", got.Model)
	assert.Equal(t, "/work/app", got.Root)
	assert.WithinDuration(t, tr.CreatedAt, got.CreatedAt, time.Second)

	turns := got.Turns()
	require.Len(t, turns, 5)
	assert.Equal(t, schema.RoleSystem, turns[0].Role)
	assert.Equal(t, "run on android", turns[1].Text)
	assert.Equal(t, "getAdbPath", turns[2].ToolCalls[0].Name)
	assert.Equal(t, schema.DefaultResultKind, turns[3].ToolResults[0].Kind)
	assert.Equal(t, "/sdk/platform-tools/adb", turns[3].ToolResults[0].Output)
	assert.Equal(t, `{"type":"end","content":"<b>done</b>"}`, turns[4].Text)
}

func TestStore_SaveRewritesFile(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	tr := NewTranscript("openai", "gpt-4o", "")
	turns := sampleTurns()
	tr.Record(turns[:2])
	require.NoError(t, store.Save(tr))
	tr.Record(turns)
	require.NoError(t, store.Save(tr))

	data, err := os.ReadFile(filepath.Join(store.Dir(), tr.ID+".jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 6)
	assert.Contains(t, lines[0], `"_type":"metadata"`)
	assert.Contains(t, string(data), "<b>done</b>")
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_LoadSkipsMalformedLines(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	content := `{"_type":"metadata","id":"x","created_at":"2026-01-02T03:04:05Z","updated_at":"2026-01-02T03:04:05Z"}
not json
{"role":"user","content":"hi"}
`
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "x.jsonl"), []byte(content), 0o600))

	got, err := store.Load("x")
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "hi", got.Turns()[0].Text)
}

func TestStore_ListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	older := NewTranscript("openai", "gpt-4o", "")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(older))

	newer := NewTranscript("anthropic", "claude-sonnet-4-5", "")
	require.NoError(t, store.Save(newer))

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "junk.jsonl"), []byte("junk\n"), 0o600))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, "claude-sonnet-4-5", list[0].Model)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", safeFilename(" a:b/c "))
}
