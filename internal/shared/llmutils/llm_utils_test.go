package llmutils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/cali-dev/cali/internal/schema"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 3))
	assert.Equal(t, "ab...", Truncate("abc", 2))
}

func TestStripThink(t *testing.T) {
	assert.Equal(t, `{"type":"end","content":"ok"}`, StripThink("<think>\nplan\n</think>"+`{"type":"end","content":"ok"}`))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	// "é" is two bytes; cutting at 2 would split it.
	assert.Equal(t, "a...", Truncate("aéb", 2))
	assert.Equal(t, "aé...", Truncate("aéb", 3))
	assert.Equal(t, "", Clip("日本", 2))
	assert.Equal(t, "日", Clip("日本", 4))
	assert.Equal(t, "日本", Clip("日本", 6))
}

func TestToolHint(t *testing.T) {
	calls := []schema.ToolCall{
		{Name: "getAdbPath"},
		{Name: "readFile", Arguments: map[string]any{"filePath": "package.json", "encoding": ""}},
		{Name: "bootAndroidEmulator", Arguments: map[string]any{"port": 5554.0}},
	}
	assert.Equal(t, `getAdbPath, readFile("package.json"), bootAndroidEmulator`, ToolHint(calls))
	assert.Equal(t, []string{"getAdbPath", "readFile", "bootAndroidEmulator"}, ToolNames(calls))
}

func TestToolHint_LongArgument(t *testing.T) {
	path := strings.Repeat("ü", 30) // 60 bytes
	hint := ToolHint([]schema.ToolCall{{Name: "readFile", Arguments: map[string]any{"filePath": path}}})
	assert.Equal(t, `readFile("`+strings.Repeat("ü", 20)+`...")`, hint)
	assert.True(t, utf8.ValidString(hint))
}
