package claudehooks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeClaudeSettings(t *testing.T, root, content string) {
	t.Helper()
	path := settingsPath(root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func readClaudeSettings(t *testing.T, root string) map[string]json.RawMessage {
	t.Helper()
	data, err := os.ReadFile(settingsPath(root))
	require.NoError(t, err)
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	return raw
}

func TestInstall_FreshProject(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	count, err := Install(root)
	require.NoError(t, err)
	assert.Equal(t, len(Bindings()), count)
	assert.True(t, Installed(root))

	doc, err := readDocument(root)
	require.NoError(t, err)
	post, err := doc.matchers("PostToolUse")
	require.NoError(t, err)
	require.Len(t, post, 3)
	assert.Equal(t, "Bash", post[0].Matcher)
	assert.Equal(t, "sonash hooks commit-tracker", post[0].Hooks[0].Command)
	assert.Equal(t, "command", post[0].Hooks[0].Type)
}

func TestInstall_Idempotent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	_, err := Install(root)
	require.NoError(t, err)
	before, err := os.ReadFile(settingsPath(root))
	require.NoError(t, err)

	count, err := Install(root)
	require.NoError(t, err)
	assert.Zero(t, count)

	after, err := os.ReadFile(settingsPath(root))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestInstall_PreservesUnknownKeysAndHooks(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeClaudeSettings(t, root, `{
  "permissions": {"ask": ["Bash(rm:*)"]},
  "model": "custom",
  "hooks": {
    "Stop": [{"matcher": "", "hooks": [{"type": "command", "command": "notify-send done"}]}],
    "PostToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "lint-on-save"}]}]
  }
}`)

	_, err := Install(root)
	require.NoError(t, err)

	raw := readClaudeSettings(t, root)
	assert.JSONEq(t, `{"ask": ["Bash(rm:*)"]}`, string(raw["permissions"]))
	assert.JSONEq(t, `"custom"`, string(raw["model"]))

	doc, err := readDocument(root)
	require.NoError(t, err)
	stop, err := doc.matchers("Stop")
	require.NoError(t, err)
	require.Len(t, stop, 1)
	assert.Equal(t, "notify-send done", stop[0].Hooks[0].Command)

	post, err := doc.matchers("PostToolUse")
	require.NoError(t, err)
	assert.Equal(t, "lint-on-save", post[0].Hooks[0].Command)
	assert.Equal(t, "sonash hooks commit-tracker", post[0].Hooks[1].Command)
}

func TestInstall_RejectsInvalidJSON(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeClaudeSettings(t, root, `{"hooks": `)

	_, err := Install(root)
	require.Error(t, err)
	assert.False(t, Installed(root))
}

func TestUninstall_KeepsForeignHooks(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeClaudeSettings(t, root, `{"hooks": {"PostToolUse": [{"matcher": "Bash", "hooks": [{"type": "command", "command": "lint-on-save"}]}]}}`)

	_, err := Install(root)
	require.NoError(t, err)
	require.NoError(t, Uninstall(root))
	assert.False(t, Installed(root))

	doc, err := readDocument(root)
	require.NoError(t, err)
	post, err := doc.matchers("PostToolUse")
	require.NoError(t, err)
	require.Len(t, post, 1)
	require.Len(t, post[0].Hooks, 1)
	assert.Equal(t, "lint-on-save", post[0].Hooks[0].Command)

	_, hasSessionStart := doc.hooks["SessionStart"]
	assert.False(t, hasSessionStart)
}
