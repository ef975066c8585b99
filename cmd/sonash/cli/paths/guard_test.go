package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuard_Validate_Rejects(t *testing.T) {
	t.Parallel()

	g, err := NewGuard(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "parent_traversal", raw: "../../etc/passwd"},
		{name: "absolute_posix", raw: "/etc/passwd"},
		{name: "nested_escape", raw: "a/../../b"},
		{name: "bare_dotdot", raw: ".."},
		{name: "trailing_dotdot", raw: "docs/.."},
		{name: "trailing_dotdot_escape", raw: "docs/../.."},
		{name: "flag_like", raw: "-rf"},
		{name: "double_dash_flag", raw: "--output=x"},
		{name: "newline", raw: "docs/a\nb"},
		{name: "carriage_return", raw: "docs/a\rb"},
		{name: "drive_letter", raw: `C:\Windows\system32`},
		{name: "drive_letter_forward", raw: "c:/temp"},
		{name: "unc_path", raw: `\\server\share`},
		{name: "backslash_traversal", raw: `..\..\secret`},
		{name: "encoded_traversal", raw: "%2e%2e/%2e%2e/etc/passwd"},
		{name: "encoded_separator", raw: "..%2f..%2fetc"},
		{name: "encoded_backslash", raw: "..%5c..%5cetc"},
		{name: "encoded_absolute", raw: "%2fetc%2fpasswd"},
		{name: "malformed_encoding", raw: "docs/%zz"},
		{name: "root_itself", raw: "."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := g.Validate(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRejected), "error should wrap ErrRejected: %v", err)
		})
	}
}

func TestGuard_Validate_Accepts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	g, err := NewGuard(root)
	require.NoError(t, err)

	tests := []struct {
		name    string
		raw     string
		wantRel string
	}{
		{name: "nested_file", raw: "docs/audits/x.jsonl", wantRel: "docs/audits/x.jsonl"},
		{name: "inner_dotdot_stays_inside", raw: "docs/../README.md", wantRel: "README.md"},
		{name: "dot_prefix", raw: "./src/main.go", wantRel: "src/main.go"},
		{name: "hidden_file", raw: ".claude/state/handoff.json", wantRel: ".claude/state/handoff.json"},
		{name: "dotdot_in_name", raw: "notes..md", wantRel: "notes..md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sp, err := g.Validate(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRel, sp.Rel)
			assert.Equal(t, filepath.Join(g.Root(), filepath.FromSlash(tt.wantRel)), sp.Abs)
		})
	}
}

func TestGuard_Validate_ResolvedPathUnderRoot(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	g, err := NewGuard(root)
	require.NoError(t, err)

	sp, err := g.Validate("docs/audits/x.jsonl")
	require.NoError(t, err)

	absRoot, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(absRoot, "docs", "audits", "x.jsonl"), sp.Abs)
}

func TestGuard_ValidateAbsOrRel(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	g, err := NewGuard(root)
	require.NoError(t, err)

	sp, err := g.ValidateAbsOrRel(filepath.Join(g.Root(), "src", "app.ts"))
	require.NoError(t, err)
	assert.Equal(t, "src/app.ts", sp.Rel)

	_, err = g.ValidateAbsOrRel(filepath.Join(filepath.Dir(g.Root()), "elsewhere.txt"))
	require.ErrorIs(t, err, ErrRejected)

	sp, err = g.ValidateAbsOrRel("relative/file.md")
	require.NoError(t, err)
	assert.Equal(t, "relative/file.md", sp.Rel)
}

func TestGuard_CheckWritable(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on Windows")
	}

	root := t.TempDir()
	g, err := NewGuard(root)
	require.NoError(t, err)

	// Missing target is writable.
	missing, err := g.Validate("state/new.json")
	require.NoError(t, err)
	require.NoError(t, g.CheckWritable(missing))

	// Regular file is writable.
	regular := filepath.Join(root, "regular.json")
	require.NoError(t, os.WriteFile(regular, []byte("{}"), 0o600))
	sp, err := g.Validate("regular.json")
	require.NoError(t, err)
	require.NoError(t, g.CheckWritable(sp))

	// Symlink is refused, even when it points inside the root.
	require.NoError(t, os.Symlink(regular, filepath.Join(root, "link.json")))
	link, err := g.Validate("link.json")
	require.NoError(t, err)
	err = g.CheckWritable(link)
	require.ErrorIs(t, err, ErrRejected)
}

func TestValidateBasename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "handoff.json", wantErr: false},
		{name: "hidden", input: ".fetch-cache.json", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "dot", input: ".", wantErr: true},
		{name: "dotdot", input: "..", wantErr: true},
		{name: "slash", input: "a/b.json", wantErr: true},
		{name: "backslash", input: `a\b.json`, wantErr: true},
		{name: "newline", input: "a\n.json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateBasename(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrRejected)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestToRelativePath(t *testing.T) {
	t.Parallel()

	root := filepath.Join(string(filepath.Separator), "repo")
	assert.Equal(t, filepath.Join("src", "a.go"), ToRelativePath(filepath.Join(root, "src", "a.go"), root))
	assert.Empty(t, ToRelativePath(filepath.Join(string(filepath.Separator), "other", "a.go"), root))
	assert.Equal(t, "rel.go", ToRelativePath("rel.go", root))
}

func TestTaskKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "task-foo.state.json", TaskFileName("foo"))
	assert.Equal(t, "task-foo", TaskKey(TaskFileName("foo")))
}
