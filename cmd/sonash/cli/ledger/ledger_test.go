package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Info
	}{
		{
			name: "bold_label",
			text: "# Session Context\n\n**Current Session Count**: 42\n**Last Updated**: 2026-10-14\n",
			want: Info{Counter: 42, LastUpdated: "2026-10-14"},
		},
		{
			name: "bold_label_and_value",
			text: "**Session Counter:** **17**",
			want: Info{Counter: 17},
		},
		{
			name: "flexible_spacing_and_case",
			text: "session   COUNT :   7\nlast updated:2026-01-02",
			want: Info{Counter: 7, LastUpdated: "2026-01-02"},
		},
		{
			name: "hash_prefixed_number",
			text: "Current Session Number: #108",
			want: Info{Counter: 108},
		},
		{
			name: "first_match_wins",
			text: "Session Count: 3\n\nHistory\nSession Count: 2",
			want: Info{Counter: 3},
		},
		{
			name: "no_counter",
			text: "# Notes\nnothing useful here",
			want: Info{},
		},
		{
			name: "non_numeric_counter",
			text: "Session Count: TBD",
			want: Info{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Parse(tt.text))
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	guard, err := paths.NewGuard(root)
	require.NoError(t, err)

	info, err := Load(guard, paths.SessionLedgerFile)
	require.NoError(t, err)
	assert.Equal(t, Info{}, info, "missing ledger is not an error")

	require.NoError(t, os.WriteFile(filepath.Join(root, paths.SessionLedgerFile),
		[]byte("**Current Session Count**: 42\n"), 0o600))
	info, err = Load(guard, paths.SessionLedgerFile)
	require.NoError(t, err)
	assert.Equal(t, 42, info.Counter)

	_, err = Load(guard, "../outside.md")
	require.ErrorIs(t, err, paths.ErrRejected)
}
