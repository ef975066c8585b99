package appendlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Seq int    `json:"seq"`
	Msg string `json:"msg,omitempty"`
}

func writeEntries(t *testing.T, l *Log, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, l.Append(entry{Seq: i}))
	}
}

func readSeqs(t *testing.T, l *Log) []int {
	t.Helper()
	entries, _, err := TailAs[entry](l, 0)
	require.NoError(t, err)
	seqs := make([]int, 0, len(entries))
	for _, e := range entries {
		seqs = append(seqs, e.Seq)
	}
	return seqs
}

func TestLog_AppendCreatesOneLinePerEntry(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state", "commit-log.jsonl")
	l := New(path)

	require.NoError(t, l.Append(entry{Seq: 1, Msg: "feat: <html> & friends"}))
	require.NoError(t, l.Append(entry{Seq: 2, Msg: "multi\nline message"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "<html> & friends")

	var second entry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "multi\nline message", second.Msg)
}

func TestLog_Rotate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		entries     int
		maxLines    int
		keepLines   int
		wantRotated bool
		wantSeqs    []int
	}{
		{name: "under_limit", entries: 5, maxLines: 10, keepLines: 3, wantRotated: false, wantSeqs: []int{0, 1, 2, 3, 4}},
		{name: "at_limit", entries: 10, maxLines: 10, keepLines: 3, wantRotated: false, wantSeqs: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "over_limit_keeps_newest", entries: 12, maxLines: 10, keepLines: 3, wantRotated: true, wantSeqs: []int{9, 10, 11}},
		{name: "keep_larger_than_log", entries: 6, maxLines: 4, keepLines: 10, wantRotated: true, wantSeqs: []int{0, 1, 2, 3, 4, 5}},
		{name: "keep_zero", entries: 3, maxLines: 1, keepLines: 0, wantRotated: true, wantSeqs: []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := New(filepath.Join(t.TempDir(), "log.jsonl"))
			writeEntries(t, l, tt.entries)

			result, err := l.Rotate(tt.maxLines, tt.keepLines)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRotated, result.Rotated)
			assert.Equal(t, tt.entries, result.Before)
			assert.Equal(t, len(tt.wantSeqs), result.After)
			assert.Equal(t, tt.wantSeqs, readSeqs(t, l))
		})
	}
}

// Rotation keeps min(L, keepLines) entries, newest, in original order.
func TestLog_RotateBoundProperty(t *testing.T) {
	t.Parallel()

	for _, total := range []int{11, 25, 60} {
		for _, keep := range []int{1, 5, 10, 40, 100} {
			t.Run(fmt.Sprintf("L%d_keep%d", total, keep), func(t *testing.T) {
				t.Parallel()

				l := New(filepath.Join(t.TempDir(), "log.jsonl"))
				writeEntries(t, l, total)

				_, err := l.Rotate(10, keep)
				require.NoError(t, err)

				want := min(total, keep)
				seqs := readSeqs(t, l)
				require.Len(t, seqs, want)
				for i, seq := range seqs {
					assert.Equal(t, total-want+i, seq)
				}
			})
		}
	}
}

func TestLog_RotateMissingFile(t *testing.T) {
	t.Parallel()

	l := New(filepath.Join(t.TempDir(), "absent.jsonl"))
	result, err := l.Rotate(10, 5)
	require.NoError(t, err)
	assert.Equal(t, RotateResult{}, result)
	_, statErr := os.Stat(l.Path())
	assert.True(t, os.IsNotExist(statErr))
}

func TestLog_RotateIfLarge(t *testing.T) {
	t.Parallel()

	l := New(filepath.Join(t.TempDir(), "log.jsonl"))
	writeEntries(t, l, 20)

	// Small threshold not exceeded: nothing happens.
	result, err := l.RotateIfLarge(1<<20, 5, 2)
	require.NoError(t, err)
	assert.False(t, result.Rotated)
	assert.Len(t, readSeqs(t, l), 20)

	result, err = l.RotateIfLarge(10, 5, 2)
	require.NoError(t, err)
	assert.True(t, result.Rotated)
	assert.Equal(t, []int{18, 19}, readSeqs(t, l))
}

func TestLog_RotateSweepsStaleTemps(t *testing.T) {
	t.Parallel()

	l := New(filepath.Join(t.TempDir(), "log.jsonl"))
	writeEntries(t, l, 20)
	crashed := l.Path() + ".1234.tmp"
	require.NoError(t, os.WriteFile(crashed, []byte("{\"seq\":"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(crashed, old, old))

	result, err := l.Rotate(5, 2)
	require.NoError(t, err)
	require.True(t, result.Rotated)
	assert.NoFileExists(t, crashed)
}

func TestLog_CorruptLinesAreSkipped(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "log.jsonl")
	content := `{"seq":0}
{"seq":1
not json at all

{"seq":2}
["unexpected","shape"]
{"seq":3}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	l := New(path)

	raw, skipped, err := l.Tail(0)
	require.NoError(t, err)
	assert.Len(t, raw, 4)
	assert.Equal(t, 2, skipped)

	typed, skipped, err := TailAs[entry](l, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped, "the array line is valid JSON but not an entry")
	require.Len(t, typed, 2)
	assert.Equal(t, 2, typed[0].Seq)
	assert.Equal(t, 3, typed[1].Seq)

	result, err := l.Rotate(2, 2)
	require.NoError(t, err)
	assert.True(t, result.Rotated)
	assert.Equal(t, 6, result.Before)
	assert.Equal(t, 2, result.After)

	raw, skipped, err = l.Tail(0)
	require.NoError(t, err)
	assert.Equal(t, 0, skipped)
	require.Len(t, raw, 2)
	assert.JSONEq(t, `["unexpected","shape"]`, string(raw[0]))
	assert.JSONEq(t, `{"seq":3}`, string(raw[1]))
}

func TestLog_TailLimits(t *testing.T) {
	t.Parallel()

	l := New(filepath.Join(t.TempDir(), "log.jsonl"))
	writeEntries(t, l, 7)

	raw, skipped, err := l.Tail(3)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	require.Len(t, raw, 3)
	assert.JSONEq(t, `{"seq":4}`, string(raw[0]))
}
