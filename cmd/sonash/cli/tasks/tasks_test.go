package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	clock := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	s := NewStore(statestore.New(dir)).WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})
	return s, dir
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"pending", "in_progress", "completed", "completed-with-fixes", "failed"} {
		st, err := ParseStatus(valid)
		require.NoError(t, err, valid)
		assert.Equal(t, Status(valid), st)
	}
	for _, invalid := range []string{"", "done", "PENDING", "in-progress"} {
		_, err := ParseStatus(invalid)
		require.Error(t, err, invalid)
	}
}

func TestUpdate_CreatesOnFirstUse(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(t)

	st, err := s.Update(context.Background(), "foo", Update{
		Steps:   []Step{{Name: "write parser"}},
		Context: map[string]any{"ticket": "PRJ-1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "foo", st.Task)
	assert.False(t, st.Started.IsZero())
	require.Len(t, st.Steps, 1)
	assert.Equal(t, StatusPending, st.Steps[0].Status, "empty status defaults to pending")
	assert.FileExists(t, filepath.Join(dir, "task-foo.state.json"))

	loaded, found, err := s.Load("foo")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "PRJ-1", loaded.Context["ticket"])
}

func TestUpdate_MergesWithoutTruncating(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Update(ctx, "foo", Update{
		Steps:   []Step{{Name: "a", Status: StatusCompleted}, {Name: "b", Status: StatusInProgress}},
		Context: map[string]any{"owner": "alex", "phase": 1},
	})
	require.NoError(t, err)

	st, err := s.Update(ctx, "foo", Update{
		Steps:   []Step{{Name: "b", Status: StatusCompletedWithFixes}, {Name: "c"}},
		Context: map[string]any{"phase": 2},
	})
	require.NoError(t, err)

	require.Len(t, st.Steps, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{st.Steps[0].Name, st.Steps[1].Name, st.Steps[2].Name})
	assert.Equal(t, StatusCompletedWithFixes, st.Steps[1].Status)
	assert.Equal(t, "alex", st.Context["owner"])
	assert.InDelta(t, 2, st.Context["phase"], 0)
	assert.Equal(t, first.Started, st.Started, "start time is preserved")
	assert.True(t, st.LastUpdated.After(first.LastUpdated))

	// An empty update keeps everything.
	st, err = s.Update(ctx, "foo", Update{})
	require.NoError(t, err)
	assert.Len(t, st.Steps, 3)
}

func TestUpdate_ReplacesCorruptDocument(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "task-foo.state.json"), []byte("{oops"), 0o600))

	st, err := s.Update(context.Background(), "foo", Update{Steps: []Step{{Name: "a"}}})
	require.NoError(t, err)
	assert.Len(t, st.Steps, 1)
}

func TestUpdate_RejectsUnsafeNames(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t)

	for _, name := range []string{"", "../x", "a/b", "..", "with space"} {
		_, err := s.Update(context.Background(), name, Update{})
		require.Error(t, err, name)
	}
}

func TestAll_FullAndSummarized(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, "foo", Update{
		Steps:   []Step{{Name: "a", Status: StatusCompleted}, {Name: "b"}},
		Context: map[string]any{"notes": "long free-form text"},
	})
	require.NoError(t, err)
	_, err = s.Update(ctx, "bar", Update{Steps: []Step{{Name: "x", Status: StatusFailed}}})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "task-broken.state.json"), []byte("nope"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handoff.json"), []byte("{}"), 0o600))

	full, err := s.All(true)
	require.NoError(t, err)
	require.Len(t, full, 2, "corrupt and unrelated documents are skipped")
	assert.Contains(t, full, "task-foo")
	assert.Contains(t, full, "task-bar")
	assert.Equal(t, "long free-form text", full["task-foo"].Context["notes"])
	assert.False(t, full["task-foo"].Steps[0].UpdatedAt.IsZero())

	summary, err := s.All(false)
	require.NoError(t, err)
	foo := summary["task-foo"]
	assert.Nil(t, foo.Context)
	assert.True(t, foo.Started.IsZero())
	assert.True(t, foo.Steps[0].UpdatedAt.IsZero())
	assert.Equal(t, Step{Name: "b", Status: StatusPending}, foo.Steps[1])
	assert.False(t, foo.LastUpdated.IsZero())
}

func TestState_CountsAndResumePoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		steps      []Step
		done       int
		resumeStep string
	}{
		{name: "empty", steps: nil, done: 0, resumeStep: ""},
		{
			name:       "in_progress_wins",
			steps:      []Step{{Name: "a", Status: StatusPending}, {Name: "b", Status: StatusInProgress}},
			done:       0,
			resumeStep: "b",
		},
		{
			name:       "first_pending",
			steps:      []Step{{Name: "a", Status: StatusCompleted}, {Name: "b", Status: StatusPending}, {Name: "c", Status: StatusPending}},
			done:       1,
			resumeStep: "b",
		},
		{
			name:       "all_done",
			steps:      []Step{{Name: "a", Status: StatusCompleted}, {Name: "b", Status: StatusCompletedWithFixes}, {Name: "c", Status: StatusFailed}},
			done:       2,
			resumeStep: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := State{Steps: tt.steps}
			done, total := st.Counts()
			assert.Equal(t, tt.done, done)
			assert.Equal(t, len(tt.steps), total)
			assert.Equal(t, tt.resumeStep, st.ResumePoint())
		})
	}
}

func TestDelete(t *testing.T) {
	t.Parallel()
	s, dir := newTestStore(t)

	_, err := s.Update(context.Background(), "foo", Update{})
	require.NoError(t, err)
	require.NoError(t, s.Delete("foo"))
	assert.NoFileExists(t, filepath.Join(dir, "task-foo.state.json"))
	require.NoError(t, s.Delete("foo"), "deleting twice is fine")
}
