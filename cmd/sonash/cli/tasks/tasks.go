// Package tasks tracks multi-step task progress as task-<name>.state.json
// documents in the state directory.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/validation"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/redact"
)

// Status is the state of one step.
type Status string

const (
	StatusPending            Status = "pending"
	StatusInProgress         Status = "in_progress"
	StatusCompleted          Status = "completed"
	StatusCompletedWithFixes Status = "completed-with-fixes"
	StatusFailed             Status = "failed"
)

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCompletedWithFixes, StatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("invalid step status %q (want pending, in_progress, completed, completed-with-fixes or failed)", s)
	}
}

// Done reports whether the step counts towards completion.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusCompletedWithFixes
}

// Step is one named unit of work within a task.
type Step struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// State is the persisted progress of one task.
type State struct {
	Task        string         `json:"task"`
	Started     time.Time      `json:"started,omitzero"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Steps       []Step         `json:"steps"`
	Context     map[string]any `json:"context,omitempty"`
}

// Counts returns the number of done steps and the total number of steps.
func (s State) Counts() (done, total int) {
	for _, step := range s.Steps {
		if step.Status.Done() {
			done++
		}
	}
	return done, len(s.Steps)
}

// StepsWithStatus returns the names of steps in the given status, in order.
func (s State) StepsWithStatus(st Status) []string {
	var names []string
	for _, step := range s.Steps {
		if step.Status == st {
			names = append(names, step.Name)
		}
	}
	return names
}

// ResumePoint is the step to pick up after an interruption: the first
// in-progress step, else the first pending one. Empty when nothing is left.
func (s State) ResumePoint() string {
	if names := s.StepsWithStatus(StatusInProgress); len(names) > 0 {
		return names[0]
	}
	if names := s.StepsWithStatus(StatusPending); len(names) > 0 {
		return names[0]
	}
	return ""
}

// Summarize drops everything but the task name, last-updated time and
// step name/status pairs.
func Summarize(s State) State {
	steps := make([]Step, len(s.Steps))
	for i, step := range s.Steps {
		steps[i] = Step{Name: step.Name, Status: step.Status}
	}
	return State{Task: s.Task, LastUpdated: s.LastUpdated, Steps: steps}
}

// Update is a partial change merged into a task's state.
type Update struct {
	// Steps are appended, or, when a step with the same name exists, that
	// step's status is updated in place.
	Steps []Step
	// Context keys overwrite existing keys; other keys are kept. String
	// values are redacted before they are stored.
	Context map[string]any
}

// Store reads and writes task documents.
type Store struct {
	docs *statestore.Store
	now  func() time.Time
}

// NewStore returns a task store over the state directory store.
func NewStore(docs *statestore.Store) *Store {
	return &Store{docs: docs, now: time.Now}
}

// WithClock returns a copy of the store that uses now for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	return &Store{docs: s.docs, now: now}
}

// Load reads one task. Missing and corrupt documents report false.
func (s *Store) Load(name string) (State, bool, error) {
	if err := validation.ValidateTaskName(name); err != nil {
		return State{}, false, err //nolint:wrapcheck // validation errors are user-facing as is
	}
	var st State
	found, err := s.docs.Read(paths.TaskFileName(name), &st)
	if err != nil {
		return State{}, false, err //nolint:wrapcheck // already wrapped by statestore
	}
	return st, found, nil
}

// Update merges u into the named task, creating it on first use.
// Existing steps are never removed.
func (s *Store) Update(ctx context.Context, name string, u Update) (State, error) {
	if err := validation.ValidateTaskName(name); err != nil {
		return State{}, err //nolint:wrapcheck // validation errors are user-facing as is
	}
	now := s.now().UTC()

	st, found, err := s.Load(name)
	if err != nil {
		if !errors.Is(err, statestore.ErrCorrupt) {
			return State{}, err
		}
		logging.Warn(ctx, "corrupt task document replaced", slog.String("task", name), slog.String("error", err.Error()))
	}
	if !found {
		st = State{Task: name, Started: now}
	}
	if st.Task == "" {
		st.Task = name
	}

	for _, step := range u.Steps {
		if step.Name == "" {
			continue
		}
		if step.Status == "" {
			step.Status = StatusPending
		}
		step.UpdatedAt = now
		if i := indexOfStep(st.Steps, step.Name); i >= 0 {
			st.Steps[i].Status = step.Status
			st.Steps[i].UpdatedAt = now
			continue
		}
		st.Steps = append(st.Steps, step)
	}
	if st.Steps == nil {
		st.Steps = []Step{}
	}

	if len(u.Context) > 0 {
		if st.Context == nil {
			st.Context = make(map[string]any, len(u.Context))
		}
		for k, v := range u.Context {
			st.Context[k] = redact.Value(v)
		}
	}

	st.LastUpdated = now
	if err := s.docs.Write(paths.TaskFileName(name), st); err != nil {
		return State{}, fmt.Errorf("saving task %s: %w", name, err)
	}
	return st, nil
}

// All returns every readable task keyed by document stem ("task-<name>").
// With full false each state is summarized. Corrupt documents are skipped.
func (s *Store) All(full bool) (map[string]State, error) {
	names, err := s.docs.List(paths.TaskFilePrefix, paths.TaskFileSuffix)
	if err != nil {
		return nil, err //nolint:wrapcheck // already wrapped by statestore
	}

	out := make(map[string]State, len(names))
	for _, name := range names {
		var st State
		if !s.docs.ReadOrDefault(name, &st) {
			continue
		}
		if !full {
			st = Summarize(st)
		}
		out[paths.TaskKey(name)] = st
	}
	return out, nil
}

// Delete removes the named task document.
func (s *Store) Delete(name string) error {
	if err := validation.ValidateTaskName(name); err != nil {
		return err //nolint:wrapcheck // validation errors are user-facing as is
	}
	return s.docs.Delete(paths.TaskFileName(name)) //nolint:wrapcheck // already wrapped by statestore
}

func indexOfStep(steps []Step, name string) int {
	for i, step := range steps {
		if step.Name == name {
			return i
		}
	}
	return -1
}
