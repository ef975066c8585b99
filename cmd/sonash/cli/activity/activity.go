// Package activity records what happened during a session besides commits:
// which agents were invoked and free-text notes left for the next session.
package activity

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/appendlog"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/config"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/validation"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/redact"
)

// Invocation is one agent-invocations.jsonl entry.
type Invocation struct {
	Agent       string    `json:"agent"`
	Description string    `json:"description,omitempty"`
	Session     int       `json:"session,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Note is one session-notes.jsonl entry.
type Note struct {
	Text      string    `json:"text"`
	Session   int       `json:"session,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentSummary counts invocations per agent.
type AgentSummary struct {
	Counts map[string]int `json:"summary"`
	Total  int            `json:"total"`
}

// TeamMember is one line of the team activity summary.
type TeamMember struct {
	Agent       string    `json:"agent"`
	Count       int       `json:"count"`
	LastInvoked time.Time `json:"lastInvoked"`
}

// Recorder appends to and reads from the two activity logs.
type Recorder struct {
	cfg         config.Config
	invocations *appendlog.Log
	notes       *appendlog.Log
	now         func() time.Time
}

// NewRecorder returns a recorder over the state directory in cfg.
func NewRecorder(cfg config.Config) *Recorder {
	return &Recorder{
		cfg:         cfg,
		invocations: appendlog.New(cfg.StatePath(paths.AgentInvocationsFileName)),
		notes:       appendlog.New(cfg.StatePath(paths.SessionNotesFileName)),
		now:         time.Now,
	}
}

// WithClock returns a copy of the recorder that uses now for timestamps.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	c := *r
	c.now = now
	return &c
}

// Record appends an agent invocation. description is redacted and truncated.
func (r *Recorder) Record(ctx context.Context, agent, description string, session int) error {
	if err := validation.ValidateAgentName(agent); err != nil {
		return err //nolint:wrapcheck // validation errors are user-facing as is
	}
	entry := Invocation{
		Agent:       agent,
		Description: truncate(redact.String(oneLine(description)), 200),
		Session:     session,
		Timestamp:   r.now().UTC(),
	}
	if err := r.invocations.Append(entry); err != nil {
		return fmt.Errorf("recording agent invocation: %w", err)
	}
	r.rotate(ctx, r.invocations)
	return nil
}

// AddNote appends a free-text session note after secret redaction.
func (r *Recorder) AddNote(ctx context.Context, text string, session int) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, errors.New("note cannot be empty")
	}
	note := Note{
		Text:      truncate(redact.String(text), r.cfg.MaxNoteBytes),
		Session:   session,
		Timestamp: r.now().UTC(),
	}
	if err := r.notes.Append(note); err != nil {
		return Note{}, fmt.Errorf("saving note: %w", err)
	}
	r.rotate(ctx, r.notes)
	return note, nil
}

// Notes returns the newest n notes of session, oldest first. Session 0
// matches every session.
func (r *Recorder) Notes(n, session int) []Note {
	if session == 0 {
		notes, _, err := appendlog.TailAs[Note](r.notes, n)
		if err != nil {
			return []Note{}
		}
		return notes
	}
	all, _, err := appendlog.TailAs[Note](r.notes, 0)
	if err != nil {
		return []Note{}
	}
	notes := slices.DeleteFunc(all, func(note Note) bool { return note.Session != session })
	if n > 0 && len(notes) > n {
		notes = notes[len(notes)-n:]
	}
	return notes
}

// Summary counts the invocations recorded in session by agent. Session 0
// counts every session.
func (r *Recorder) Summary(session int) AgentSummary {
	s := AgentSummary{Counts: make(map[string]int)}
	for _, inv := range r.all() {
		if session != 0 && inv.Session != session {
			continue
		}
		s.Counts[inv.Agent]++
		s.Total++
	}
	return s
}

// TeamSummary lists agents by invocation count across all sessions, most
// active first.
func (r *Recorder) TeamSummary() []TeamMember {
	byAgent := make(map[string]*TeamMember)
	for _, inv := range r.all() {
		m, ok := byAgent[inv.Agent]
		if !ok {
			m = &TeamMember{Agent: inv.Agent}
			byAgent[inv.Agent] = m
		}
		m.Count++
		if inv.Timestamp.After(m.LastInvoked) {
			m.LastInvoked = inv.Timestamp
		}
	}

	members := make([]TeamMember, 0, len(byAgent))
	for _, m := range byAgent {
		members = append(members, *m)
	}
	slices.SortFunc(members, func(a, b TeamMember) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Agent, b.Agent)
	})
	return members
}

func (r *Recorder) all() []Invocation {
	invs, _, err := appendlog.TailAs[Invocation](r.invocations, 0)
	if err != nil {
		return nil
	}
	return invs
}

func (r *Recorder) rotate(ctx context.Context, l *appendlog.Log) {
	res, err := l.RotateIfLarge(r.cfg.LogRotateBytes, r.cfg.LogMaxLines, r.cfg.LogKeepLines)
	if err != nil {
		logging.Warn(ctx, "log rotation failed", slog.String("log", l.Path()), slog.String("error", err.Error()))
		return
	}
	if res.Rotated {
		logging.Debug(ctx, "log rotated", slog.String("log", l.Path()), slog.Int("before", res.Before), slog.Int("after", res.After))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most maxBytes without splitting a rune.
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
