// Package handoff writes the handoff snapshot that lets a new session pick up
// where an interrupted one left off.
//
// Two producers write the same document. RecordRead is speculative: it fires
// after enough distinct file reads and is rate-limited by a cooldown.
// PreCompact is authoritative: it runs when the host is about to discard
// context and always overwrites the snapshot with the fullest picture.
package handoff

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/activity"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/appendlog"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/committracker"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/config"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/gitctx"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/ledger"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/tasks"
)

// Trigger values recorded in snapshots.
const (
	TriggerThreshold  = "threshold"
	TriggerCompaction = "compaction"
)

// Task detail levels.
const (
	DetailSummary = "summary"
	DetailFull    = "full"
)

// Snapshot is the handoff.json document.
type Snapshot struct {
	Timestamp      time.Time              `json:"timestamp"`
	Trigger        string                 `json:"trigger"`
	SnapshotID     string                 `json:"snapshotId"`
	SessionCounter int                    `json:"sessionCounter"`
	SessionDate    string                 `json:"sessionDate,omitempty"`
	Git            gitctx.Context         `json:"git"`
	TaskDetail     string                 `json:"taskDetail"`
	Tasks          map[string]tasks.State `json:"tasks"`
	CommitLog      []committracker.Entry  `json:"commitLog"`
	Agents         activity.AgentSummary  `json:"agents"`
	ContextMetrics ContextMetrics         `json:"contextMetrics"`
	Notes          []activity.Note        `json:"notes,omitempty"`
	Team           []activity.TeamMember  `json:"team,omitempty"`
	ActivePlan     string                 `json:"activePlan,omitempty"`
}

// ContextMetrics describes how much of the project was read this session.
type ContextMetrics struct {
	FilesRead   int      `json:"filesRead"`
	RecentFiles []string `json:"recentFiles"`
}

// trackingState is the .context-tracking-state.json document.
type trackingState struct {
	FilesRead []string  `json:"filesRead"`
	LastReset time.Time `json:"lastReset"`
}

// cooldownState is the .handoff-state.json document.
type cooldownState struct {
	LastSnapshot time.Time `json:"lastSnapshot"`
	Trigger      string    `json:"trigger,omitempty"`
}

// Builder assembles and writes snapshots.
type Builder struct {
	cfg      config.Config
	guard    *paths.Guard
	git      *gitctx.Provider
	state    *statestore.Store
	hooks    *statestore.Store
	tasks    *tasks.Store
	activity *activity.Recorder
	commits  *appendlog.Log
	session  ledger.Info
	now      func() time.Time
}

// NewBuilder returns a builder over the directories in cfg. session is the
// parsed session ledger.
func NewBuilder(cfg config.Config, guard *paths.Guard, git *gitctx.Provider, session ledger.Info) *Builder {
	state := statestore.New(cfg.StateDir)
	return &Builder{
		cfg:      cfg,
		guard:    guard,
		git:      git,
		state:    state,
		hooks:    statestore.New(cfg.HooksDir),
		tasks:    tasks.NewStore(state),
		activity: activity.NewRecorder(cfg),
		commits:  appendlog.New(cfg.StatePath(paths.CommitLogFileName)),
		session:  session,
		now:      time.Now,
	}
}

// WithClock returns a copy of the builder that uses now for timestamps.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	c := *b
	c.now = now
	return &c
}

// Load reads the current snapshot. Missing and corrupt documents report false.
func Load(state *statestore.Store) (Snapshot, bool) {
	var snap Snapshot
	if !state.ReadOrDefault(paths.HandoffFileName, &snap) {
		return Snapshot{}, false
	}
	return snap, true
}

type gatherOptions struct {
	trigger string
	full    bool
	commits int
	extras  bool
}

// assemble builds a snapshot. Every section degrades to an empty value on
// failure so a partial picture is still written.
func (b *Builder) assemble(ctx context.Context, now time.Time, tracking trackingState, opts gatherOptions) *Snapshot {
	detail := DetailSummary
	if opts.full {
		detail = DetailFull
	}

	taskMap, err := b.tasks.All(opts.full)
	if err != nil {
		logging.Warn(ctx, "reading task states failed", slog.String("error", err.Error()))
	}
	if taskMap == nil {
		taskMap = map[string]tasks.State{}
	}

	recent := tracking.FilesRead
	if n := b.cfg.RecentFilesCap; n > 0 && len(recent) > n {
		recent = recent[len(recent)-n:]
	}

	snap := &Snapshot{
		Timestamp:      now.UTC(),
		Trigger:        opts.trigger,
		SnapshotID:     uuid.NewString(),
		SessionCounter: b.session.Counter,
		SessionDate:    b.session.LastUpdated,
		Git:            b.git.Gather(ctx, gitctx.Plan{RecentCommits: opts.commits, IncludeStatus: true}),
		TaskDetail:     detail,
		Tasks:          taskMap,
		CommitLog:      committracker.Recent(b.commits, b.cfg.CommitLogTail),
		Agents:         b.activity.Summary(b.session.Counter),
		ContextMetrics: ContextMetrics{
			FilesRead:   len(tracking.FilesRead),
			RecentFiles: append([]string{}, recent...),
		},
	}

	if opts.extras {
		snap.Notes = b.activity.Notes(b.cfg.NotesCap, b.session.Counter)
		snap.ActivePlan = PlanPreview(b.guard, b.cfg.PlanFile, b.cfg.PlanPreviewLines)
		if b.cfg.TeamMode {
			snap.Team = b.activity.TeamSummary()
		}
	}
	return snap
}

// save writes the snapshot and then the cooldown document.
func (b *Builder) save(snap *Snapshot) error {
	if err := b.state.Write(paths.HandoffFileName, snap); err != nil {
		return fmt.Errorf("writing handoff snapshot: %w", err)
	}
	if err := b.hooks.Write(paths.HandoffStateFileName, cooldownState{LastSnapshot: snap.Timestamp, Trigger: snap.Trigger}); err != nil {
		return fmt.Errorf("writing handoff cooldown: %w", err)
	}
	return nil
}

func (b *Builder) readTracking(ctx context.Context) trackingState {
	var st trackingState
	if _, err := b.hooks.Read(paths.ContextTrackingStateFileName, &st); err != nil {
		logging.Warn(ctx, "context tracking state unreadable, starting over", slog.String("error", err.Error()))
		return trackingState{}
	}
	return st
}

// PlanPreview returns the first maxLines non-blank lines of the active plan,
// or "" when there is no plan.
func PlanPreview(guard *paths.Guard, file string, maxLines int) string {
	sp, err := guard.Validate(file)
	if err != nil {
		return ""
	}
	f, err := os.Open(sp.Abs)
	if err != nil {
		return ""
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < maxLines {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil && !errors.Is(err, bufio.ErrTooLong) {
		return ""
	}
	return strings.Join(lines, "\n")
}
