// Package recovery renders the handoff snapshot at the start of a new session.
package recovery

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/activity"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/config"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/handoff"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/tasks"
)

// Report is the rendered recovery output.
type Report struct {
	// Detailed is markdown injected into the resuming agent's context.
	Detailed string
	// StatusLine is a one-line summary for the human-visible channel.
	StatusLine string
}

// Reporter reads the snapshot and renders it.
type Reporter struct {
	cfg      config.Config
	guard    *paths.Guard
	state    *statestore.Store
	activity *activity.Recorder
}

// NewReporter returns a reporter over the state directory in cfg.
func NewReporter(cfg config.Config, guard *paths.Guard) *Reporter {
	return &Reporter{
		cfg:      cfg,
		guard:    guard,
		state:    statestore.New(cfg.StateDir),
		activity: activity.NewRecorder(cfg),
	}
}

// Report renders the current snapshot. It returns false when there is no
// snapshot or the snapshot is older than the staleness bound, in which case
// it belongs to an unrelated earlier session.
func (r *Reporter) Report(ctx context.Context, now time.Time) (Report, bool) {
	snap, found := handoff.Load(r.state)
	if !found {
		logging.Debug(ctx, "no handoff snapshot")
		return Report{}, false
	}
	if age := now.Sub(snap.Timestamp); age > r.cfg.StaleAfter {
		logging.Debug(ctx, "handoff snapshot is stale", slog.Duration("age", age))
		return Report{}, false
	}
	return r.Render(snap, now), true
}

// ReportAny renders the current snapshot regardless of its age.
func (r *Reporter) ReportAny(now time.Time) (Report, bool) {
	snap, found := handoff.Load(r.state)
	if !found {
		return Report{}, false
	}
	return r.Render(snap, now), true
}

// Render formats snap as of now.
func (r *Reporter) Render(snap handoff.Snapshot, now time.Time) Report {
	age := snapshotAge(snap.Timestamp, now)
	names := sortedTaskNames(snap.Tasks)

	var b strings.Builder
	fmt.Fprintf(&b, "## Session Recovery (session #%d)\n\n", snap.SessionCounter)
	fmt.Fprintf(&b, "Context was restored from a %s snapshot taken %s.\n", snap.Trigger, age)
	fmt.Fprintf(&b, "Branch: %s\n", snap.Git.Branch)
	if snap.Git.LastCommit != "" {
		fmt.Fprintf(&b, "Last commit: %s\n", snap.Git.LastCommit)
	}

	if len(names) > 0 {
		b.WriteString("\n### Tasks\n")
		for _, name := range names {
			writeTask(&b, name, snap.Tasks[name])
		}
	}

	if commits := recentCommitLines(snap); len(commits) > 0 {
		b.WriteString("\n### Recent Commits\n")
		for _, c := range commits {
			fmt.Fprintf(&b, "- %s\n", c)
		}
	}

	b.WriteString("\n### Working Tree\n")
	fmt.Fprintf(&b, "%d staged, %d unstaged, %d untracked\n",
		len(snap.Git.Staged), len(snap.Git.Unstaged), len(snap.Git.Untracked))

	if snap.Agents.Total > 0 {
		b.WriteString("\n### Agent Activity\n")
		for _, ac := range sortedCounts(snap.Agents.Counts) {
			fmt.Fprintf(&b, "- %s: %d\n", ac.name, ac.count)
		}
	}

	if plan := r.planPreview(snap); plan != "" {
		b.WriteString("\n### Active Plan\n")
		b.WriteString(plan)
		b.WriteString("\n")
	}

	if notes := r.notes(snap); len(notes) > 0 {
		b.WriteString("\n### Session Notes\n")
		for _, n := range notes {
			fmt.Fprintf(&b, "- %s\n", n.Text)
		}
	}

	b.WriteString("\n### Context\n")
	fmt.Fprintf(&b, "%d files read before the snapshot", snap.ContextMetrics.FilesRead)
	if len(snap.ContextMetrics.RecentFiles) > 0 {
		fmt.Fprintf(&b, "; most recent: %s", strings.Join(lastN(snap.ContextMetrics.RecentFiles, 5), ", "))
	}
	b.WriteString("\n")

	return Report{
		Detailed:   b.String(),
		StatusLine: statusLine(snap, names, age),
	}
}

func writeTask(b *strings.Builder, name string, st tasks.State) {
	done, total := st.Counts()
	fmt.Fprintf(b, "- %s: %d/%d steps complete", name, done, total)
	if inProgress := st.StepsWithStatus(tasks.StatusInProgress); len(inProgress) > 0 {
		fmt.Fprintf(b, "; in progress: %s", strings.Join(inProgress, ", "))
	}
	if pending := st.StepsWithStatus(tasks.StatusPending); len(pending) > 0 {
		fmt.Fprintf(b, "; pending: %s", strings.Join(pending, ", "))
	}
	b.WriteString("\n")
	if resume := st.ResumePoint(); resume != "" {
		fmt.Fprintf(b, "  Resume at: %s\n", resume)
	}
}

func statusLine(snap handoff.Snapshot, names []string, age string) string {
	line := fmt.Sprintf("Recovered session #%d on %s from %s snapshot (%s)",
		snap.SessionCounter, snap.Git.Branch, snap.Trigger, age)
	for _, name := range names {
		if resume := snap.Tasks[name].ResumePoint(); resume != "" {
			return fmt.Sprintf("%s, %s resumes at %q", line, name, resume)
		}
	}
	if len(names) > 0 {
		return fmt.Sprintf("%s, %d task(s) with nothing pending", line, len(names))
	}
	return line
}

// recentCommitLines prefers git's one-liners (newest first) and falls back to
// the commit log, which is oldest first.
func recentCommitLines(snap handoff.Snapshot) []string {
	if commits := snap.Git.RecentCommits; len(commits) > 0 {
		return commits[:min(5, len(commits))]
	}
	lines := make([]string, 0, len(snap.CommitLog))
	for i := len(snap.CommitLog) - 1; i >= 0 && len(lines) < 5; i-- {
		e := snap.CommitLog[i]
		lines = append(lines, e.ShortHash+" "+e.Message)
	}
	return lines
}

func (r *Reporter) planPreview(snap handoff.Snapshot) string {
	if snap.ActivePlan != "" {
		return snap.ActivePlan
	}
	if r.guard == nil {
		return ""
	}
	return handoff.PlanPreview(r.guard, r.cfg.PlanFile, r.cfg.PlanPreviewLines)
}

// notes prefers the snapshot's notes and falls back to the live notes log,
// which threshold snapshots do not embed.
func (r *Reporter) notes(snap handoff.Snapshot) []activity.Note {
	notes := snap.Notes
	if len(notes) == 0 {
		notes = r.activity.Notes(r.cfg.RecoveryNotes, snap.SessionCounter)
	}
	return lastN(notes, r.cfg.RecoveryNotes)
}

func snapshotAge(ts, now time.Time) string {
	if now.Sub(ts) < time.Minute {
		return "just now"
	}
	return humanize.RelTime(ts, now, "ago", "from now")
}

func sortedTaskNames(m map[string]tasks.State) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type agentCount struct {
	name  string
	count int
}

func sortedCounts(m map[string]int) []agentCount {
	out := make([]agentCount, 0, len(m))
	for name, count := range m {
		out = append(out, agentCount{name, count})
	}
	slices.SortFunc(out, func(a, b agentCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	return out
}

func lastN[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
