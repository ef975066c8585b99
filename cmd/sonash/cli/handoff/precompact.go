package handoff

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
)

var matcherRegex = regexp.MustCompile(`^[a-z0-9_-]{1,32}$`)

// CompactionTrigger returns the trigger recorded for a compaction matcher,
// e.g. "auto" becomes "compaction:auto".
func CompactionTrigger(matcher string) string {
	matcher = strings.ToLower(strings.TrimSpace(matcher))
	if !matcherRegex.MatchString(matcher) {
		return TriggerCompaction
	}
	return TriggerCompaction + ":" + matcher
}

// PreCompact unconditionally overwrites the snapshot with full task states,
// session notes, the active plan preview and, in team mode, the team activity
// summary. It ignores the cooldown and resets it so a threshold snapshot does
// not immediately replace this one.
func (b *Builder) PreCompact(ctx context.Context, matcher string) (*Snapshot, error) {
	now := b.now()
	snap := b.assemble(ctx, now, b.readTracking(ctx), gatherOptions{
		trigger: CompactionTrigger(matcher),
		full:    true,
		commits: b.cfg.PreCompactCommits,
		extras:  true,
	})
	if err := b.save(snap); err != nil {
		return nil, err
	}

	logging.Info(ctx, "pre-compaction snapshot written",
		slog.String("snapshot_id", snap.SnapshotID),
		slog.String("trigger", snap.Trigger),
		slog.Int("tasks", len(snap.Tasks)),
		slog.Int("notes", len(snap.Notes)),
	)
	return snap, nil
}
