package handoff

import (
	"context"
	"log/slog"
	"slices"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
)

// ThresholdResult describes what RecordRead did.
type ThresholdResult struct {
	// FilesRead is the number of distinct files read this session.
	FilesRead int
	// Reset is true when the read started a new session window.
	Reset bool
	// CoolingDown is true when the threshold was met but a recent snapshot
	// suppressed a new one.
	CoolingDown bool
	// Snapshot is set when a snapshot was written.
	Snapshot *Snapshot
}

// RecordRead notes that rawPath was read and writes a summarized snapshot once
// enough distinct files were read and the cooldown has elapsed. rawPath comes
// from the hook payload; a path that fails validation returns an error
// wrapping paths.ErrRejected and changes nothing.
func (b *Builder) RecordRead(ctx context.Context, rawPath string) (ThresholdResult, error) {
	sp, err := b.guard.ValidateAbsOrRel(rawPath)
	if err != nil {
		return ThresholdResult{}, err //nolint:wrapcheck // callers test for paths.ErrRejected
	}
	now := b.now()
	var res ThresholdResult

	tracking := b.readTracking(ctx)
	if tracking.LastReset.IsZero() || now.Sub(tracking.LastReset) >= b.cfg.SessionReset {
		tracking = trackingState{FilesRead: []string{}, LastReset: now.UTC()}
		res.Reset = true
	}
	if !slices.Contains(tracking.FilesRead, sp.Rel) {
		tracking.FilesRead = append(tracking.FilesRead, sp.Rel)
	}
	res.FilesRead = len(tracking.FilesRead)

	if err := b.hooks.Write(paths.ContextTrackingStateFileName, tracking); err != nil {
		return res, err //nolint:wrapcheck // already wrapped by statestore
	}

	if res.FilesRead < b.cfg.FileReadThreshold {
		return res, nil
	}

	var cooldown cooldownState
	if b.hooks.ReadOrDefault(paths.HandoffStateFileName, &cooldown) {
		if since := now.Sub(cooldown.LastSnapshot); since >= 0 && since < b.cfg.SnapshotCooldown {
			res.CoolingDown = true
			return res, nil
		}
	}

	snap := b.assemble(ctx, now, tracking, gatherOptions{
		trigger: TriggerThreshold,
		commits: b.cfg.ThresholdCommits,
	})
	if err := b.save(snap); err != nil {
		return res, err
	}
	res.Snapshot = snap

	logging.Info(ctx, "threshold snapshot written",
		slog.String("snapshot_id", snap.SnapshotID),
		slog.Int("files_read", res.FilesRead),
		slog.Int("tasks", len(snap.Tasks)),
	)
	return res, nil
}
