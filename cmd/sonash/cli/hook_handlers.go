package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/committracker"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
)

// acceptCommitTracker is the fast path for every shell command: one regex
// check, nothing else.
func acceptCommitTracker(in hookInput) bool {
	return in.isTool("Bash") && committracker.LooksLikeCommit(in.command())
}

func acceptContextTracker(in hookInput) bool {
	return in.isTool("Read") && in.filePath() != ""
}

func acceptAgentTracker(in hookInput) bool {
	return in.isTool("Task") && strings.TrimSpace(in.ToolInput.SubagentType) != ""
}

// handleCommitTracker runs after a shell command and appends the new commit,
// if the command made one.
func handleCommitTracker(ctx context.Context, env *projectEnv, in hookInput, out hookOutput) error {
	if !in.isTool("Bash") {
		return nil
	}
	ctx = logging.WithComponent(ctx, "commit-tracker")

	tracker := committracker.New(env.cfg, env.git, env.hooksStore(), env.session.Counter).WithClock(nowFunc)
	res, err := tracker.Track(ctx, in.command())
	if err != nil {
		return fmt.Errorf("tracking commit: %w", err)
	}
	if res.Entry != nil {
		out.diag("tracked commit %s on %s", res.Entry.ShortHash, res.Entry.Branch)
	}
	return nil
}

// handleContextTracker runs after a file read and writes a handoff snapshot
// once enough distinct files were read.
func handleContextTracker(ctx context.Context, env *projectEnv, in hookInput, out hookOutput) error {
	if !in.isTool("Read") {
		return nil
	}
	raw := in.filePath()
	if raw == "" {
		return nil
	}
	ctx = logging.WithComponent(ctx, "context-tracker")

	res, err := env.builder().RecordRead(ctx, raw)
	if errors.Is(err, paths.ErrRejected) {
		logging.Debug(ctx, "read path ignored", slog.String("reason", err.Error()))
		return nil
	}
	if err != nil {
		return fmt.Errorf("recording read: %w", err)
	}
	if res.Snapshot != nil {
		out.diag("handoff snapshot saved after %d files read", res.FilesRead)
	}
	return nil
}

// handleAgentTracker records a specialist agent invocation.
func handleAgentTracker(ctx context.Context, env *projectEnv, in hookInput, _ hookOutput) error {
	if !in.isTool("Task") {
		return nil
	}
	agent := strings.TrimSpace(in.ToolInput.SubagentType)
	if agent == "" {
		return nil
	}
	ctx = logging.WithComponent(ctx, "agent-tracker")

	if err := env.recorder().Record(ctx, agent, in.ToolInput.Description, env.session.Counter); err != nil {
		return fmt.Errorf("recording agent %s: %w", agent, err)
	}
	return nil
}

// handlePreCompact writes the full snapshot right before the host compacts
// its context.
func handlePreCompact(ctx context.Context, env *projectEnv, in hookInput, out hookOutput) error {
	ctx = logging.WithComponent(ctx, "pre-compact")

	snap, err := env.builder().PreCompact(ctx, in.compactionMatcher())
	if err != nil {
		return fmt.Errorf("writing pre-compaction snapshot: %w", err)
	}
	out.diag("pre-compaction snapshot saved (%d tasks)", len(snap.Tasks))
	return nil
}

// handleSessionStart prints the recovery report for a fresh snapshot and
// refreshes remote tracking refs when the fetch cache is stale.
func handleSessionStart(ctx context.Context, env *projectEnv, in hookInput, out hookOutput) error {
	ctx = logging.WithComponent(ctx, "recovery")
	now := nowFunc()

	report, found := env.reporter().Report(ctx, now)

	if env.git.FetchIfStale(ctx, env.hooksStore(), env.cfg.FetchTTL, now) {
		if _, behind, ok := env.git.AheadBehind(ctx); ok && behind > 0 {
			out.diag("branch is %d commit(s) behind its upstream", behind)
		}
	}

	if !found {
		logging.Debug(ctx, "nothing to recover", slog.String("source", in.Source))
		return nil
	}

	fmt.Fprint(out.stdout, report.Detailed)
	if !strings.HasSuffix(report.Detailed, "\n") {
		fmt.Fprintln(out.stdout)
	}
	out.diag("%s", report.StatusLine)
	logging.Info(ctx, "recovery report printed", slog.String("source", in.Source))
	return nil
}
