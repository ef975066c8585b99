// Package committracker appends one commit-log.jsonl entry per new commit.
//
// It runs after every shell command the agent executes, so the common case of
// a command that cannot create a commit must cost a single regex match.
package committracker

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/appendlog"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/config"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/gitctx"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/redact"
)

// commitCommandRegex matches git invocations that can move HEAD to a new
// commit, allowing global options such as -C <dir> or -c key=value before
// the subcommand.
var commitCommandRegex = regexp.MustCompile(
	`(?:^|[\s;&|(])git(?:\s+(?:-C\s+\S+|-c\s+\S+|--[\w-]+(?:=\S+)?))*\s+(?:commit|cherry-pick|merge|revert)(?:\s|$)`,
)

// DetachedBranch is recorded when HEAD is not on a branch.
const DetachedBranch = "detached"

// LooksLikeCommit reports whether command might have created a commit.
func LooksLikeCommit(command string) bool {
	return commitCommandRegex.MatchString(command)
}

// Entry is one line of commit-log.jsonl.
type Entry struct {
	Hash         string    `json:"hash"`
	ShortHash    string    `json:"shortHash"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	AuthorDate   string    `json:"authorDate"`
	Branch       string    `json:"branch"`
	FilesChanged int       `json:"filesChanged"`
	Files        []string  `json:"files"`
	Session      int       `json:"session"`
	TrackedAt    time.Time `json:"trackedAt"`
}

// pointer is the .commit-tracker-state.json document.
type pointer struct {
	LastHead  string    `json:"lastHead"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Result describes what Track did.
type Result struct {
	// Matched is false when the command was rejected by the fast path.
	Matched bool
	// Entry is set when a new commit was appended.
	Entry *Entry
	// Rotation reports the opportunistic rotation after an append.
	Rotation appendlog.RotateResult
}

// Tracker detects new commits.
type Tracker struct {
	cfg     config.Config
	git     *gitctx.Provider
	hooks   *statestore.Store
	log     *appendlog.Log
	session int
	now     func() time.Time
}

// New returns a tracker. session is the ledger counter stamped on entries.
func New(cfg config.Config, git *gitctx.Provider, hooks *statestore.Store, session int) *Tracker {
	return &Tracker{
		cfg:     cfg,
		git:     git,
		hooks:   hooks,
		log:     appendlog.New(cfg.StatePath(paths.CommitLogFileName)),
		session: session,
		now:     time.Now,
	}
}

// WithClock returns a copy of the tracker that uses now for timestamps.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	c := *t
	c.now = now
	return &c
}

// Log returns the commit log the tracker appends to.
func (t *Tracker) Log() *appendlog.Log {
	return t.log
}

// Track appends an entry when command may have committed and HEAD moved
// since the last tracked commit. An unchanged HEAD (including a commit that
// was rejected by a pre-commit hook) is a no-op.
func (t *Tracker) Track(ctx context.Context, command string) (Result, error) {
	if !LooksLikeCommit(command) {
		return Result{}, nil
	}
	res := Result{Matched: true}

	head := t.git.Head(ctx)
	if head == "" {
		logging.Debug(ctx, "no HEAD, nothing to track")
		return res, nil
	}

	var last pointer
	if _, err := t.hooks.Read(paths.CommitTrackerStateFileName, &last); err != nil {
		logging.Warn(ctx, "commit tracker state unreadable, treating as empty", slog.String("error", err.Error()))
	}
	if last.LastHead == head {
		return res, nil
	}

	meta, ok := t.git.CommitMetadata(ctx, head)
	if !ok {
		return res, nil
	}
	files, total := t.git.ChangedFiles(ctx, meta.Hash, t.cfg.MaxFilesPerCommit)

	branch := gitctx.ParseDecorationBranch(meta.Decoration)
	if branch == "" {
		branch = t.git.Branch(ctx)
	}
	if branch == "" {
		branch = DetachedBranch
	}

	entry := Entry{
		Hash:         meta.Hash,
		ShortHash:    meta.ShortHash,
		Message:      redact.String(meta.Subject),
		Author:       meta.Author,
		AuthorDate:   meta.AuthorDate,
		Branch:       branch,
		FilesChanged: total,
		Files:        files,
		Session:      t.session,
		TrackedAt:    t.now().UTC(),
	}
	if err := t.log.Append(entry); err != nil {
		return res, fmt.Errorf("appending commit entry: %w", err)
	}
	res.Entry = &entry

	if err := t.hooks.Write(paths.CommitTrackerStateFileName, pointer{LastHead: head, UpdatedAt: entry.TrackedAt}); err != nil {
		return res, fmt.Errorf("saving commit tracker state: %w", err)
	}

	rot, err := t.log.RotateIfLarge(t.cfg.LogRotateBytes, t.cfg.LogMaxLines, t.cfg.LogKeepLines)
	if err != nil {
		logging.Warn(ctx, "commit log rotation failed", slog.String("error", err.Error()))
	}
	res.Rotation = rot

	logging.Info(ctx, "commit tracked",
		slog.String("hash", entry.ShortHash),
		slog.String("branch", entry.Branch),
		slog.Int("files", entry.FilesChanged),
	)
	return res, nil
}

// Recent returns the newest n commit log entries, oldest first.
// Corrupt lines are skipped.
func Recent(l *appendlog.Log, n int) []Entry {
	entries, _, err := appendlog.TailAs[Entry](l, n)
	if err != nil || entries == nil {
		return []Entry{}
	}
	return entries
}
