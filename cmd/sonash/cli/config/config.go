// Package config builds the immutable per-process configuration for sonash.
//
// Each hook invocation is a fresh process: Load runs once at startup and the
// resulting value is passed explicitly to every component.
package config

import (
	"path/filepath"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/settings"
)

// Built-in limits.
const (
	DefaultFileReadThreshold = 25
	DefaultSnapshotCooldown  = 10 * time.Minute
	DefaultSessionReset      = 30 * time.Minute
	DefaultStaleAfter        = 60 * time.Minute
	DefaultFetchTTL          = 5 * time.Minute

	DefaultGitTimeout        = 3 * time.Second
	DefaultGitNetworkTimeout = 15 * time.Second

	DefaultMaxFilesPerCommit = 30
	DefaultCommitLogTail     = 10
	DefaultRecentFilesCap    = 20
	DefaultNotesCap          = 20
	DefaultRecoveryNotes     = 5
	DefaultPlanPreviewLines  = 15

	DefaultThresholdCommits  = 5
	DefaultPreCompactCommits = 10

	DefaultLogMaxLines    = 500
	DefaultLogKeepLines   = 300
	DefaultLogRotateBytes = 256 * 1024
	DefaultMaxNoteBytes   = 2000
)

// Config is the resolved configuration for one process. Treat it as a value:
// it is never mutated after Load returns.
type Config struct {
	Root string

	StateDir   string
	HooksDir   string
	LedgerFile string
	PlanFile   string

	FileReadThreshold int
	SnapshotCooldown  time.Duration
	SessionReset      time.Duration
	StaleAfter        time.Duration
	FetchTTL          time.Duration

	GitTimeout        time.Duration
	GitNetworkTimeout time.Duration

	MaxFilesPerCommit int
	CommitLogTail     int
	RecentFilesCap    int
	NotesCap          int
	RecoveryNotes     int
	PlanPreviewLines  int
	MaxNoteBytes      int

	ThresholdCommits  int
	PreCompactCommits int

	LogMaxLines    int
	LogKeepLines   int
	LogRotateBytes int64

	TeamMode bool
}

// Default returns the built-in configuration rooted at root.
func Default(root string) Config {
	return Config{
		Root:       root,
		StateDir:   filepath.Join(root, paths.StateDir),
		HooksDir:   filepath.Join(root, paths.HooksDir),
		LedgerFile: paths.SessionLedgerFile,
		PlanFile:   paths.ActivePlanFile,

		FileReadThreshold: DefaultFileReadThreshold,
		SnapshotCooldown:  DefaultSnapshotCooldown,
		SessionReset:      DefaultSessionReset,
		StaleAfter:        DefaultStaleAfter,
		FetchTTL:          DefaultFetchTTL,

		GitTimeout:        DefaultGitTimeout,
		GitNetworkTimeout: DefaultGitNetworkTimeout,

		MaxFilesPerCommit: DefaultMaxFilesPerCommit,
		CommitLogTail:     DefaultCommitLogTail,
		RecentFilesCap:    DefaultRecentFilesCap,
		NotesCap:          DefaultNotesCap,
		RecoveryNotes:     DefaultRecoveryNotes,
		PlanPreviewLines:  DefaultPlanPreviewLines,
		MaxNoteBytes:      DefaultMaxNoteBytes,

		ThresholdCommits:  DefaultThresholdCommits,
		PreCompactCommits: DefaultPreCompactCommits,

		LogMaxLines:    DefaultLogMaxLines,
		LogKeepLines:   DefaultLogKeepLines,
		LogRotateBytes: DefaultLogRotateBytes,
	}
}

// Load returns the configuration for root with any settings overrides applied.
// A nil s means defaults.
func Load(root string, s *settings.Settings) Config {
	cfg := Default(root)
	if s == nil {
		return cfg
	}

	cfg.TeamMode = s.TeamMode

	th := s.Thresholds
	if th.FileReadThreshold > 0 {
		cfg.FileReadThreshold = th.FileReadThreshold
	}
	if th.SnapshotCooldownMinutes > 0 {
		cfg.SnapshotCooldown = time.Duration(th.SnapshotCooldownMinutes) * time.Minute
	}
	if th.SessionResetMinutes > 0 {
		cfg.SessionReset = time.Duration(th.SessionResetMinutes) * time.Minute
	}
	if th.StalenessMinutes > 0 {
		cfg.StaleAfter = time.Duration(th.StalenessMinutes) * time.Minute
	}
	if th.CommitLogMaxLines > 0 {
		cfg.LogMaxLines = th.CommitLogMaxLines
	}
	if th.CommitLogKeepLines > 0 {
		cfg.LogKeepLines = th.CommitLogKeepLines
	}
	if cfg.LogKeepLines > cfg.LogMaxLines {
		cfg.LogKeepLines = cfg.LogMaxLines
	}
	return cfg
}

// StatePath returns the absolute path of a document in the state directory.
func (c Config) StatePath(name string) string {
	return filepath.Join(c.StateDir, name)
}
