package paths

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Directory constants, relative to the project root.
const (
	ClaudeDir   = ".claude"
	StateDir    = ".claude/state"
	HooksDir    = ".claude/hooks"
	HookLogsDir = ".claude/hooks/logs"
	PlansDir    = ".claude/plans"
	SonashDir   = ".sonash"
)

// State directory documents.
const (
	CommitLogFileName        = "commit-log.jsonl"
	HandoffFileName          = "handoff.json"
	AgentInvocationsFileName = "agent-invocations.jsonl"
	SessionNotesFileName     = "session-notes.jsonl"
	TaskFilePrefix           = "task-"
	TaskFileSuffix           = ".state.json"
)

// Hooks directory bookkeeping documents.
const (
	CommitTrackerStateFileName   = ".commit-tracker-state.json"
	ContextTrackingStateFileName = ".context-tracking-state.json"
	HandoffStateFileName         = ".handoff-state.json"
	FetchCacheFileName           = ".fetch-cache.json"
	HookLogFileName              = "hooks.log"
)

// Project-level files consumed read-only.
const (
	SessionLedgerFile = "SESSION_CONTEXT.md"
	ActivePlanFile    = ".claude/plans/ACTIVE_PLAN.md"
)

// ProjectDirEnvVar is set by the host pipeline for every hook invocation.
const ProjectDirEnvVar = "CLAUDE_PROJECT_DIR"

// projectRootCache caches the project root to avoid repeated git commands.
// The cache is keyed by the current working directory to handle directory changes.
var (
	projectRootMu       sync.RWMutex
	projectRootCache    string
	projectRootCacheDir string
)

// ProjectRoot returns the absolute project root directory.
// Resolution order: $CLAUDE_PROJECT_DIR, 'git rev-parse --show-toplevel', the
// current working directory. The git result is cached per working directory.
func ProjectRoot() string {
	if dir := os.Getenv(ProjectDirEnvVar); dir != "" {
		if abs, err := filepath.Abs(dir); err == nil {
			return abs
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	projectRootMu.RLock()
	if projectRootCache != "" && projectRootCacheDir == cwd {
		cached := projectRootCache
		projectRootMu.RUnlock()
		return cached
	}
	projectRootMu.RUnlock()

	root := cwd
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	if output, err := cmd.Output(); err == nil {
		if top := strings.TrimSpace(string(output)); top != "" {
			root = top
		}
	}
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	projectRootMu.Lock()
	projectRootCache = root
	projectRootCacheDir = cwd
	projectRootMu.Unlock()

	return root
}

// ClearProjectRootCache clears the cached project root.
// This is primarily useful for testing when changing directories.
func ClearProjectRootCache() {
	projectRootMu.Lock()
	projectRootCache = ""
	projectRootCacheDir = ""
	projectRootMu.Unlock()
}

// ToRelativePath converts an absolute path to one relative to root.
// Returns empty string if the path is outside root.
func ToRelativePath(absPath, root string) string {
	if !filepath.IsAbs(absPath) {
		return absPath
	}
	relPath, err := filepath.Rel(root, absPath)
	if err != nil || relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return ""
	}
	return relPath
}

// TaskFileName returns the state document name for a task.
func TaskFileName(task string) string {
	return TaskFilePrefix + task + TaskFileSuffix
}

// TaskKey returns the snapshot map key for a task document name,
// e.g. "task-foo.state.json" -> "task-foo".
func TaskKey(fileName string) string {
	return strings.TrimSuffix(fileName, TaskFileSuffix)
}
