package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/activity"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/config"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/gitctx"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/handoff"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/ledger"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/recovery"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/settings"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/tasks"
)

// nowFunc is the clock for every component built by a command.
var nowFunc = time.Now

// projectEnv is everything a command needs, resolved once per process.
type projectEnv struct {
	root     string
	settings *settings.Settings
	cfg      config.Config
	guard    *paths.Guard
	git      *gitctx.Provider
	session  ledger.Info

	// Load problems are kept until logging is initialized.
	settingsErr error
	ledgerErr   error
}

// loadProjectEnv resolves settings, configuration and the session ledger for
// root. Unreadable settings and ledgers degrade to defaults; only an unusable
// root is an error.
func loadProjectEnv(root string) (*projectEnv, error) {
	env := &projectEnv{root: root}

	s, err := settings.Load(root)
	if err != nil {
		env.settingsErr = err
		s = settings.Default()
	}
	env.settings = s
	env.cfg = config.Load(root, s)

	guard, err := paths.NewGuard(root)
	if err != nil {
		return nil, fmt.Errorf("project root %q: %w", root, err)
	}
	env.guard = guard
	env.git = gitctx.New(root,
		gitctx.WithTimeout(env.cfg.GitTimeout),
		gitctx.WithNetworkTimeout(env.cfg.GitNetworkTimeout),
	)

	info, err := ledger.Load(guard, env.cfg.LedgerFile)
	if err != nil {
		env.ledgerErr = err
	}
	env.session = info
	return env, nil
}

func (e *projectEnv) logLoadProblems(ctx context.Context) {
	if e.settingsErr != nil {
		logging.Warn(ctx, "settings unreadable, using defaults", slog.String("error", e.settingsErr.Error()))
	}
	if e.ledgerErr != nil {
		logging.Warn(ctx, "session ledger unreadable", slog.String("error", e.ledgerErr.Error()))
	}
}

func (e *projectEnv) stateStore() *statestore.Store {
	return statestore.New(e.cfg.StateDir)
}

func (e *projectEnv) hooksStore() *statestore.Store {
	return statestore.New(e.cfg.HooksDir)
}

func (e *projectEnv) taskStore() *tasks.Store {
	return tasks.NewStore(e.stateStore()).WithClock(nowFunc)
}

func (e *projectEnv) recorder() *activity.Recorder {
	return activity.NewRecorder(e.cfg).WithClock(nowFunc)
}

func (e *projectEnv) builder() *handoff.Builder {
	return handoff.NewBuilder(e.cfg, e.guard, e.git, e.session).WithClock(nowFunc)
}

func (e *projectEnv) reporter() *recovery.Reporter {
	return recovery.NewReporter(e.cfg, e.guard)
}
