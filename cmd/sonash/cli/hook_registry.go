package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"

	"github.com/spf13/cobra"
)

// Hook verbs, one per host event.
const (
	HookNameCommitTracker  = "commit-tracker"
	HookNameContextTracker = "context-tracker"
	HookNameAgentTracker   = "agent-tracker"
	HookNamePreCompact     = "pre-compact"
	HookNameSessionStart   = "session-start"
)

// hookOutput carries the two host channels: stdout is injected into the
// agent's context, stderr is shown to the user.
type hookOutput struct {
	stdout io.Writer
	stderr io.Writer
}

// diag writes one diagnostic line to stderr.
func (o hookOutput) diag(format string, args ...any) {
	fmt.Fprintf(o.stderr, "[sonash] "+format+"\n", args...)
}

// hookHandlerFunc handles one hook event.
type hookHandlerFunc func(ctx context.Context, env *projectEnv, in hookInput, out hookOutput) error

// hookRegistry maps hook verbs to handlers.
var hookRegistry = map[string]hookHandlerFunc{}

// hookOrder keeps the verbs in registration order for the command tree.
var hookOrder []string

// hookPrefilter decides from the payload alone whether a verb has work to do.
// It runs before the project is resolved, so it must not touch disk or git.
type hookPrefilter func(in hookInput) bool

var hookPrefilters = map[string]hookPrefilter{}

func registerHookPrefilter(verb string, accept hookPrefilter) {
	hookPrefilters[verb] = accept
}

func registerHookHandler(verb string, handler hookHandlerFunc) {
	if _, exists := hookRegistry[verb]; !exists {
		hookOrder = append(hookOrder, verb)
	}
	hookRegistry[verb] = handler
}

func getHookHandler(verb string) hookHandlerFunc {
	return hookRegistry[verb]
}

//nolint:gochecknoinits // hook handler registration at startup is the intended pattern
func init() {
	registerHookHandler(HookNameCommitTracker, handleCommitTracker)
	registerHookHandler(HookNameContextTracker, handleContextTracker)
	registerHookHandler(HookNameAgentTracker, handleAgentTracker)
	registerHookHandler(HookNamePreCompact, handlePreCompact)
	registerHookHandler(HookNameSessionStart, handleSessionStart)

	registerHookPrefilter(HookNameCommitTracker, acceptCommitTracker)
	registerHookPrefilter(HookNameContextTracker, acceptContextTracker)
	registerHookPrefilter(HookNameAgentTracker, acceptAgentTracker)
}

func newHooksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hooks",
		Short:  "Hook handlers",
		Long:   "Commands called by hooks. These are internal and not for direct user use.",
		Hidden: true,
	}
	for _, verb := range hookOrder {
		cmd.AddCommand(newHookVerbCmd(verb))
	}
	return cmd
}

// newHookVerbCmd creates the command for one hook verb. Whatever happens
// inside, the command prints "ok" last and returns nil so the host never sees
// a failure.
func newHookVerbCmd(verb string) *cobra.Command {
	// Payloads are opaque; flag parsing must never fail a hook.
	return &cobra.Command{
		Use:                verb + " [payload-json]",
		Short:              "Called on " + verb,
		Args:               cobra.ArbitraryArgs,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runHookVerb(cmd, verb, args)
			return nil
		},
	}
}

func runHookVerb(cmd *cobra.Command, verb string, args []string) {
	out := hookOutput{stdout: cmd.OutOrStdout(), stderr: cmd.ErrOrStderr()}
	defer fmt.Fprintln(out.stdout, "ok")
	defer func() {
		if r := recover(); r != nil {
			out.diag("%s: internal error: %v", verb, r)
		}
	}()

	in, payloadErr := parseHookInput(readPayload(args, cmd.InOrStdin()))
	if accept := hookPrefilters[verb]; accept != nil && !accept(in) {
		return
	}

	root := paths.ProjectRoot()
	env, err := loadProjectEnv(root)
	if err != nil {
		out.diag("%s: %v", verb, err)
		return
	}

	logging.SetLogLevelGetter(func() string { return env.settings.LogLevel })
	if err := logging.Init(root, in.SessionID); err != nil {
		_ = logging.Init(root, "") //nolint:errcheck // falls back to stderr internally
	}
	defer logging.Close()

	ctx := logging.WithHook(logging.WithComponent(cmd.Context(), "hooks"), verb)
	env.logLoadProblems(ctx)
	if payloadErr != nil {
		logging.Warn(ctx, "unparsable hook payload", slog.String("error", payloadErr.Error()))
	}

	if !env.settings.Enabled {
		logging.Debug(ctx, "hooks disabled in settings")
		return
	}

	handler := getHookHandler(verb)
	if handler == nil {
		logging.Error(ctx, "no handler registered")
		return
	}

	start := time.Now()
	logging.Debug(ctx, "hook invoked", slog.String("event", in.HookEventName))

	hookErr := invokeHook(ctx, handler, env, in, out)
	if hookErr != nil {
		logging.Error(ctx, "hook failed", slog.String("error", hookErr.Error()))
		out.diag("%s: %v", verb, hookErr)
	}

	logging.LogDuration(ctx, slog.LevelDebug, "hook completed", start,
		slog.Bool("success", hookErr == nil),
	)
}

// invokeHook runs handler, turning a panic into an error.
func invokeHook(ctx context.Context, handler hookHandlerFunc, env *projectEnv, in hookInput, out hookOutput) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return handler(ctx, env, in, out)
}
