package cli

import (
	"fmt"
	"runtime"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/settings"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/telemetry"

	"github.com/spf13/cobra"
)

const gettingStarted = `

Getting Started:
  Run 'sonash enable' in your project to install the session hooks into
  .claude/settings.json. Snapshots are written to .claude/state/ and a
  recovery report is printed when a new session starts.

`

const accessibilityHelp = `
Environment Variables:
  ACCESSIBLE               Set to any value to use plain text prompts
                           instead of interactive TUI elements.
  SONASH_LOG_LEVEL         Hook log level (debug, info, warn, error).
  SONASH_TEAM_MODE         Set to 1 to include specialist activity in snapshots.
  SONASH_TELEMETRY_OPTOUT  Set to any value to disable telemetry.
`

// Version information (can be set at build time)
var (
	Version = "dev"
	Commit  = "unknown"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sonash",
		Short: "Session persistence for AI coding sessions",
		Long:  "Preserves working context across context compaction and session restarts" + gettingStarted + accessibilityHelp,
		// Let main.go handle error printing to avoid duplication
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if !telemetry.Trackable(cmd) {
				return
			}
			s := settings.LoadOrDefault(paths.ProjectRoot())
			reporter := telemetry.New(Version, s.Telemetry)
			defer reporter.Close()
			reporter.Track(cmd, telemetry.Usage{TeamMode: s.TeamMode, HooksEnabled: s.Enabled})
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newEnableCmd())
	cmd.AddCommand(newDisableCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newNoteCmd())
	cmd.AddCommand(newHooksCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "sonash %s (%s)\n", Version, Commit)
			fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(w, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
