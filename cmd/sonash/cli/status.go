package cli

import (
	"fmt"
	"io"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/handoff"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/recovery"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recovery report for the current snapshot",
		Long: `Render the same report a new session receives. Snapshots older than the
staleness window are ignored unless --all is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "show the snapshot even when it is stale")
	return cmd
}

func runStatus(cmd *cobra.Command, all bool) error {
	w := cmd.OutOrStdout()
	env, err := loadProjectEnv(paths.ProjectRoot())
	if err != nil {
		return err
	}

	writeEnabledLine(w, env.settings.Enabled)

	now := nowFunc()
	rep := env.reporter()
	var (
		report recovery.Report
		found  bool
	)
	if all {
		report, found = rep.ReportAny(now)
	} else {
		report, found = rep.Report(logging.WithComponent(cmd.Context(), "status"), now)
	}

	if !found {
		if _, exists := handoff.Load(env.stateStore()); exists && !all {
			fmt.Fprintln(w, "Snapshot is stale (use --all to show it anyway).")
			return nil
		}
		fmt.Fprintln(w, "No handoff snapshot yet.")
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, report.Detailed)
	return nil
}

func writeEnabledLine(w io.Writer, enabled bool) {
	if enabled {
		fmt.Fprintln(w, "Hooks: enabled")
		return
	}
	fmt.Fprintln(w, "Hooks: disabled (run `sonash enable` to turn them back on)")
}
