package cli

import (
	"fmt"
	"strings"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newNoteCmd() *cobra.Command {
	var (
		list  bool
		limit int
	)

	cmd := &cobra.Command{
		Use:   "note [text...]",
		Short: "Save a session note, or list recent notes",
		Long: `Notes are short free-text reminders kept with the session. Secrets are
redacted before anything is written. Pre-compaction snapshots carry the
most recent notes into the next session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadProjectEnv(paths.ProjectRoot())
			if err != nil {
				return err
			}
			rec := env.recorder()
			w := cmd.OutOrStdout()

			if list {
				notes := rec.Notes(limit, 0)
				if len(notes) == 0 {
					fmt.Fprintln(w, "No notes recorded.")
					return nil
				}
				for _, n := range notes {
					fmt.Fprintf(w, "- %s (%s)\n", n.Text, humanize.RelTime(n.Timestamp, nowFunc(), "ago", "from now"))
				}
				return nil
			}

			ctx := logging.WithComponent(cmd.Context(), "note")
			note, err := rec.AddNote(ctx, strings.Join(args, " "), env.session.Counter)
			if err != nil {
				return err //nolint:wrapcheck // message is user-facing
			}
			fmt.Fprintf(w, "Saved note: %s\n", note.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list recent notes instead of saving one")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of notes to list")
	return cmd
}
