package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/claudehooks"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/settings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newEnableCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Install the session hooks for this project",
		Long: `Adds the sonash hook commands to .claude/settings.json, keeping any hooks and
settings already there, and turns hooks on in .sonash/settings.json.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := paths.ProjectRoot()
			w := cmd.OutOrStdout()

			if !yes && isInteractive() {
				confirmed, err := confirm(fmt.Sprintf("Install sonash hooks into %s/%s?", paths.ClaudeDir, claudehooks.SettingsFileName))
				if err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(w, "Cancelled.")
					return nil
				}
			}

			count, err := claudehooks.Install(root)
			if err != nil {
				return fmt.Errorf("installing hooks: %w", err)
			}
			if err := settings.SaveEnabled(root, true); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}

			if count == 0 {
				fmt.Fprintln(w, "Hooks already installed.")
			} else {
				fmt.Fprintf(w, "Installed %d hooks.\n", count)
			}
			fmt.Fprintln(w, "sonash is enabled.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newDisableCmd() *cobra.Command {
	var uninstall bool

	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Turn the session hooks off for this project",
		Long: `Sets enabled to false in .sonash/settings.json so every hook only prints "ok".
With --uninstall the hook commands are also removed from .claude/settings.json.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := paths.ProjectRoot()
			if err := settings.SaveEnabled(root, false); err != nil {
				return fmt.Errorf("saving settings: %w", err)
			}
			if uninstall {
				if err := claudehooks.Uninstall(root); err != nil {
					return fmt.Errorf("removing hooks: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed sonash hooks.")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sonash is disabled.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&uninstall, "uninstall", false, "also remove the hook commands")
	return cmd
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) //nolint:gosec // fd fits in int
}

func confirm(title string) (bool, error) {
	confirmed := true
	form := NewAccessibleForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	return confirmed, nil
}
