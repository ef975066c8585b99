package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/jsonutil"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/tasks"

	"github.com/spf13/cobra"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Record and inspect multi-step task progress",
		Long: `Tasks are named lists of steps whose progress survives context compaction.
Snapshots include every task, and the recovery report names the step to resume at.`,
	}

	cmd.AddCommand(newTaskUpdateCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskClearCmd())
	return cmd
}

func newTaskUpdateCmd() *cobra.Command {
	var (
		steps    []string
		status   string
		contexts []string
	)

	cmd := &cobra.Command{
		Use:   "update <name>",
		Short: "Add steps, change step status, or set context keys",
		Example: `  sonash task update migrate-db --step "write migration" --step "run tests"
  sonash task update migrate-db --step "write migration" --status completed
  sonash task update migrate-db --context ticket=OPS-12`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := tasks.ParseStatus(status)
			if err != nil {
				return err //nolint:wrapcheck // message is user-facing
			}
			u := tasks.Update{}
			for _, s := range steps {
				u.Steps = append(u.Steps, tasks.Step{Name: strings.TrimSpace(s), Status: st})
			}
			if len(contexts) > 0 {
				u.Context, err = parseContextPairs(contexts)
				if err != nil {
					return err
				}
			}
			return runTaskUpdate(cmd, args[0], u)
		},
	}

	cmd.Flags().StringArrayVar(&steps, "step", nil, "step name (repeatable)")
	cmd.Flags().StringVar(&status, "status", string(tasks.StatusPending), "status for the given steps")
	cmd.Flags().StringArrayVar(&contexts, "context", nil, "context key=value (repeatable)")
	return cmd
}

func runTaskUpdate(cmd *cobra.Command, name string, u tasks.Update) error {
	env, err := loadProjectEnv(paths.ProjectRoot())
	if err != nil {
		return err
	}
	ctx := logging.WithComponent(cmd.Context(), "task")

	st, err := env.taskStore().Update(ctx, name, u)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	done, total := st.Counts()
	fmt.Fprintf(cmd.OutOrStdout(), "Task %s: %d/%d steps complete\n", st.Task, done, total)
	if resume := st.ResumePoint(); resume != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Next: %s\n", resume)
	}
	return nil
}

// parseContextPairs turns key=value flags into a context map. Values that are
// valid JSON (numbers, booleans, objects) keep their type; anything else is a
// string.
func parseContextPairs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context %q: expected key=value", pair)
		}
		var decoded any
		if err := json.Unmarshal([]byte(value), &decoded); err == nil {
			out[key] = decoded
			continue
		}
		out[key] = value
	}
	return out, nil
}

func newTaskShowCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "show [name]",
		Short: "Print task state as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadProjectEnv(paths.ProjectRoot())
			if err != nil {
				return err
			}
			store := env.taskStore()

			if len(args) == 1 {
				st, found, err := store.Load(args[0])
				if err != nil {
					return fmt.Errorf("reading task: %w", err)
				}
				if !found {
					return taskNotFound(cmd, args[0])
				}
				return writeJSON(cmd.OutOrStdout(), st)
			}

			all, err := store.All(full)
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}
			if len(all) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tasks recorded.")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), all)
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "include step timestamps and context")
	return cmd
}

func newTaskClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <name>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadProjectEnv(paths.ProjectRoot())
			if err != nil {
				return err
			}
			store := env.taskStore()
			if _, found, err := store.Load(args[0]); err == nil && !found {
				return taskNotFound(cmd, args[0])
			}
			if err := store.Delete(args[0]); err != nil {
				return fmt.Errorf("deleting task: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}

// taskNotFound prints a hint and returns an error main will not print again.
func taskNotFound(cmd *cobra.Command, name string) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "No task named %q. Run 'sonash task show' to list tasks.\n", name)
	return NewSilentError(fmt.Errorf("task %q not found", name))
}

func writeJSON(w io.Writer, v any) error {
	data, err := jsonutil.MarshalIndentWithNewline(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	_, err = w.Write(data)
	return err //nolint:wrapcheck // write to caller's writer
}
