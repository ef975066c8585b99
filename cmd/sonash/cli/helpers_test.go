package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/logging"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/settings"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/telemetry"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/testutil"
)

// useProject points every command at dir and isolates the environment.
func useProject(t *testing.T, dir string) {
	t.Helper()
	t.Setenv(paths.ProjectDirEnvVar, dir)
	t.Setenv(settings.TeamModeEnvVar, "")
	t.Setenv(logging.LogLevelEnvVar, "")
	t.Setenv(telemetry.OptOutEnvVar, "1")
	paths.ClearProjectRootCache()
	t.Cleanup(paths.ClearProjectRootCache)
}

// setupRepo creates a git repository with one commit and uses it as the project.
func setupRepo(t *testing.T) string {
	t.Helper()
	testutil.RequireGit(t)

	dir := t.TempDir()
	testutil.InitRepo(t, dir)
	testutil.CommitFile(t, dir, "README.md", "# project\n", "initial commit")
	useProject(t, dir)
	return dir
}

// fakeClock replaces nowFunc for the test and returns a pointer that moves it.
func fakeClock(t *testing.T, start time.Time) *time.Time {
	t.Helper()
	cur := start
	prev := nowFunc
	nowFunc = func() time.Time { return cur }
	t.Cleanup(func() { nowFunc = prev })
	return &cur
}

// runCLI executes the root command with args and returns both output channels.
func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// runHook invokes a hook verb with payload as its positional argument.
func runHook(t *testing.T, verb string, payload any) (string, string) {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	stdout, stderr, err := runCLI(t, "", "hooks", verb, string(data))
	if err != nil {
		t.Fatalf("hook %s returned error: %v", verb, err)
	}
	return stdout, stderr
}
