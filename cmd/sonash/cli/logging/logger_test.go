package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
)

const testSessionID = "2026-10-15-test-session"

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  slog.Level
	}{
		{"empty defaults to INFO", "", slog.LevelInfo},
		{"debug lowercase", "debug", slog.LevelDebug},
		{"warn uppercase", "WARN", slog.LevelWarn},
		{"warning alias", "warning", slog.LevelWarn},
		{"error with spaces", " error ", slog.LevelError},
		{"invalid defaults to INFO", "verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLogLevel(tt.value); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func readLogLines(t *testing.T, root string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(root, paths.HookLogsDir, paths.HookLogFileName))
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("log line is not JSON: %q", sc.Text())
		}
		out = append(out, m)
	}
	return out
}

func TestInit_WritesJSONWithContextAttrs(t *testing.T) {
	root := t.TempDir()
	t.Setenv(LogLevelEnvVar, "debug")
	resetLogger()
	t.Cleanup(resetLogger)

	if err := Init(root, testSessionID); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	ctx := WithComponent(WithHook(context.Background(), "commit-tracker"), "committracker")
	Debug(ctx, "fast path", slog.String("command", "git status"))
	Info(ctx, "commit tracked", slog.String("hash", "abc123"))
	Close()

	lines := readLogLines(t, root)
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	got := lines[1]
	if got["msg"] != "commit tracked" {
		t.Errorf("msg = %v", got["msg"])
	}
	if got["session_id"] != testSessionID {
		t.Errorf("session_id = %v, want %s", got["session_id"], testSessionID)
	}
	if got["hook"] != "commit-tracker" || got["component"] != "committracker" {
		t.Errorf("context attrs missing: %v", got)
	}
	if got["hash"] != "abc123" {
		t.Errorf("hash = %v", got["hash"])
	}
}

func TestInit_AppendsAcrossProcesses(t *testing.T) {
	root := t.TempDir()
	t.Setenv(LogLevelEnvVar, "")
	resetLogger()
	t.Cleanup(resetLogger)

	for i := range 3 {
		if err := Init(root, ""); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		Info(context.Background(), "invocation", slog.Int("n", i))
		Close()
	}

	if n := len(readLogLines(t, root)); n != 3 {
		t.Errorf("got %d lines, want 3 (one per invocation)", n)
	}
}

func TestInit_RotatesLargeLog(t *testing.T) {
	root := t.TempDir()
	t.Setenv(LogLevelEnvVar, "")
	resetLogger()
	t.Cleanup(resetLogger)

	logsDir := filepath.Join(root, paths.HookLogsDir)
	if err := os.MkdirAll(logsDir, 0o750); err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	pad := strings.Repeat("x", 300)
	for i := range maxLogLines + 500 {
		fmt.Fprintf(&sb, "{\"n\":%d,\"pad\":%q}\n", i, pad)
	}
	logPath := filepath.Join(logsDir, paths.HookLogFileName)
	if err := os.WriteFile(logPath, []byte(sb.String()), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Init(root, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Info(context.Background(), "after rotation")
	Close()

	lines := readLogLines(t, root)
	if len(lines) != keepLogLines+1 {
		t.Fatalf("got %d lines, want %d", len(lines), keepLogLines+1)
	}
	if got := lines[len(lines)-1]["msg"]; got != "after rotation" {
		t.Errorf("last line msg = %v, want %q", got, "after rotation")
	}
}

func TestInit_RespectsLevel(t *testing.T) {
	root := t.TempDir()
	t.Setenv(LogLevelEnvVar, "warn")
	resetLogger()
	t.Cleanup(resetLogger)

	if err := Init(root, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Info(context.Background(), "dropped")
	Warn(context.Background(), "kept")
	Close()

	lines := readLogLines(t, root)
	if len(lines) != 1 || lines[0]["msg"] != "kept" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestInit_LevelFromSettingsGetter(t *testing.T) {
	root := t.TempDir()
	t.Setenv(LogLevelEnvVar, "")
	resetLogger()
	SetLogLevelGetter(func() string { return "error" })
	t.Cleanup(func() {
		SetLogLevelGetter(nil)
		resetLogger()
	})

	if err := Init(root, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	Warn(context.Background(), "dropped")
	Error(context.Background(), "kept")
	Close()

	lines := readLogLines(t, root)
	if len(lines) != 1 || lines[0]["msg"] != "kept" {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestInit_RejectsInvalidSessionID(t *testing.T) {
	resetLogger()
	t.Cleanup(resetLogger)

	if err := Init(t.TempDir(), "../escape"); err == nil {
		t.Error("Init() should reject session IDs with path separators")
	}
}

func TestLogDuration(t *testing.T) {
	root := t.TempDir()
	t.Setenv(LogLevelEnvVar, "")
	resetLogger()
	t.Cleanup(resetLogger)

	if err := Init(root, ""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	LogDuration(context.Background(), slog.LevelInfo, "hook executed", time.Now().Add(-50*time.Millisecond))
	Close()

	lines := readLogLines(t, root)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	ms, ok := lines[0]["duration_ms"].(float64)
	if !ok || ms < 50 {
		t.Errorf("duration_ms = %v, want >= 50", lines[0]["duration_ms"])
	}
}

func TestContextAccessors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if SessionIDFromContext(ctx) != "" || HookFromContext(ctx) != "" || ComponentFromContext(ctx) != "" {
		t.Error("empty context should yield empty values")
	}
	ctx = WithComponent(WithHook(WithSession(ctx, "s1"), "pre-compact"), "handoff")
	if SessionIDFromContext(ctx) != "s1" || HookFromContext(ctx) != "pre-compact" || ComponentFromContext(ctx) != "handoff" {
		t.Error("accessors did not return stored values")
	}
}
