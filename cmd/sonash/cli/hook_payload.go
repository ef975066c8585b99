package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// maxPayloadBytes bounds what is read from stdin.
const maxPayloadBytes = 1 << 20

// hookInput is the JSON payload the host passes to a hook. Tool events nest
// their arguments under tool_input; the flat command and file_path fields are
// accepted as well.
type hookInput struct {
	SessionID     string    `json:"session_id"`
	HookEventName string    `json:"hook_event_name"`
	ToolName      string    `json:"tool_name"`
	ToolInput     toolInput `json:"tool_input"`

	// PreCompact carries "auto" or "manual" in trigger.
	Trigger string `json:"trigger"`
	Matcher string `json:"matcher"`
	// SessionStart carries startup, resume, clear or compact.
	Source string `json:"source"`

	Command  string `json:"command"`
	FilePath string `json:"file_path"`
}

type toolInput struct {
	Command      string `json:"command"`
	FilePath     string `json:"file_path"`
	SubagentType string `json:"subagent_type"`
	Description  string `json:"description"`
}

func (in hookInput) command() string {
	if in.ToolInput.Command != "" {
		return in.ToolInput.Command
	}
	return in.Command
}

func (in hookInput) filePath() string {
	if in.ToolInput.FilePath != "" {
		return in.ToolInput.FilePath
	}
	return in.FilePath
}

func (in hookInput) compactionMatcher() string {
	if in.Matcher != "" {
		return in.Matcher
	}
	return in.Trigger
}

// isTool reports whether the payload names tool, or names no tool at all.
func (in hookInput) isTool(tool string) bool {
	return in.ToolName == "" || in.ToolName == tool
}

// readPayload returns the first positional argument, or stdin when no
// argument was given and stdin is not a terminal.
func readPayload(args []string, stdin io.Reader) []byte {
	if len(args) > 0 {
		return []byte(args[0])
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		return nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, maxPayloadBytes))
	if err != nil {
		return nil
	}
	return data
}

// parseHookInput decodes raw. An empty payload is valid; anything that fails to
// decode yields an empty input and an error for the log.
func parseHookInput(raw []byte) (hookInput, error) {
	var in hookInput
	if strings.TrimSpace(string(raw)) == "" {
		return in, nil
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return hookInput{}, fmt.Errorf("parsing hook payload: %w", err)
	}
	return in, nil
}
