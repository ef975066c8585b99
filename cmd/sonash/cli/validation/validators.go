// Package validation provides input validation functions for the sonash CLI.
// This package has no dependencies to avoid import cycles.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// pathSafeRegex matches alphanumeric characters, dots, underscores, and hyphens only.
// Used to validate names that end up inside file names.
var pathSafeRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// ValidateSessionID validates that a session ID doesn't contain path separators.
// This prevents path traversal attacks when session IDs are used in file paths.
func ValidateSessionID(id string) error {
	if id == "" {
		return errors.New("session ID cannot be empty")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("invalid session ID %q: contains path separators", id)
	}
	return nil
}

// ValidateTaskName validates a task name before it becomes part of
// task-<name>.state.json.
func ValidateTaskName(name string) error {
	if name == "" {
		return errors.New("task name cannot be empty")
	}
	if len(name) > 100 {
		return fmt.Errorf("invalid task name %q: longer than 100 characters", name)
	}
	if !pathSafeRegex.MatchString(name) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid task name %q: must be alphanumeric with dots/underscores/hyphens only", name)
	}
	return nil
}

// ValidateAgentName validates a subagent type recorded in the invocation log.
func ValidateAgentName(name string) error {
	if name == "" {
		return errors.New("agent name cannot be empty")
	}
	if len(name) > 100 || !pathSafeRegex.MatchString(name) {
		return fmt.Errorf("invalid agent name %q: must be alphanumeric with underscores/hyphens only", name)
	}
	return nil
}
