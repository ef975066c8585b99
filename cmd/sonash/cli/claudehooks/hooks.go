// Package claudehooks installs the sonash hook commands into the host's
// .claude/settings.json.
package claudehooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
)

// SettingsFileName is the host settings document inside .claude/.
const SettingsFileName = "settings.json"

// commandPrefix identifies hook entries owned by sonash.
const commandPrefix = "sonash hooks "

// Matcher groups hook entries under a tool name pattern.
type Matcher struct {
	Matcher string  `json:"matcher"`
	Hooks   []Entry `json:"hooks"`
}

// Entry is a single hook command.
type Entry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// Binding ties one host event (and tool matcher) to a sonash hook verb.
type Binding struct {
	Event   string
	Matcher string
	Verb    string
}

// Command returns the shell command the host runs for b.
func (b Binding) Command() string {
	return commandPrefix + b.Verb
}

// Bindings lists every hook sonash installs.
func Bindings() []Binding {
	return []Binding{
		{Event: "PostToolUse", Matcher: "Bash", Verb: "commit-tracker"},
		{Event: "PostToolUse", Matcher: "Read", Verb: "context-tracker"},
		{Event: "PostToolUse", Matcher: "Task", Verb: "agent-tracker"},
		{Event: "PreCompact", Matcher: "", Verb: "pre-compact"},
		{Event: "SessionStart", Matcher: "", Verb: "session-start"},
	}
}

// document is settings.json split into its raw top-level keys and the raw
// per-event hook lists, so keys sonash does not know survive a rewrite.
type document struct {
	raw   map[string]json.RawMessage
	hooks map[string]json.RawMessage
}

func settingsPath(root string) string {
	return filepath.Join(root, paths.ClaudeDir, SettingsFileName)
}

func readDocument(root string) (*document, error) {
	doc := &document{
		raw:   map[string]json.RawMessage{},
		hooks: map[string]json.RawMessage{},
	}
	data, err := os.ReadFile(settingsPath(root)) //nolint:gosec // root + constant
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("failed to read settings.json: %w", err)
	}
	if err := json.Unmarshal(data, &doc.raw); err != nil {
		return nil, fmt.Errorf("failed to parse existing settings.json: %w", err)
	}
	if hooksRaw, ok := doc.raw["hooks"]; ok {
		if err := json.Unmarshal(hooksRaw, &doc.hooks); err != nil {
			return nil, fmt.Errorf("failed to parse hooks in settings.json: %w", err)
		}
	}
	return doc, nil
}

func (d *document) matchers(event string) ([]Matcher, error) {
	var m []Matcher
	if raw, ok := d.hooks[event]; ok {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s hooks: %w", event, err)
		}
	}
	return m, nil
}

func (d *document) setMatchers(event string, m []Matcher) error {
	if len(m) == 0 {
		delete(d.hooks, event)
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal %s hooks: %w", event, err)
	}
	d.hooks[event] = data
	return nil
}

func (d *document) write(root string) error {
	if len(d.hooks) == 0 {
		delete(d.raw, "hooks")
	} else {
		data, err := json.Marshal(d.hooks)
		if err != nil {
			return fmt.Errorf("failed to marshal hooks: %w", err)
		}
		d.raw["hooks"] = data
	}
	store := statestore.New(filepath.Join(root, paths.ClaudeDir))
	return store.Write(SettingsFileName, d.raw) //nolint:wrapcheck // already wrapped by statestore
}

// Install adds every missing binding and returns how many were added. An
// unchanged file is not rewritten.
func Install(root string) (int, error) {
	doc, err := readDocument(root)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range Bindings() {
		m, err := doc.matchers(b.Event)
		if err != nil {
			return 0, err
		}
		if commandExistsWithMatcher(m, b.Matcher, b.Command()) {
			continue
		}
		if err := doc.setMatchers(b.Event, addToMatcher(m, b.Matcher, b.Command())); err != nil {
			return 0, err
		}
		count++
	}

	if count == 0 {
		return 0, nil
	}
	if err := doc.write(root); err != nil {
		return 0, err
	}
	return count, nil
}

// Uninstall removes every sonash hook entry, leaving other hooks alone.
func Uninstall(root string) error {
	doc, err := readDocument(root)
	if err != nil {
		return err
	}
	for event := range doc.hooks {
		m, err := doc.matchers(event)
		if err != nil {
			return err
		}
		if err := doc.setMatchers(event, removeOwned(m)); err != nil {
			return err
		}
	}
	return doc.write(root)
}

// Installed reports whether every binding is present.
func Installed(root string) bool {
	doc, err := readDocument(root)
	if err != nil {
		return false
	}
	for _, b := range Bindings() {
		m, err := doc.matchers(b.Event)
		if err != nil || !commandExistsWithMatcher(m, b.Matcher, b.Command()) {
			return false
		}
	}
	return true
}

func commandExistsWithMatcher(matchers []Matcher, matcherName, command string) bool {
	for _, matcher := range matchers {
		if matcher.Matcher != matcherName {
			continue
		}
		for _, hook := range matcher.Hooks {
			if hook.Command == command {
				return true
			}
		}
	}
	return false
}

func addToMatcher(matchers []Matcher, matcherName, command string) []Matcher {
	entry := Entry{Type: "command", Command: command}
	for i, matcher := range matchers {
		if matcher.Matcher == matcherName {
			matchers[i].Hooks = append(matchers[i].Hooks, entry)
			return matchers
		}
	}
	return append(matchers, Matcher{Matcher: matcherName, Hooks: []Entry{entry}})
}

// removeOwned drops sonash entries and any matcher left empty.
func removeOwned(matchers []Matcher) []Matcher {
	result := make([]Matcher, 0, len(matchers))
	for _, matcher := range matchers {
		kept := make([]Entry, 0, len(matcher.Hooks))
		for _, hook := range matcher.Hooks {
			if !strings.HasPrefix(hook.Command, commandPrefix) {
				kept = append(kept, hook)
			}
		}
		if len(kept) > 0 {
			matcher.Hooks = kept
			result = append(result, matcher)
		}
	}
	return result
}
