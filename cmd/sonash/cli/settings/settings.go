// Package settings loads the optional project settings for sonash.
// This package is separate from cli so component packages can read settings
// without importing the command tree.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/jsonutil"

	"github.com/tidwall/jsonc"
)

const (
	// SettingsFile is the path to the settings file, relative to the project root.
	SettingsFile = ".sonash/settings.json"
	// SettingsLocalFile is the path to the local settings override file (not committed).
	SettingsLocalFile = ".sonash/settings.local.json"
)

// TeamModeEnvVar enables team mode regardless of settings when set to "1" or "true".
const TeamModeEnvVar = "SONASH_TEAM_MODE"

// Settings represents .sonash/settings.json.
type Settings struct {
	// Enabled indicates whether hooks do anything. When false, hooks only
	// print "ok". Defaults to true.
	Enabled bool `json:"enabled"`

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	// Can be overridden by SONASH_LOG_LEVEL environment variable.
	LogLevel string `json:"log_level,omitempty"`

	// TeamMode adds specialist activity to pre-compaction snapshots.
	TeamMode bool `json:"team_mode,omitempty"`

	// Telemetry controls anonymous usage analytics. nil = not configured (off).
	Telemetry *bool `json:"telemetry,omitempty"`

	// Thresholds overrides the built-in limits. Zero values keep the defaults.
	Thresholds Thresholds `json:"thresholds,omitempty"`
}

// Thresholds holds optional overrides for snapshot and recovery limits.
type Thresholds struct {
	FileReadThreshold       int `json:"file_read_threshold,omitempty"`
	SnapshotCooldownMinutes int `json:"snapshot_cooldown_minutes,omitempty"`
	SessionResetMinutes     int `json:"session_reset_minutes,omitempty"`
	StalenessMinutes        int `json:"staleness_minutes,omitempty"`
	CommitLogMaxLines       int `json:"commit_log_max_lines,omitempty"`
	CommitLogKeepLines      int `json:"commit_log_keep_lines,omitempty"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{Enabled: true}
}

// Load loads settings from .sonash/settings.json under root, then applies any
// overrides from .sonash/settings.local.json. Missing files yield defaults.
// Both files may contain comments and trailing commas.
func Load(root string) (*Settings, error) {
	s, err := loadFromFile(filepath.Join(root, SettingsFile))
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	localData, err := os.ReadFile(filepath.Join(root, SettingsLocalFile)) //nolint:gosec // path is root + constant
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading local settings file: %w", err)
		}
	} else if err := mergeJSON(s, jsonc.ToJSON(localData)); err != nil {
		return nil, fmt.Errorf("merging local settings: %w", err)
	}

	if v := os.Getenv(TeamModeEnvVar); v == "1" || v == "true" {
		s.TeamMode = true
	}
	return s, nil
}

// LoadOrDefault is Load for callers that must never fail: errors yield defaults.
func LoadOrDefault(root string) *Settings {
	s, err := Load(root)
	if err != nil {
		return Default()
	}
	return s
}

// SaveEnabled sets "enabled" in the project settings file, keeping every
// other key. Comments in an existing file are not preserved.
func SaveEnabled(root string, enabled bool) error {
	path := filepath.Join(root, SettingsFile)

	raw := map[string]json.RawMessage{}
	data, err := os.ReadFile(path) //nolint:gosec // path is root + constant
	switch {
	case err == nil:
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return fmt.Errorf("parsing settings file: %w", err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("reading settings file: %w", err)
	}

	value, err := json.Marshal(enabled)
	if err != nil {
		return fmt.Errorf("encoding enabled: %w", err)
	}
	raw["enabled"] = value

	out, err := jsonutil.MarshalIndentWithNewline(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	return nil
}

func loadFromFile(filePath string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(filePath) //nolint:gosec // path is from caller
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("%w", err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return s, nil
}

// mergeJSON merges JSON data into existing settings.
// Only keys present in data override existing settings.
func mergeJSON(s *Settings, data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing JSON: %w", err)
	}

	if enabledRaw, ok := raw["enabled"]; ok {
		if err := json.Unmarshal(enabledRaw, &s.Enabled); err != nil {
			return fmt.Errorf("parsing enabled field: %w", err)
		}
	}

	if logLevelRaw, ok := raw["log_level"]; ok {
		var ll string
		if err := json.Unmarshal(logLevelRaw, &ll); err != nil {
			return fmt.Errorf("parsing log_level field: %w", err)
		}
		if ll != "" {
			s.LogLevel = ll
		}
	}

	if teamRaw, ok := raw["team_mode"]; ok {
		if err := json.Unmarshal(teamRaw, &s.TeamMode); err != nil {
			return fmt.Errorf("parsing team_mode field: %w", err)
		}
	}

	if telemetryRaw, ok := raw["telemetry"]; ok {
		var t bool
		if err := json.Unmarshal(telemetryRaw, &t); err != nil {
			return fmt.Errorf("parsing telemetry field: %w", err)
		}
		s.Telemetry = &t
	}

	if thresholdsRaw, ok := raw["thresholds"]; ok {
		var th Thresholds
		if err := json.Unmarshal(thresholdsRaw, &th); err != nil {
			return fmt.Errorf("parsing thresholds field: %w", err)
		}
		s.Thresholds.merge(th)
	}

	return nil
}

func (t *Thresholds) merge(o Thresholds) {
	mergeInt(&t.FileReadThreshold, o.FileReadThreshold)
	mergeInt(&t.SnapshotCooldownMinutes, o.SnapshotCooldownMinutes)
	mergeInt(&t.SessionResetMinutes, o.SessionResetMinutes)
	mergeInt(&t.StalenessMinutes, o.StalenessMinutes)
	mergeInt(&t.CommitLogMaxLines, o.CommitLogMaxLines)
	mergeInt(&t.CommitLogKeepLines, o.CommitLogKeepLines)
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}
