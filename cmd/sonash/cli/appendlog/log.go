// Package appendlog implements an append-only JSON Lines log with bounded rotation.
//
// Appends never rewrite existing bytes. Rotation reads the whole log, keeps the
// newest lines and replaces the file through a temporary sibling and a rename,
// so a crash leaves either the old or the rotated file, never a truncated one.
package appendlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/jsonutil"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
)

// maxLineBytes bounds a single log line when scanning.
const maxLineBytes = 1 << 20

// Log is a JSON Lines file.
type Log struct {
	path string
}

// RotateResult reports what a rotation did.
type RotateResult struct {
	Rotated bool `json:"rotated"`
	Before  int  `json:"before"`
	After   int  `json:"after"`
}

// New returns a log backed by path.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the file backing the log.
func (l *Log) Path() string {
	return l.path
}

// Append writes entry as one JSON line.
func (l *Log) Append(entry any) error {
	line, err := jsonutil.MarshalLine(entry)
	if err != nil {
		return err
	}
	if bytes.ContainsAny(line, "\n\r") {
		return errors.New("encoded entry spans multiple lines")
	}
	if err := paths.CheckWritable(l.path); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path is built from constants
	if err != nil {
		return fmt.Errorf("opening %s: %w", l.path, err)
	}
	defer f.Close()

	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("appending to %s: %w", l.path, err)
	}
	return nil
}

// readLines returns the non-empty lines of the log. A missing file has no lines.
func (l *Log) readLines() ([][]byte, error) {
	f, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", l.path, err)
	}
	defer f.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines = append(lines, bytes.Clone(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", l.path, err)
	}
	return lines, nil
}

// Rotate keeps the newest keepLines entries once the log holds more than maxLines.
func (l *Log) Rotate(maxLines, keepLines int) (RotateResult, error) {
	if keepLines < 0 {
		keepLines = 0
	}

	lines, err := l.readLines()
	if err != nil {
		return RotateResult{}, err
	}
	result := RotateResult{Before: len(lines), After: len(lines)}

	// Corrupt lines are dropped by a rotation rather than carried forward.
	valid := make([][]byte, 0, len(lines))
	for _, line := range lines {
		if json.Valid(line) {
			valid = append(valid, line)
		}
	}
	if len(valid) <= maxLines {
		return result, nil
	}

	kept := valid
	if len(kept) > keepLines {
		kept = kept[len(kept)-keepLines:]
	}

	var buf bytes.Buffer
	for _, line := range kept {
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := l.replace(buf.Bytes()); err != nil {
		return result, err
	}

	result.Rotated = true
	result.After = len(kept)
	return result, nil
}

// RotateIfLarge stats the log and rotates only when it exceeds maxBytes.
func (l *Log) RotateIfLarge(maxBytes int64, maxLines, keepLines int) (RotateResult, error) {
	info, err := os.Stat(l.path)
	if err != nil || info.Size() <= maxBytes {
		return RotateResult{}, nil //nolint:nilerr // a missing or small log needs no rotation
	}
	return l.Rotate(maxLines, keepLines)
}

func (l *Log) replace(data []byte) error {
	if err := paths.CheckWritable(l.path); err != nil {
		return err
	}
	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpFile := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpFile)
		return fmt.Errorf("writing %s: %w", tmpFile, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("closing %s: %w", tmpFile, err)
	}
	if runtime.GOOS == "windows" {
		_ = os.Remove(l.path)
	}
	if err := os.Rename(tmpFile, l.path); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("renaming %s: %w", tmpFile, err)
	}
	paths.RemoveStaleTemps(dir, filepath.Base(l.path))
	return nil
}

// Tail returns up to n of the newest parseable entries in log order, and the
// number of corrupt lines skipped across the whole log. n <= 0 returns all.
func (l *Log) Tail(n int) ([]json.RawMessage, int, error) {
	lines, err := l.readLines()
	if err != nil {
		return nil, 0, err
	}

	var entries []json.RawMessage
	skipped := 0
	for _, line := range lines {
		if !json.Valid(line) {
			skipped++
			continue
		}
		entries = append(entries, json.RawMessage(line))
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, skipped, nil
}

// TailAs decodes the newest n entries into T. Lines that are valid JSON but do
// not decode into T also count as skipped.
func TailAs[T any](l *Log, n int) ([]T, int, error) {
	raw, skipped, err := l.Tail(0)
	if err != nil {
		return nil, 0, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			skipped++
			continue
		}
		out = append(out, v)
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out, skipped, nil
}
