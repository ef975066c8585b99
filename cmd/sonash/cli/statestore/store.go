// Package statestore persists named JSON documents in a single directory.
//
// Each document is one file. Writes go to a unique ".tmp" sibling which is then
// renamed over the target, so a reader sees either the complete previous
// document or the complete new one. There is no locking; concurrent writers
// race and the last rename wins.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/jsonutil"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
)

// ErrCorrupt is returned by Read when a document exists but cannot be parsed.
var ErrCorrupt = errors.New("corrupt state document")

const tmpSuffix = ".tmp"

// Store reads and writes documents under dir.
type Store struct {
	dir string
}

// New creates a store rooted at dir. The directory is created lazily on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of a document. The name must be a plain basename.
func (s *Store) Path(name string) (string, error) {
	if err := paths.ValidateBasename(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

// Read decodes the named document into v.
// Returns (false, nil) when the document does not exist and (false, err) wrapping
// ErrCorrupt when it cannot be parsed; callers substitute their own default.
func (s *Store) Read(name string, v any) (bool, error) {
	p, err := s.Path(name)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(p) //nolint:gosec // name validated as a basename
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCorrupt, name, err)
	}
	return true, nil
}

// ReadOrDefault is Read for callers that only care whether a usable document
// was found. Missing and corrupt documents both report false.
func (s *Store) ReadOrDefault(name string, v any) bool {
	found, err := s.Read(name, v)
	return err == nil && found
}

// Write atomically replaces the named document with the JSON encoding of v.
// On failure the temporary file is removed and the previous document is left intact.
// A successful write also removes the document's stale temporary siblings.
func (s *Store) Write(name string, v any) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := paths.CheckWritable(p); err != nil {
		return err
	}

	data, err := jsonutil.MarshalIndentWithNewline(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", name, err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	// Each writer gets its own sibling so concurrent writers cannot interleave bytes.
	tmp, err := os.CreateTemp(s.dir, name+".*"+tmpSuffix)
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
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

	// Windows rename does not replace an existing target.
	if runtime.GOOS == "windows" {
		_ = removeIfExists(p)
	}

	if err := os.Rename(tmpFile, p); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("renaming %s: %w", tmpFile, err)
	}
	paths.RemoveStaleTemps(s.dir, name)
	return nil
}

// Delete removes the named document. A missing document is not an error.
func (s *Store) Delete(name string) error {
	p, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := removeIfExists(p); err != nil {
		return fmt.Errorf("deleting %s: %w", name, err)
	}
	return nil
}

// List returns the sorted names of documents whose name starts with prefix and
// ends with suffix. Temporary files are skipped.
func (s *Store) List(prefix, suffix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing state directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, tmpSuffix) {
			continue
		}
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func removeIfExists(p string) error {
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err //nolint:wrapcheck // callers wrap
	}
	return nil
}
