// Package paths resolves project locations and validates untrusted path input.
//
// Every path that arrives in a hook payload is attacker-controlled. Guard
// resolves such paths against the project root and refuses anything that could
// escape it; all refusals wrap ErrRejected so callers can treat them as a no-op.
package paths

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrRejected is wrapped by every validation failure.
var ErrRejected = errors.New("path rejected")

var driveLetterRegex = regexp.MustCompile(`^[A-Za-z]:`)

// SafePath is a path that passed Guard validation.
type SafePath struct {
	// Abs is the cleaned absolute path under the guard root.
	Abs string
	// Rel is Abs relative to the guard root, using forward slashes.
	Rel string
}

// Guard validates paths against a fixed root directory.
type Guard struct {
	root string
}

// NewGuard returns a Guard rooted at root, which is made absolute and cleaned.
func NewGuard(root string) (*Guard, error) {
	if root == "" {
		return nil, errors.New("guard root cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving guard root: %w", err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory.
func (g *Guard) Root() string {
	return g.root
}

func rejectf(raw, reason string) error {
	return fmt.Errorf("%w: %q: %s", ErrRejected, raw, reason)
}

// Validate resolves raw against the root. Containment is decided with
// filepath.Rel on the joined path, never by string prefix.
func (g *Guard) Validate(raw string) (SafePath, error) {
	if raw == "" {
		return SafePath{}, rejectf(raw, "empty path")
	}

	// Percent-encoded input must be safe both as written and once decoded.
	candidates := []string{raw}
	if strings.Contains(raw, "%") {
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			return SafePath{}, rejectf(raw, "malformed percent-encoding")
		}
		if decoded != raw {
			candidates = append(candidates, decoded)
		}
	}

	var resolved SafePath
	for i, candidate := range candidates {
		sp, err := g.resolve(candidate)
		if err != nil {
			return SafePath{}, rejectf(raw, err.Error())
		}
		if i == 0 {
			resolved = sp
		}
	}
	return resolved, nil
}

func (g *Guard) resolve(p string) (SafePath, error) {
	if strings.HasPrefix(p, "-") {
		return SafePath{}, errors.New("looks like a command-line flag")
	}
	if strings.ContainsAny(p, "\n\r\x00") {
		return SafePath{}, errors.New("contains control characters")
	}

	normalized := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(normalized, "/") {
		return SafePath{}, errors.New("absolute path")
	}
	if driveLetterRegex.MatchString(normalized) {
		return SafePath{}, errors.New("drive-letter path")
	}

	joined := filepath.Join(g.root, filepath.FromSlash(normalized))
	rel, err := filepath.Rel(g.root, joined)
	if err != nil {
		return SafePath{}, errors.New("cannot be made relative to root")
	}
	if rel == "." {
		return SafePath{}, errors.New("resolves to the root itself")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return SafePath{}, errors.New("resolves outside root")
	}
	return SafePath{Abs: joined, Rel: filepath.ToSlash(rel)}, nil
}

// ValidateAbsOrRel accepts an absolute path under the root (as the host sends
// for file tools) or a relative one, and validates it.
func (g *Guard) ValidateAbsOrRel(raw string) (SafePath, error) {
	if filepath.IsAbs(raw) {
		rel := ToRelativePath(filepath.Clean(raw), g.root)
		if rel == "" {
			return SafePath{}, rejectf(raw, "absolute path outside root")
		}
		raw = rel
	}
	return g.Validate(raw)
}

// CheckWritable refuses to write through a symbolic link. A missing target is fine.
func CheckWritable(abs string) error {
	info, err := os.Lstat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: %q: lstat: %w", ErrRejected, abs, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return rejectf(abs, "target is a symbolic link")
	}
	return nil
}

// CheckWritable lstats a validated path before a write.
func (g *Guard) CheckWritable(sp SafePath) error {
	return CheckWritable(sp.Abs)
}

// ValidateBasename accepts only a plain file name: no separators, no dot entries.
func ValidateBasename(name string) error {
	switch {
	case name == "":
		return rejectf(name, "empty name")
	case name == "." || name == "..":
		return rejectf(name, "dot entry")
	case strings.ContainsAny(name, "/\\"):
		return rejectf(name, "contains path separators")
	case strings.ContainsAny(name, "\n\r\x00"):
		return rejectf(name, "contains control characters")
	}
	return nil
}
