// Package ledger reads the project session ledger, a hand-maintained
// markdown file that carries the session counter.
package ledger

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
)

// maxLedgerBytes bounds how much of the ledger is scanned; the counter lives
// near the top of the file.
const maxLedgerBytes = 64 * 1024

// Emphasis markup and spacing around the label and the colon are optional.
var (
	counterRegex     = regexp.MustCompile(`(?i)(?:current\s+)?session\s+(?:count|counter|number)[\s*_]*:[\s*_]*#?(\d+)`)
	lastUpdatedRegex = regexp.MustCompile(`(?i)last\s+updated[\s*_]*:[\s*_]*(\d{4}-\d{2}-\d{2})`)
)

// Info is what the ledger tells us about the current session.
type Info struct {
	// Counter is 0 when the ledger has no recognizable counter.
	Counter     int    `json:"counter"`
	LastUpdated string `json:"lastUpdated,omitempty"`
}

// Parse extracts the session counter and last-updated date from ledger text.
func Parse(text string) Info {
	var info Info
	if m := counterRegex.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.Counter = n
		}
	}
	if m := lastUpdatedRegex.FindStringSubmatch(text); m != nil {
		info.LastUpdated = m[1]
	}
	return info
}

// Load reads and parses the ledger at the project-relative path file.
// A missing ledger yields the zero Info and no error.
func Load(guard *paths.Guard, file string) (Info, error) {
	sp, err := guard.Validate(file)
	if err != nil {
		return Info{}, err //nolint:wrapcheck // sentinel is checked by callers
	}

	f, err := os.Open(sp.Abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, nil
		}
		return Info{}, fmt.Errorf("opening session ledger: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxLedgerBytes))
	if err != nil {
		return Info{}, fmt.Errorf("reading session ledger: %w", err)
	}
	return Parse(string(data)), nil
}
