package paths

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StaleTempAge is the age after which a "<name>.*.tmp" sibling is assumed to
// belong to a writer that crashed before its rename.
const StaleTempAge = 5 * time.Minute

// RemoveStaleTemps deletes the temporary siblings of base in dir that are
// older than StaleTempAge and returns how many it removed. Failures are
// skipped; the next write sweeps again.
func RemoveStaleTemps(dir, base string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := time.Now().Add(-StaleTempAge)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+".") || !strings.HasSuffix(name, ".tmp") {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if os.Remove(filepath.Join(dir, name)) == nil {
			removed++
		}
	}
	return removed
}
