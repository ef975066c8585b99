package paths

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveStaleTemps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name string, age time.Duration) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o600))
		mtime := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(p, mtime, mtime))
		return p
	}

	stale := write("state.json.123.tmp", time.Hour)
	fresh := write("state.json.456.tmp", time.Second)
	other := write("other.json.789.tmp", time.Hour)
	target := write("state.json", time.Hour)

	assert.Equal(t, 1, RemoveStaleTemps(dir, "state.json"))

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh, "a write may still be in flight")
	assert.FileExists(t, other, "only siblings of the given name")
	assert.FileExists(t, target)
}

func TestRemoveStaleTemps_MissingDir(t *testing.T) {
	t.Parallel()
	assert.Zero(t, RemoveStaleTemps(filepath.Join(t.TempDir(), "absent"), "state.json"))
}
