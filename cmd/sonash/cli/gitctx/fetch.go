package gitctx

import (
	"context"
	"time"

	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/paths"
	"github.com/jasonmichaelbell78-creator/sonash-v0-sub005/cmd/sonash/cli/statestore"
)

// DefaultFetchTTL is the minimum age of the fetch cache before fetching again.
const DefaultFetchTTL = 5 * time.Minute

// FetchCache records the last time a remote fetch was attempted.
type FetchCache struct {
	LastFetch time.Time `json:"lastFetch"`
	OK        bool      `json:"ok"`
}

// FetchIfStale runs `git fetch` unless the cache in store shows an attempt
// within ttl. A missing or corrupt cache counts as stale. The cache is updated
// after every attempt, successful or not, so an unreachable remote is not
// retried on every invocation.
func (p *Provider) FetchIfStale(ctx context.Context, store *statestore.Store, ttl time.Duration, now time.Time) bool {
	var cache FetchCache
	if store.ReadOrDefault(paths.FetchCacheFileName, &cache) {
		age := now.Sub(cache.LastFetch)
		if age >= 0 && age < ttl {
			return false
		}
	}

	_, ok := p.query(ctx, p.networkTimeout, "fetch", "--quiet", "--no-tags", "--no-recurse-submodules")
	_ = store.Write(paths.FetchCacheFileName, FetchCache{LastFetch: now.UTC(), OK: ok})
	return true
}
