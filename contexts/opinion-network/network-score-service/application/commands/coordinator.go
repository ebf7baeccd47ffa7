package commands

import (
	"context"
	"strings"
	"sync"

	"ballotnet/contexts/opinion-network/network-score-service/domain/entities"

	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	voterID    string
	electionID string
}

func (k cacheKey) String() string {
	return k.voterID + "|" + k.electionID
}

func newCacheKey(voterID string, electionID string) cacheKey {
	return cacheKey{
		voterID:    strings.TrimSpace(voterID),
		electionID: strings.TrimSpace(electionID),
	}
}

// RebuildCoordinator serializes rebuilds per (voter, election) key and tracks
// the key's cache state. Concurrent rebuild requests for one key collapse
// into a single run; incremental operations consult RebuildInFlight and are
// dropped while a rebuild runs, since the rebuild produces a superset-correct
// result anyway.
type RebuildCoordinator struct {
	mu       sync.Mutex
	states   map[cacheKey]entities.CacheState
	inflight map[cacheKey]bool
	group    singleflight.Group
}

func NewRebuildCoordinator() *RebuildCoordinator {
	return &RebuildCoordinator{
		states:   make(map[cacheKey]entities.CacheState),
		inflight: make(map[cacheKey]bool),
	}
}

// State reports the lifecycle state of a key. Keys never rebuilt are EMPTY.
func (c *RebuildCoordinator) State(voterID string, electionID string) entities.CacheState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[newCacheKey(voterID, electionID)]
	if !ok {
		return entities.CacheStateEmpty
	}
	return state
}

// RebuildInFlight reports whether a rebuild currently holds the key.
func (c *RebuildCoordinator) RebuildInFlight(voterID string, electionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[newCacheKey(voterID, electionID)]
}

// RunRebuild executes run with at-most-one-in-flight semantics per key.
// Callers racing on the same key share the first run's outcome. The key
// re-enters BUILDING for the duration and lands in READY only on success;
// a failed or cancelled rebuild falls back to EMPTY so the next trigger
// rebuilds from scratch.
func (c *RebuildCoordinator) RunRebuild(
	_ context.Context,
	voterID string,
	electionID string,
	run func() (RebuildResult, error),
) (RebuildResult, error) {
	key := newCacheKey(voterID, electionID)
	value, err, _ := c.group.Do(key.String(), func() (any, error) {
		c.setInFlight(key, true)
		c.setState(key, entities.CacheStateBuilding)
		defer c.setInFlight(key, false)

		result, err := run()
		if err != nil {
			c.setState(key, entities.CacheStateEmpty)
			return result, err
		}
		c.setState(key, entities.CacheStateReady)
		return result, nil
	})
	result, _ := value.(RebuildResult)
	return result, err
}

func (c *RebuildCoordinator) setState(key cacheKey, state entities.CacheState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[key] = state
}

func (c *RebuildCoordinator) setInFlight(key cacheKey, inflight bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if inflight {
		c.inflight[key] = true
		return
	}
	delete(c.inflight, key)
}
