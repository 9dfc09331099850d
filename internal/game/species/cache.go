package species

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// CachingProvider memoises successful lookups of an underlying Provider.
// Concurrent identical requests share one upstream call. Failures are not cached.
type CachingProvider struct {
	group singleflight.Group

	mu       sync.RWMutex
	upstream Provider
	// gen counts reloads; a fetch started before a reload is not cached.
	gen     uint64
	species map[int]*Species
	moves   map[int][]Move
}

// NewCachingProvider wraps upstream.
//
// Precondition: upstream must be non-nil.
func NewCachingProvider(upstream Provider) *CachingProvider {
	return &CachingProvider{
		upstream: upstream,
		species:  make(map[int]*Species),
		moves:    make(map[int][]Move),
	}
}

// Species returns the cached species or fetches it once from upstream.
func (c *CachingProvider) Species(ctx context.Context, id int) (*Species, error) {
	c.mu.RLock()
	sp, ok := c.species[id]
	c.mu.RUnlock()
	if !ok {
		v, err, _ := c.group.Do("species:"+strconv.Itoa(id), func() (interface{}, error) {
			upstream, gen := c.current()
			fetched, err := upstream.Species(ctx, id)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			if gen == c.gen {
				c.species[id] = fetched
			}
			c.mu.Unlock()
			return fetched, nil
		})
		if err != nil {
			return nil, err
		}
		sp = v.(*Species)
	}
	out := *sp
	out.Moves = append([]Move(nil), sp.Moves...)
	return &out, nil
}

// Moves returns the cached move list or fetches it once from upstream.
func (c *CachingProvider) Moves(ctx context.Context, id int) ([]Move, error) {
	c.mu.RLock()
	moves, ok := c.moves[id]
	c.mu.RUnlock()
	if !ok {
		v, err, _ := c.group.Do("moves:"+strconv.Itoa(id), func() (interface{}, error) {
			upstream, gen := c.current()
			fetched, err := upstream.Moves(ctx, id)
			if err != nil {
				return nil, err
			}
			c.mu.Lock()
			if gen == c.gen {
				c.moves[id] = fetched
			}
			c.mu.Unlock()
			return fetched, nil
		})
		if err != nil {
			return nil, err
		}
		moves = v.([]Move)
	}
	return append([]Move(nil), moves...), nil
}

func (c *CachingProvider) current() (Provider, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.upstream, c.gen
}

// Reload replaces the upstream provider and drops every cached entry. It
// returns the ids that were cached.
//
// Precondition: upstream must be non-nil.
func (c *CachingProvider) Reload(upstream Provider) []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	seen := make(map[int]struct{}, len(c.species)+len(c.moves))
	for id := range c.species {
		seen[id] = struct{}{}
	}
	for id := range c.moves {
		seen[id] = struct{}{}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	c.species = make(map[int]*Species)
	c.moves = make(map[int][]Move)
	c.upstream = upstream
	c.gen++
	return ids
}
