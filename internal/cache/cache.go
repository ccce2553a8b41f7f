// Package cache implements the Ordered Cache component (spec.md §4.6): a
// sparse key→value cache over uint64 line indices, filled in contiguous
// runs by a supplier function and invalidated in batches.
//
// The store itself is github.com/patrickmn/go-cache, used here as a
// plain concurrent map (no expiration) rather than for its eviction
// behavior; go-cache has no notion of key ordering or range queries, so
// a separate ascending []uint64 index drives gap detection and run
// splitting.
package cache

import (
	"sort"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"

	"github.com/sloked/sloked/internal/slkerr"
)

// Supplier fills the inclusive range [from, to]; it must return exactly
// to-from+1 values, in order, or the call fails with SupplierSizeMismatch.
type Supplier[V any] func(from, to uint64) ([]V, error)

// Entry is one freshly-filled (key, value) pair, as returned by
// FetchUpdated.
type Entry[V any] struct {
	Key   uint64
	Value V
}

// OrderedCache is a sparse uint64-keyed cache with supplier-fill and
// batched invalidation.
type OrderedCache[V any] struct {
	mu    sync.Mutex
	store *gocache.Cache
	keys  []uint64 // ascending, every key currently present
}

func New[V any]() *OrderedCache[V] {
	return &OrderedCache[V]{store: gocache.New(gocache.NoExpiration, gocache.NoExpiration)}
}

func keyString(k uint64) string { return strconv.FormatUint(k, 10) }

// locked helpers; caller must hold c.mu.

func (c *OrderedCache[V]) has(k uint64) bool {
	_, ok := c.store.Get(keyString(k))
	return ok
}

func (c *OrderedCache[V]) get(k uint64) (V, bool) {
	v, ok := c.store.Get(keyString(k))
	if !ok {
		var zero V
		return zero, false
	}
	return v.(V), true
}

func (c *OrderedCache[V]) set(k uint64, v V) {
	if !c.has(k) {
		i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= k })
		c.keys = append(c.keys, 0)
		copy(c.keys[i+1:], c.keys[i:])
		c.keys[i] = k
	}
	c.store.Set(keyString(k), v, gocache.NoExpiration)
}

func (c *OrderedCache[V]) delete(k uint64) {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i] >= k })
	if i < len(c.keys) && c.keys[i] == k {
		c.keys = append(c.keys[:i], c.keys[i+1:]...)
	}
	c.store.Delete(keyString(k))
}

// fetch runs the shared fetch/fetch_updated algorithm. It returns the
// full in-order slice for [begin, end] and, separately, only the
// (key, value) pairs supplied during this call.
func (c *OrderedCache[V]) fetch(begin, end uint64, supplier Supplier[V]) ([]V, []Entry[V], error) {
	if begin > end {
		return nil, nil, slkerr.New(slkerr.ReversedRange, "cache: fetch(%d, %d): begin > end", begin, end)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	full := make([]V, 0, end-begin+1)
	var updated []Entry[V]

	i := begin
	for i <= end {
		if v, ok := c.get(i); ok {
			full = append(full, v)
			i++
			continue
		}

		runEnd := i
		for runEnd < end && !c.has(runEnd+1) {
			runEnd++
		}

		vals, err := supplier(i, runEnd)
		if err != nil {
			return nil, nil, err
		}
		want := runEnd - i + 1
		if uint64(len(vals)) != want {
			return nil, nil, slkerr.New(slkerr.SupplierSizeMismatch,
				"cache: supplier(%d, %d) returned %d values, want %d", i, runEnd, len(vals), want)
		}

		for j, v := range vals {
			k := i + uint64(j)
			c.set(k, v)
			full = append(full, v)
			updated = append(updated, Entry[V]{Key: k, Value: v})
		}
		i = runEnd + 1
	}

	return full, updated, nil
}

// Fetch returns the values for every key in [begin, end], filling any
// missing runs via supplier.
func (c *OrderedCache[V]) Fetch(begin, end uint64, supplier Supplier[V]) ([]V, error) {
	full, _, err := c.fetch(begin, end, supplier)
	return full, err
}

// FetchUpdated is Fetch but returns only the entries that were newly
// filled by this call, used by incremental rendering (spec.md §4.7).
func (c *OrderedCache[V]) FetchUpdated(begin, end uint64, supplier Supplier[V]) ([]Entry[V], error) {
	_, updated, err := c.fetch(begin, end, supplier)
	return updated, err
}

// Drop erases every key in [begin, end]. begin > end is a no-op (the
// render engine may call Drop with an empty invalidation range).
func (c *OrderedCache[V]) Drop(begin, end uint64) {
	if begin > end {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := begin; k <= end; k++ {
		c.delete(k)
		if k == ^uint64(0) {
			break // avoid wrapping past the maximum key
		}
	}
}

// Clear empties the cache.
func (c *OrderedCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Flush()
	c.keys = nil
}

// Insert bulk-loads vals as keys [begin, begin+len(vals)) without
// invoking a supplier.
func (c *OrderedCache[V]) Insert(begin uint64, vals []V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, v := range vals {
		c.set(begin+uint64(i), v)
	}
}

// Len reports the number of keys currently cached.
func (c *OrderedCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}
