// Package cache is a staleness-aware in-process cache with single-flight
// loading and tracked background refreshes.
//
// An entry is FRESH while its age is at most TTL, STALE until MaxStale and
// then EXPIRED; expired entries are evicted the next time they are looked at.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"leaddash/internal/metrics"
)

// Default entry lifetimes.
const (
	DefaultTTL      = 5 * time.Minute
	DefaultMaxStale = 60 * time.Minute
)

// ErrClosed is returned by loads attempted after Close.
var ErrClosed = errors.New("cache closed")

// Key identifies a cached dataset for one time window.
type Key struct {
	Dataset string
	Window  int
}

// String returns the flat "<dataset>_<window>" form used for flights and the
// shared store.
func (k Key) String() string {
	return fmt.Sprintf("%s_%d", k.Dataset, k.Window)
}

// State is the lifecycle state of a key.
type State int

// Key states
const (
	StateEmpty State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "empty"
	}
}

// Result is a cached payload with its staleness.
type Result[T any] struct {
	Data      T
	Stale     bool
	CreatedAt time.Time
}

// Loader computes the payload for a key.
type Loader[T any] func(ctx context.Context) (T, error)

// Options configures a Cache.
type Options struct {
	// Name is used in logs.
	Name     string
	TTL      time.Duration
	MaxStale time.Duration
	// Shared is an optional second-level store shared between replicas.
	Shared Store
	// Now overrides the clock in tests.
	Now    func() time.Time
	Logger *slog.Logger
}

type entry[T any] struct {
	data      T
	createdAt time.Time
}

type refreshTask struct {
	cancel context.CancelFunc
}

// Cache is safe for concurrent use. Construct it once with New and release it
// with Close.
type Cache[T any] struct {
	name     string
	ttl      time.Duration
	maxStale time.Duration
	shared   Store
	now      func() time.Time
	logger   *slog.Logger

	mu         sync.Mutex
	entries    map[Key]entry[T]
	refreshing map[Key]*refreshTask

	group  singleflight.Group
	tasks  sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a cache.
func New[T any](opts Options) *Cache[T] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxStale <= 0 {
		opts.MaxStale = DefaultMaxStale
	}
	if opts.MaxStale < opts.TTL {
		opts.MaxStale = opts.TTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Cache[T]{
		name:       opts.Name,
		ttl:        opts.TTL,
		maxStale:   opts.MaxStale,
		shared:     opts.Shared,
		now:        opts.Now,
		logger:     logger.With("component", "cache", "cache", opts.Name),
		entries:    make(map[Key]entry[T]),
		refreshing: make(map[Key]*refreshTask),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Get returns the payload only while it is fresh.
func (c *Cache[T]) Get(key Key) (T, bool) {
	e, state := c.lookup(key)
	if state != StateFresh {
		var zero T
		return zero, false
	}
	return e.data, true
}

// GetStale returns any entry that has not expired, tagged with its staleness.
func (c *Cache[T]) GetStale(key Key) (Result[T], bool) {
	e, state := c.lookup(key)
	if state == StateEmpty {
		return Result[T]{}, false
	}
	return Result[T]{Data: e.data, Stale: state == StateStale, CreatedAt: e.createdAt}, true
}

// State returns the current state of a key.
func (c *Cache[T]) State(key Key) State {
	_, state := c.lookup(key)
	return state
}

// Set stores a payload created now.
func (c *Cache[T]) Set(key Key, data T) {
	c.store(key, entry[T]{data: data, createdAt: c.now()})
}

// Delete removes a key.
func (c *Cache[T]) Delete(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.deleteShared(key)
}

// Clear drops every entry. Running refreshes are left alone.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.entries = make(map[Key]entry[T])
	c.mu.Unlock()

	for _, k := range keys {
		c.deleteShared(k)
	}
}

// Ages returns the age of every live entry keyed by Key.String.
func (c *Cache[T]) Ages() map[string]time.Duration {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	ages := make(map[string]time.Duration, len(c.entries))
	for k, e := range c.entries {
		ages[k.String()] = now.Sub(e.createdAt)
	}
	return ages
}

// Fetch returns the payload for key. Fresh entries are returned as is. Stale
// entries are returned immediately while a background refresh is started.
// On a miss, concurrent callers share a single call to load. Cancelling ctx
// stops the caller from waiting but does not abort the shared load.
func (c *Cache[T]) Fetch(ctx context.Context, key Key, load Loader[T]) (Result[T], error) {
	e, state := c.lookup(key)
	metrics.CacheLookups.WithLabelValues(key.Dataset, state.String()).Inc()

	switch state {
	case StateFresh:
		return Result[T]{Data: e.data, CreatedAt: e.createdAt}, nil
	case StateStale:
		c.Refresh(key, load)
		return Result[T]{Data: e.data, Stale: true, CreatedAt: e.createdAt}, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.loadAndStore(c.ctx, key, load)
	})
	select {
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result[T]{}, res.Err
		}
		e := res.Val.(entry[T])
		return Result[T]{Data: e.data, CreatedAt: e.createdAt}, nil
	}
}

// Refresh starts a tracked background refresh of key unless one is already
// running. It reports whether a new refresh was started. Failures are logged
// and counted; the previous entry stays in place.
func (c *Cache[T]) Refresh(key Key, load Loader[T]) bool {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return false
	}
	if _, running := c.refreshing[key]; running {
		c.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(c.ctx)
	task := &refreshTask{cancel: cancel}
	c.refreshing[key] = task
	c.tasks.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.tasks.Done()
		defer func() {
			cancel()
			c.mu.Lock()
			if c.refreshing[key] == task {
				delete(c.refreshing, key)
			}
			c.mu.Unlock()
		}()

		start := time.Now()
		_, err, _ := c.group.Do(key.String(), func() (any, error) {
			return c.loadAndStore(ctx, key, load)
		})
		if err != nil {
			metrics.CacheRefreshFailures.WithLabelValues(key.Dataset).Inc()
			c.logger.Error("cache refresh failed", "key", key.String(), "error", err)
			return
		}
		c.logger.Debug("cache refreshed", "key", key.String(), "duration", time.Since(start))
	}()
	return true
}

// Refreshing reports whether a refresh of key is running.
func (c *Cache[T]) Refreshing(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.refreshing[key]
	return ok
}

// CancelRefresh cancels a running refresh of key. The cancelled load is
// detached from the flight group so a later Refresh starts a new load
// instead of joining the one being torn down.
func (c *Cache[T]) CancelRefresh(key Key) bool {
	c.mu.Lock()
	task, ok := c.refreshing[key]
	if ok {
		delete(c.refreshing, key)
		c.group.Forget(key.String())
	}
	c.mu.Unlock()
	if ok {
		task.cancel()
	}
	return ok
}

// Prewarm starts refreshes for the keys that have no entry at all. Keys
// already cached, fresh or stale, are skipped. It returns the number of
// refreshes started and does not wait for them.
func (c *Cache[T]) Prewarm(keys []Key, loaderFor func(Key) Loader[T]) int {
	started := 0
	for _, key := range keys {
		if c.State(key) != StateEmpty {
			continue
		}
		if c.Refresh(key, loaderFor(key)) {
			started++
		}
	}
	return started
}

// Wait blocks until every tracked refresh has finished or ctx is done.
func (c *Cache[T]) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.tasks.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels running refreshes and waits for them to return.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.tasks.Wait()
}

func (c *Cache[T]) loadAndStore(ctx context.Context, key Key, load Loader[T]) (entry[T], error) {
	if e, state := c.lookup(key); state == StateFresh {
		return e, nil
	}
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) && c.ctx.Err() != nil {
			return entry[T]{}, ErrClosed
		}
		return entry[T]{}, err
	}

	data, err := load(ctx)
	if err != nil {
		return entry[T]{}, err
	}
	e := entry[T]{data: data, createdAt: c.now()}
	c.store(key, e)
	return e, nil
}

// lookup classifies an entry, evicting it when expired. On a local miss the
// shared store is consulted.
func (c *Cache[T]) lookup(key Key) (entry[T], State) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		state := c.classify(e)
		if state == StateEmpty {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return e, state
	}
	c.mu.Unlock()

	e, ok = c.getShared(key)
	if !ok {
		return entry[T]{}, StateEmpty
	}
	state := c.classify(e)
	if state == StateEmpty {
		return entry[T]{}, StateEmpty
	}

	c.mu.Lock()
	if cur, exists := c.entries[key]; !exists || cur.createdAt.Before(e.createdAt) {
		c.entries[key] = e
	}
	c.mu.Unlock()
	return e, state
}

func (c *Cache[T]) classify(e entry[T]) State {
	age := c.now().Sub(e.createdAt)
	switch {
	case age <= c.ttl:
		return StateFresh
	case age <= c.maxStale:
		return StateStale
	default:
		return StateEmpty
	}
}

func (c *Cache[T]) store(key Key, e entry[T]) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	c.setShared(key, e)
}
