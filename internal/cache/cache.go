// Package cache is a two-tier TTL cache: an in-process map mirrored to a
// durable key-value store so entries survive restarts.
//
// The memory tier is authoritative for the running process. The durable tier
// is best effort; every failure there is logged and treated as a miss or a
// no-op, and a circuit breaker stops dialling it after repeated failures.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// DefaultPrefix namespaces every key written to the durable tier.
const DefaultPrefix = "dashboard_cache_"

// Durable is the persistent mirror. Keys passed in are already prefixed.
type Durable interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// DeleteMatching removes keys under prefix whose unprefixed part contains pattern.
	DeleteMatching(ctx context.Context, prefix, pattern string) error
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

func (e entry) fresh(now time.Time) bool {
	return now.Sub(e.storedAt) <= e.ttl
}

// storedEntry is the durable encoding: {data, timestamp, ttl} in milliseconds.
type storedEntry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
}

type Cache struct {
	mu    sync.Mutex
	items map[string]entry

	// Invalidation watermarks: a durable entry stored at or before a mark
	// covering its key is stale even if the durable delete failed.
	marks     map[string]time.Time
	clearedAt time.Time

	durable Durable
	breaker *gobreaker.CircuitBreaker
	prefix  string
	now     func() time.Time
	log     logrus.FieldLogger
}

type Option func(*Cache)

func WithDurable(d Durable) Option { return func(c *Cache) { c.durable = d } }

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

func WithLogger(l logrus.FieldLogger) Option { return func(c *Cache) { c.log = l } }

func WithPrefix(p string) Option { return func(c *Cache) { c.prefix = p } }

// New builds a cache. Without WithDurable it is memory-only.
func New(opts ...Option) *Cache {
	c := &Cache{
		items:  make(map[string]entry),
		marks:  make(map[string]time.Time),
		prefix: DefaultPrefix,
		now:    time.Now,
		log:    logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cache-durable",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		// a caller giving up says nothing about the store's health
		IsSuccessful: func(err error) bool {
			return err == nil || isContextErr(err)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warnf("[cache][breaker] %s changed from %s to %s", name, from, to)
		},
	})
	return c
}

// Key builds a canonical key: the type alone, or type followed by params
// sorted by name ("tasks:memberId:42").
func Key(kind string, params map[string]string) string {
	if len(params) == 0 {
		return kind
	}
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, k+":"+params[k])
	}
	return kind + ":" + strings.Join(parts, "|")
}

// Set stores value in memory and mirrors it to the durable tier.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	now := c.now()
	c.mu.Lock()
	c.items[key] = entry{value: value, storedAt: now, ttl: ttl}
	c.mu.Unlock()

	if c.durable == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		c.log.Warnf("[cache][set] encode %q: %v", key, err)
		return
	}
	raw, err := json.Marshal(storedEntry{Data: data, Timestamp: now.UnixMilli(), TTL: ttl.Milliseconds()})
	if err != nil {
		c.log.Warnf("[cache][set] encode entry %q: %v", key, err)
		return
	}
	c.durableDo(func() error { return c.durable.Set(ctx, c.prefix+key, raw) }, "set", key)
}

// Get returns a fresh value for key. Memory is checked first, then the
// durable tier; a durable hit is promoted into memory. Expired entries are
// dropped from both tiers.
func Get[T any](ctx context.Context, c *Cache, key string) (T, bool) {
	var zero T

	c.mu.Lock()
	e, ok := c.items[key]
	c.mu.Unlock()

	if !ok {
		e, ok = promote[T](ctx, c, key)
		if !ok {
			return zero, false
		}
	}

	if !e.fresh(c.now()) {
		c.mu.Lock()
		if cur, found := c.items[key]; found && cur.storedAt.Equal(e.storedAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		if c.durable != nil {
			c.durableDo(func() error { return c.durable.Delete(ctx, c.prefix+key) }, "expire", key)
		}
		return zero, false
	}

	v, ok := e.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func promote[T any](ctx context.Context, c *Cache, key string) (entry, bool) {
	if c.durable == nil {
		return entry{}, false
	}
	var raw []byte
	found := false
	c.durableDo(func() error {
		var err error
		raw, found, err = c.durable.Get(ctx, c.prefix+key)
		return err
	}, "get", key)
	if !found {
		return entry{}, false
	}

	var stored storedEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		c.log.Warnf("[cache][get] decode entry %q: %v", key, err)
		return entry{}, false
	}
	var v T
	if err := json.Unmarshal(stored.Data, &v); err != nil {
		c.log.Warnf("[cache][get] decode value %q: %v", key, err)
		return entry{}, false
	}
	e := entry{
		value:    v,
		storedAt: time.UnixMilli(stored.Timestamp),
		ttl:      time.Duration(stored.TTL) * time.Millisecond,
	}
	c.mu.Lock()
	stale := c.invalidatedLocked(key, e.storedAt)
	if !stale {
		if _, exists := c.items[key]; !exists {
			c.items[key] = e
		}
	}
	c.mu.Unlock()
	if stale {
		c.durableDo(func() error { return c.durable.Delete(ctx, c.prefix+key) }, "stale", key)
		return entry{}, false
	}
	return e, true
}

// invalidatedLocked reports whether an entry for key stored at storedAt
// predates an Invalidate or Clear that covers it. c.mu must be held.
func (c *Cache) invalidatedLocked(key string, storedAt time.Time) bool {
	if !c.clearedAt.IsZero() && !storedAt.After(c.clearedAt) {
		return true
	}
	for pattern, at := range c.marks {
		if strings.Contains(key, pattern) && !storedAt.After(at) {
			return true
		}
	}
	return false
}

// Fetch is the read-through path: a fresh cached value, or load() stored
// under ttl. Load errors are returned as-is and nothing is cached.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := Get[T](ctx, c, key); ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(ctx, key, v, ttl)
	return v, nil
}

// Invalidate removes every entry whose key contains pattern.
func (c *Cache) Invalidate(ctx context.Context, pattern string) {
	c.mu.Lock()
	c.marks[pattern] = c.now()
	for k := range c.items {
		if strings.Contains(k, pattern) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()

	if c.durable != nil {
		c.durableDo(func() error { return c.durable.DeleteMatching(ctx, c.prefix, pattern) }, "invalidate", pattern)
	}
}

// Clear drops every entry in both tiers.
func (c *Cache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.marks = make(map[string]time.Time)
	c.clearedAt = c.now()
	c.mu.Unlock()

	if c.durable != nil {
		c.durableDo(func() error { return c.durable.DeletePrefix(ctx, c.prefix) }, "clear", c.prefix)
	}
}

// Len reports the number of entries held in memory, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Close releases the durable tier.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.items = make(map[string]entry)
	c.mu.Unlock()
	if c.durable == nil {
		return nil
	}
	if err := c.durable.Close(); err != nil {
		return fmt.Errorf("close durable cache: %w", err)
	}
	return nil
}

func (c *Cache) durableDo(op func() error, name, key string) {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, op()
	})
	if err == nil {
		return
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) || isContextErr(err) {
		c.log.Debugf("[cache][%s] durable tier skipped for %q: %v", name, key, err)
		return
	}
	c.log.Warnf("[cache][%s] durable tier failed for %q: %v", name, key, err)
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
