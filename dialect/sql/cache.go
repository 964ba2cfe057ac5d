package sql

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"

	"github.com/syssam/sqldialect/dialect"
)

// Cache is the interface for caching query results.
// Users should implement this interface with their preferred caching solution
// (e.g., Redis, Memcached, in-memory).
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns nil, nil if the key doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with an optional TTL.
	// If ttl is 0, the value should not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes all values with the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

type memoryItem struct {
	value   []byte
	expires time.Time
}

// MemoryCache is an in-process Cache. It is safe for concurrent use.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[key]
	if !ok {
		return nil, nil
	}
	if !it.expires.IsZero() && !c.now().Before(it.expires) {
		delete(c.items, key)
		return nil, nil
	}
	return bytes.Clone(it.value), nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := memoryItem{value: bytes.Clone(value)}
	if ttl > 0 {
		it.expires = c.now().Add(ttl)
	}
	c.items[key] = it
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// DeletePrefix implements Cache.
func (c *MemoryCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
		}
	}
	return nil
}

// Clear implements Cache.
func (c *MemoryCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.items)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ResultSet is a fully read query result.
type ResultSet struct {
	Columns []string `msgpack:"columns"`
	Rows    [][]any  `msgpack:"rows"`
}

// Maps returns the rows as column name to value maps.
func (r *ResultSet) Maps() []map[string]any {
	out := make([]map[string]any, len(r.Rows))
	for i, row := range r.Rows {
		m := make(map[string]any, len(r.Columns))
		for j, c := range r.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

// QueryCache caches the results of rendered statements. Built statements are
// deterministic for a dialect, so the statement text and its arguments are
// the cache key. Concurrent misses of one key run a single query.
type QueryCache struct {
	drv    dialect.Driver
	cache  Cache
	ttl    time.Duration
	prefix string
	group  singleflight.Group
}

// CacheOption configures the QueryCache.
type CacheOption func(*QueryCache)

// WithTTL sets the lifetime of cached results. Zero means no expiry.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *QueryCache) {
		c.ttl = ttl
	}
}

// WithKeyPrefix sets the prefix of the cache keys. Default is "sqldialect:".
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *QueryCache) {
		c.prefix = prefix
	}
}

// NewQueryCache returns a QueryCache reading through drv.
func NewQueryCache(drv dialect.Driver, cache Cache, opts ...CacheOption) *QueryCache {
	c := &QueryCache{drv: drv, cache: cache, prefix: "sqldialect:"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CachedQuery runs a single cached query. See QueryCache.Query.
func CachedQuery(ctx context.Context, drv dialect.Driver, cache Cache, query string, args []any, ttl time.Duration) (*ResultSet, error) {
	return NewQueryCache(drv, cache, WithTTL(ttl)).Query(ctx, query, args)
}

// Key returns the cache key of a statement.
func (c *QueryCache) Key(query string, args []any) (string, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		v, err := plainValue(arg)
		if err != nil {
			return "", err
		}
		values[i] = v
	}
	encoded, err := msgpack.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("dialect/sql: encode cache key: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write(encoded)
	return c.prefix + c.drv.Dialect() + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// plainValue reduces driver.Valuer arguments to their driver values.
func plainValue(v any) (any, error) {
	if valuer, ok := v.(driver.Valuer); ok {
		dv, err := valuer.Value()
		if err != nil {
			return nil, fmt.Errorf("dialect/sql: cache key value: %w", err)
		}
		return dv, nil
	}
	return v, nil
}

// Query returns the result of the statement, from the cache when present.
// Failures of the cache itself, including entries that cannot be decoded,
// are logged and fall through to the database.
//
// Concurrent misses for one key share a single database query. The shared
// query does not inherit the cancellation of any caller; each caller stops
// waiting when its own context is done.
func (c *QueryCache) Query(ctx context.Context, query string, args []any) (*ResultSet, error) {
	key, err := c.Key(query, args)
	if err != nil {
		return nil, err
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "query cache get failed", "key", key, "error", err)
	}
	if data != nil {
		rs, err := decodeResultSet(data)
		if err == nil {
			return rs, nil
		}
		slog.WarnContext(ctx, "query cache entry dropped", "key", key, "error", err)
		if err := c.cache.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "query cache delete failed", "key", key, "error", err)
		}
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		return c.load(loadCtx, key, query, args)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("dialect/sql: query: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return decodeResultSet(res.Val.([]byte))
	}
}

// load runs the query and stores its encoded result.
func (c *QueryCache) load(ctx context.Context, key, query string, args []any) ([]byte, error) {
	var rows Rows
	if err := c.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	rs, err := readResultSet(rows)
	if err != nil {
		return nil, err
	}
	data, err := msgpack.Marshal(rs)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: encode result: %w", err)
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		slog.WarnContext(ctx, "query cache set failed", "key", key, "error", err)
	}
	return data, nil
}

// Invalidate drops all the results cached under the key prefix.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	return c.cache.DeletePrefix(ctx, c.prefix)
}

func readResultSet(rows Rows) (_ *ResultSet, rerr error) {
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: columns: %w", err)
	}
	rs := &ResultSet{Columns: columns, Rows: [][]any{}}
	for rows.Next() {
		values, err := scanRow(rows, len(columns))
		if err != nil {
			return nil, err
		}
		rs.Rows = append(rs.Rows, values)
	}
	return rs, rows.Err()
}

func decodeResultSet(data []byte) (*ResultSet, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	rs := &ResultSet{}
	if err := dec.Decode(rs); err != nil {
		return nil, fmt.Errorf("dialect/sql: decode result: %w", err)
	}
	if rs.Rows == nil {
		rs.Rows = [][]any{}
	}
	return rs, nil
}
