package dawnorm

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/syssam/dawnorm/dialect"
)

// Client groups a shared ExecQuerier with the settings applied to every
// DbSet created from it. A Client is safe for concurrent use when its
// ExecQuerier is.
type Client struct {
	driver   dialect.ExecQuerier
	logger   *slog.Logger
	cache    Cache
	cacheTTL time.Duration

	mu          sync.Mutex
	generations map[string]uint64 // bumped by every write to a table
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for statement logging. Statements are
// logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCache enables result caching of reads. Every write through a DbSet
// invalidates the cached reads of its table, and a read that overlaps a
// write on the same Client is not stored. Writes through other clients or
// processes are not seen; bound staleness with ttl.
func WithCache(cache Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cache
		c.cacheTTL = ttl
	}
}

// NewClient creates a Client over drv.
func NewClient(drv dialect.ExecQuerier, opts ...Option) *Client {
	c := &Client{driver: drv, generations: make(map[string]uint64)}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c
}

// Driver returns the underlying ExecQuerier.
func (c *Client) Driver() dialect.ExecQuerier { return c.driver }

// Close closes the underlying driver if it can be closed.
func (c *Client) Close() error {
	if cl, ok := c.driver.(io.Closer); ok {
		return cl.Close()
	}
	return nil
}

func (c *Client) generation(table string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[table]
}

// store caches value under key unless table was written since gen was
// read. The lock is held across Set so that a concurrent invalidation
// either prevents the store or deletes it afterwards.
func (c *Client) store(ctx context.Context, table string, gen uint64, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[table] != gen {
		return nil
	}
	return c.cache.Set(ctx, key, value, c.cacheTTL)
}

func (c *Client) invalidate(ctx context.Context, table string) error {
	c.mu.Lock()
	c.generations[table]++
	c.mu.Unlock()
	return c.cache.DeletePrefix(ctx, TablePrefix(table))
}

// Set returns a new DbSet of T over table. It is the usual way generated
// code exposes record sets:
//
//	func Posts(c *dawnorm.Client) *dawnorm.DbSet[Post, *Post] {
//	    return dawnorm.Set[Post](c, PostTable)
//	}
func Set[T any, P EntityPtr[T]](c *Client, table string) *DbSet[T, P] {
	return &DbSet[T, P]{client: c, table: table}
}

// NewDbSet returns a new DbSet of T over table using a bare ExecQuerier.
func NewDbSet[T any, P EntityPtr[T]](q dialect.ExecQuerier, table string) *DbSet[T, P] {
	return Set[T, P](NewClient(q), table)
}

// Params collects filter parameters.
//
//	posts.Filter("title = $1 OR id = $2", dawnorm.Params("hello", 1)...)
func Params(args ...any) []any {
	return args
}
