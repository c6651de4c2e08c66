// Package warehouse wraps the Snowflake connection shared by all request
// handlers. One *sql.DB handle is cached process-wide; it is dropped when a
// query fails with an authentication error so the next call re-authenticates.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"golang.org/x/sync/singleflight"

	"github.com/growthinsights/trialscope/internal/config"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Querier is the read-side interface services depend on.
// Implementations must be safe for concurrent use.
type Querier interface {
	// Query executes one statement with bound arguments and returns its rows.
	// The returned slice is never nil; zero matching rows yield an empty slice.
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
}

// Client implements Querier against Snowflake with a cached connection handle.
type Client struct {
	cfg config.SnowflakeConfig

	// open is swapped out in tests.
	open func(ctx context.Context) (*sql.DB, error)

	mu sync.RWMutex
	db *sql.DB

	// connect collapses concurrent (re)connect attempts into one dial, so a
	// burst of auth failures cannot cause a reconnect storm.
	connect singleflight.Group
}

// NewClient creates a Client. No connection is established until the first
// query or ping.
func NewClient(cfg config.SnowflakeConfig) *Client {
	c := &Client{cfg: cfg}
	c.open = c.openSnowflake
	return c
}

func (c *Client) openSnowflake(ctx context.Context) (*sql.DB, error) {
	sfCfg := &gosnowflake.Config{
		Account:   c.cfg.Account,
		User:      c.cfg.User,
		Password:  c.cfg.Password,
		Warehouse: c.cfg.Warehouse,
		Database:  c.cfg.Database,
		Schema:    c.cfg.Schema,
		Role:      c.cfg.Role,
	}
	if c.cfg.Authenticator == "externalbrowser" {
		sfCfg.Authenticator = gosnowflake.AuthTypeExternalBrowser
	}

	dsn, err := gosnowflake.DSN(sfCfg)
	if err != nil {
		return nil, fmt.Errorf("build snowflake DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake: %w", err)
	}
	db.SetConnMaxIdleTime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping snowflake: %w", err)
	}

	return db, nil
}

// acquire returns the cached handle, establishing one if necessary.
func (c *Client) acquire(ctx context.Context) (*sql.DB, error) {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()
	if db != nil {
		return db, nil
	}

	v, err, _ := c.connect.Do("connect", func() (any, error) {
		c.mu.RLock()
		cached := c.db
		c.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}

		opened, err := c.open(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.db = opened
		c.mu.Unlock()
		slog.Info("warehouse connection established", "account", c.cfg.Account, "database", c.cfg.Database)
		return opened, nil
	})
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}
	return v.(*sql.DB), nil
}

// Query executes one statement and returns its rows. On an authentication
// failure the cached handle is dropped so the next call re-authenticates.
func (c *Client) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	db, err := c.acquire(ctx)
	if err != nil {
		return nil, err
	}

	if c.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.QueryTimeout)
		defer cancel()
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		if IsAuthError(err) {
			slog.Warn("warehouse authentication failure, dropping cached connection", "error", err)
			c.invalidate(db)
		}
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Ping verifies the cached connection (or establishes one).
func (c *Client) Ping(ctx context.Context) error {
	db, err := c.acquire(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// Invalidate drops the cached connection handle unconditionally. The next
// query re-authenticates.
func (c *Client) Invalidate() {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.mu.Unlock()
	if db != nil {
		db.Close()
	}
}

// invalidate drops the cached handle only if it is still the one the failing
// query used. A stale failure must not tear down a newer, healthy handle.
func (c *Client) invalidate(stale *sql.DB) {
	c.mu.Lock()
	if c.db != stale {
		c.mu.Unlock()
		return
	}
	c.db = nil
	c.mu.Unlock()
	stale.Close()
}

// Close releases the cached connection on shutdown.
func (c *Client) Close() {
	c.Invalidate()
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := make([]Row, 0)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalize(vals[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalize converts driver byte slices to strings so rows marshal to JSON
// as text rather than base64.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

var _ Querier = (*Client)(nil)
