package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Client is a database/sql pool bound to one database.
type Client struct {
	db       *sql.DB
	database string
}

// NewClient opens a pool for cfg and, unless SkipPing is set, checks it
// answers within DialTimeout.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}

	db := ch.OpenDB(opts)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if !cfg.SkipPing {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("clickhouse ping %s: %w", opts.Addr[0], err)
		}
	}

	return &Client{db: db, database: cfg.Database}, nil
}

// NewFromDB wraps an existing pool. The caller keeps ownership of db.
func NewFromDB(db *sql.DB, database string) *Client {
	return &Client{db: db, database: database}
}

func (c *Client) DB() *sql.DB {
	return c.db
}

// Database is the database queries are qualified with.
func (c *Client) Database() string {
	return c.database
}

// Table qualifies name with the client's database.
func (c *Client) Table(name string) string {
	if strings.Contains(name, ".") || c.database == "" {
		return name
	}
	return c.database + "." + name
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// InitSchema runs DDL statements in order. Statements must be idempotent.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// InBatch runs fn inside a transaction; clickhouse-go sends the prepared
// insert as one block on commit.
func (c *Client) InBatch(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	if err := fn(stmt); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}
