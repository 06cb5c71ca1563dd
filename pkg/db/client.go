package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/estore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/estore-backend/pkg/errors"
	"github.com/angelmondragon/estore-backend/pkg/logger"
)

const (
	defaultTxRetries = 3
	defaultTxBackoff = 25 * time.Millisecond
)

// Client owns the shared GORM handle and the transaction retry policy.
type Client struct {
	conn      *gorm.DB
	txRetries uint64
	txBackoff time.Duration
	logg      *logger.Logger
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New opens the configured database. Postgres uses the simple protocol so
// the DSN works behind pgbouncer; sqlite is limited to one connection.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	conn, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}
	if err := configurePool(conn, cfg); err != nil {
		return nil, err
	}

	client := NewFromConn(conn, logg)
	if cfg.TxMaxRetries > 0 {
		client.txRetries = cfg.TxMaxRetries
	}
	if cfg.TxRetryBackoff > 0 {
		client.txBackoff = cfg.TxRetryBackoff
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"driver":     cfg.Driver,
			"tx_retries": client.txRetries,
			"tx_backoff": client.txBackoff.String(),
		}), "database connection established")
	}
	return client, nil
}

// NewFromConn wraps an already opened GORM handle.
func NewFromConn(conn *gorm.DB, logg *logger.Logger) *Client {
	return &Client{
		conn:      conn,
		txRetries: defaultTxRetries,
		txBackoff: defaultTxBackoff,
		logg:      logg,
	}
}

func dialector(cfg config.DBConfig) gorm.Dialector {
	if cfg.IsSQLite() {
		return sqlite.Open(cfg.DSN)
	}
	return postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
}

func configurePool(conn *gorm.DB, cfg config.DBConfig) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return fmt.Errorf("getting sql db handle: %w", err)
	}
	if cfg.IsSQLite() {
		// in-memory sqlite databases live per connection
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	return nil
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

func (c *Client) Ping(ctx context.Context) error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (c *Client) Close() error {
	sqlDB, err := c.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction that rolls back on error or panic.
// Serialization failures and deadlocks replay fn with exponential backoff;
// once the retry budget is spent the failure surfaces as a dependency error.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	attempt := 0
	policy := retry.WithMaxRetries(c.txRetries, retry.NewExponential(c.txBackoff))

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		attempt++
		err := c.conn.WithContext(ctx).Transaction(fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "attempt", attempt), "retrying transaction after serialization conflict")
		}
		return retry.RetryableError(err)
	})
	if err != nil && IsRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transaction retries exhausted")
	}
	return err
}
