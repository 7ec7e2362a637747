// Package database wraps the Postgres connection pool and the transaction-in-context convention
// the repositories rely on.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Executor is the query surface shared by the pool and an open transaction
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
}

// DB is the pool handle handed to repositories
type DB interface {
	Executor
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
	// SQL returns the underlying pool for tools such as migrate
	SQL() *sql.DB
	// Executor returns the transaction bound to ctx, or the pool when there is none
	Executor(ctx context.Context) Executor
	// RunInTx runs fn inside a transaction, joining one already bound to ctx
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error
}

// Config holds connection settings
type Config struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the lib/pq connection string
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
}

// Open connects and verifies the pool
func Open(ctx context.Context, cfg Config, logger ectologger.Logger) (DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	db, err := sqlx.ConnectContext(ctx, driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database %s: %w", cfg.Name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return NewDatabaseInstance(db, logger), nil
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
	}
}

func (db *DatabaseInstance) SQL() *sql.DB {
	return db.DB.DB
}

func (db *DatabaseInstance) Executor(ctx context.Context) Executor {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return db.DB
}

func (db *DatabaseInstance) RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context) error) error {
	return RunInTx(ctx, db.logger, db, opts, fn)
}
