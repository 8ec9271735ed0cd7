// Package database opens the metadata store (PostgreSQL or SQLite),
// applies embedded migrations and provides a small SQL builder that
// renders placeholders for either dialect.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/docudir-api/internal/config"
)

// Dialect selects the placeholder style and migration set.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// Runner is implemented by both *DB and *Tx so repositories can run the
// same statements inside or outside a transaction.
type Runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Rebind(query string) string
}

// DB wraps a connection pool with its dialect.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Tx wraps a transaction with its dialect.
type Tx struct {
	*sql.Tx
	dialect Dialect
}

// Open connects to the database selected by cfg.
func Open(cfg *config.Config) (*DB, error) {
	switch cfg.Database.Type {
	case "postgres":
		return OpenPostgres(cfg.GetDSN())
	case "sqlite":
		return OpenSQLite(cfg.GetDSN())
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Database.Type)
	}
}

// OpenPostgres opens a PostgreSQL pool through lib/pq and pings it.
func OpenPostgres(dsn string) (*DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &DB{DB: db, dialect: DialectPostgres}, nil
}

// OpenSQLite opens a SQLite database with foreign keys enabled. path can
// be a file path or ":memory:".
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+sqliteOptions(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite serializes writers; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &DB{DB: db, dialect: DialectSQLite}, nil
}

func sqliteOptions(path string) string {
	if path == ":memory:" || strings.Contains(path, "?") {
		return ""
	}
	return "?_journal_mode=WAL&_busy_timeout=5000"
}

// Dialect returns the database dialect.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// Rebind converts '?' placeholders to the dialect's style.
func (db *DB) Rebind(query string) string {
	return rebind(db.dialect, query)
}

// Rebind converts '?' placeholders to the dialect's style.
func (tx *Tx) Rebind(query string) string {
	return rebind(tx.dialect, query)
}

// WithTx runs fn inside a transaction, committing when fn returns nil.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tx := &Tx{Tx: sqlTx, dialect: db.dialect}
	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CheckReady pings the database for the health endpoint.
func (db *DB) CheckReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '\'':
			inQuote = !inQuote
			b.WriteByte(ch)
		case ch == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
