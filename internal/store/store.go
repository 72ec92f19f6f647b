package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// builder renders SQLite statements for every repository.
var builder = entsql.Dialect(dialect.SQLite)

// querier is satisfied by both *sql.DB and *sql.Tx so repositories can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store holds the database handle and provides access to repositories.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs auto-migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps per-connection pragmas in force and serializes
	// writers the way SQLite expects.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Exams returns the exam repository.
func (s *Store) Exams() ExamRepo { return &examRepo{q: s.db} }

// Attempts returns the attempt repository.
func (s *Store) Attempts() AttemptRepo { return &attemptRepo{q: s.db} }

// Telemetry returns the telemetry repository.
func (s *Store) Telemetry() TelemetryRepo { return &telemetryRepo{q: s.db, seq: s.seq} }

// Results returns the result repository.
func (s *Store) Results() ResultRepo { return &resultRepo{q: s.db} }

// Tags returns the cohort tag repository.
func (s *Store) Tags() TagRepo { return &tagRepo{q: s.db} }

// EventRepo returns the LLM request event repository.
func (s *Store) EventRepo() EventRepo { return &eventRepo{q: s.db, seq: s.seq} }

// Tx exposes repositories bound to one database transaction.
type Tx struct {
	tx  *sql.Tx
	seq *sequenceCounter
}

func (t *Tx) Exams() ExamRepo          { return &examRepo{q: t.tx} }
func (t *Tx) Attempts() AttemptRepo    { return &attemptRepo{q: t.tx} }
func (t *Tx) Telemetry() TelemetryRepo { return &telemetryRepo{q: t.tx, seq: t.seq} }
func (t *Tx) Results() ResultRepo      { return &resultRepo{q: t.tx} }
func (t *Tx) Tags() TagRepo            { return &tagRepo{q: t.tx} }

// InTx runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back otherwise, including on panic.
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: sqlTx, seq: s.seq}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// applyPragmas configures SQLite for a single-process service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. DIAGNOSTICA_DB environment variable
// 2. $XDG_DATA_HOME/diagnostica/diagnostica.db
// 3. ~/.local/share/diagnostica/diagnostica.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("DIAGNOSTICA_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "diagnostica", "diagnostica.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
