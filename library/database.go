package library

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dialect builds the dynamic listing queries.
var dialect = goqu.Dialect("sqlite3")

// Database is the Entity Store: a SQLite file holding books, members, loans,
// fines and user accounts.
type Database struct {
	db *sqlx.DB
}

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	// Immediate transactions take the write lock at BEGIN, so the checks made
	// inside a rule-engine transaction cannot be invalidated by another writer.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dbPath)
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return &Database{db: db}, nil
}

// Close closes the DB.
func (d *Database) Close() error {
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

// goose keeps its configuration in package globals.
var gooseMu sync.Mutex

func applyMigrations(db *sql.DB) error {
	// WAL improves write concurrency.
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(context.Background(), db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Transactions
// ---------------------------------------------------------------------------

// Store runs queries against either the database or an open transaction.
type Store struct {
	q sqlx.ExtContext
}

// Store returns a Store that runs each statement on its own.
func (d *Database) Store() *Store {
	return &Store{q: d.db}
}

// InTx runs fn inside one transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d *Database) InTx(ctx context.Context, fn func(s *Store) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Store) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, s.q, dest, query, args...)
}

func (s *Store) selectAll(ctx context.Context, dest any, ds *goqu.SelectDataset) error {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, s.q, dest, query, args...)
}

func (s *Store) selectRaw(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, s.q, dest, query, args...)
}

func (s *Store) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapConstraint(err)
	}
	return res.LastInsertId()
}

// exec runs a statement that must touch exactly one row.
func (s *Store) exec(ctx context.Context, notFound error, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := s.get(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := s.get(ctx, &ok, "SELECT EXISTS("+query+")", args...); err != nil {
		return false, err
	}
	return ok, nil
}

// mapConstraint turns SQLite unique violations into ErrDuplicate.
func mapConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %s", ErrDuplicate, sqliteErr.Error())
	}
	return err
}

// notFound maps sql.ErrNoRows to target.
func notFound(err, target error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return target
	}
	return err
}

// stamp normalizes timestamps before they are stored or compared.
func stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// foldKey is the stored form of case-insensitive identifiers such as
// usernames and emails. strings.ToLower folds beyond ASCII, which NOCASE does not.
func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// searchText joins the searchable fields of a row into the lowercased
// search_text column. Fields are newline-separated so a term never spans two.
func searchText(fields ...string) string {
	for i, f := range fields {
		fields[i] = foldKey(f)
	}
	return strings.Join(fields, "\n")
}

// likeFolded matches the search_text column against term as a substring.
func likeFolded(term string) goqu.Expression {
	return likeEscaped("search_text", "%"+escapeLike(foldKey(term))+"%")
}
