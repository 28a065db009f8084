// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE?
// Weatherly is a single-user desktop app. Everything it remembers (accounts,
// favorites, recent searches, search logs and settings) fits in one local file
// next to the binary. No server to install, and ":memory:" gives tests a fresh
// database each time.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of the SQLite C code. No C
// compiler needed, so the desktop binary cross-compiles for every OS.
//
// SINGLE-WRITER DISCIPLINE:
// The local UI server handles requests on many goroutines, but SQLite offers no
// concurrency control we want to rely on. New() limits the pool to ONE open
// connection, so every store call is serialized by database/sql itself.
// This also keeps ":memory:" databases alive: each new connection to
// ":memory:" would otherwise see its own empty database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// The sqlite package's init() registers a database/sql driver named "sqlite".
	// It is imported by name for its *sqlite.Error type.
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/weatherly/internal/model"
)

// timeLayout is the fixed-width UTC format every timestamp column uses.
// Fixed width keeps ORDER BY on the TEXT column chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database file and applies connection pragmas.
// Call Initialize before using any repository method.
//
// dbPath examples:
//   - "weatherly.db"  → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: serializes every access and pins ":memory:" databases.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	// Ping verifies the connection actually works.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL keeps the file readable by external tools while the app writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	return &DB{
		conn: conn,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Initialize creates the schema and seeds first-run rows. It is idempotent and
// runs on every process start:
//
//   - all five tables are created IF NOT EXISTS
//   - seed is inserted only when no admin account exists yet
//   - the settings row is inserted with defaults only when missing
//
// seed must already carry a hashed password and RoleAdmin.
func (db *DB) Initialize(ctx context.Context, seed model.Account) error {
	if seed.Role != model.RoleAdmin {
		return fmt.Errorf("sqlite: seed account must be an admin, got %q", seed.Role)
	}

	if err := db.migrate(ctx); err != nil {
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning init transaction: %w", err)
	}
	defer tx.Rollback()

	var admins int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, string(model.RoleAdmin),
	).Scan(&admins); err != nil {
		return fmt.Errorf("sqlite: counting admins: %w", err)
	}

	if admins == 0 {
		// INSERT OR IGNORE: a non-admin row that already owns the seed
		// username must not turn this into a crash on startup.
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO users (username, password, role, created_at)
			 VALUES (?, ?, ?, ?)`,
			seed.Username, seed.PasswordHash, string(model.RoleAdmin), db.timestamp(),
		)
		if err != nil {
			return fmt.Errorf("sqlite: seeding admin %q: %w", seed.Username, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("sqlite: seeding admin: username %q is held by a non-admin account", seed.Username)
		}
	}

	defaults := model.DefaultSettings()
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO settings (id, unit, dynamic_bg) VALUES (1, ?, ?)`,
		string(defaults.Unit), boolToInt(defaults.DynamicBackground),
	); err != nil {
		return fmt.Errorf("sqlite: seeding settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing init: %w", err)
	}
	return nil
}

// migrate creates every table. CREATE TABLE IF NOT EXISTS is safe to re-run.
//
// Table and column names follow the files written by earlier releases
// (users.password, recents.last_temp, ...) so an existing weather.db opens
// unchanged.
func (db *DB) migrate(ctx context.Context) error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				username   TEXT NOT NULL UNIQUE,
				password   TEXT NOT NULL,
				role       TEXT NOT NULL CHECK (role IN ('admin', 'user'))
			)`},
		{"favorites", `
			CREATE TABLE IF NOT EXISTS favorites (
				city       TEXT PRIMARY KEY,
				last_temp  INTEGER NOT NULL DEFAULT 0,
				condition  TEXT NOT NULL DEFAULT '',
				date_added TEXT NOT NULL
			)`},
		{"recents", `
			CREATE TABLE IF NOT EXISTS recents (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				city          TEXT NOT NULL,
				last_temp     INTEGER NOT NULL DEFAULT 0,
				time_searched TEXT NOT NULL
			)`},
		// One timestamp column. The old schema declared it twice.
		{"logs", `
			CREATE TABLE IF NOT EXISTS logs (
				id        INTEGER PRIMARY KEY AUTOINCREMENT,
				username  TEXT NOT NULL,
				timestamp TEXT NOT NULL,
				city      TEXT NOT NULL,
				temp      INTEGER NOT NULL DEFAULT 0
			)`},
		{"logs index", `CREATE INDEX IF NOT EXISTS idx_logs_username ON logs(username)`},
		{"settings", `
			CREATE TABLE IF NOT EXISTS settings (
				id         INTEGER PRIMARY KEY CHECK (id = 1),
				unit       TEXT NOT NULL DEFAULT 'C',
				dynamic_bg INTEGER NOT NULL DEFAULT 1
			)`},
	}

	for _, st := range statements {
		if _, err := db.conn.ExecContext(ctx, st.sql); err != nil {
			return fmt.Errorf("creating %s table: %w", st.name, err)
		}
	}

	// Older files have no created_at on users.
	if err := db.addColumnIfNotExists(ctx, "users", "created_at", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding created_at to users: %w", err)
	}
	return nil
}

// addColumnIfNotExists adds a column to a table only if it doesn't already exist.
// Makes ALTER TABLE migrations idempotent, safe to run multiple times.
func (db *DB) addColumnIfNotExists(ctx context.Context, table, column, definition string) error {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`,
		table, column,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("checking column %s.%s: %w", table, column, err)
	}
	if count > 0 {
		return nil
	}
	_, err = db.conn.ExecContext(ctx, fmt.Sprintf(
		`ALTER TABLE %s ADD COLUMN %s %s`, table, column, definition,
	))
	return err
}

// timestamp returns the current time in the storage layout.
func (db *DB) timestamp() string {
	return db.now().UTC().Format(timeLayout)
}

// parseTimestamp reads a stored timestamp. Rows written by older releases use
// microsecond isoformat or "YYYY-MM-DD HH:MM:SS", so those are accepted too.
// Unparseable or empty values become the zero time rather than failing the
// whole listing.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{
		timeLayout,
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// isUniqueViolation reports whether err is SQLite's UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
