// Package store is the Storage Engine: transactional persistence of
// chain state, coins, addresses and transaction parameters over an
// embedded, single-threaded SQL database.
package store

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// CurrentSchemaVersion is the compiled schema version this build expects.
// Open fails with ErrSchemaVersion if the on-disk value differs.
const CurrentSchemaVersion = 1

// ParamID enumerates engine-level scalar settings kept in the params
// table, distinct from the per-transaction parameter catalog in
// internal/core.
type ParamID int64

const (
	ParamSchemaVersion ParamID = 1
)

// pragma tuning lifted verbatim from lnd/sqldb/sqlite.go: WAL journaling,
// a busy timeout so short single-threaded transactions never spuriously
// fail under a concurrent reader, and enforced foreign keys.
const dsnPragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)"

// DB is a handle to the storage engine. Exactly one *DB should be open
// against a given path at a time; the underlying sqlite connection pool is
// capped to a single connection so the engine stays configured
// single-threaded even though database/sql is nominally concurrent-safe.
type DB struct {
	sqlDB *sql.DB
	path  string

	stmts map[QueryID]*sql.Stmt
}

// QueryID is the caller-assigned enum index prepared statements are
// cached by: the prepared(query_id, sql) contract.
type QueryID int

// Open opens (and if create is true, initializes) the database at path,
// running schema migrations and validating the schema version parameter.
// Open is idempotent: opening an already-open, up-to-date database is a
// cheap no-op beyond the version check.
func Open(path string, create bool) (*DB, error) {
	if !create {
		// A non-create open refuses a database file that does not exist.
		if _, err := os.Stat(path); err != nil {
			return nil, newErr(ErrNotFound, "wallet database does not exist", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?%s", path, dsnPragmas)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, newErr(ErrDatabase, "opening sqlite database", err)
	}

	// Single-threaded by configuration: one connection means every
	// statement in flight serializes through the driver's mutex, and
	// short transactions never contend with themselves.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := runMigrations(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	d := &DB{
		sqlDB: sqlDB,
		path:  path,
		stmts: make(map[QueryID]*sql.Stmt),
	}

	if err := d.checkSchemaVersion(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return d, nil
}

func runMigrations(sqlDB *sql.DB) error {
	srcDriver, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return newErr(ErrDatabase, "loading embedded migrations", err)
	}

	dbDriver, err := sqlitemigrate.WithInstance(sqlDB, &sqlitemigrate.Config{})
	if err != nil {
		return newErr(ErrDatabase, "constructing migration driver", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "sqlite", dbDriver)
	if err != nil {
		return newErr(ErrDatabase, "constructing migrator", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return newErr(ErrDatabase, "applying migrations", err)
	}

	return nil
}

func (d *DB) checkSchemaVersion() error {
	var current int64
	row := d.sqlDB.QueryRow(
		`SELECT param_int FROM params WHERE id = ?`, int64(ParamSchemaVersion),
	)
	err := row.Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// First open of a fresh database: stamp the compiled version.
		_, err := d.sqlDB.Exec(
			`INSERT INTO params (id, param_int) VALUES (?, ?)`,
			int64(ParamSchemaVersion), int64(CurrentSchemaVersion),
		)
		if err != nil {
			return newErr(ErrDatabase, "stamping schema version", err)
		}
		return nil
	case err != nil:
		return newErr(ErrDatabase, "reading schema version", err)
	}

	if current != CurrentSchemaVersion {
		return newErr(ErrSchemaVersion, fmt.Sprintf(
			"database schema version %d does not match compiled version %d",
			current, CurrentSchemaVersion,
		), nil)
	}
	return nil
}

// Close is idempotent: closing an already-closed DB returns nil.
func (d *DB) Close() error {
	if d.sqlDB == nil {
		return nil
	}
	for _, stmt := range d.stmts {
		stmt.Close()
	}
	d.stmts = nil
	err := d.sqlDB.Close()
	d.sqlDB = nil
	if err != nil {
		return newErr(ErrDatabase, "closing database", err)
	}
	return nil
}

// prepared returns the cached statement for id, preparing it against the
// top-level *sql.DB connection if this is the first call for id: the
// lazy caller-assigned enum index contract. Callers never see the
// *sql.Stmt directly outside this package; within a transaction, use
// (*Tx).stmt to bind the cached statement to the transaction.
func (d *DB) prepared(id QueryID, query string) (*sql.Stmt, error) {
	if stmt, ok := d.stmts[id]; ok {
		return stmt, nil
	}
	stmt, err := d.sqlDB.Prepare(query)
	if err != nil {
		return nil, newErr(ErrDatabase, fmt.Sprintf("preparing query %d", id), err)
	}
	d.stmts[id] = stmt
	return stmt, nil
}
