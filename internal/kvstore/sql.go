package kvstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sushihentaime/markpress/internal/common"
)

//go:embed migrations
var migrations embed.FS

type dialect struct {
	name       string
	driver     string
	migrations string

	get      string
	set      string
	del      string
	scan     string
	scanFrom string
}

var postgresDialect = dialect{
	name:       "postgres",
	driver:     "postgres",
	migrations: "migrations/postgres",
	get:        `SELECT value FROM kv WHERE key = $1`,
	set:        `INSERT INTO kv (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
	del:        `DELETE FROM kv WHERE key = $1`,
	scan:       `SELECT key, value FROM kv WHERE key >= $1 AND key < $2 ORDER BY key`,
	scanFrom:   `SELECT key, value FROM kv WHERE key >= $1 ORDER BY key`,
}

var sqliteDialect = dialect{
	name:       "sqlite",
	driver:     "sqlite",
	migrations: "migrations/sqlite",
	get:        `SELECT value FROM kv WHERE key = ?`,
	set:        `INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
	del:        `DELETE FROM kv WHERE key = ?`,
	scan:       `SELECT key, value FROM kv WHERE key >= ? AND key < ? ORDER BY key`,
	scanFrom:   `SELECT key, value FROM kv WHERE key >= ? ORDER BY key`,
}

// SQLStore keeps pairs in a single two-column table. Both dialects compare
// keys bytewise so range scans come back in the same order as the other
// backends.
type SQLStore struct {
	db *sql.DB
	d  dialect
}

// OpenPostgresStore migrates the schema and returns a store backed by the
// database at dsn.
func OpenPostgresStore(dsn string) (*SQLStore, error) {
	return openSQLStore(postgresDialect, dsn, 25, 25, 15*time.Minute)
}

// OpenSQLiteStore migrates the schema and returns a store backed by the
// database file at path.
func OpenSQLiteStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, ErrFilePathIsBlank
	}
	// sqlite serialises writers; a single connection avoids SQLITE_BUSY
	return openSQLStore(sqliteDialect, path, 1, 1, 0)
}

func openSQLStore(d dialect, dsn string, maxOpen, maxIdle int, maxIdleTime time.Duration) (*SQLStore, error) {
	if err := migrateUp(d, dsn); err != nil {
		return nil, fmt.Errorf("kvstore: migrate %s: %w", d.name, err)
	}

	db, err := common.OpenDB(d.driver, dsn, maxOpen, maxIdle, maxIdleTime)
	if err != nil {
		return nil, err
	}

	return &SQLStore{db: db, d: d}, nil
}

// migrateUp runs on its own connection because closing a migrate instance
// closes the database handle it was given.
func migrateUp(d dialect, dsn string) error {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return err
	}

	var drv database.Driver
	switch d.name {
	case "postgres":
		drv, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite":
		drv, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		err = fmt.Errorf("unknown dialect %q", d.name)
	}
	if err != nil {
		db.Close()
		return err
	}

	src, err := iofs.New(migrations, d.migrations)
	if err != nil {
		drv.Close()
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, d.name, drv)
	if err != nil {
		drv.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, storeError("get", key, err)
	}

	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx, s.d.set, key, value)
	return storeError("set", key, err)
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.d.del, key)
	return storeError("delete", key, err)
}

func (s *SQLStore) Scan(ctx context.Context, prefix string) ([]KeyValue, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if end := prefixEnd(prefix); end != "" {
		rows, err = s.db.QueryContext(ctx, s.d.scan, prefix, end)
	} else {
		rows, err = s.db.QueryContext(ctx, s.d.scanFrom, prefix)
	}
	if err != nil {
		return nil, storeError("scan", prefix, err)
	}
	defer rows.Close()

	var kvs []KeyValue
	for rows.Next() {
		var kv KeyValue
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, storeError("scan", prefix, err)
		}
		kvs = append(kvs, kv)
	}

	if err := rows.Err(); err != nil {
		return nil, storeError("scan", prefix, err)
	}

	return kvs, nil
}

func (s *SQLStore) Close() error {
	return common.CloseDB(s.db)
}
