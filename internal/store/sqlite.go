package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/dbx"
	"github.com/dmitrijs2005/secretdb/internal/store/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in a single-table SQLite database. Every
// operation executes immediately, so Sync has nothing to flush.
type SQLiteStore struct {
	db *sql.DB
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and brings the
// database to the current table layout. It is idempotent on an
// already-current database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// OpenSQLite opens (creating if necessary) the database at dsn and ensures
// the current table layout exists.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStorage, dsn, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", common.ErrStorage, dsn, err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	return &SQLiteStore{db: db}, nil
}

// DB exposes the underlying handle for the migration engine.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Put(ctx context.Context, e data.Entry) error {
	query := `INSERT OR REPLACE INTO entries (id, keyid, timestamp, description, identity, ciphertext, meta)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		string(e.Id), string(e.KeyId), e.Timestamp.String(), string(e.Description),
		nullable(string(e.Identity)), e.Ciphertext.ToBase64(), nullable(string(e.Meta)))
	if err != nil {
		return fmt.Errorf("%w: insert entry: %v", common.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, e data.Entry) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = ?`, string(e.Id))
	if err != nil {
		return fmt.Errorf("%w: delete entry: %v", common.ErrStorage, err)
	}
	return nil
}

func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]data.Entry, error) {
	if q.IsEmpty() {
		return nil, nil
	}

	query := `SELECT id, keyid, timestamp, description, identity, ciphertext, meta FROM entries WHERE 1=1`
	var args []any
	if q.EntryId != "" {
		query += ` AND id = ?`
		args = append(args, string(q.EntryId))
	}
	if q.Description != "" {
		query += ` AND instr(lower(description), lower(?)) > 0`
		args = append(args, string(q.Description))
	}
	if q.Identity != "" {
		query += ` AND identity IS NOT NULL AND instr(lower(identity), lower(?)) > 0`
		args = append(args, string(q.Identity))
	}
	if q.Meta != "" {
		query += ` AND meta IS NOT NULL AND instr(lower(meta), lower(?)) > 0`
		args = append(args, string(q.Meta))
	}
	query += ` ORDER BY timestamp ASC, id ASC`

	return s.selectEntries(ctx, s.db, query, args...)
}

func (s *SQLiteStore) SelectAll(ctx context.Context) ([]data.Entry, error) {
	query := `SELECT id, keyid, timestamp, description, identity, ciphertext, meta FROM entries
	          ORDER BY timestamp ASC, id ASC`
	return s.selectEntries(ctx, s.db, query)
}

func (s *SQLiteStore) selectEntries(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]data.Entry, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select entries: %v", common.ErrStorage, err)
	}
	defer rows.Close()

	var result []data.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: select entries: %v", common.ErrStorage, err)
	}
	return result, nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries: %v", common.ErrStorage, err)
	}
	return n, nil
}

func (s *SQLiteStore) CountOfKeyId(ctx context.Context, keyId data.KeyId) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries WHERE keyid = ?`, string(keyId)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count entries: %v", common.ErrStorage, err)
	}
	return n, nil
}

// Sync is a no-op; every mutation is already durable.
func (s *SQLiteStore) Sync(ctx context.Context) error {
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanEntry converts one result row into an Entry, decoding the base64
// ciphertext column and the canonical timestamp string.
func scanEntry(rows *sql.Rows) (data.Entry, error) {
	var (
		id, keyId, ts, description, ciphertext string
		identity, meta                         sql.NullString
	)
	if err := rows.Scan(&id, &keyId, &ts, &description, &identity, &ciphertext, &meta); err != nil {
		return data.Entry{}, fmt.Errorf("%w: scan entry: %v", common.ErrStorage, err)
	}

	timestamp, err := data.ParseTimestamp(ts)
	if err != nil {
		return data.Entry{}, err
	}
	c, err := data.CiphertextFromBase64(ciphertext)
	if err != nil {
		return data.Entry{}, err
	}

	return data.Entry{
		Timestamp:   timestamp,
		Id:          data.EntryId(id),
		KeyId:       data.KeyId(keyId),
		Description: data.Description(description),
		Identity:    data.Identity(identity.String),
		Ciphertext:  c,
		Meta:        data.Metadata(meta.String),
	}, nil
}

// nullable maps the empty string to NULL so optional columns round-trip
// as "absent" rather than "".
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
