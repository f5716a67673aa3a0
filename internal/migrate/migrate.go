// Package migrate upgrades persisted store data across historical schema
// versions. The version source of truth is the plain-text schema marker
// shared by every backend; each upgrade step transforms the whole data
// file or table at once, and the marker is rewritten only after every
// step has succeeded.
package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/dbx"
	"github.com/dmitrijs2005/secretdb/internal/filex"
	"github.com/dmitrijs2005/secretdb/internal/logging"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run reads the schema marker and upgrades the configured backend's data
// to the current version. An up-to-date store is a no-op; a version newer
// than current or without an upgrade path fails with ErrSchema before any
// data is touched.
func Run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	if log == nil {
		log = logging.NopLogger{}
	}

	found, err := data.ReadSchemaVersion(cfg.SchemaFile())
	if err != nil {
		return err
	}
	if found == data.CurrentSchemaVersion {
		return nil
	}
	if found > data.CurrentSchemaVersion {
		return fmt.Errorf("%w: found version %s, newest supported is %s",
			common.ErrSchema, found, data.CurrentSchemaVersion)
	}

	log.Info(ctx, "migrating store data",
		"backend", string(cfg.Backend), "from", found.String(), "to", data.CurrentSchemaVersion.String())

	switch cfg.Backend {
	case config.BackendJSON:
		err = migrateJSON(cfg, found)
	case config.BackendSQLite:
		err = migrateSQLite(ctx, cfg, found)
	case config.BackendText:
		// The text backend appeared at the current version; an older marker
		// next to text data means the directory was produced by something
		// this code does not understand.
		err = fmt.Errorf("%w: no upgrade path for the text backend from version %s",
			common.ErrSchema, found)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return err
	}

	return data.WriteSchemaVersion(cfg.SchemaFile(), data.CurrentSchemaVersion)
}

// pascalToCamel maps the field names of schema v2 JSON files to their v3
// spellings. Unknown keys pass through unchanged.
var pascalToCamel = map[string]string{
	"Timestamp":   "timestamp",
	"Id":          "id",
	"KeyId":       "keyId",
	"Description": "description",
	"Identity":    "identity",
	"Ciphertext":  "ciphertext",
	"Meta":        "meta",
}

func migrateJSON(cfg *config.Config, from data.SchemaVersion) error {
	switch from {
	case 2, 3:
	case 1:
		return fmt.Errorf("%w: version 1 predates the json backend", common.ErrSchema)
	default:
		return fmt.Errorf("%w: no upgrade path from version %s", common.ErrSchema, from)
	}

	path := cfg.DataFile()
	records, err := readRawRecords(path)
	if errors.Is(err, common.ErrNotFound) {
		// Nothing persisted yet; only the marker needs updating.
		return nil
	}
	if err != nil {
		return err
	}

	if from <= 2 {
		for _, rec := range records {
			remapKeys(rec, pascalToCamel)
		}
	}
	for _, rec := range records {
		id, err := json.Marshal(uuid.NewString())
		if err != nil {
			return err
		}
		rec["id"] = id
	}

	b, err := data.EncodeJSON(records)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrStorage, err)
	}
	if err := filex.WriteFileAtomic(path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrStorage, path, err)
	}
	return nil
}

// readRawRecords loads a JSON data file as uninterpreted objects so a
// transform can rewrite keys and ids without knowing the full record
// shape of its era.
func readRawRecords(path string) ([]map[string]json.RawMessage, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, path, err)
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, fmt.Errorf("%w: expected an array of objects: %v", common.ErrFormat, err)
	}
	return records, nil
}

func remapKeys(rec map[string]json.RawMessage, mapping map[string]string) {
	for from, to := range mapping {
		if v, ok := rec[from]; ok {
			delete(rec, from)
			rec[to] = v
		}
	}
}

const createEntriesSQL = `
CREATE TABLE IF NOT EXISTS entries (
    id TEXT PRIMARY KEY NOT NULL,
    keyid TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    description TEXT NOT NULL,
    identity TEXT,
    ciphertext TEXT NOT NULL,
    meta TEXT
)`

func migrateSQLite(ctx context.Context, cfg *config.Config, from data.SchemaVersion) error {
	switch from {
	case 1, 2, 3:
	default:
		return fmt.Errorf("%w: no upgrade path from version %s", common.ErrSchema, from)
	}

	path := cfg.DataFile()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", common.ErrStorage, path, err)
	}
	defer db.Close()

	if from <= 1 {
		if err := sqliteV1ToV2(ctx, db, cfg.KeyId); err != nil {
			return err
		}
	}
	// v2 to v3 changed nothing in the sqlite layout.
	if from <= 3 {
		if err := sqliteV3ToV4(ctx, db); err != nil {
			return err
		}
	}
	return nil
}

// sqliteV1ToV2 rebuilds the entries table with a keyid column, filling it
// with the configured key for every existing row.
func sqliteV1ToV2(ctx context.Context, db *sql.DB, keyId data.KeyId) error {
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE entries RENAME TO entries_v1`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, createEntriesSQL); err != nil {
			return err
		}
		copySQL := `INSERT INTO entries (id, keyid, timestamp, description, identity, ciphertext, meta)
		            SELECT id, ?, timestamp, description, identity, ciphertext, meta FROM entries_v1`
		if _, err := tx.ExecContext(ctx, copySQL, string(keyId)); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DROP TABLE entries_v1`)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: upgrade v1 to v2: %v", common.ErrStorage, err)
	}
	return nil
}

// sqliteV3ToV4 rebuilds the entries table and replaces every
// content-derived id with a fresh random UUID.
func sqliteV3ToV4(ctx context.Context, db *sql.DB) error {
	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `ALTER TABLE entries RENAME TO entries_v3`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, createEntriesSQL); err != nil {
			return err
		}
		copySQL := `INSERT INTO entries (id, keyid, timestamp, description, identity, ciphertext, meta)
		            SELECT id, keyid, timestamp, description, identity, ciphertext, meta FROM entries_v3`
		if _, err := tx.ExecContext(ctx, copySQL); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx, `SELECT id FROM entries`)
		if err != nil {
			return err
		}
		defer rows.Close()

		var oldIds []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			oldIds = append(oldIds, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, oldId := range oldIds {
			if _, err := tx.ExecContext(ctx, `UPDATE entries SET id = ? WHERE id = ?`, uuid.NewString(), oldId); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `DROP TABLE entries_v3`)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: upgrade v3 to v4: %v", common.ErrStorage, err)
	}
	return nil
}
