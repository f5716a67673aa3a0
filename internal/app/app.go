// Package app implements the operations exposed to users: add, lookup,
// modify, remove, dump, and snapshot import/export, uniformly over the
// three storage backends. It owns the policies the stores do not: targets
// must select exactly one entry, and a single-key store rejects a
// configuration whose key does not cover every entry.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/secretdb/internal/codec"
	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/logging"
	"github.com/dmitrijs2005/secretdb/internal/store"
)

// Target selects the single entry a modify or remove operates on, either
// exactly by id or by description substring. Exactly one field is set.
type Target struct {
	EntryId     data.EntryId
	Description data.Description
}

func (t Target) query() store.Query {
	if t.EntryId != "" {
		return store.Query{EntryId: t.EntryId}
	}
	return store.Query{Description: t.Description}
}

func (t Target) String() string {
	if t.EntryId != "" {
		return string(t.EntryId)
	}
	return string(t.Description)
}

// Update carries the field replacements of a modify. Zero-valued fields
// keep the entry's current value.
type Update struct {
	Description data.Description
	Identity    data.Identity
	Plaintext   data.Plaintext
	Meta        data.Metadata
}

// Application is the backend-independent operation surface. All results
// are plaintext records; encryption happens below this interface.
type Application interface {
	// Add creates a new entry and returns it.
	Add(ctx context.Context, description data.Description, plaintext data.Plaintext, identity data.Identity, meta data.Metadata) (data.SecureEntry, error)

	// Lookup returns the decrypted entries matching description and,
	// optionally, identity.
	Lookup(ctx context.Context, description data.Description, identity data.Identity) ([]data.SecureEntry, error)

	// Modify replaces fields of the single entry selected by target. The
	// entry keeps its id; its timestamp is refreshed.
	Modify(ctx context.Context, target Target, upd Update) error

	// Remove deletes the single entry selected by target.
	Remove(ctx context.Context, target Target) error

	// Dump returns every entry, decrypted, oldest first.
	Dump(ctx context.Context) ([]data.SecureEntry, error)

	// Import merges entries from an armored snapshot file into the store.
	Import(ctx context.Context, path string) error

	// Export writes every entry into an armored snapshot file.
	Export(ctx context.Context, path string) error

	// Sync flushes buffered store state.
	Sync(ctx context.Context) error

	// Close releases store resources.
	Close() error
}

// New constructs the Application for the configured backend, creating the
// store on first use and enforcing the single-key policy.
func New(ctx context.Context, cfg *config.Config, c codec.Codec, tc codec.TextCodec, log logging.Logger) (Application, error) {
	if log == nil {
		log = logging.NopLogger{}
	}

	if err := os.MkdirAll(cfg.DBDir(), 0o700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", common.ErrStorage, cfg.DBDir(), err)
	}

	var a Application
	switch cfg.Backend {
	case config.BackendJSON:
		s, err := store.OpenJSON(cfg.DataFile())
		if errors.Is(err, common.ErrNotFound) {
			log.Info(ctx, "creating store", "backend", "json", "path", cfg.DataFile())
			s = store.NewJSON(cfg.DataFile())
		} else if err != nil {
			return nil, err
		}
		a = &storeApp{store: s, codec: c, snapshots: tc}

	case config.BackendSQLite:
		s, err := store.OpenSQLite(ctx, cfg.DataFile())
		if err != nil {
			return nil, err
		}
		a = &storeApp{store: s, codec: c, snapshots: tc}

	case config.BackendText:
		s, err := store.OpenText(ctx, cfg.DataFile(), cfg.ObjectsDir(), tc)
		if errors.Is(err, common.ErrNotFound) {
			log.Info(ctx, "creating store", "backend", "text", "path", cfg.DataFile())
			s = store.NewText(cfg.DataFile(), cfg.ObjectsDir(), tc)
		} else if err != nil {
			return nil, err
		}
		a = &textApp{store: s, codec: tc}

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	if !cfg.AllowMultipleKeys {
		if err := checkSingleKey(ctx, a, cfg.KeyId); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// counter is the count surface shared by both application variants.
type counter interface {
	counts(ctx context.Context, keyId data.KeyId) (total, ofKey int, err error)
}

// checkSingleKey fails when the store holds entries under a key other
// than the configured one.
func checkSingleKey(ctx context.Context, a Application, keyId data.KeyId) error {
	total, ofKey, err := a.(counter).counts(ctx, keyId)
	if err != nil {
		return err
	}
	if total != ofKey {
		return fmt.Errorf("store holds %d entries not encrypted to key %s (set allow_multiple_keys to accept this)",
			total-ofKey, keyId)
	}
	return nil
}

// selectOne resolves a target to exactly one match.
func selectOne[E any](matches []E, target Target) (E, error) {
	var zero E
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("%w: %s", common.ErrNoEntries, target)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%w: %s", common.ErrMultipleEntries, target)
	}
}

// applyUpdate folds an update into an existing plaintext record, keeping
// the id and refreshing the timestamp.
func applyUpdate(e data.SecureEntry, upd Update) data.SecureEntry {
	if upd.Description != "" {
		e.Description = upd.Description
	}
	if upd.Identity != "" {
		e.Identity = upd.Identity
	}
	if upd.Plaintext != "" {
		e.Plaintext = upd.Plaintext
	}
	if upd.Meta != "" {
		e.Meta = upd.Meta
	}
	e.Timestamp = data.Now()
	return e
}
