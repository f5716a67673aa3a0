// Package store implements the three persistence backends of the secret
// store behind one contract: a whole-file JSON store, a SQLite store, and
// a content-addressed encrypted object store. The backends are a closed
// set; the application layer selects one through the config.Backend enum.
package store

import (
	"context"

	"github.com/dmitrijs2005/secretdb/internal/data"
)

// Store is the contract shared by the JSON and SQLite backends. The text
// backend exposes the same operation set over SecureEntry (see TextStore);
// its records only exist decrypted.
//
// Universal semantics:
//   - Put is insert-or-replace by id and never fails on "already exists".
//   - Remove is idempotent; removing an absent entry is not an error.
//   - Query returns zero or more matches; zero matches is not an error,
//     and an empty query matches nothing (SelectAll is the dump path).
//   - Sync flushes buffered state and is safe to call when nothing
//     changed.
type Store interface {
	Put(ctx context.Context, e data.Entry) error
	Remove(ctx context.Context, e data.Entry) error
	Query(ctx context.Context, q Query) ([]data.Entry, error)
	SelectAll(ctx context.Context) ([]data.Entry, error)
	Count(ctx context.Context) (int, error)
	CountOfKeyId(ctx context.Context, keyId data.KeyId) (int, error)
	Sync(ctx context.Context) error
	Close() error
}
