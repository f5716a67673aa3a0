package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/secretdb/internal/codec"
	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/filex"
	"github.com/dmitrijs2005/secretdb/internal/store"
)

// storeApp serves the JSON and SQLite backends, which persist ciphertext
// records. The payload codec seals and opens individual secrets; the text
// codec is used only for snapshot envelopes.
type storeApp struct {
	store     store.Store
	codec     codec.Codec
	snapshots codec.TextCodec
}

func (a *storeApp) Add(ctx context.Context, description data.Description, plaintext data.Plaintext, identity data.Identity, meta data.Metadata) (data.SecureEntry, error) {
	e := data.SecureEntry{
		Timestamp:   data.Now(),
		Id:          data.NewEntryId(),
		KeyId:       a.codec.KeyId(),
		Description: description,
		Identity:    identity,
		Plaintext:   plaintext,
		Meta:        meta,
	}
	sealed, err := a.seal(ctx, e)
	if err != nil {
		return data.SecureEntry{}, err
	}
	if err := a.store.Put(ctx, sealed); err != nil {
		return data.SecureEntry{}, err
	}
	return e, nil
}

func (a *storeApp) Lookup(ctx context.Context, description data.Description, identity data.Identity) ([]data.SecureEntry, error) {
	matches, err := a.store.Query(ctx, store.Query{Description: description, Identity: identity})
	if err != nil {
		return nil, err
	}
	return a.openAll(ctx, matches)
}

func (a *storeApp) Modify(ctx context.Context, target Target, upd Update) error {
	matches, err := a.store.Query(ctx, target.query())
	if err != nil {
		return err
	}
	entry, err := selectOne(matches, target)
	if err != nil {
		return err
	}

	secure, err := a.open(ctx, entry)
	if err != nil {
		return err
	}
	sealed, err := a.seal(ctx, applyUpdate(secure, upd))
	if err != nil {
		return err
	}
	return a.store.Put(ctx, sealed)
}

func (a *storeApp) Remove(ctx context.Context, target Target) error {
	matches, err := a.store.Query(ctx, target.query())
	if err != nil {
		return err
	}
	entry, err := selectOne(matches, target)
	if err != nil {
		return err
	}
	return a.store.Remove(ctx, entry)
}

func (a *storeApp) Dump(ctx context.Context) ([]data.SecureEntry, error) {
	all, err := a.store.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	return a.openAll(ctx, all)
}

func (a *storeApp) Import(ctx context.Context, path string) error {
	entries, err := readSnapshot(ctx, a.snapshots, path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		// Imported secrets are re-encrypted to the active key.
		e.KeyId = a.codec.KeyId()
		sealed, err := a.seal(ctx, e)
		if err != nil {
			return err
		}
		if err := a.store.Put(ctx, sealed); err != nil {
			return err
		}
	}
	return nil
}

func (a *storeApp) Export(ctx context.Context, path string) error {
	entries, err := a.Dump(ctx)
	if err != nil {
		return err
	}
	return writeSnapshot(ctx, a.snapshots, path, entries)
}

func (a *storeApp) Sync(ctx context.Context) error { return a.store.Sync(ctx) }

func (a *storeApp) Close() error { return a.store.Close() }

func (a *storeApp) counts(ctx context.Context, keyId data.KeyId) (int, int, error) {
	total, err := a.store.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	ofKey, err := a.store.CountOfKeyId(ctx, keyId)
	if err != nil {
		return 0, 0, err
	}
	return total, ofKey, nil
}

// seal encrypts the plaintext of a record into its persisted form.
func (a *storeApp) seal(ctx context.Context, e data.SecureEntry) (data.Entry, error) {
	ciphertext, err := a.codec.Encrypt(ctx, e.Plaintext)
	if err != nil {
		return data.Entry{}, fmt.Errorf("encrypt %s: %w", e.Id, err)
	}
	return data.Entry{
		Timestamp:   e.Timestamp,
		Id:          e.Id,
		KeyId:       e.KeyId,
		Description: e.Description,
		Identity:    e.Identity,
		Ciphertext:  ciphertext,
		Meta:        e.Meta,
	}, nil
}

// open decrypts a persisted record back into its plaintext form.
func (a *storeApp) open(ctx context.Context, e data.Entry) (data.SecureEntry, error) {
	plaintext, err := a.codec.Decrypt(ctx, e.Ciphertext)
	if err != nil {
		return data.SecureEntry{}, fmt.Errorf("decrypt %s: %w", e.Id, err)
	}
	return data.SecureEntry{
		Timestamp:   e.Timestamp,
		Id:          e.Id,
		KeyId:       e.KeyId,
		Description: e.Description,
		Identity:    e.Identity,
		Plaintext:   plaintext,
		Meta:        e.Meta,
	}, nil
}

func (a *storeApp) openAll(ctx context.Context, entries []data.Entry) ([]data.SecureEntry, error) {
	out := make([]data.SecureEntry, 0, len(entries))
	for _, e := range entries {
		secure, err := a.open(ctx, e)
		if err != nil {
			return nil, err
		}
		out = append(out, secure)
	}
	return out, nil
}

// readSnapshot decrypts and decodes an armored snapshot file, the
// interchange format entries travel in between backends and machines.
func readSnapshot(ctx context.Context, tc codec.TextCodec, path string) ([]data.SecureEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, path, err)
	}
	plain, err := tc.Decrypt(ctx, data.ArmoredCiphertext(raw))
	if err != nil {
		return nil, fmt.Errorf("decrypt snapshot: %w", err)
	}
	return data.DecodeSecureEntries(strings.NewReader(string(plain)))
}

// writeSnapshot encodes and encrypts entries into an armored snapshot
// file.
func writeSnapshot(ctx context.Context, tc codec.TextCodec, path string, entries []data.SecureEntry) error {
	b, err := data.EncodeJSON(entries)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", common.ErrStorage, err)
	}
	armored, err := tc.Encrypt(ctx, data.Plaintext(b))
	if err != nil {
		return fmt.Errorf("encrypt snapshot: %w", err)
	}
	if err := filex.WriteFileAtomic(path, []byte(armored), 0o600); err != nil {
		return fmt.Errorf("%w: write snapshot: %v", common.ErrStorage, err)
	}
	return nil
}
