package app

import (
	"context"

	"github.com/dmitrijs2005/secretdb/internal/codec"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/store"
)

// textApp serves the object-store backend, whose records are already
// plaintext once the store has decrypted their envelopes.
type textApp struct {
	store *store.TextStore
	codec codec.TextCodec
}

func (a *textApp) Add(ctx context.Context, description data.Description, plaintext data.Plaintext, identity data.Identity, meta data.Metadata) (data.SecureEntry, error) {
	e := data.SecureEntry{
		Timestamp:   data.Now(),
		Id:          data.NewEntryId(),
		KeyId:       a.codec.KeyId(),
		Description: description,
		Identity:    identity,
		Plaintext:   plaintext,
		Meta:        meta,
	}
	if err := a.store.Put(ctx, e); err != nil {
		return data.SecureEntry{}, err
	}
	return e, nil
}

func (a *textApp) Lookup(ctx context.Context, description data.Description, identity data.Identity) ([]data.SecureEntry, error) {
	return a.store.Query(ctx, store.Query{Description: description, Identity: identity})
}

func (a *textApp) Modify(ctx context.Context, target Target, upd Update) error {
	matches, err := a.store.Query(ctx, target.query())
	if err != nil {
		return err
	}
	entry, err := selectOne(matches, target)
	if err != nil {
		return err
	}
	return a.store.Put(ctx, applyUpdate(entry, upd))
}

func (a *textApp) Remove(ctx context.Context, target Target) error {
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

func (a *textApp) Dump(ctx context.Context) ([]data.SecureEntry, error) {
	return a.store.SelectAll(ctx)
}

func (a *textApp) Import(ctx context.Context, path string) error {
	entries, err := readSnapshot(ctx, a.codec, path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		e.KeyId = a.codec.KeyId()
		if err := a.store.Put(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (a *textApp) Export(ctx context.Context, path string) error {
	entries, err := a.store.SelectAll(ctx)
	if err != nil {
		return err
	}
	return writeSnapshot(ctx, a.codec, path, entries)
}

func (a *textApp) Sync(ctx context.Context) error { return a.store.Sync(ctx) }

func (a *textApp) Close() error { return a.store.Close() }

func (a *textApp) counts(ctx context.Context, keyId data.KeyId) (int, int, error) {
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
