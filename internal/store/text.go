package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dmitrijs2005/secretdb/internal/codec"
	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/filex"
)

// objectExt is the suffix of armored object files.
const objectExt = ".asc"

// TextStore is the content-addressed backend: every entry lives in its own
// armored encrypted object file, and an armored encrypted index carries
// the searchable projection of each live object. Mutations rewrite the
// index eagerly, with the index rewrite as the commit point, so Sync has
// nothing to flush.
type TextStore struct {
	indexPath  string
	objectsDir string
	codec      codec.TextCodec
	elements   map[data.EntryId]data.IndexElement
}

// NewText returns an empty store over the given index file and objects
// directory. Nothing is written until the first Put.
func NewText(indexPath, objectsDir string, tc codec.TextCodec) *TextStore {
	return &TextStore{
		indexPath:  indexPath,
		objectsDir: objectsDir,
		codec:      tc,
		elements:   make(map[data.EntryId]data.IndexElement),
	}
}

// OpenText loads an existing store by decrypting its index. A missing
// index file is ErrNotFound.
func OpenText(ctx context.Context, indexPath, objectsDir string, tc codec.TextCodec) (*TextStore, error) {
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, indexPath)
		}
		return nil, fmt.Errorf("%w: read %s: %v", common.ErrStorage, indexPath, err)
	}

	plain, err := tc.Decrypt(ctx, data.ArmoredCiphertext(raw))
	if err != nil {
		return nil, fmt.Errorf("decrypt index: %w", err)
	}
	elements, err := data.DecodeIndex(strings.NewReader(string(plain)))
	if err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}

	s := &TextStore{
		indexPath:  indexPath,
		objectsDir: objectsDir,
		codec:      tc,
		elements:   make(map[data.EntryId]data.IndexElement, len(elements)),
	}
	for _, el := range elements {
		s.elements[el.EntryId] = el
	}
	return s, nil
}

func (s *TextStore) objectPath(id data.EntryId) string {
	return filepath.Join(s.objectsDir, string(id)+objectExt)
}

// writeIndex encrypts and atomically rewrites the index file from the
// in-memory element set, ordered by entry id for a stable layout.
func (s *TextStore) writeIndex(ctx context.Context) error {
	elements := make([]data.IndexElement, 0, len(s.elements))
	for _, el := range s.elements {
		elements = append(elements, el)
	}
	sort.Slice(elements, func(i, j int) bool { return elements[i].EntryId < elements[j].EntryId })

	b, err := data.EncodeJSON(elements)
	if err != nil {
		return fmt.Errorf("%w: encode index: %v", common.ErrStorage, err)
	}
	armored, err := s.codec.Encrypt(ctx, data.Plaintext(b))
	if err != nil {
		return fmt.Errorf("encrypt index: %w", err)
	}
	if err := filex.WriteFileAtomic(s.indexPath, []byte(armored), 0o600); err != nil {
		return fmt.Errorf("%w: write index: %v", common.ErrStorage, err)
	}
	return nil
}

// Put writes the object file first and commits by rewriting the index. A
// crash between the two leaves an orphan object, never a dangling index
// element.
func (s *TextStore) Put(ctx context.Context, e data.SecureEntry) error {
	b, err := data.EncodeJSON(e)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", common.ErrStorage, err)
	}
	armored, err := s.codec.Encrypt(ctx, data.Plaintext(b))
	if err != nil {
		return fmt.Errorf("encrypt entry: %w", err)
	}
	if err := filex.WriteFileAtomic(s.objectPath(e.Id), []byte(armored), 0o600); err != nil {
		return fmt.Errorf("%w: write object: %v", common.ErrStorage, err)
	}

	s.elements[e.Id] = e.IndexElement()
	if err := s.writeIndex(ctx); err != nil {
		delete(s.elements, e.Id)
		return err
	}
	return nil
}

// Remove drops the entry from the index first, then unlinks the object.
// Removing an absent entry is a no-op.
func (s *TextStore) Remove(ctx context.Context, e data.SecureEntry) error {
	el, ok := s.elements[e.Id]
	if !ok {
		return nil
	}

	delete(s.elements, e.Id)
	if err := s.writeIndex(ctx); err != nil {
		s.elements[e.Id] = el
		return err
	}
	if err := os.Remove(s.objectPath(e.Id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: remove object: %v", common.ErrStorage, err)
	}
	return nil
}

// load decrypts the object of one indexed entry. An index element whose
// object file is missing is ErrIntegrity.
func (s *TextStore) load(ctx context.Context, id data.EntryId) (data.SecureEntry, error) {
	raw, err := os.ReadFile(s.objectPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return data.SecureEntry{}, fmt.Errorf("%w: object %s is indexed but missing", common.ErrIntegrity, id)
		}
		return data.SecureEntry{}, fmt.Errorf("%w: read object %s: %v", common.ErrStorage, id, err)
	}
	plain, err := s.codec.Decrypt(ctx, data.ArmoredCiphertext(raw))
	if err != nil {
		return data.SecureEntry{}, fmt.Errorf("decrypt object %s: %w", id, err)
	}
	e, err := data.SecureEntryFromJSON([]byte(plain))
	if err != nil {
		return data.SecureEntry{}, fmt.Errorf("decode object %s: %w", id, err)
	}
	return e, nil
}

// Query narrows candidates through the index, then decrypts only the hits
// and re-checks fields the index does not carry.
func (s *TextStore) Query(ctx context.Context, q Query) ([]data.SecureEntry, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	var out []data.SecureEntry
	for _, el := range s.elements {
		if !q.MatchesIndex(el) {
			continue
		}
		e, err := s.load(ctx, el.EntryId)
		if err != nil {
			return nil, err
		}
		if q.MatchesSecure(e) {
			out = append(out, e)
		}
	}
	sortSecureEntries(out)
	return out, nil
}

func (s *TextStore) SelectAll(ctx context.Context) ([]data.SecureEntry, error) {
	out := make([]data.SecureEntry, 0, len(s.elements))
	for id := range s.elements {
		e, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sortSecureEntries(out)
	return out, nil
}

func (s *TextStore) Count(ctx context.Context) (int, error) {
	return len(s.elements), nil
}

func (s *TextStore) CountOfKeyId(ctx context.Context, keyId data.KeyId) (int, error) {
	n := 0
	for _, el := range s.elements {
		if el.KeyId == keyId {
			n++
		}
	}
	return n, nil
}

// Sync is a no-op; every mutation already rewrote the index.
func (s *TextStore) Sync(ctx context.Context) error {
	return nil
}

func (s *TextStore) Close() error {
	return nil
}

func sortSecureEntries(entries []data.SecureEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Id < entries[j].Id
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
