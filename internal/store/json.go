package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/filex"
)

// JSONStore keeps the whole collection in memory and persists it as one
// JSON array. Mutations mark the store dirty; Sync rewrites the file
// atomically only when something changed.
type JSONStore struct {
	path    string
	entries map[data.EntryId]data.Entry
	dirty   bool
}

// NewJSON returns an empty store that will persist to path on the first
// Sync.
func NewJSON(path string) *JSONStore {
	return &JSONStore{
		path:    path,
		entries: make(map[data.EntryId]data.Entry),
		dirty:   true,
	}
}

// OpenJSON loads an existing store from path. A missing file is
// ErrNotFound; a file that does not decode as an entry array is ErrFormat.
func OpenJSON(path string) (*JSONStore, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", common.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrStorage, path, err)
	}
	defer f.Close()

	entries, err := data.DecodeEntries(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	s := &JSONStore{
		path:    path,
		entries: make(map[data.EntryId]data.Entry, len(entries)),
	}
	for _, e := range entries {
		s.entries[e.Id] = e
	}
	return s, nil
}

func (s *JSONStore) Put(ctx context.Context, e data.Entry) error {
	s.entries[e.Id] = e
	s.dirty = true
	return nil
}

func (s *JSONStore) Remove(ctx context.Context, e data.Entry) error {
	if _, ok := s.entries[e.Id]; !ok {
		return nil
	}
	delete(s.entries, e.Id)
	s.dirty = true
	return nil
}

func (s *JSONStore) Query(ctx context.Context, q Query) ([]data.Entry, error) {
	if q.IsEmpty() {
		return nil, nil
	}
	var out []data.Entry
	for _, e := range s.entries {
		if q.Matches(e) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

func (s *JSONStore) SelectAll(ctx context.Context) ([]data.Entry, error) {
	out := make([]data.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (s *JSONStore) Count(ctx context.Context) (int, error) {
	return len(s.entries), nil
}

func (s *JSONStore) CountOfKeyId(ctx context.Context, keyId data.KeyId) (int, error) {
	n := 0
	for _, e := range s.entries {
		if e.KeyId == keyId {
			n++
		}
	}
	return n, nil
}

// Sync writes the collection to disk, oldest entry first. Clean stores
// skip the write so a read-only session never touches the file.
func (s *JSONStore) Sync(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	all, err := s.SelectAll(ctx)
	if err != nil {
		return err
	}
	b, err := data.EncodeJSON(all)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", common.ErrStorage, err)
	}
	if err := filex.WriteFileAtomic(s.path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", common.ErrStorage, s.path, err)
	}
	s.dirty = false
	return nil
}

func (s *JSONStore) Close() error {
	return nil
}

// sortEntries orders entries oldest first, with id as the tiebreaker so
// the serialized form is deterministic.
func sortEntries(entries []data.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Id < entries[j].Id
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
