package store

import (
	"strings"

	"github.com/dmitrijs2005/secretdb/internal/data"
)

// Query selects entries by fuzzy match. Every set field must match for an
// entry to be selected: EntryId exactly, the text fields as
// case-insensitive substrings. Unset fields are ignored, and a query with
// no fields set matches nothing.
type Query struct {
	EntryId     data.EntryId
	Description data.Description
	Identity    data.Identity
	Meta        data.Metadata
}

// IsEmpty reports whether no field of the query is set.
func (q Query) IsEmpty() bool {
	return q.EntryId == "" && q.Description == "" && q.Identity == "" && q.Meta == ""
}

// containsFold reports whether s contains substr under Unicode case
// folding.
func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Matches reports whether the entry satisfies the query. A query on
// identity or meta never matches an entry that has no such field.
func (q Query) Matches(e data.Entry) bool {
	if q.IsEmpty() {
		return false
	}
	if q.EntryId != "" && q.EntryId != e.Id {
		return false
	}
	if q.Description != "" && !containsFold(string(e.Description), string(q.Description)) {
		return false
	}
	if q.Identity != "" && (e.Identity == "" || !containsFold(string(e.Identity), string(q.Identity))) {
		return false
	}
	if q.Meta != "" && (e.Meta == "" || !containsFold(string(e.Meta), string(q.Meta))) {
		return false
	}
	return true
}

// MatchesSecure applies the same rules to a plaintext entry.
func (q Query) MatchesSecure(e data.SecureEntry) bool {
	return q.Matches(data.Entry{
		Timestamp:   e.Timestamp,
		Id:          e.Id,
		KeyId:       e.KeyId,
		Description: e.Description,
		Identity:    e.Identity,
		Meta:        e.Meta,
	})
}

// MatchesIndex reports whether an index element could belong to a
// matching entry. The index only carries id, key id, and description, so
// identity and meta queries cannot be refuted here; the caller must
// decrypt the object and re-check with MatchesSecure.
func (q Query) MatchesIndex(el data.IndexElement) bool {
	if q.IsEmpty() {
		return false
	}
	if q.EntryId != "" && q.EntryId != el.EntryId {
		return false
	}
	if q.Description != "" && !containsFold(string(el.Description), string(q.Description)) {
		return false
	}
	return true
}
