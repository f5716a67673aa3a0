package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/google/uuid"
)

// Entry is an encrypted record: a secret value with the information needed
// to find it again. On disk it is a JSON object with camelCase keys;
// identity and meta are omitted when absent.
type Entry struct {
	Timestamp   Timestamp   `json:"timestamp"`
	Id          EntryId     `json:"id"`
	KeyId       KeyId       `json:"keyId"`
	Description Description `json:"description"`
	Identity    Identity    `json:"identity,omitempty"`
	Ciphertext  Ciphertext  `json:"ciphertext"`
	Meta        Metadata    `json:"meta,omitempty"`
}

// SecureEntry is the plaintext counterpart of an Entry. It is the working
// form of the object-store backend and the import/export interchange
// record, and only ever persists inside an encrypted envelope.
type SecureEntry struct {
	Timestamp   Timestamp   `json:"timestamp"`
	Id          EntryId     `json:"id"`
	KeyId       KeyId       `json:"keyId"`
	Description Description `json:"description"`
	Identity    Identity    `json:"identity,omitempty"`
	Plaintext   Plaintext   `json:"plaintext"`
	Meta        Metadata    `json:"meta,omitempty"`
}

// IndexElement is the searchable projection of one object-store record.
// The index file holds one element per live object so description lookups
// do not require decrypting every object body.
type IndexElement struct {
	EntryId     EntryId     `json:"entryId"`
	KeyId       KeyId       `json:"keyId"`
	Description Description `json:"description"`
}

// IndexElement returns the index projection of the entry.
func (e SecureEntry) IndexElement() IndexElement {
	return IndexElement{EntryId: e.Id, KeyId: e.KeyId, Description: e.Description}
}

var entryRequiredKeys = []string{"id", "keyId", "timestamp", "description", "ciphertext"}

var secureEntryRequiredKeys = []string{"id", "keyId", "timestamp", "description", "plaintext"}

var indexElementRequiredKeys = []string{"entryId", "keyId", "description"}

// requireKeys checks that raw is a JSON object containing every key in
// keys. Missing keys and non-object values are reported as ErrFormat.
func requireKeys(raw json.RawMessage, keys []string) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("%w: expected an object", common.ErrFormat)
	}
	for _, k := range keys {
		if _, ok := m[k]; !ok {
			return fmt.Errorf("%w: missing required key %q", common.ErrFormat, k)
		}
	}
	return nil
}

func wrapFormat(err error) error {
	if errors.Is(err, common.ErrFormat) {
		return err
	}
	return fmt.Errorf("%w: %v", common.ErrFormat, err)
}

// EntryFromJSON decodes and validates a single entry object.
func EntryFromJSON(raw json.RawMessage) (Entry, error) {
	var e Entry
	if err := requireKeys(raw, entryRequiredKeys); err != nil {
		return e, err
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, wrapFormat(err)
	}
	return e, nil
}

// SecureEntryFromJSON decodes and validates a single plaintext entry
// object. Unlike Entry ids, which stay opaque for read-compatibility with
// pre-UUID stores, a SecureEntry id must be a valid UUID.
func SecureEntryFromJSON(raw json.RawMessage) (SecureEntry, error) {
	var e SecureEntry
	if err := requireKeys(raw, secureEntryRequiredKeys); err != nil {
		return e, err
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return e, wrapFormat(err)
	}
	if _, err := uuid.Parse(string(e.Id)); err != nil {
		return e, fmt.Errorf("%w: invalid entry id %q", common.ErrFormat, e.Id)
	}
	return e, nil
}

// IndexElementFromJSON decodes and validates a single index element.
func IndexElementFromJSON(raw json.RawMessage) (IndexElement, error) {
	var el IndexElement
	if err := requireKeys(raw, indexElementRequiredKeys); err != nil {
		return el, err
	}
	if err := json.Unmarshal(raw, &el); err != nil {
		return el, wrapFormat(err)
	}
	if _, err := uuid.Parse(string(el.EntryId)); err != nil {
		return el, fmt.Errorf("%w: invalid entry id %q", common.ErrFormat, el.EntryId)
	}
	return el, nil
}

func decodeArray(r io.Reader) ([]json.RawMessage, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(r).Decode(&raws); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array: %v", common.ErrFormat, err)
	}
	return raws, nil
}

// DecodeEntries reads a JSON array of entry objects. Any malformed element
// aborts the decode; a store never partially loads a corrupted collection.
func DecodeEntries(r io.Reader) ([]Entry, error) {
	raws, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		e, err := EntryFromJSON(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecodeSecureEntries reads a JSON array of plaintext entry objects, the
// payload of an import/export snapshot.
func DecodeSecureEntries(r io.Reader) ([]SecureEntry, error) {
	raws, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	entries := make([]SecureEntry, 0, len(raws))
	for _, raw := range raws {
		e, err := SecureEntryFromJSON(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecodeIndex reads a JSON array of index elements.
func DecodeIndex(r io.Reader) ([]IndexElement, error) {
	raws, err := decodeArray(r)
	if err != nil {
		return nil, err
	}
	elements := make([]IndexElement, 0, len(raws))
	for _, raw := range raws {
		el, err := IndexElementFromJSON(raw)
		if err != nil {
			return nil, err
		}
		elements = append(elements, el)
	}
	return elements, nil
}

// EncodeJSON serializes v as indented JSON with a trailing newline, the
// layout used for every persisted JSON document so files stay
// diff-friendly.
func EncodeJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
