// Package data defines the value types and records persisted by every
// backend: entry identifiers, timestamps, the encrypted and plaintext
// payload forms, and the Entry/SecureEntry/IndexElement records built from
// them.
package data

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/google/uuid"
)

// KeyId identifies the encryption key an entry was encrypted with.
type KeyId string

// Description is the human label of an entry, a URI or a descriptive name.
// It is the primary fuzzy-search key.
type Description string

// Identity is an optional disambiguator, such as the username in a
// username/password pair. The empty string means absent.
type Identity string

// Metadata is an optional free-text annotation. The empty string means
// absent.
type Metadata string

// Plaintext is a decrypted secret value. It only ever exists in memory or
// inside an encrypted envelope, never in a plain file.
type Plaintext string

// Ciphertext is an encrypted secret. Text formats carry it as standard
// base64, which is what encoding/json produces for a byte slice.
type Ciphertext []byte

// ArmoredCiphertext is the ASCII-armored form of an encrypted value, used
// for the object-store backend and for import/export snapshots.
type ArmoredCiphertext string

// CiphertextFromBase64 decodes a standard-base64 string into a Ciphertext.
func CiphertextFromBase64(s string) (Ciphertext, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64 ciphertext: %v", common.ErrFormat, err)
	}
	return Ciphertext(b), nil
}

// ToBase64 encodes the ciphertext as a standard-base64 string.
func (c Ciphertext) ToBase64() string {
	return base64.StdEncoding.EncodeToString(c)
}

const (
	lowercaseChars   = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars       = "0123456789"
	punctuationChars = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// RandomPlaintext generates a random secret of the given length from a
// cryptographically secure source. Lowercase letters are always included;
// the flags add uppercase letters, digits, and punctuation.
func RandomPlaintext(length int, useUppercase, useDigits, usePunctuation bool) (Plaintext, error) {
	chars := lowercaseChars
	if useUppercase {
		chars += uppercaseChars
	}
	if useDigits {
		chars += digitChars
	}
	if usePunctuation {
		chars += punctuationChars
	}

	max := big.NewInt(int64(len(chars)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random plaintext: %w", err)
		}
		buf[i] = chars[n.Int64()]
	}
	return Plaintext(buf), nil
}

// EntryId uniquely identifies an entry. Current stores use random UUIDs;
// stores written before schema version 4 used a content-derived SHA-1 hex
// digest. Both forms are carried as opaque strings so either can be read.
type EntryId string

// NewEntryId returns a freshly generated random (UUIDv4) entry id, the
// scheme used for all new writes. The id stays fixed across edits.
func NewEntryId() EntryId {
	return EntryId(uuid.NewString())
}

// ContentEntryId derives an entry id from entry content, the scheme of
// schema versions up to 3. Any edit to the inputs changes the id, which is
// why those stores implemented modify as insert-new/delete-old. New ids of
// this form are never written; migration replaces them with UUIDs.
func ContentEntryId(keyId KeyId, timestamp Timestamp, description Description, identity Identity) EntryId {
	input := string(keyId) + timestamp.String() + string(description)
	if identity != "" {
		input += string(identity)
	}
	sum := sha1.Sum([]byte(input))
	return EntryId(hex.EncodeToString(sum[:]))
}

// timestampLayout is RFC 3339 UTC with a literal Z and a fixed six-digit
// fractional part. Every historical schema wrote timestamps in this form.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Timestamp is a UTC instant with microsecond precision. It orders
// serialized collections and records when an entry was created or last
// updated.
type Timestamp struct {
	t time.Time
}

// Now returns the current instant, truncated to microsecond precision.
func Now() Timestamp {
	return NewTimestamp(time.Now())
}

// NewTimestamp converts a time.Time, normalizing to UTC and microsecond
// precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t: t.UTC().Truncate(time.Microsecond)}
}

// ParseTimestamp parses an RFC 3339 string. Offsets other than Z are
// accepted on input and normalized to UTC.
func ParseTimestamp(s string) (Timestamp, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: invalid timestamp %q", common.ErrFormat, s)
	}
	return NewTimestamp(t), nil
}

// Time returns the underlying time.Time.
func (ts Timestamp) Time() time.Time { return ts.t }

// IsZero reports whether the timestamp is the zero instant.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// Before reports whether ts orders strictly before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// Equal reports whether ts and other denote the same instant.
func (ts Timestamp) Equal(other Timestamp) bool { return ts.t.Equal(other.t) }

// String formats the timestamp with a literal Z suffix, never +00:00.
func (ts Timestamp) String() string {
	return ts.t.Format(timestampLayout)
}

// MarshalJSON encodes the timestamp in its canonical wire form.
func (ts Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// UnmarshalJSON decodes a timestamp from a JSON string.
func (ts *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", common.ErrFormat)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*ts = parsed
	return nil
}
