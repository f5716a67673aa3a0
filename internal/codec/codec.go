// Package codec defines the encryption capability boundary of the secret
// store. The store never encrypts in process: an external OpenPGP-
// compatible program performs the transform, and everything above this
// package consumes it as an opaque capability.
package codec

import (
	"context"

	"github.com/dmitrijs2005/secretdb/internal/data"
)

// Codec encrypts plaintexts to binary ciphertexts and back. It is the
// payload codec of the JSON and SQLite backends.
type Codec interface {
	// KeyId returns the id of the key used for encryption.
	KeyId() data.KeyId

	// Encrypt transforms a plaintext into a ciphertext.
	Encrypt(ctx context.Context, p data.Plaintext) (data.Ciphertext, error)

	// Decrypt transforms a ciphertext back into a plaintext.
	Decrypt(ctx context.Context, c data.Ciphertext) (data.Plaintext, error)
}

// TextCodec encrypts plaintexts to ASCII-armored ciphertexts and back. It
// is the codec of the object-store backend and of import/export
// snapshots.
type TextCodec interface {
	// KeyId returns the id of the key used for encryption.
	KeyId() data.KeyId

	// Encrypt transforms a plaintext into an armored ciphertext.
	Encrypt(ctx context.Context, p data.Plaintext) (data.ArmoredCiphertext, error)

	// Decrypt transforms an armored ciphertext back into a plaintext.
	Decrypt(ctx context.Context, c data.ArmoredCiphertext) (data.Plaintext, error)
}
