// Package common defines shared sentinel errors used across the storage,
// migration, codec, and application layers. Callers should use errors.Is to
// match these values; the layers wrap them with additional context via
// fmt.Errorf and %w.
package common

import "errors"

var (
	// Storage-layer errors.
	ErrNotFound  = errors.New("not found")
	ErrFormat    = errors.New("invalid format")
	ErrStorage   = errors.New("storage failure")
	ErrIntegrity = errors.New("index does not agree with object storage")

	// Migration errors.
	ErrSchema = errors.New("unsupported schema version")

	// Codec (external encryption process) errors.
	ErrCodec        = errors.New("codec failure")
	ErrCodecTimeout = errors.New("codec timed out")

	// Targeting errors raised when a modify/remove target does not select
	// exactly one entry.
	ErrNoEntries       = errors.New("no matching entries")
	ErrMultipleEntries = errors.New("multiple matching entries")
)
