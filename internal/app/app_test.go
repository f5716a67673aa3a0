package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey data.KeyId = "371C136C"

// fakeCodec is a reversible stand-in for the gpg payload codec.
type fakeCodec struct{ keyId data.KeyId }

func (f fakeCodec) KeyId() data.KeyId { return f.keyId }

func (f fakeCodec) Encrypt(ctx context.Context, p data.Plaintext) (data.Ciphertext, error) {
	return data.Ciphertext("enc:" + string(p)), nil
}

func (f fakeCodec) Decrypt(ctx context.Context, c data.Ciphertext) (data.Plaintext, error) {
	s, ok := strings.CutPrefix(string(c), "enc:")
	if !ok {
		return "", common.ErrCodec
	}
	return data.Plaintext(s), nil
}

// fakeTextCodec is a reversible stand-in for the armoring gpg codec.
type fakeTextCodec struct{ keyId data.KeyId }

func (f fakeTextCodec) KeyId() data.KeyId { return f.keyId }

func (f fakeTextCodec) Encrypt(ctx context.Context, p data.Plaintext) (data.ArmoredCiphertext, error) {
	return data.ArmoredCiphertext("armor:" + string(p)), nil
}

func (f fakeTextCodec) Decrypt(ctx context.Context, c data.ArmoredCiphertext) (data.Plaintext, error) {
	s, ok := strings.CutPrefix(string(c), "armor:")
	if !ok {
		return "", common.ErrCodec
	}
	return data.Plaintext(s), nil
}

func testConfig(t *testing.T, backend config.Backend) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Backend: backend,
		KeyId:   testKey,
	}
}

func newApp(t *testing.T, cfg *config.Config) Application {
	t.Helper()
	a, err := New(context.Background(), cfg, fakeCodec{testKey}, fakeTextCodec{testKey}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

var allBackends = []config.Backend{config.BackendJSON, config.BackendSQLite, config.BackendText}

// record is the logical content of an entry, independent of ids and
// timestamps, used to compare stores across backends.
type record struct {
	description data.Description
	identity    data.Identity
	plaintext   data.Plaintext
	meta        data.Metadata
}

func contents(t *testing.T, ctx context.Context, a Application) []record {
	t.Helper()
	entries, err := a.Dump(ctx)
	require.NoError(t, err)
	out := make([]record, 0, len(entries))
	for _, e := range entries {
		out = append(out, record{e.Description, e.Identity, e.Plaintext, e.Meta})
	}
	return out
}

func TestApplication_BackendEquivalence(t *testing.T) {
	ctx := context.Background()

	var results [][]record
	for _, backend := range allBackends {
		a := newApp(t, testConfig(t, backend))

		_, err := a.Add(ctx, "https://example.com", "hunter2", "alice", "")
		require.NoError(t, err)
		_, err = a.Add(ctx, "https://github.com", "tok_abc", "", "work")
		require.NoError(t, err)
		victim, err := a.Add(ctx, "https://forgotten.net", "old", "", "")
		require.NoError(t, err)

		require.NoError(t, a.Modify(ctx, Target{Description: "example"}, Update{Plaintext: "swordfish"}))
		require.NoError(t, a.Remove(ctx, Target{EntryId: victim.Id}))
		require.NoError(t, a.Sync(ctx))

		got := contents(t, ctx, a)
		require.Len(t, got, 2, "backend %s", backend)
		assert.Contains(t, got, record{"https://example.com", "alice", "swordfish", ""})
		assert.Contains(t, got, record{"https://github.com", "", "tok_abc", "work"})

		results = append(results, got)
	}

	assert.Equal(t, results[0], results[1], "json and sqlite must agree")
	assert.Equal(t, results[0], results[2], "json and text must agree")
}

func TestApplication_AddAssignsIdAndKey(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t, config.BackendJSON))

	e, err := a.Add(ctx, "example.com", "hunter2", "", "")
	require.NoError(t, err)

	_, err = uuid.Parse(string(e.Id))
	assert.NoError(t, err)
	assert.Equal(t, testKey, e.KeyId)
	assert.False(t, e.Timestamp.IsZero())
}

func TestApplication_ModifyKeepsIdRefreshesTimestamp(t *testing.T) {
	for _, backend := range allBackends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			a := newApp(t, testConfig(t, backend))

			e, err := a.Add(ctx, "example.com", "hunter2", "", "")
			require.NoError(t, err)

			require.NoError(t, a.Modify(ctx, Target{EntryId: e.Id}, Update{Description: "example.org"}))

			got, err := a.Lookup(ctx, "example.org", "")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, e.Id, got[0].Id, "modify must not change the id")
			assert.Equal(t, data.Plaintext("hunter2"), got[0].Plaintext, "unset fields keep their value")
			assert.False(t, got[0].Timestamp.Before(e.Timestamp))
		})
	}
}

func TestApplication_TargetMustSelectExactlyOne(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t, config.BackendJSON))

	_, err := a.Add(ctx, "https://example.com", "a", "", "")
	require.NoError(t, err)
	_, err = a.Add(ctx, "https://example.org", "b", "", "")
	require.NoError(t, err)

	err = a.Remove(ctx, Target{Description: "example"})
	require.ErrorIs(t, err, common.ErrMultipleEntries)

	err = a.Remove(ctx, Target{Description: "no-such-entry"})
	require.ErrorIs(t, err, common.ErrNoEntries)

	err = a.Modify(ctx, Target{Description: "example"}, Update{Plaintext: "x"})
	require.ErrorIs(t, err, common.ErrMultipleEntries)
}

func TestApplication_ExportImportAcrossBackends(t *testing.T) {
	ctx := context.Background()

	source := newApp(t, testConfig(t, config.BackendJSON))
	_, err := source.Add(ctx, "https://example.com", "hunter2", "alice", "prod")
	require.NoError(t, err)
	_, err = source.Add(ctx, "https://github.com", "tok_abc", "", "")
	require.NoError(t, err)

	snapshot := filepath.Join(t.TempDir(), "snapshot.asc")
	require.NoError(t, source.Export(ctx, snapshot))

	for _, backend := range allBackends {
		dest := newApp(t, testConfig(t, backend))
		require.NoError(t, dest.Import(ctx, snapshot))
		require.NoError(t, dest.Sync(ctx))

		assert.Equal(t, contents(t, ctx, source), contents(t, ctx, dest), "backend %s", backend)
	}
}

func TestApplication_ImportMissingSnapshotIsNotFound(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t, config.BackendJSON))

	err := a.Import(ctx, filepath.Join(t.TempDir(), "nope.asc"))
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestApplication_SingleKeyPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendJSON)

	a := newApp(t, cfg)
	_, err := a.Add(ctx, "example.com", "hunter2", "", "")
	require.NoError(t, err)
	require.NoError(t, a.Sync(ctx))
	require.NoError(t, a.Close())

	// Reopening under a different key must fail unless multiple keys are
	// allowed.
	cfg.KeyId = "DEADBEEF"
	other := fakeCodec{keyId: "DEADBEEF"}
	_, err = New(ctx, cfg, other, fakeTextCodec{keyId: "DEADBEEF"}, nil)
	require.Error(t, err)

	cfg.AllowMultipleKeys = true
	b, err := New(ctx, cfg, other, fakeTextCodec{keyId: "DEADBEEF"}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func TestApplication_LookupDecryptsMatchesOnly(t *testing.T) {
	ctx := context.Background()
	a := newApp(t, testConfig(t, config.BackendSQLite))

	_, err := a.Add(ctx, "https://example.com", "hunter2", "alice", "")
	require.NoError(t, err)
	_, err = a.Add(ctx, "https://example.com", "swordfish", "bob", "")
	require.NoError(t, err)

	got, err := a.Lookup(ctx, "example", "bob")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, data.Plaintext("swordfish"), got[0].Plaintext)
}
