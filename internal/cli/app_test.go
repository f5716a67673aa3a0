package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/secretdb/internal/app"
	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCodec struct{ keyId data.KeyId }

func (s stubCodec) KeyId() data.KeyId { return s.keyId }

func (s stubCodec) Encrypt(ctx context.Context, p data.Plaintext) (data.Ciphertext, error) {
	return data.Ciphertext("enc:" + string(p)), nil
}

func (s stubCodec) Decrypt(ctx context.Context, c data.Ciphertext) (data.Plaintext, error) {
	out, ok := strings.CutPrefix(string(c), "enc:")
	if !ok {
		return "", common.ErrCodec
	}
	return data.Plaintext(out), nil
}

type stubTextCodec struct{ keyId data.KeyId }

func (s stubTextCodec) KeyId() data.KeyId { return s.keyId }

func (s stubTextCodec) Encrypt(ctx context.Context, p data.Plaintext) (data.ArmoredCiphertext, error) {
	return data.ArmoredCiphertext("armor:" + string(p)), nil
}

func (s stubTextCodec) Decrypt(ctx context.Context, c data.ArmoredCiphertext) (data.Plaintext, error) {
	out, ok := strings.CutPrefix(string(c), "armor:")
	if !ok {
		return "", common.ErrCodec
	}
	return data.Plaintext(out), nil
}

func stubPassword(t *testing.T, secret string) {
	t.Helper()
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte(secret), nil }
	t.Cleanup(func() { readPassword = orig })
}

func newTestApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{
		ConfigDir: t.TempDir(),
		DataDir:   t.TempDir(),
		Backend:   config.BackendJSON,
		KeyId:     "371C136C",
	}

	var out bytes.Buffer
	a := &App{
		cfg: cfg,
		log: logging.NopLogger{},
		out: &out,
	}
	a.build = func(ctx context.Context) (app.Application, error) {
		return app.New(ctx, cfg, stubCodec{cfg.KeyId}, stubTextCodec{cfg.KeyId}, nil)
	}
	return a, &out
}

func TestRun_UnknownCommand(t *testing.T) {
	a, out := newTestApp(t)
	err := a.Run(context.Background(), []string{"frobnicate"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_NoCommandPrintsUsage(t *testing.T) {
	a, out := newTestApp(t)
	err := a.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, out.String(), "Usage:")
}

func TestRun_AddAndLookup(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)
	stubPassword(t, "hunter2")

	require.NoError(t, a.Run(ctx, []string{"add", "-i", "alice", "https://example.com"}))

	out.Reset()
	require.NoError(t, a.Run(ctx, []string{"lookup", "example"}))
	assert.Equal(t, "hunter2", strings.TrimSpace(stripPrompts(out.String())))
}

func TestRun_LookupNoMatchFails(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.Run(context.Background(), []string{"lookup", "nothing"})
	require.ErrorIs(t, err, common.ErrNoEntries)
}

func TestRun_AddGeneratedSecretAndList(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)

	require.NoError(t, a.Run(ctx, []string{"add", "-g", "-l", "32", "https://example.com"}))

	out.Reset()
	require.NoError(t, a.Run(ctx, []string{"list"}))
	assert.Contains(t, out.String(), "https://example.com")
}

func TestRun_ModifyAndRemove(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)
	stubPassword(t, "hunter2")

	require.NoError(t, a.Run(ctx, []string{"add", "https://example.com"}))
	require.NoError(t, a.Run(ctx, []string{"modify", "-d", "example", "-i", "bob"}))

	out.Reset()
	require.NoError(t, a.Run(ctx, []string{"lookup", "-i", "bob", "example"}))
	assert.Contains(t, out.String(), "hunter2")

	require.NoError(t, a.Run(ctx, []string{"rm", "-d", "example"}))
	err := a.Run(ctx, []string{"lookup", "example"})
	require.ErrorIs(t, err, common.ErrNoEntries)
}

func TestRun_TargetFlagsAreExclusive(t *testing.T) {
	a, _ := newTestApp(t)
	err := a.Run(context.Background(), []string{"rm", "-d", "x", "-e", "y"})
	require.Error(t, err)

	err = a.Run(context.Background(), []string{"rm"})
	require.Error(t, err)
}

func TestRun_ExportImport(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)
	stubPassword(t, "hunter2")

	require.NoError(t, a.Run(ctx, []string{"add", "https://example.com"}))

	snapshot := filepath.Join(t.TempDir(), "snapshot.asc")
	require.NoError(t, a.Run(ctx, []string{"export", snapshot}))

	// Wipe the store and restore it from the snapshot.
	require.NoError(t, a.Run(ctx, []string{"rm", "-d", "example"}))
	require.NoError(t, a.Run(ctx, []string{"import", snapshot}))

	out.Reset()
	require.NoError(t, a.Run(ctx, []string{"lookup", "example"}))
	assert.Contains(t, out.String(), "hunter2")
}

func TestRun_ConfigureWritesConfigFile(t *testing.T) {
	ctx := context.Background()
	a, out := newTestApp(t)

	require.NoError(t, a.Run(ctx, []string{"configure", "-backend", "sqlite", "-key", "DEADBEEF"}))

	assert.Contains(t, out.String(), a.cfg.ConfigFile())
	b, err := os.ReadFile(a.cfg.ConfigFile())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"backend": "sqlite"`)
	assert.Contains(t, string(b), `"key_id": "DEADBEEF"`)
}

func TestRun_ConfigureSuggestsKey(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	a.cfg.KeyId = ""

	orig := suggestKey
	suggestKey = func(ctx context.Context) (data.KeyId, error) { return "CAFEBABE", nil }
	t.Cleanup(func() { suggestKey = orig })

	require.NoError(t, a.Run(ctx, []string{"configure"}))
	assert.Equal(t, data.KeyId("CAFEBABE"), a.cfg.KeyId)
}

// stripPrompts drops prompt lines so assertions see command output only.
func stripPrompts(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "Enter ") || strings.HasPrefix(line, "Confirm ") {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
