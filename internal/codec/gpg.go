package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/data"
)

// GPG is a Codec backed by the gpg command-line program.
type GPG struct {
	keyId data.KeyId
}

// NewGPG returns a binary gpg codec encrypting to the given key.
func NewGPG(keyId data.KeyId) *GPG {
	return &GPG{keyId: keyId}
}

func (g *GPG) KeyId() data.KeyId { return g.keyId }

func (g *GPG) Encrypt(ctx context.Context, p data.Plaintext) (data.Ciphertext, error) {
	out, err := run(ctx, []byte(p), "gpg", "--batch", "--encrypt", "--recipient", string(g.keyId))
	if err != nil {
		return nil, err
	}
	return data.Ciphertext(out), nil
}

func (g *GPG) Decrypt(ctx context.Context, c data.Ciphertext) (data.Plaintext, error) {
	out, err := run(ctx, c, "gpg", "--batch", "--decrypt")
	if err != nil {
		return "", err
	}
	return data.Plaintext(out), nil
}

// GPGText is a TextCodec backed by gpg with ASCII armor.
type GPGText struct {
	keyId data.KeyId
}

// NewGPGText returns an armoring gpg codec encrypting to the given key.
func NewGPGText(keyId data.KeyId) *GPGText {
	return &GPGText{keyId: keyId}
}

func (g *GPGText) KeyId() data.KeyId { return g.keyId }

func (g *GPGText) Encrypt(ctx context.Context, p data.Plaintext) (data.ArmoredCiphertext, error) {
	out, err := run(ctx, []byte(p), "gpg", "--batch", "--armor", "--encrypt", "--recipient", string(g.keyId))
	if err != nil {
		return "", err
	}
	return data.ArmoredCiphertext(out), nil
}

func (g *GPGText) Decrypt(ctx context.Context, c data.ArmoredCiphertext) (data.Plaintext, error) {
	out, err := run(ctx, []byte(c), "gpg", "--batch", "--decrypt")
	if err != nil {
		return "", err
	}
	return data.Plaintext(out), nil
}

// run executes an external command feeding input on stdin and returning
// its stdout. A context deadline hit maps to ErrCodecTimeout; every other
// failure maps to ErrCodec with the command's stderr attached.
func run(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(input)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", common.ErrCodecTimeout, name)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: %s: %s", common.ErrCodec, name, msg)
	}
	return stdout.Bytes(), nil
}

// SuggestKey asks gpg for a usable default key id: first the configured
// default-key option, then the first public key in the keyring. It returns
// an empty id when no candidate exists.
func SuggestKey(ctx context.Context) (data.KeyId, error) {
	out, err := run(ctx, nil, "gpgconf", "--list-options", "gpg")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) > 9 && fields[0] == "default-key" && len(fields[9]) > 1 {
			return data.KeyId(fields[9][1:]), nil
		}
	}

	out, err = run(ctx, nil, "gpg", "-k", "--with-colons")
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, ":")
		if len(fields) > 4 && fields[0] == "pub" && fields[4] != "" {
			key := fields[4]
			if len(key) > 8 {
				key = key[len(key)-8:]
			}
			return data.KeyId(key), nil
		}
	}
	return "", nil
}
