package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/dmitrijs2005/secretdb/internal/codec"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/data"
	"github.com/dmitrijs2005/secretdb/internal/filex"
)

// suggestKey is a test seam for codec.SuggestKey.
var suggestKey = codec.SuggestKey

// cmdConfigure records the effective settings in the configuration file
// so later runs need no environment variables. A missing key id is filled
// in from the gpg keyring.
func (a *App) cmdConfigure(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	fs.SetOutput(a.out)
	backend := fs.String("backend", string(a.cfg.Backend), "storage backend (json, sqlite, or text)")
	key := fs.String("key", string(a.cfg.KeyId), "gpg key id to encrypt to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	parsed, err := config.ParseBackend(*backend)
	if err != nil {
		return err
	}
	a.cfg.Backend = parsed

	a.cfg.KeyId = data.KeyId(*key)
	if a.cfg.KeyId == "" {
		suggested, err := suggestKey(ctx)
		if err != nil {
			return fmt.Errorf("suggest key: %w", err)
		}
		if suggested == "" {
			return fmt.Errorf("no gpg key found; pass one with -key")
		}
		a.log.Info(ctx, "using suggested key", "key", string(suggested))
		a.cfg.KeyId = suggested
	}

	b, err := json.MarshalIndent(map[string]any{
		"data_dir":            a.cfg.DataDir,
		"backend":             string(a.cfg.Backend),
		"key_id":              string(a.cfg.KeyId),
		"allow_multiple_keys": a.cfg.AllowMultipleKeys,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := filex.WriteFileAtomic(a.cfg.ConfigFile(), append(b, '\n'), 0o600); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "wrote %s\n", a.cfg.ConfigFile())
	return nil
}
