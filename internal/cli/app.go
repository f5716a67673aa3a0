// Package cli implements the secretdb command-line interface: a small
// flag-based subcommand dispatcher over the application layer.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/secretdb/internal/app"
	"github.com/dmitrijs2005/secretdb/internal/codec"
	"github.com/dmitrijs2005/secretdb/internal/config"
	"github.com/dmitrijs2005/secretdb/internal/logging"
	"github.com/dmitrijs2005/secretdb/internal/migrate"
)

const usage = `Usage: secretdb COMMAND [options]

Commands:
  add DESCRIPTION [-i identity] [-m meta] [-g]   add an entry
  lookup DESCRIPTION [-i identity] [-v]          look up entries
  list                                           list all entries
  modify (-d description | -e id) [options]      modify an entry
  rm (-d description | -e id)                    remove an entry
  import FILE                                    import entries from a snapshot
  export FILE                                    export entries to a snapshot
  configure                                      write the configuration file
`

// App wires the configuration, logger, and terminal streams together and
// dispatches subcommands.
type App struct {
	cfg *config.Config
	log logging.Logger
	out io.Writer

	// build constructs the application layer. Tests replace it to run
	// commands against fake codecs.
	build func(ctx context.Context) (app.Application, error)
}

func NewApp(cfg *config.Config, log logging.Logger) *App {
	a := &App{
		cfg: cfg,
		log: log,
		out: os.Stdout,
	}
	a.build = a.buildApplication
	return a
}

// buildApplication validates the configuration, upgrades stale persisted
// data, and opens the configured backend with gpg codecs.
func (a *App) buildApplication(ctx context.Context) (app.Application, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := migrate.Run(ctx, a.cfg, a.log); err != nil {
		return nil, err
	}
	return app.New(ctx, a.cfg, codec.NewGPG(a.cfg.KeyId), codec.NewGPGText(a.cfg.KeyId), a.log)
}

// Run dispatches one subcommand. The returned error is nil on success;
// main translates errors into a nonzero exit code.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "add":
		return a.cmdAdd(ctx, rest)
	case "lookup":
		return a.cmdLookup(ctx, rest)
	case "list":
		return a.cmdList(ctx, rest)
	case "modify":
		return a.cmdModify(ctx, rest)
	case "rm", "remove":
		return a.cmdRemove(ctx, rest)
	case "import":
		return a.cmdImport(ctx, rest)
	case "export":
		return a.cmdExport(ctx, rest)
	case "configure":
		return a.cmdConfigure(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// withApplication opens the application, runs fn, and syncs and closes on
// the way out. The sync error wins only when fn itself succeeded.
func (a *App) withApplication(ctx context.Context, fn func(app.Application) error) error {
	application, err := a.build(ctx)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := fn(application); err != nil {
		return err
	}
	return application.Sync(ctx)
}
