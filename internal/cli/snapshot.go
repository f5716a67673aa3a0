package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dmitrijs2005/secretdb/internal/app"
)

func (a *App) cmdImport(ctx context.Context, args []string) error {
	path, err := snapshotPath("import", args, a)
	if err != nil {
		return err
	}
	return a.withApplication(ctx, func(application app.Application) error {
		return application.Import(ctx, path)
	})
}

func (a *App) cmdExport(ctx context.Context, args []string) error {
	path, err := snapshotPath("export", args, a)
	if err != nil {
		return err
	}
	return a.withApplication(ctx, func(application app.Application) error {
		return application.Export(ctx, path)
	})
}

func snapshotPath(name string, args []string, a *App) (string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		return "", fmt.Errorf("usage: %s FILE", name)
	}
	return fs.Arg(0), nil
}
