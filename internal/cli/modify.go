package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dmitrijs2005/secretdb/internal/app"
	"github.com/dmitrijs2005/secretdb/internal/data"
)

// parseTarget builds the single-entry target from the -d/-e pair; exactly
// one must be given.
func parseTarget(description, entryId string) (app.Target, error) {
	if (description == "") == (entryId == "") {
		return app.Target{}, fmt.Errorf("exactly one of -d or -e is required")
	}
	return app.Target{
		EntryId:     data.EntryId(entryId),
		Description: data.Description(description),
	}, nil
}

func (a *App) cmdModify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("modify", flag.ContinueOnError)
	fs.SetOutput(a.out)
	description := fs.String("d", "", "description of the entry to modify")
	entryId := fs.String("e", "", "id of the entry to modify")
	identity := fs.String("i", "", "new username or email address")
	meta := fs.String("m", "", "new metadata")
	plaintext := fs.Bool("p", false, "prompt for a new secret")
	generate := fs.Bool("g", false, "generate a new random secret")
	length := fs.Int("l", 24, "generated secret length")
	punctuation := fs.Bool("s", false, "include punctuation in the generated secret")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := parseTarget(*description, *entryId)
	if err != nil {
		return err
	}

	upd := app.Update{
		Identity: data.Identity(*identity),
		Meta:     data.Metadata(*meta),
	}
	if *plaintext || *generate {
		upd.Plaintext, err = a.obtainSecret(*generate, *length, *punctuation)
		if err != nil {
			return err
		}
	}

	return a.withApplication(ctx, func(application app.Application) error {
		return application.Modify(ctx, target, upd)
	})
}

func (a *App) cmdRemove(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.SetOutput(a.out)
	description := fs.String("d", "", "description of the entry to remove")
	entryId := fs.String("e", "", "id of the entry to remove")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target, err := parseTarget(*description, *entryId)
	if err != nil {
		return err
	}

	return a.withApplication(ctx, func(application app.Application) error {
		return application.Remove(ctx, target)
	})
}
