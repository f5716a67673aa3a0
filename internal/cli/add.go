package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/dmitrijs2005/secretdb/internal/app"
	"github.com/dmitrijs2005/secretdb/internal/data"
)

func (a *App) cmdAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(a.out)
	identity := fs.String("i", "", "username or email address")
	meta := fs.String("m", "", "additional metadata")
	generate := fs.Bool("g", false, "generate a random secret instead of prompting")
	length := fs.Int("l", 24, "generated secret length")
	punctuation := fs.Bool("s", false, "include punctuation in the generated secret")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: add [options] DESCRIPTION")
	}

	plaintext, err := a.obtainSecret(*generate, *length, *punctuation)
	if err != nil {
		return err
	}

	return a.withApplication(ctx, func(application app.Application) error {
		entry, err := application.Add(ctx, data.Description(fs.Arg(0)), plaintext,
			data.Identity(*identity), data.Metadata(*meta))
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, entry.Id)
		return nil
	})
}

// obtainSecret either generates a random secret or prompts for one.
func (a *App) obtainSecret(generate bool, length int, punctuation bool) (data.Plaintext, error) {
	if generate {
		return data.RandomPlaintext(length, true, true, punctuation)
	}
	return a.getSecret()
}
