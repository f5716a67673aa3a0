package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/secretdb/internal/app"
	"github.com/dmitrijs2005/secretdb/internal/common"
	"github.com/dmitrijs2005/secretdb/internal/data"
)

func (a *App) cmdLookup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(a.out)
	identity := fs.String("i", "", "username or email address")
	verbose := fs.Bool("v", false, "print all entry fields")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: lookup [options] DESCRIPTION")
	}

	return a.withApplication(ctx, func(application app.Application) error {
		results, err := application.Lookup(ctx, data.Description(fs.Arg(0)), data.Identity(*identity))
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("%w: %s", common.ErrNoEntries, fs.Arg(0))
		}
		fmt.Fprintln(a.out, formatResults(results, *verbose))
		return nil
	})
}

func (a *App) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	return a.withApplication(ctx, func(application app.Application) error {
		entries, err := application.Dump(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(a.out, formatVerbose(e))
		}
		return nil
	})
}

// formatVerbose renders every field of an entry on one line, skipping
// absent optional fields.
func formatVerbose(e data.SecureEntry) string {
	elements := []string{e.Timestamp.String(), string(e.Id), string(e.KeyId), string(e.Description)}
	if e.Identity != "" {
		elements = append(elements, string(e.Identity))
	}
	elements = append(elements, string(e.Plaintext))
	if e.Meta != "" {
		elements = append(elements, fmt.Sprintf("%q", string(e.Meta)))
	}
	return strings.Join(elements, " ")
}

// formatResults prints a single match as bare plaintext so the output can
// be piped; multiple matches include enough context to tell them apart.
func formatResults(results []data.SecureEntry, verbose bool) string {
	if len(results) == 1 {
		if verbose {
			return formatVerbose(results[0])
		}
		return string(results[0].Plaintext)
	}

	lines := make([]string, 0, len(results))
	for _, e := range results {
		if verbose {
			lines = append(lines, formatVerbose(e))
			continue
		}
		fields := []string{string(e.Description)}
		if e.Identity != "" {
			fields = append(fields, string(e.Identity))
		}
		fields = append(fields, string(e.Plaintext))
		lines = append(lines, strings.Join(fields, " "))
	}
	return strings.Join(lines, "\n")
}
