package cli

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/secretdb/internal/data"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// getSecret reads a secret from the terminal without echo, twice, and
// rejects mismatched confirmations.
func (a *App) getSecret() (data.Plaintext, error) {
	first, err := a.promptHidden("Enter secret: ")
	if err != nil {
		return "", err
	}
	second, err := a.promptHidden("Confirm secret: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", fmt.Errorf("secrets do not match")
	}
	if first == "" {
		return "", fmt.Errorf("secret must not be empty")
	}
	return first, nil
}

func (a *App) promptHidden(prompt string) (data.Plaintext, error) {
	if _, err := fmt.Fprint(a.out, prompt); err != nil {
		return "", err
	}
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return data.Plaintext(b), nil
}
