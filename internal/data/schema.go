package data

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/secretdb/internal/common"
)

// SchemaVersion tags the on-disk layout a persisted store conforms to.
type SchemaVersion int

// CurrentSchemaVersion is the layout this code reads and writes natively.
// Older versions are upgraded by the migrate package; newer ones are
// rejected.
const CurrentSchemaVersion SchemaVersion = 4

// ParseSchemaVersion parses the plain-text contents of a schema file.
func ParseSchemaVersion(s string) (SchemaVersion, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid schema version %q", common.ErrFormat, s)
	}
	return SchemaVersion(n), nil
}

func (v SchemaVersion) String() string {
	return strconv.Itoa(int(v))
}

// ReadSchemaVersion reads the schema marker file. On first run, when the
// file does not exist yet, the current version is recorded and returned.
func ReadSchemaVersion(path string) (SchemaVersion, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := WriteSchemaVersion(path, CurrentSchemaVersion); err != nil {
			return 0, err
		}
		return CurrentSchemaVersion, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read schema file: %v", common.ErrStorage, err)
	}
	return ParseSchemaVersion(string(b))
}

// WriteSchemaVersion records v in the schema marker file, creating the
// parent directory if needed.
func WriteSchemaVersion(path string, v SchemaVersion) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("%w: create schema dir: %v", common.ErrStorage, err)
	}
	if err := os.WriteFile(path, []byte(v.String()+"\n"), 0o600); err != nil {
		return fmt.Errorf("%w: write schema file: %v", common.ErrStorage, err)
	}
	return nil
}
