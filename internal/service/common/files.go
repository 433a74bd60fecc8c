//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"
)

const (
	// DefaultDirMode is used for every directory of the package tree.
	DefaultDirMode os.FileMode = 0o755
	// DefaultFileMode is used for rendered non-executable files.
	DefaultFileMode os.FileMode = 0o644
	// ExecutableFileMode is used for scripts (debian/rules, maintainer scripts).
	ExecutableFileMode os.FileMode = 0o755
)

// WriteFileAtomic replaces path with data: readers see either the previous
// contents or the new ones, never a partial file. Parent directories are created.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), DefaultDirMode); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}

	// go-update swaps the target out, so it has to exist first.
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		placeholder, createErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, mode)
		if createErr != nil {
			return fmt.Errorf("create %s: %w", path, createErr)
		}

		if createErr = placeholder.Close(); createErr != nil {
			return fmt.Errorf("close %s: %w", path, createErr)
		}
	} else if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: mode,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		if rollbackErr := goupdate.RollbackError(err); rollbackErr != nil {
			return fmt.Errorf("replace %s: %w (rollback failed: %w)", path, err, rollbackErr)
		}

		return fmt.Errorf("replace %s: %w", path, err)
	}

	return nil
}
