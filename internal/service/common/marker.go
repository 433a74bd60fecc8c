//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/logger"
)

// MarkerFilename marks a working directory as owned by a running packaging task.
const MarkerFilename = ".deb-packager.lock"

// Marker is an acquired working directory marker.
type Marker struct {
	path string
}

// AcquireMarker claims dir for the current process.
// It fails with deb.ErrWorkdirBusy when a live process already owns it;
// markers left by dead processes are removed.
func AcquireMarker(ctx context.Context, dir string) (*Marker, error) {
	if err := os.MkdirAll(dir, DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	path := filepath.Join(dir, MarkerFilename)

	busy, err := isMarkerHeld(ctx, path)
	if err != nil {
		return nil, err
	}

	if busy {
		return nil, fmt.Errorf("%s: %w", dir, deb.ErrWorkdirBusy)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, DefaultFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%s: %w", dir, deb.ErrWorkdirBusy)
		}

		return nil, fmt.Errorf("create marker: %w", err)
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write marker: %w", err)
	}

	logger.DebugKV(ctx, "Acquired working directory marker", "path", path)

	return &Marker{path: path}, nil
}

// Release removes the marker. Releasing twice is a no-op.
func (m *Marker) Release() error {
	if m == nil || m.path == "" {
		return nil
	}

	err := os.Remove(m.path)
	m.path = ""

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}

	return nil
}

// isMarkerHeld reports whether the marker at path belongs to a live process,
// removing it when it does not.
func isMarkerHeld(ctx context.Context, path string) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("read marker: %w", err)
	}

	if pid, convErr := strconv.Atoi(strings.TrimSpace(string(contents))); convErr == nil && pid > 0 {
		process, findErr := ps.FindProcess(pid)
		if findErr != nil {
			return false, fmt.Errorf("look up marker owner %d: %w", pid, findErr)
		}

		if process != nil {
			logger.WarnKV(ctx, "Working directory is owned by a running process",
				"pid", pid, "executable", process.Executable())

			return true, nil
		}
	}

	logger.InfoKV(ctx, "Removing stale working directory marker", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("remove stale marker: %w", err)
	}

	return false, nil
}
