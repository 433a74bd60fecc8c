package manifest

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/otiai10/copy"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/logger"
	"github.com/oshokin/deb-packager/internal/service/common"
)

// WriteLifecycleScripts writes each configured hook to controlDir/<script name>
// and returns the written paths. Absent hooks are skipped.
func WriteLifecycleScripts(ctx context.Context, hooks deb.Hooks, controlDir string) ([]string, error) {
	written := make([]string, 0, len(deb.HookKinds()))

	for _, kind := range deb.HookKinds() {
		destination := filepath.Join(controlDir, kind.ScriptName())

		switch hook := hooks.Get(kind).(type) {
		case nil:
			continue
		case *deb.FromFile:
			logger.DebugKV(ctx, "Lifecycle script found", "hook", kind, "src", hook.Path)

			options := copy.Options{
				OnSymlink:         func(string) copy.SymlinkAction { return copy.Deep },
				PermissionControl: copy.AddPermission(common.ExecutableFileMode),
			}

			if err := copy.Copy(hook.Path, destination, options); err != nil {
				return written, fmt.Errorf("copy %s script: %w", kind, err)
			}
		case *deb.FromText:
			logger.DebugKV(ctx, "Creating lifecycle script", "hook", kind)

			if err := common.WriteFileAtomic(destination, []byte(hook.Contents), common.ExecutableFileMode); err != nil {
				return written, fmt.Errorf("write %s script: %w", kind, err)
			}
		default:
			return written, fmt.Errorf("%s: %w %T", kind, errUnknownHook, hook)
		}

		written = append(written, destination)
	}

	return written, nil
}
