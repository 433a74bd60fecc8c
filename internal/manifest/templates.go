package manifest

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/deb-packager/internal/domain/deb"
)

// templatePattern selects every file of a template tree.
const templatePattern = "**/*"

//go:embed all:templates/default
var embeddedTemplates embed.FS

// DefaultTemplateFS returns the template tree shipped with the binary.
//
//nolint:ireturn // fs.FS is the natural abstraction here.
func DefaultTemplateFS() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates/default")
	if err != nil {
		// The embedded directory is fixed at compile time.
		panic(err)
	}

	return sub
}

// TemplateFS returns the custom template directory, or the default tree when dir is empty.
//
//nolint:ireturn // fs.FS is the natural abstraction here.
func TemplateFS(dir string) (fs.FS, error) {
	if dir == "" {
		return DefaultTemplateFS(), nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("custom template: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("custom template %s: %w", dir, errNotDirectory)
	}

	return os.DirFS(dir), nil
}

// CollectTemplates lists every file of fsys as a TemplateFile targeting treeDir.
// Files named after a lifecycle hook under debian/ are marked as scripts.
func CollectTemplates(fsys fs.FS, treeDir string) ([]deb.TemplateFile, error) {
	matches, err := doublestar.Glob(fsys, templatePattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	sort.Strings(matches)

	scripts := make(map[string]struct{}, len(deb.HookKinds()))
	for _, kind := range deb.HookKinds() {
		scripts[path.Join("debian", kind.ScriptName())] = struct{}{}
	}

	templates := make([]deb.TemplateFile, 0, len(matches))

	for _, match := range matches {
		_, isScript := scripts[match]

		templates = append(templates, deb.TemplateFile{
			SourcePath:        match,
			DestinationPath:   filepath.Join(treeDir, filepath.FromSlash(match)),
			IsLifecycleScript: isScript,
		})
	}

	return templates, nil
}
