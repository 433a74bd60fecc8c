package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/logger"
	"github.com/oshokin/deb-packager/internal/service/common"
)

// fileListKey is the template value holding the rendered install recipe.
const fileListKey = "file_list"

var errUnsafeTreeDir = errors.New("package tree must be a subdirectory of the working directory")

// Tree describes a materialized package tree.
type Tree struct {
	// Dir is <working_directory>/<packaging_directory_name>.
	Dir string
	// ControlDir is Dir/debian.
	ControlDir string
	Rules      []deb.InstallRule
	Templates  []deb.TemplateFile
	// Scripts are the lifecycle scripts written into ControlDir.
	Scripts []string
}

// Builder materializes the package tree for resolved options.
type Builder struct {
	cwd string
}

// NewBuilder creates a builder resolving relative install sources against cwd.
// An empty cwd means the process working directory.
func NewBuilder(cwd string) (*Builder, error) {
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}

		cwd = wd
	}

	return &Builder{cwd: cwd}, nil
}

// Build recreates the package tree from scratch, renders the templates into it
// and writes lifecycle scripts. Files left by a previous run are removed.
func (b *Builder) Build(ctx context.Context, opts *deb.Options, entries []deb.FileEntry) (*Tree, error) {
	ctx = logger.WithName(ctx, "manifest")

	tree := &Tree{
		Dir:        opts.TreeDir(),
		ControlDir: opts.ControlDir(),
	}

	if !isTreeName(opts.PackagingDirectoryName) {
		return nil, fmt.Errorf("%q: %w", opts.PackagingDirectoryName, errUnsafeTreeDir)
	}

	if err := os.RemoveAll(tree.Dir); err != nil {
		return nil, fmt.Errorf("clear package tree: %w", err)
	}

	if err := os.MkdirAll(tree.ControlDir, common.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("create package tree: %w", err)
	}

	tree.Rules = BuildInstallRules(entries, opts.FollowSoftLinks)
	logger.DebugKV(ctx, "Install rules built", "entries", len(entries), "rules", len(tree.Rules))

	values := opts.Values()
	values[fileListKey] = RenderInstallRules(tree.Rules, b.cwd)

	fsys, err := TemplateFS(opts.CustomTemplate)
	if err != nil {
		return nil, err
	}

	tree.Templates, err = CollectTemplates(fsys, tree.Dir)
	if err != nil {
		return nil, err
	}

	if err = NewRenderer(fsys).Render(tree.Templates, values); err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Templates rendered", "count", len(tree.Templates), "dir", tree.Dir)

	tree.Scripts, err = WriteLifecycleScripts(ctx, opts.Hooks, tree.ControlDir)
	if err != nil {
		return nil, err
	}

	return tree, nil
}

// isTreeName reports whether name is a single path segment that stays inside
// the working directory, so clearing the tree never touches the working
// directory itself.
func isTreeName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name && !filepath.IsAbs(name)
}
