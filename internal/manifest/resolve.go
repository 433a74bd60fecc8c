package manifest

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/imdario/mergo"

	"github.com/oshokin/deb-packager/internal/config"
	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/project"
)

// Built-in option defaults.
const (
	DefaultBuildNumber            = "1"
	DefaultWorkingDirectory       = "tmp/"
	DefaultPackagingDirectoryName = "packaging"
	DefaultTargetArchitecture     = "all"
	DefaultCategory               = "misc"
)

var (
	errNotDirectory = errors.New("not a directory")
	errUnknownHook  = errors.New("unknown hook type")

	// packageNamePattern follows Debian policy 5.6.7.
	packageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+.\-]+$`)
)

// Defaults returns the lowest-priority option layer.
func Defaults() deb.Options {
	return deb.Options{
		BuildNumber:            DefaultBuildNumber,
		WorkingDirectory:       DefaultWorkingDirectory,
		PackagingDirectoryName: DefaultPackagingDirectoryName,
		TargetArchitecture:     DefaultTargetArchitecture,
		Category:               DefaultCategory,
	}
}

// Resolve merges option layers: explicit over environment over project manifest
// over defaults. The maintainer is taken whole from the first layer that has
// both name and email. The result is validated before anything touches disk.
func Resolve(explicit *deb.Options, manifest *project.Manifest, env config.Env, now time.Time) (*deb.Options, error) {
	if explicit == nil {
		explicit = &deb.Options{}
	}

	if manifest == nil {
		manifest = &project.Manifest{}
	}

	resolved := *explicit

	envLayer := deb.Options{
		BuildNumber: env.First("BUILD_NUMBER", "DRONE_BUILD_NUMBER", "TRAVIS_BUILD_NUMBER"),
	}

	projectLayer := deb.Options{
		Name:             manifest.Name,
		Version:          manifest.Version,
		ShortDescription: manifest.ShortDescription(),
		LongDescription:  manifest.LongDescription(),
	}

	for _, layer := range []deb.Options{envLayer, projectLayer, Defaults()} {
		if err := mergo.Merge(&resolved, layer); err != nil {
			return nil, fmt.Errorf("merge options: %w", err)
		}
	}

	resolved.Maintainer = pickMaintainer(
		explicit.Maintainer,
		deb.Maintainer{Name: env["DEBFULLNAME"], Email: env["DEBEMAIL"]},
		deb.Maintainer{Name: manifest.Author.Name, Email: manifest.Author.Email},
	)

	if resolved.PackageLocation == "" {
		resolved.PackageLocation = resolved.WorkingDirectory
	}

	if resolved.Date.IsZero() {
		resolved.Date = now
	}

	if err := Validate(&resolved); err != nil {
		return nil, err
	}

	return &resolved, nil
}

// pickMaintainer returns the first complete candidate. When none is complete
// the explicit one is kept so validation can name the missing field.
func pickMaintainer(explicit deb.Maintainer, fallbacks ...deb.Maintainer) deb.Maintainer {
	if explicit.IsComplete() {
		return explicit
	}

	for _, candidate := range fallbacks {
		if candidate.IsComplete() {
			return candidate
		}
	}

	return explicit
}

// Validate checks the resolved options and returns a *deb.ValidationError
// listing every problem.
func Validate(opts *deb.Options) error {
	var problems []string

	if opts.Maintainer.Name == "" {
		problems = append(problems, "maintainer name is required (set maintainer.name or DEBFULLNAME)")
	}

	if opts.Maintainer.Email == "" {
		problems = append(problems, "maintainer email is required (set maintainer.email or DEBEMAIL)")
	}

	switch {
	case opts.Name == "":
		problems = append(problems, "package name is required")
	case !packageNamePattern.MatchString(opts.Prefix + opts.Name + opts.Postfix):
		problems = append(problems, fmt.Sprintf(
			"package name %q is not a valid Debian package name (lowercase letters, digits, '+', '-', '.'); "+
				"set name, prefix or postfix in the task file", opts.Prefix+opts.Name+opts.Postfix))
	}

	if opts.Version == "" {
		problems = append(problems, "package version is required")
	}

	if !isTreeName(opts.PackagingDirectoryName) {
		problems = append(problems,
			fmt.Sprintf("packaging_directory_name %q must be a single directory name", opts.PackagingDirectoryName))
	}

	for i, link := range opts.Links {
		if link.Source == "" || link.Target == "" {
			problems = append(problems, fmt.Sprintf("links[%d] needs both source and target", i))
		}
	}

	for _, kind := range deb.HookKinds() {
		hook, ok := opts.Hooks.Get(kind).(*deb.FromFile)
		if !ok {
			continue
		}

		if !isRegularFile(hook.Path) {
			problems = append(problems, fmt.Sprintf("%s script %s is not a readable file", kind, hook.Path))
		}
	}

	if opts.CustomTemplate != "" {
		if info, err := os.Stat(opts.CustomTemplate); err != nil || !info.IsDir() {
			problems = append(problems, fmt.Sprintf("custom template %s is not a directory", opts.CustomTemplate))
		}
	}

	if len(problems) > 0 {
		return &deb.ValidationError{Problems: problems}
	}

	return nil
}
