package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/deb-packager/internal/domain/deb"
)

// Build output extensions looked up under the package location.
const (
	debExtension      = ".deb"
	buildLogExtension = ".build"
	changesExtension  = ".changes"
)

// artifactStem is the file name prefix debuild gives every output of this
// release: <package>_<upstream version>-<build number>_. The epoch never
// appears in file names.
func artifactStem(opts *deb.Options) string {
	version := opts.Version
	if _, upstream, found := strings.Cut(version, ":"); found {
		version = upstream
	}

	return opts.Prefix + opts.Name + opts.Postfix + "_" + version + "-" + opts.BuildNumber + "_"
}

// findArtifacts returns the files matching location*ext whose base name
// starts with stem, sorted. An empty stem disables the filter.
// A location ending in a separator or naming an existing directory is
// searched inside; anything else is used as a file name prefix.
func findArtifacts(location, stem, ext string) ([]string, error) {
	pattern := location + "*" + ext

	if strings.HasSuffix(location, "/") || strings.HasSuffix(location, string(filepath.Separator)) || isDir(location) {
		pattern = filepath.Join(location, "*"+ext)
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("find %s files: %w", ext, err)
	}

	artifacts := make([]string, 0, len(matches))

	for _, match := range matches {
		if strings.HasPrefix(filepath.Base(match), stem) {
			artifacts = append(artifacts, match)
		}
	}

	sort.Strings(artifacts)

	return artifacts, nil
}

func isDir(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}
