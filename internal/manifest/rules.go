package manifest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/oshokin/deb-packager/internal/domain/deb"
)

// globMeta are the characters that turn a source into a glob pattern.
const globMeta = "*?[{"

// BuildInstallRules emits one rule per existing regular source file.
// A source holding glob characters expands to its matching files in lexical order.
// Missing sources, directories and patterns matching nothing are dropped without
// error; an entry left with no sources produces no rules. Order follows the input,
// flattened per source.
func BuildInstallRules(entries []deb.FileEntry, followSymlinks bool) []deb.InstallRule {
	rules := make([]deb.InstallRule, 0, len(entries))

	for _, entry := range entries {
		destDir := entry.Destination
		if i := strings.LastIndex(destDir, "/"); i >= 0 {
			destDir = destDir[:i]
		} else {
			destDir = ""
		}

		for _, src := range entry.Sources {
			for _, path := range expandSource(src) {
				if !isRegularFile(path) {
					continue
				}

				rules = append(rules, deb.InstallRule{
					SourcePath:     path,
					DestinationDir: destDir,
					Destination:    entry.Destination,
					FollowSymlinks: followSymlinks,
				})
			}
		}
	}

	return rules
}

// RenderInstallRules renders the Makefile install recipe lines.
// Relative sources are resolved against cwd.
func RenderInstallRules(rules []deb.InstallRule, cwd string) string {
	var b strings.Builder

	for _, rule := range rules {
		src := rule.SourcePath
		if !filepath.IsAbs(src) {
			src = filepath.ToSlash(filepath.Join(cwd, src))
		}

		b.WriteString("\tmkdir -p \"$(DESTDIR)")
		b.WriteString(rule.DestinationDir)
		b.WriteString("\" && cp -ap ")

		if !rule.FollowSymlinks {
			b.WriteString("-P ")
		}

		b.WriteString("\"")
		b.WriteString(src)
		b.WriteString("\" \"$(DESTDIR)")
		b.WriteString(rule.Destination)
		b.WriteString("\"\n")
	}

	return b.String()
}

// expandSource returns the files a source names. A file that exists under the
// literal name wins over pattern expansion. An invalid pattern matches nothing.
func expandSource(src string) []string {
	if !strings.ContainsAny(src, globMeta) || isRegularFile(src) {
		return []string{src}
	}

	matches, err := doublestar.FilepathGlob(src, doublestar.WithFilesOnly())
	if err != nil {
		return nil
	}

	sort.Strings(matches)

	return matches
}

// isRegularFile follows symlinks, so a link to a file counts as a file.
func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return info.Mode().IsRegular()
}
