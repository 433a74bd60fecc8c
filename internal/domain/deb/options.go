package deb

import (
	"path/filepath"
	"strings"
	"time"
)

// ChangelogDateLayout is the date format expected in debian/changelog trailer lines.
const ChangelogDateLayout = time.RFC1123Z

// Maintainer identifies the person responsible for the package.
type Maintainer struct {
	// Name is the full name, exported to the build tool as DEBFULLNAME.
	Name string
	// Email is the address, exported to the build tool as DEBEMAIL.
	Email string
}

// IsComplete reports whether both name and email are set.
func (m Maintainer) IsComplete() bool {
	return m.Name != "" && m.Email != ""
}

// String renders the maintainer in the "Name <email>" form used by control files.
func (m Maintainer) String() string {
	return m.Name + " <" + m.Email + ">"
}

// Link declares a symbolic link created by the package at install time.
type Link struct {
	// Source is the path the link points to.
	Source string
	// Target is the path of the link itself.
	Target string
}

// Options is the resolved, immutable configuration of one packaging run.
type Options struct {
	Maintainer Maintainer

	Name        string
	Prefix      string
	Postfix     string
	Version     string
	BuildNumber string

	// WorkingDirectory is the scratch directory holding the package tree.
	WorkingDirectory string
	// PackagingDirectoryName is the name of the package tree inside WorkingDirectory.
	PackagingDirectoryName string

	TargetArchitecture string
	Category           string
	ShortDescription   string
	LongDescription    string
	// Dependencies is the raw Depends list, without the leading separator.
	Dependencies string

	Links       []Link
	Directories []string
	Hooks       Hooks

	// CustomTemplate is a directory replacing the embedded template tree.
	// Empty means the embedded tree.
	CustomTemplate string
	// Repository is the upload target. Empty disables upload.
	Repository string
	// PackageLocation is the glob base used to find build outputs (*.deb, *.build, *.changes).
	PackageLocation string

	Simulate        bool
	FollowSoftLinks bool
	Quiet           bool

	// Date stamps the changelog entry.
	Date time.Time
}

// TreeDir returns <working_directory>/<packaging_directory_name>.
func (o *Options) TreeDir() string {
	return filepath.Join(o.WorkingDirectory, o.PackagingDirectoryName)
}

// ControlDir returns the debian/ directory inside the package tree.
func (o *Options) ControlDir() string {
	return filepath.Join(o.TreeDir(), "debian")
}

// Values returns the mapping exposed to templates.
// Keys follow the snake_case option names; the maintainer is a nested map.
func (o *Options) Values() map[string]any {
	dependencies := ""
	if o.Dependencies != "" {
		dependencies = ", " + o.Dependencies
	}

	return map[string]any{
		"maintainer": map[string]any{
			"name":  o.Maintainer.Name,
			"email": o.Maintainer.Email,
		},
		"name":                     o.Name,
		"prefix":                   o.Prefix,
		"postfix":                  o.Postfix,
		"version":                  o.Version,
		"build_number":             o.BuildNumber,
		"working_directory":        o.WorkingDirectory,
		"packaging_directory_name": o.PackagingDirectoryName,
		"target_architecture":      o.TargetArchitecture,
		"category":                 o.Category,
		"short_description":        o.ShortDescription,
		"long_description":         o.LongDescription,
		"dependencies":             dependencies,
		"links":                    renderLinks(o.Links),
		"directories":              renderDirectories(o.Directories),
		"custom_template":          o.CustomTemplate,
		"repository":               o.Repository,
		"package_location":         o.PackageLocation,
		"simulate":                 o.Simulate,
		"follow_soft_links":        o.FollowSoftLinks,
		"quiet":                    o.Quiet,
		"date":                     o.Date.UTC().Format(ChangelogDateLayout),
	}
}

// renderLinks produces the debian/links body: one "target       source" line per link.
func renderLinks(links []Link) string {
	var b strings.Builder

	for _, link := range links {
		b.WriteString(link.Target)
		b.WriteString("       ")
		b.WriteString(link.Source)
		b.WriteString("\n")
	}

	return b.String()
}

// renderDirectories produces the debian/dirs body: one directory per line.
func renderDirectories(dirs []string) string {
	var b strings.Builder

	for _, dir := range dirs {
		b.WriteString(dir)
		b.WriteString("\n")
	}

	return b.String()
}
