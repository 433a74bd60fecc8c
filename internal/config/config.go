package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/deb-packager/internal/domain/deb"
)

// Config is the packaging task file. Every field is optional: missing values
// are filled from the environment, the project manifest and built-in defaults.
type Config struct {
	Maintainer *MaintainerConfig `yaml:"maintainer"`

	Name        string `yaml:"name"`
	Prefix      string `yaml:"prefix"`
	Postfix     string `yaml:"postfix"`
	Version     string `yaml:"version"`
	BuildNumber string `yaml:"build_number"`

	WorkingDirectory       string `yaml:"working_directory"`
	PackagingDirectoryName string `yaml:"packaging_directory_name"`

	TargetArchitecture string `yaml:"target_architecture"`
	Category           string `yaml:"category"`
	ShortDescription   string `yaml:"short_description"`
	LongDescription    string `yaml:"long_description"`
	Dependencies       string `yaml:"dependencies"`

	Links       []LinkConfig `yaml:"links"`
	Directories []string     `yaml:"directories"`

	PreInst  *HookConfig `yaml:"preinst"`
	PostInst *HookConfig `yaml:"postinst"`
	PreRm    *HookConfig `yaml:"prerm"`
	PostRm   *HookConfig `yaml:"postrm"`

	CustomTemplate  string `yaml:"custom_template"`
	Repository      string `yaml:"repository"`
	PackageLocation string `yaml:"package_location"`

	Simulate        bool `yaml:"simulate"`
	FollowSoftLinks bool `yaml:"follow_soft_links"`
	Quiet           bool `yaml:"quiet"`

	// Files declares the artifacts installed by the package.
	Files []FileConfig `yaml:"files"`
}

// MaintainerConfig is the maintainer identity as written in the task file.
type MaintainerConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// LinkConfig declares a symlink as written in the task file.
type LinkConfig struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// HookConfig is a lifecycle script given either as a file or inline.
type HookConfig struct {
	Src      string `yaml:"src"`
	Contents string `yaml:"contents"`
}

// FileConfig maps one or more artifacts to an install destination.
// Src entries may be glob patterns; they are expanded when the tree is built.
type FileConfig struct {
	Src  StringList `yaml:"src"`
	Dest string     `yaml:"dest"`
}

const (
	// DefaultConfigFilename is the default filename of the packaging task file.
	DefaultConfigFilename = "deb-packager.yaml"

	// DefaultProjectFilename is the default project manifest.
	DefaultProjectFilename = "package.json"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFileDestRequired is returned when a files entry has no destination.
	errFileDestRequired = errors.New("files entry must have a dest")
)

// Load reads the task file from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal task file: %w", err)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks structural problems and expands "~" in every path field.
// Semantic checks of the merged options happen later, during resolution.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	for i, file := range cfg.Files {
		if file.Dest == "" {
			return fmt.Errorf("files[%d]: %w", i, errFileDestRequired)
		}
	}

	return cfg.expandPaths()
}

// expandPaths resolves a leading "~" in path-valued fields.
func (c *Config) expandPaths() error {
	fields := []*string{
		&c.WorkingDirectory,
		&c.CustomTemplate,
		&c.PackageLocation,
	}

	for _, hook := range []*HookConfig{c.PreInst, c.PostInst, c.PreRm, c.PostRm} {
		if hook != nil {
			fields = append(fields, &hook.Src)
		}
	}

	for i := range c.Files {
		for j := range c.Files[i].Src {
			fields = append(fields, &c.Files[i].Src[j])
		}
	}

	for _, field := range fields {
		expanded, err := homedir.Expand(*field)
		if err != nil {
			return fmt.Errorf("expand path %q: %w", *field, err)
		}

		*field = expanded
	}

	return nil
}

// Options converts the task file into the explicit option layer.
func (c *Config) Options() *deb.Options {
	opts := &deb.Options{
		Name:                   c.Name,
		Prefix:                 c.Prefix,
		Postfix:                c.Postfix,
		Version:                c.Version,
		BuildNumber:            c.BuildNumber,
		WorkingDirectory:       c.WorkingDirectory,
		PackagingDirectoryName: c.PackagingDirectoryName,
		TargetArchitecture:     c.TargetArchitecture,
		Category:               c.Category,
		ShortDescription:       c.ShortDescription,
		LongDescription:        c.LongDescription,
		Dependencies:           c.Dependencies,
		Directories:            append([]string(nil), c.Directories...),
		CustomTemplate:         c.CustomTemplate,
		Repository:             c.Repository,
		PackageLocation:        c.PackageLocation,
		Simulate:               c.Simulate,
		FollowSoftLinks:        c.FollowSoftLinks,
		Quiet:                  c.Quiet,
	}

	if c.Maintainer != nil {
		opts.Maintainer = deb.Maintainer{Name: c.Maintainer.Name, Email: c.Maintainer.Email}
	}

	for _, link := range c.Links {
		opts.Links = append(opts.Links, deb.Link{Source: link.Source, Target: link.Target})
	}

	hooks := map[deb.HookKind]*HookConfig{
		deb.PreInstall:  c.PreInst,
		deb.PostInstall: c.PostInst,
		deb.PreRemove:   c.PreRm,
		deb.PostRemove:  c.PostRm,
	}

	for kind, hook := range hooks {
		if hook != nil {
			opts.Hooks.Set(kind, deb.NewHook(hook.Src, hook.Contents))
		}
	}

	return opts
}

// FileEntries converts the files section into install entries, keeping order.
func (c *Config) FileEntries() []deb.FileEntry {
	entries := make([]deb.FileEntry, 0, len(c.Files))

	for _, file := range c.Files {
		entries = append(entries, deb.FileEntry{
			Sources:     append([]string(nil), file.Src...),
			Destination: file.Dest,
		})
	}

	return entries
}
