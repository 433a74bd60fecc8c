package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/deb-packager/internal/domain/deb"
)

const taskFile = `
maintainer:
  name: Oleg Shokin
  email: o.shokin@example.com
name: alarm-button
version: "1.2"
working_directory: ~/build/
links:
  - source: /opt/alarm/bin/alarm
    target: /usr/bin/alarm
directories: [/var/log/alarm]
postinst:
  contents: |
    #!/bin/sh
    echo installed
prerm:
  src: scripts/prerm
  contents: ignored
files:
  - src: dist/alarm
    dest: /opt/alarm/bin/alarm
  - src: [dist/a.conf, dist/b.conf]
    dest: /etc/alarm/
`

// TestLoad parses a task file and converts it into options and entries.
func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte(taskFile), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	home, err := homedir.Dir()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "build"), cfg.WorkingDirectory)

	opts := cfg.Options()
	require.Equal(t, deb.Maintainer{Name: "Oleg Shokin", Email: "o.shokin@example.com"}, opts.Maintainer)
	require.Equal(t, "1.2", opts.Version)
	require.Equal(t, []deb.Link{{Source: "/opt/alarm/bin/alarm", Target: "/usr/bin/alarm"}}, opts.Links)
	require.Equal(t, &deb.FromText{Contents: "#!/bin/sh\necho installed\n"}, opts.Hooks.PostInstall)
	require.Equal(t, &deb.FromFile{Path: "scripts/prerm"}, opts.Hooks.PreRemove)
	require.Nil(t, opts.Hooks.PreInstall)
	require.Nil(t, opts.Hooks.PostRemove)

	entries := cfg.FileEntries()
	require.Equal(t, []deb.FileEntry{
		{Sources: []string{"dist/alarm"}, Destination: "/opt/alarm/bin/alarm"},
		{Sources: []string{"dist/a.conf", "dist/b.conf"}, Destination: "/etc/alarm/"},
	}, entries)
}

// TestLoadMissingFile checks that a missing task file is reported.
func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestValidate checks structural validation of the task file.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))

	cfg := &Config{Files: []FileConfig{{Src: StringList{"a"}}}}
	require.ErrorIs(t, Validate(cfg), errFileDestRequired)

	cfg = &Config{Files: []FileConfig{{Src: StringList{"a"}, Dest: "/opt/a"}}}
	require.NoError(t, Validate(cfg))
}

// TestStringListRejectsMappings ensures src must be a string or a list.
func TestStringListRejectsMappings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "task.yaml")
	require.NoError(t, os.WriteFile(path, []byte("files:\n  - src: {a: b}\n    dest: /x\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
