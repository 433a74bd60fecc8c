package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLoadJSON reads a package.json with an object author.
func TestLoadJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "name": "alarm-button",
  "version": "1.2.0",
  "description": "Alarm button\nSends alerts\r\nto the server",
  "author": {"name": "Oleg Shokin", "email": "o.shokin@example.com"}
}`), 0o600))

	manifest, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "alarm-button", manifest.Name)
	require.Equal(t, "1.2.0", manifest.Version)
	require.Equal(t, Author{Name: "Oleg Shokin", Email: "o.shokin@example.com"}, manifest.Author)
	require.Equal(t, "Alarm button", manifest.ShortDescription())
	require.Equal(t, "Sends alerts to the server", manifest.LongDescription())
}

// TestLoadJSONStringAuthor parses the npm "Name <email> (url)" author form.
func TestLoadJSONStringAuthor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"name": "x", "author": "Barney Rubble <b@rubble.com> (http://barnyrubble.tumblr.com/)"}`), 0o600))

	manifest, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Author{Name: "Barney Rubble", Email: "b@rubble.com"}, manifest.Author)
	require.Empty(t, manifest.ShortDescription())
	require.Empty(t, manifest.LongDescription())
}

// TestLoadYAML reads a YAML manifest selected by extension.
func TestLoadYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "project.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: tool\nversion: \"0.3\"\nauthor: Jane Doe <jane@example.com>\n"), 0o600))

	manifest, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "tool", manifest.Name)
	require.Equal(t, "0.3", manifest.Version)
	require.Equal(t, Author{Name: "Jane Doe", Email: "jane@example.com"}, manifest.Author)
}

// TestLoadMissing returns an empty manifest for a missing file.
func TestLoadMissing(t *testing.T) {
	t.Parallel()

	manifest, err := Load(filepath.Join(t.TempDir(), "package.json"))
	require.NoError(t, err)
	require.Equal(t, &Manifest{}, manifest)
}

// TestLoadMalformed reports decode errors.
func TestLoadMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": `), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
