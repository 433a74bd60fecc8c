package project

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

// Manifest holds the project metadata used as the lowest-priority option layer.
type Manifest struct {
	Name        string `json:"name"        yaml:"name"`
	Version     string `json:"version"     yaml:"version"`
	Description string `json:"description" yaml:"description"`
	Author      Author `json:"author"      yaml:"author"`
}

// Author is the project author. It accepts the object form {"name", "email"}
// and the string form "Name <email> (url)".
type Author struct {
	Name  string `json:"name"  yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

// Load reads a JSON or YAML (by extension) project manifest.
// A missing file yields an empty manifest.
func Load(path string) (*Manifest, error) {
	if path == "" {
		return &Manifest{}, nil
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Manifest{}, nil
		}

		return nil, fmt.Errorf("read project manifest: %w", err)
	}

	var manifest Manifest

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(contents, &manifest)
	default:
		err = json.Unmarshal(contents, &manifest)
	}

	if err != nil {
		return nil, fmt.Errorf("decode project manifest %s: %w", path, err)
	}

	return &manifest, nil
}

// ShortDescription returns the first line of the description.
func (m *Manifest) ShortDescription() string {
	lines := splitLines(m.Description)
	if len(lines) == 0 {
		return ""
	}

	return lines[0]
}

// LongDescription returns the remaining description lines joined by a space.
func (m *Manifest) LongDescription() string {
	lines := splitLines(m.Description)
	if len(lines) < 2 {
		return ""
	}

	return strings.Join(lines[1:], " ")
}

// splitLines splits on \r\n, \r and \n.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	return strings.Split(s, "\n")
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Author) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = parseAuthor(s)
		return nil
	}

	type plain Author

	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	*a = Author(p)

	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Author) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*a = parseAuthor(node.Value)
		return nil
	}

	type plain Author

	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}

	*a = Author(p)

	return nil
}

// parseAuthor parses "Name <email> (url)"; the url part is ignored.
func parseAuthor(s string) Author {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "("); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	if addr, err := mail.ParseAddress(s); err == nil {
		return Author{Name: addr.Name, Email: addr.Address}
	}

	return Author{Name: s}
}
