// Package project reads the project manifest (package.json style, or YAML)
// that supplies default name, version, description and author.
package project
