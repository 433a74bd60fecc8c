// Package config loads the packaging task file (YAML) and the environment
// snapshot used to resolve packaging options.
//
// The task file mirrors the option names of the packaging run (maintainer,
// name, version, links, hooks, files, ...). The environment is read from the
// process and optionally overlaid with a dotenv file; it is passed around
// explicitly and never mutated.
package config
