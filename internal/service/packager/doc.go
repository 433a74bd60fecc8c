// Package packager runs a Debian packaging task end to end.
//
// It loads the task file, the project manifest and the environment, resolves
// the packaging options, claims the working directory, renders the package
// tree and hands it to the build driver. The outcome can be persisted as a
// YAML run report.
package packager
