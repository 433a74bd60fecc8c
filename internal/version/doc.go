// Package version exposes build metadata for deb-packager.
//
// Version, Commit and BuildTime are injected at build time via ldflags.
package version
