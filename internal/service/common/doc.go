// Package common holds helpers shared by the packaging services.
//
// It provides atomic file replacement for rendered files, the working
// directory marker that keeps two runs from sharing a package tree, and
// detection of the current host and user for run reports.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
