// Package integration holds end-to-end tests that run a packaging task from
// files on disk with a scripted stand-in for the Debian build tools.
package integration
