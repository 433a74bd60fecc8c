// Package manifest resolves packaging options and materializes the Debian package tree:
// install rules, rendered control templates and lifecycle scripts.
package manifest
