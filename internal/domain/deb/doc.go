// Package deb defines the domain model of a Debian packaging run:
// resolved options, install entries, lifecycle hooks, build and upload
// results, the run stages and the error taxonomy shared by all services.
package deb
