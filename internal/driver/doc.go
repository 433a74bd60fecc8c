// Package driver runs the external Debian build and upload tools over a
// materialized package tree and tracks the run stage.
package driver
