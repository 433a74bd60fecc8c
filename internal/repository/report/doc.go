// Package report implements persistence for packaging run reports.
//
// The FileRepository stores and loads a report as YAML on disk so CI jobs
// can inspect the outcome of a run without parsing logs.
package report
