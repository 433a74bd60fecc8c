package deb

import "time"

// Report summarizes one packaging run.
type Report struct {
	Package   string
	Version   string
	Stage     Stage
	Simulated bool

	StartedAt  time.Time
	FinishedAt time.Time

	Build  *BuildResult
	Upload *UploadResult

	// Hostname and Username identify who ran the task.
	Hostname string
	Username string

	// Error is the final error message, empty on success.
	Error string
}
