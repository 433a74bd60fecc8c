package deb

// Stage is the position of a packaging run in the build/upload state machine.
type Stage int

const (
	StageNotStarted Stage = iota
	StageBuilding
	StageBuildFailed
	StageBuildSucceeded
	StageUploading
	StageUploadFailed
	StageUploadSucceeded
	StageDone
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageNotStarted:
		return "not-started"
	case StageBuilding:
		return "building"
	case StageBuildFailed:
		return "build-failed"
	case StageBuildSucceeded:
		return "build-succeeded"
	case StageUploading:
		return "uploading"
	case StageUploadFailed:
		return "upload-failed"
	case StageUploadSucceeded:
		return "upload-succeeded"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// BuildResult is the outcome of one build tool invocation.
type BuildResult struct {
	ExitCode int
	// LogText is the build log read after a failure, best-effort.
	LogText string
	// MissingDependencyHint is advisory text set when the log shows an unmet build dependency.
	MissingDependencyHint string
	// Artifacts are the produced .deb files.
	Artifacts []string
}

// UploadResult is the outcome of one upload tool invocation.
type UploadResult struct {
	ExitCode    int
	ChangesFile string
}

// ParseStage is the inverse of Stage.String.
func ParseStage(s string) (Stage, bool) {
	for stage := StageNotStarted; stage <= StageDone; stage++ {
		if stage.String() == s {
			return stage, true
		}
	}

	return StageNotStarted, false
}
