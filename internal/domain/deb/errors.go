package deb

import (
	"errors"
	"strings"
)

var (
	// ErrValidation classifies option problems found before any side effect.
	ErrValidation = errors.New("invalid packaging options")
	// ErrToolMissing is returned when a required external binary cannot be found.
	ErrToolMissing = errors.New("packaging tool not found")
	// ErrBuildFailed is returned when the build tool exits with a non-zero code.
	ErrBuildFailed = errors.New("package build failed")
	// ErrUploadFailed is returned when the upload tool exits with a non-zero code.
	ErrUploadFailed = errors.New("package upload failed")
	// ErrWorkdirBusy is returned when another live run owns the working directory.
	ErrWorkdirBusy = errors.New("working directory is in use by another run")
)

// ValidationError lists every problem found in the resolved options.
type ValidationError struct {
	Problems []string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
