package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/kballard/go-shellquote"
	"github.com/segmentio/textio"

	"github.com/oshokin/deb-packager/internal/logger"
)

// ProcessSpec describes one external process invocation.
// Stdin is always empty; a nil Stdout or Stderr discards that stream.
type ProcessSpec struct {
	Command string
	Args    []string
	// Dir is the working directory of the child.
	Dir string
	// Env is the complete child environment. Nil inherits the current process environment.
	Env    []string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line with shell quoting.
func (s ProcessSpec) String() string {
	return shellquote.Join(append([]string{s.Command}, s.Args...)...)
}

// Runner starts a process and waits for it to exit.
// A non-zero exit is reported through the exit code, not the error;
// the error is set only when the process could not be run at all.
type Runner interface {
	Run(ctx context.Context, spec ProcessSpec) (int, error)
}

// ExecRunner runs processes with os/exec.
type ExecRunner struct{}

// Run implements Runner. The child always runs to completion.
func (ExecRunner) Run(ctx context.Context, spec ProcessSpec) (int, error) {
	//nolint:gosec,noctx // Commands are fixed by the driver and are never cancelled.
	cmd := exec.Command(spec.Command, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = nil
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	logger.DebugKV(ctx, "Starting process", "command", spec.String(), "dir", spec.Dir)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, fmt.Errorf("run %s: %w", spec.Command, err)
}

// splitCommand splits a shell-like command line into a command and its arguments.
func splitCommand(line string) (string, []string, error) {
	words, err := shellquote.Split(line)
	if err != nil {
		return "", nil, fmt.Errorf("split command %q: %w", line, err)
	}

	if len(words) == 0 {
		return "", nil, errEmptyCommand
	}

	return words[0], words[1:], nil
}

// prefixedOutput wraps w so every line is prefixed with the tool name.
// A nil w yields a nil writer, which discards the stream.
func prefixedOutput(w io.Writer, tool string) *textio.PrefixWriter {
	if w == nil {
		return nil
	}

	return textio.NewPrefixWriter(w, tool+": ")
}

// asWriter avoids storing a typed nil pointer in an io.Writer.
func asWriter(w *textio.PrefixWriter) io.Writer {
	if w == nil {
		return nil
	}

	return w
}

// flush writes any partial trailing line held by w.
func flush(ctx context.Context, writers ...*textio.PrefixWriter) {
	for _, w := range writers {
		if w == nil {
			continue
		}

		if err := w.Flush(); err != nil {
			logger.DebugKV(ctx, "Failed to flush tool output", "error", err)
		}
	}
}
