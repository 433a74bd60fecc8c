package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/oshokin/deb-packager/internal/logger"
	"github.com/oshokin/deb-packager/internal/repository/report"
)

var errNoReportPath = errors.New("report path is required")

// ShowReport loads the run report saved at path and writes a readable summary to w.
func ShowReport(ctx context.Context, path string, w io.Writer) error {
	ctx = logger.WithName(ctx, "report")

	if path == "" {
		return errNoReportPath
	}

	loaded, err := report.NewFileRepository(path).Load(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to load run report", "path", path, "error", err)

		return fmt.Errorf("load report %s: %w", path, err)
	}

	lines := []string{
		fmt.Sprintf("package:   %s %s", loaded.Package, loaded.Version),
		fmt.Sprintf("stage:     %s", loaded.Stage),
		fmt.Sprintf("simulated: %t", loaded.Simulated),
		fmt.Sprintf("started:   %s", loaded.StartedAt.Format(time.RFC3339)),
		fmt.Sprintf("duration:  %s", loaded.FinishedAt.Sub(loaded.StartedAt).Round(time.Millisecond)),
	}

	if loaded.Username != "" || loaded.Hostname != "" {
		lines = append(lines, fmt.Sprintf("actor:     %s@%s", loaded.Username, loaded.Hostname))
	}

	if loaded.Build != nil {
		lines = append(lines, fmt.Sprintf("build:     exit code %d", loaded.Build.ExitCode))

		for _, artifact := range loaded.Build.Artifacts {
			lines = append(lines, "  artifact: "+artifact)
		}

		if loaded.Build.MissingDependencyHint != "" {
			lines = append(lines, "  hint:     "+loaded.Build.MissingDependencyHint)
		}
	}

	if loaded.Upload != nil {
		lines = append(lines, fmt.Sprintf("upload:    exit code %d, %s", loaded.Upload.ExitCode, loaded.Upload.ChangesFile))
	}

	if loaded.Error != "" {
		lines = append(lines, "error:     "+loaded.Error)
	}

	for _, line := range lines {
		if _, err = fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}
