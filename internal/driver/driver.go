package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/segmentio/textio"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/logger"
)

const (
	// BuildTool is the executable producing the package.
	BuildTool = "debuild"
	// UploadTool is the executable publishing the package.
	UploadTool = "dput"

	buildCommand = BuildTool + " --no-tgz-check -sa -us -uc --lintian-opts --suppress-tags " +
		"tar-errors-from-data,tar-errors-from-control,dir-or-file-in-var-www"

	buildToolHint        = "sudo apt-get install devscripts"
	missingDebhelperHint = "debhelper is not installed, run: sudo apt-get install debhelper"

	// changesMode lets group and others read and traverse the changes file.
	changesMode os.FileMode = 0o755
)

var (
	missingDebhelperPattern = regexp.MustCompile(`Unmet\sbuild\sdependencies\:\sdebhelper`)

	errEmptyCommand = errors.New("empty command")
	errNotBuilt     = errors.New("upload requires a successful build")
	errNoRepository = errors.New("no repository configured")
	errNoChanges    = errors.New("no .changes file found")
)

// Driver runs the build tool over a package tree and optionally uploads the result.
// A Driver is used for a single run and is not safe for concurrent use.
type Driver struct {
	opts     *deb.Options
	runner   Runner
	lookPath func(string) (string, error)
	stdout   io.Writer
	stderr   io.Writer
	stage    deb.Stage
}

// Option configures a Driver.
type Option func(*Driver)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(d *Driver) {
		d.runner = r
	}
}

// WithLookPath replaces the executable lookup.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(d *Driver) {
		d.lookPath = lookPath
	}
}

// WithOutput sets where forwarded tool output goes.
func WithOutput(stdout, stderr io.Writer) Option {
	return func(d *Driver) {
		d.stdout = stdout
		d.stderr = stderr
	}
}

// New creates a driver for resolved options.
func New(opts *deb.Options, options ...Option) *Driver {
	d := &Driver{
		opts:     opts,
		runner:   ExecRunner{},
		lookPath: exec.LookPath,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		stage:    deb.StageNotStarted,
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// Stage returns the current state of the run.
func (d *Driver) Stage() deb.Stage {
	return d.stage
}

// Build runs the build tool in treeDir. Tool stdout is forwarded only when verbose;
// stderr always is. A non-zero exit returns ErrBuildFailed along with the result.
func (d *Driver) Build(ctx context.Context, treeDir string, verbose bool) (*deb.BuildResult, error) {
	ctx = logger.WithName(ctx, BuildTool)

	if d.opts.Simulate {
		logger.Info(ctx, "Simulation mode, skipping package build")

		d.stage = deb.StageBuildSucceeded
		if d.opts.Repository == "" {
			d.stage = deb.StageDone
		}

		return &deb.BuildResult{}, nil
	}

	if _, err := d.lookPath(BuildTool); err != nil {
		logger.ErrorKV(ctx, "'"+BuildTool+"' executable not found", "hint", buildToolHint)

		return nil, fmt.Errorf("%s: %w", BuildTool, deb.ErrToolMissing)
	}

	command, args, err := splitCommand(buildCommand)
	if err != nil {
		return nil, err
	}

	d.stage = deb.StageBuilding

	stdout, stderr := d.outputs(BuildTool, verbose)
	spec := ProcessSpec{
		Command: command,
		Args:    args,
		Dir:     treeDir,
		Env:     d.maintainerEnv(),
		Stdout:  asWriter(stdout),
		Stderr:  asWriter(stderr),
	}

	logger.InfoKV(ctx, "Building package", "dir", treeDir)

	exitCode, err := d.runner.Run(ctx, spec)
	flush(ctx, stdout, stderr)

	if err != nil {
		d.stage = deb.StageBuildFailed

		return nil, fmt.Errorf("%w: %w", deb.ErrBuildFailed, err)
	}

	result := &deb.BuildResult{ExitCode: exitCode}

	if exitCode != 0 {
		d.stage = deb.StageBuildFailed
		d.inspectBuildLog(ctx, result)

		logger.ErrorKV(ctx, "Package build failed", "exit_code", exitCode)

		if result.MissingDependencyHint != "" {
			logger.Warn(ctx, result.MissingDependencyHint)
		}

		return result, fmt.Errorf("%s exited with code %d: %w", BuildTool, exitCode, deb.ErrBuildFailed)
	}

	d.stage = deb.StageBuildSucceeded

	result.Artifacts, err = findArtifacts(d.opts.PackageLocation, artifactStem(d.opts), debExtension)
	if err != nil {
		logger.WarnKV(ctx, "Failed to list built packages", "error", err)
	}

	for _, artifact := range result.Artifacts {
		size := "unknown size"
		if info, statErr := os.Stat(artifact); statErr == nil {
			size = humanize.Bytes(uint64(info.Size())) //nolint:gosec // File sizes are never negative.
		}

		logger.InfoKV(ctx, "Created package", "path", artifact, "size", size)
	}

	if d.opts.Repository == "" {
		d.stage = deb.StageDone
	}

	return result, nil
}

// Upload publishes the changes file of a successful build to the configured repository.
// A non-zero exit returns ErrUploadFailed along with the result.
func (d *Driver) Upload(ctx context.Context, verbose bool) (*deb.UploadResult, error) {
	ctx = logger.WithName(ctx, UploadTool)

	if d.stage != deb.StageBuildSucceeded {
		return nil, errNotBuilt
	}

	if d.opts.Repository == "" {
		return nil, errNoRepository
	}

	if d.opts.Simulate {
		logger.Info(ctx, "Simulation mode, skipping package upload")

		d.stage = deb.StageDone

		return &deb.UploadResult{}, nil
	}

	d.stage = deb.StageUploading

	changes, err := d.changesFile(ctx)
	if err != nil {
		d.stage = deb.StageUploadFailed

		return nil, fmt.Errorf("%w: %w", deb.ErrUploadFailed, err)
	}

	if err = os.Chmod(changes, changesMode); err != nil {
		d.stage = deb.StageUploadFailed

		return nil, fmt.Errorf("%w: chmod %s: %w", deb.ErrUploadFailed, changes, err)
	}

	args := make([]string, 0, 3)
	if verbose {
		args = append(args, "-d")
	}

	args = append(args, d.opts.Repository, changes)

	stdout, stderr := d.outputs(UploadTool, verbose)
	spec := ProcessSpec{
		Command: UploadTool,
		Args:    args,
		Stdout:  asWriter(stdout),
		Stderr:  asWriter(stderr),
	}

	logger.InfoKV(ctx, "Uploading package", "repository", d.opts.Repository, "changes", changes)

	exitCode, err := d.runner.Run(ctx, spec)
	flush(ctx, stdout, stderr)

	result := &deb.UploadResult{ExitCode: exitCode, ChangesFile: changes}

	switch {
	case err != nil:
		d.stage = deb.StageUploadFailed

		return result, fmt.Errorf("%w: %w", deb.ErrUploadFailed, err)
	case exitCode != 0:
		d.stage = deb.StageUploadFailed

		return result, fmt.Errorf("%s exited with code %d: %w", UploadTool, exitCode, deb.ErrUploadFailed)
	}

	d.stage = deb.StageDone

	logger.InfoKV(ctx, "Package uploaded", "repository", d.opts.Repository)

	return result, nil
}

func (d *Driver) changesFile(ctx context.Context) (string, error) {
	matches, err := findArtifacts(d.opts.PackageLocation, artifactStem(d.opts), changesExtension)
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "", errNoChanges
	}

	if len(matches) > 1 {
		logger.WarnKV(ctx, "Several changes files found, uploading the first", "files", matches)
	}

	return matches[0], nil
}

// inspectBuildLog reads the first build log of this release, best-effort, and sets the
// missing dependency hint when the log reports an unmet debhelper dependency.
func (d *Driver) inspectBuildLog(ctx context.Context, result *deb.BuildResult) {
	logs, err := findArtifacts(d.opts.PackageLocation, artifactStem(d.opts), buildLogExtension)
	if err != nil || len(logs) == 0 {
		logger.DebugKV(ctx, "No build log found", "location", d.opts.PackageLocation)

		return
	}

	contents, err := os.ReadFile(logs[0])
	if err != nil {
		logger.DebugKV(ctx, "Failed to read build log", "path", logs[0], "error", err)

		return
	}

	result.LogText = string(contents)

	if missingDebhelperPattern.Match(contents) {
		result.MissingDependencyHint = missingDebhelperHint
	}
}

// maintainerEnv returns the current environment plus the maintainer identity.
// The identity only reaches the child; the process environment is untouched.
func (d *Driver) maintainerEnv() []string {
	return append(os.Environ(),
		"DEBFULLNAME="+d.opts.Maintainer.Name,
		"DEBEMAIL="+d.opts.Maintainer.Email,
	)
}

func (d *Driver) outputs(tool string, verbose bool) (*textio.PrefixWriter, *textio.PrefixWriter) {
	var stdout *textio.PrefixWriter
	if verbose {
		stdout = prefixedOutput(d.stdout, tool)
	}

	return stdout, prefixedOutput(d.stderr, tool)
}
