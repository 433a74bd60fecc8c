package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/oshokin/deb-packager/internal/config"
	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/driver"
	"github.com/oshokin/deb-packager/internal/logger"
	"github.com/oshokin/deb-packager/internal/manifest"
	"github.com/oshokin/deb-packager/internal/project"
	"github.com/oshokin/deb-packager/internal/repository/report"
	"github.com/oshokin/deb-packager/internal/service/common"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is the task file (defaults to deb-packager.yaml; a missing default is allowed).
	ConfigPath string
	// ProjectPath is the project manifest (defaults to package.json; a missing file is allowed).
	ProjectPath string
	// EnvFile is an optional dotenv file overlaid on the process environment.
	EnvFile string
	// Verbose forwards the build tool stdout and passes -d to the upload tool.
	Verbose bool
	// Simulate forces simulation regardless of the task file.
	Simulate bool
	// RenderOnly stops after the package tree is written.
	RenderOnly bool
	// Repository overrides the upload target of the task file.
	Repository string
	// ReportPath is where the run report is written. Empty disables the report.
	ReportPath string
	// Cwd resolves relative install sources. Empty means the process working directory.
	Cwd string
	// DriverOptions customize the build driver.
	DriverOptions []driver.Option
	// Now stamps the changelog and the report. Nil means time.Now.
	Now func() time.Time
}

// Result is the single outcome of a task started with Start.
type Result struct {
	Success bool
	Err     error
}

// packager runs one packaging task.
// It is unexported: callers should use Run or Start.
type packager struct {
	opts *Options
	// explicit is the option layer taken from the task file and command line.
	explicit *deb.Options
	// entries are the declared install sources.
	entries  []deb.FileEntry
	manifest *project.Manifest
	env      config.Env
	report   *deb.Report
	reports  report.Repository
}

// Run executes the packaging workflow: resolve options, render the package
// tree, build and optionally upload. An upload failure is logged and does not
// fail the run.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "deb-packager")

	pkg, err := newPackager(opts)
	if err != nil {
		logger.Error(ctx, err)

		return fmt.Errorf("initialize packager: %w", err)
	}

	if pkg.explicit.Quiet {
		ctx = logger.WithMinLevel(ctx, zapcore.WarnLevel)
	}

	err = pkg.run(ctx)

	pkg.saveReport(ctx, err)

	if err != nil {
		return fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return nil
}

// Start runs the task on its own goroutine. The returned channel yields
// exactly one Result and is then closed.
func Start(ctx context.Context, opts *Options) <-chan Result {
	results := make(chan Result, 1)

	go func() {
		defer close(results)

		err := Run(ctx, opts)
		results <- Result{Success: err == nil, Err: err}
	}()

	return results
}

// newPackager loads every input of the task.
func newPackager(opts *Options) (*packager, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	projectPath := opts.ProjectPath
	if projectPath == "" {
		projectPath = config.DefaultProjectFilename
	}

	manifestData, err := project.Load(projectPath)
	if err != nil {
		return nil, err
	}

	env, err := config.LoadEnv(opts.EnvFile)
	if err != nil {
		return nil, err
	}

	explicit := cfg.Options()
	if opts.Simulate || opts.RenderOnly {
		explicit.Simulate = true
	}

	if opts.Repository != "" {
		explicit.Repository = opts.Repository
	}

	pkg := &packager{
		opts:     opts,
		explicit: explicit,
		entries:  cfg.FileEntries(),
		manifest: manifestData,
		env:      env,
		report:   &deb.Report{Stage: deb.StageNotStarted},
	}

	if opts.ReportPath != "" {
		pkg.reports = report.NewFileRepository(opts.ReportPath)
	}

	return pkg, nil
}

// loadConfig reads the task file. Only a missing default file is tolerated.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}

	if path == "" && errors.Is(err, os.ErrNotExist) {
		return &config.Config{}, nil
	}

	return nil, err
}

func (p *packager) now() time.Time {
	if p.opts.Now != nil {
		return p.opts.Now()
	}

	return time.Now()
}

func (p *packager) run(ctx context.Context) error {
	p.report.StartedAt = p.now()

	resolved, err := manifest.Resolve(p.explicit, p.manifest, p.env, p.report.StartedAt)
	if err != nil {
		p.logValidation(ctx, err)

		return err
	}

	p.report.Package = resolved.Prefix + resolved.Name + resolved.Postfix
	p.report.Version = resolved.Version + "-" + resolved.BuildNumber
	p.report.Simulated = resolved.Simulate

	ctx = logger.WithKV(ctx, "package", p.report.Package)

	marker, err := common.AcquireMarker(ctx, resolved.WorkingDirectory)
	if err != nil {
		logger.ErrorKV(ctx, "Working directory is not available", "dir", resolved.WorkingDirectory, "error", err)

		return err
	}

	defer func() {
		if releaseErr := marker.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Failed to release working directory", "error", releaseErr)
		}
	}()

	builder, err := manifest.NewBuilder(p.opts.Cwd)
	if err != nil {
		return err
	}

	tree, err := builder.Build(ctx, resolved, p.entries)
	if err != nil {
		logger.ErrorKV(ctx, "Failed to render package tree", "error", err)

		return err
	}

	logger.InfoKV(ctx, "Package tree rendered", "dir", tree.Dir, "install_rules", len(tree.Rules))

	if p.opts.RenderOnly {
		p.report.Stage = deb.StageDone

		return nil
	}

	return p.drive(ctx, resolved, tree)
}

// drive builds the tree and uploads the result when a repository is configured.
func (p *packager) drive(ctx context.Context, resolved *deb.Options, tree *manifest.Tree) error {
	d := driver.New(resolved, p.opts.DriverOptions...)

	defer func() {
		p.report.Stage = d.Stage()
	}()

	buildResult, err := d.Build(ctx, tree.Dir, p.opts.Verbose)
	p.report.Build = buildResult

	if err != nil {
		return err
	}

	if resolved.Repository == "" {
		return nil
	}

	uploadResult, err := d.Upload(ctx, p.opts.Verbose)
	p.report.Upload = uploadResult

	if err != nil {
		logger.WarnKV(ctx, "Package upload failed", "repository", resolved.Repository, "error", err)
	}

	return nil
}

// logValidation logs each option problem unless quiet is set.
func (p *packager) logValidation(ctx context.Context, err error) {
	var validationErr *deb.ValidationError
	if !errors.As(err, &validationErr) {
		logger.Error(ctx, err)

		return
	}

	if p.explicit.Quiet {
		return
	}

	for _, problem := range validationErr.Problems {
		logger.Error(ctx, problem)
	}
}

// saveReport persists the run report, best-effort.
func (p *packager) saveReport(ctx context.Context, runErr error) {
	if p.reports == nil {
		return
	}

	p.report.FinishedAt = p.now()
	if runErr != nil {
		p.report.Error = runErr.Error()
	}

	if actor, err := common.DetectActor(); err == nil {
		p.report.Hostname = actor.Hostname
		p.report.Username = actor.Username
	} else {
		logger.DebugKV(ctx, "Failed to detect actor", "error", err)
	}

	if err := p.reports.Save(ctx, p.report); err != nil {
		logger.WarnKV(ctx, "Failed to save run report", "path", p.opts.ReportPath, "error", err)

		return
	}

	logger.DebugKV(ctx, "Run report saved", "path", p.opts.ReportPath)
}
