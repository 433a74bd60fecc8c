package packager

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/driver"
	"github.com/oshokin/deb-packager/internal/repository/report"
	"github.com/oshokin/deb-packager/internal/service/common"
)

// fakeRunner replies with canned exit codes and lets tests drop build outputs.
type fakeRunner struct {
	exitCodes map[string]int
	onRun     func(spec driver.ProcessSpec)
	commands  []string
}

func (r *fakeRunner) Run(_ context.Context, spec driver.ProcessSpec) (int, error) {
	r.commands = append(r.commands, spec.Command)

	if r.onRun != nil {
		r.onRun(spec)
	}

	return r.exitCodes[spec.Command], nil
}

func foundTool(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

// writeTask creates a task file and an installable artifact and returns the
// task file path and the working directory.
func writeTask(t *testing.T, extra string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	workdir := filepath.Join(dir, "work")
	artifact := filepath.Join(dir, "foo")
	require.NoError(t, os.WriteFile(artifact, []byte("#!/bin/sh\necho foo\n"), 0o600))

	task := "maintainer:\n" +
		"  name: Jane Doe\n" +
		"  email: jane@example.com\n" +
		"name: foo\n" +
		"version: 1.2.0\n" +
		"build_number: \"5\"\n" +
		"working_directory: " + workdir + "/\n" +
		"postinst:\n" +
		"  contents: |\n" +
		"    #!/bin/sh\n" +
		"    echo installed\n" +
		"files:\n" +
		"  - src: " + artifact + "\n" +
		"    dest: /usr/bin/foo\n" +
		extra

	path := filepath.Join(dir, "deb-packager.yaml")
	require.NoError(t, os.WriteFile(path, []byte(task), 0o600))

	return path, workdir
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestRunSimulate(t *testing.T) {
	t.Parallel()

	taskPath, workdir := writeTask(t, "")
	reportPath := filepath.Join(t.TempDir(), "report.yaml")
	runner := &fakeRunner{}

	err := Run(context.Background(), &Options{
		ConfigPath:    taskPath,
		ProjectPath:   filepath.Join(t.TempDir(), "package.json"),
		Simulate:      true,
		ReportPath:    reportPath,
		DriverOptions: []driver.Option{driver.WithRunner(runner), driver.WithOutput(nil, nil)},
		Now:           fixedNow,
	})
	require.NoError(t, err)
	require.Empty(t, runner.commands)

	control, err := os.ReadFile(filepath.Join(workdir, "packaging", "debian", "control"))
	require.NoError(t, err)
	require.Contains(t, string(control), "Package: foo")

	postinst, err := os.ReadFile(filepath.Join(workdir, "packaging", "debian", "postinst"))
	require.NoError(t, err)
	require.Equal(t, "#!/bin/sh\necho installed\n", string(postinst))

	_, err = os.Stat(filepath.Join(workdir, common.MarkerFilename))
	require.ErrorIs(t, err, os.ErrNotExist)

	saved, err := report.NewFileRepository(reportPath).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, deb.StageDone, saved.Stage)
	require.True(t, saved.Simulated)
	require.Equal(t, "foo", saved.Package)
	require.Equal(t, "1.2.0-5", saved.Version)
}

func TestRunValidationFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	taskPath := filepath.Join(dir, "task.yaml")
	require.NoError(t, os.WriteFile(taskPath, []byte("quiet: true\nworking_directory: "+dir+"\n"), 0o600))

	err := Run(context.Background(), &Options{
		ConfigPath:  taskPath,
		ProjectPath: filepath.Join(dir, "package.json"),
		Simulate:    true,
	})
	require.ErrorIs(t, err, deb.ErrValidation)

	_, err = os.Stat(filepath.Join(dir, "packaging"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunUploadFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	taskPath, workdir := writeTask(t, "repository: ppa:team/stable\n")
	reportPath := filepath.Join(t.TempDir(), "report.yaml")

	runner := &fakeRunner{
		exitCodes: map[string]int{driver.UploadTool: 1},
		onRun: func(spec driver.ProcessSpec) {
			if spec.Command != driver.BuildTool {
				return
			}

			for _, name := range []string{"foo_1.2.0-5_all.deb", "foo_1.2.0-5_source.changes"} {
				require.NoError(t, os.WriteFile(filepath.Join(workdir, name), []byte(name), 0o600))
			}
		},
	}

	err := Run(context.Background(), &Options{
		ConfigPath:  taskPath,
		ProjectPath: filepath.Join(t.TempDir(), "package.json"),
		ReportPath:  reportPath,
		DriverOptions: []driver.Option{
			driver.WithRunner(runner),
			driver.WithLookPath(foundTool),
			driver.WithOutput(nil, nil),
		},
		Now: fixedNow,
	})
	require.NoError(t, err)
	require.Equal(t, []string{driver.BuildTool, driver.UploadTool}, runner.commands)

	saved, err := report.NewFileRepository(reportPath).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, deb.StageUploadFailed, saved.Stage)
	require.Equal(t, []string{filepath.Join(workdir, "foo_1.2.0-5_all.deb")}, saved.Build.Artifacts)
	require.Equal(t, 1, saved.Upload.ExitCode)
}

func TestRunBuildFailure(t *testing.T) {
	t.Parallel()

	taskPath, _ := writeTask(t, "repository: ppa:team/stable\n")
	runner := &fakeRunner{exitCodes: map[string]int{driver.BuildTool: 2}}

	err := Run(context.Background(), &Options{
		ConfigPath:  taskPath,
		ProjectPath: filepath.Join(t.TempDir(), "package.json"),
		DriverOptions: []driver.Option{
			driver.WithRunner(runner),
			driver.WithLookPath(foundTool),
			driver.WithOutput(nil, nil),
		},
	})
	require.ErrorIs(t, err, deb.ErrBuildFailed)
	require.Equal(t, []string{driver.BuildTool}, runner.commands)
}

func TestRunRenderOnly(t *testing.T) {
	t.Parallel()

	taskPath, workdir := writeTask(t, "")
	runner := &fakeRunner{}

	err := Run(context.Background(), &Options{
		ConfigPath:    taskPath,
		ProjectPath:   filepath.Join(t.TempDir(), "package.json"),
		RenderOnly:    true,
		DriverOptions: []driver.Option{driver.WithRunner(runner)},
	})
	require.NoError(t, err)
	require.Empty(t, runner.commands)

	makefile, err := os.ReadFile(filepath.Join(workdir, "packaging", "Makefile"))
	require.NoError(t, err)
	require.Contains(t, string(makefile), `"$(DESTDIR)/usr/bin/foo"`)
}

func TestRunWorkdirBusy(t *testing.T) {
	t.Parallel()

	taskPath, workdir := writeTask(t, "")
	require.NoError(t, os.MkdirAll(workdir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(workdir, common.MarkerFilename), []byte(strconv.Itoa(os.Getpid())), 0o600))

	err := Run(context.Background(), &Options{
		ConfigPath:  taskPath,
		ProjectPath: filepath.Join(t.TempDir(), "package.json"),
		Simulate:    true,
	})
	require.ErrorIs(t, err, deb.ErrWorkdirBusy)
}

func TestStart(t *testing.T) {
	t.Parallel()

	taskPath, _ := writeTask(t, "")

	results := Start(context.Background(), &Options{
		ConfigPath:  taskPath,
		ProjectPath: filepath.Join(t.TempDir(), "package.json"),
		Simulate:    true,
	})

	result, ok := <-results
	require.True(t, ok)
	require.True(t, result.Success)
	require.NoError(t, result.Err)

	_, ok = <-results
	require.False(t, ok)
}

func TestRunMissingTaskFile(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), &Options{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorIs(t, err, os.ErrNotExist)
}
