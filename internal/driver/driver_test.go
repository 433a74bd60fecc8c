package driver

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/deb-packager/internal/domain/deb"
)

// fakeRunner records invocations and replies with canned exit codes per command.
type fakeRunner struct {
	exitCodes map[string]int
	onRun     func(spec ProcessSpec)
	calls     []ProcessSpec
}

func (r *fakeRunner) Run(_ context.Context, spec ProcessSpec) (int, error) {
	r.calls = append(r.calls, spec)

	if r.onRun != nil {
		r.onRun(spec)
	}

	if spec.Stdout != nil {
		_, _ = spec.Stdout.Write([]byte("out line\n"))
	}

	return r.exitCodes[spec.Command], nil
}

func (r *fakeRunner) count(command string) int {
	n := 0

	for _, call := range r.calls {
		if call.Command == command {
			n++
		}
	}

	return n
}

func foundTool(file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func missingTool(string) (string, error) {
	return "", exec.ErrNotFound
}

func testOptions(t *testing.T) *deb.Options {
	t.Helper()

	workdir := t.TempDir()

	return &deb.Options{
		Maintainer:             deb.Maintainer{Name: "Jane Doe", Email: "jane@example.com"},
		Name:                   "foo",
		Version:                "1.0",
		BuildNumber:            "1",
		WorkingDirectory:       workdir,
		PackagingDirectoryName: "packaging",
		PackageLocation:        workdir + string(filepath.Separator),
	}
}

func writeArtifact(t *testing.T, dir, name, contents string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestBuildToolMissing(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	d := New(testOptions(t), WithRunner(runner), WithLookPath(missingTool), WithOutput(nil, nil))

	_, err := d.Build(context.Background(), "tree", false)
	require.ErrorIs(t, err, deb.ErrToolMissing)
	require.Empty(t, runner.calls)
	require.Equal(t, deb.StageNotStarted, d.Stage())
}

func TestBuildSuccessWithoutRepository(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	artifact := writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_all.deb", "package")

	var stdout bytes.Buffer

	runner := &fakeRunner{}
	d := New(opts, WithRunner(runner), WithLookPath(foundTool), WithOutput(&stdout, nil))

	result, err := d.Build(context.Background(), opts.TreeDir(), true)
	require.NoError(t, err)
	require.Equal(t, []string{artifact}, result.Artifacts)
	require.Equal(t, 1, runner.count(BuildTool))
	require.Equal(t, 0, runner.count(UploadTool))
	require.Equal(t, "debuild: out line\n", stdout.String())

	spec := runner.calls[0]
	require.Equal(t, opts.TreeDir(), spec.Dir)
	require.Contains(t, spec.Args, "--no-tgz-check")
	require.Contains(t, spec.Env, "DEBFULLNAME=Jane Doe")
	require.Contains(t, spec.Env, "DEBEMAIL=jane@example.com")
}

func TestBuildQuietDiscardsStdout(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	runner := &fakeRunner{}
	d := New(testOptions(t), WithRunner(runner), WithLookPath(foundTool), WithOutput(&stdout, nil))

	_, err := d.Build(context.Background(), "tree", false)
	require.NoError(t, err)
	require.Nil(t, runner.calls[0].Stdout)
	require.Empty(t, stdout.String())
}

func TestBuildAndUpload(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Repository = "ppa:team/stable"
	changes := writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_source.changes", "changes")

	runner := &fakeRunner{}
	d := New(opts, WithRunner(runner), WithLookPath(foundTool), WithOutput(nil, nil))

	_, err := d.Build(context.Background(), opts.TreeDir(), false)
	require.NoError(t, err)
	require.Equal(t, deb.StageBuildSucceeded, d.Stage())

	result, err := d.Upload(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, changes, result.ChangesFile)
	require.Equal(t, 1, runner.count(UploadTool))
	require.Equal(t, []string{"-d", "ppa:team/stable", changes}, runner.calls[1].Args)
	require.Equal(t, deb.StageDone, d.Stage())

	info, err := os.Stat(changes)
	require.NoError(t, err)
	require.Equal(t, changesMode, info.Mode().Perm())
}

func TestUploadFailure(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Repository = "ppa:team/stable"
	writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_source.changes", "changes")

	runner := &fakeRunner{exitCodes: map[string]int{UploadTool: 1}}
	d := New(opts, WithRunner(runner), WithLookPath(foundTool), WithOutput(nil, nil))

	_, err := d.Build(context.Background(), opts.TreeDir(), false)
	require.NoError(t, err)

	result, err := d.Upload(context.Background(), false)
	require.ErrorIs(t, err, deb.ErrUploadFailed)
	require.Equal(t, 1, result.ExitCode)
	require.Equal(t, deb.StageUploadFailed, d.Stage())
}

func TestUploadRequiresBuild(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Repository = "ppa:team/stable"

	_, err := New(opts, WithRunner(&fakeRunner{})).Upload(context.Background(), false)
	require.ErrorIs(t, err, errNotBuilt)
}

func TestBuildFailure(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		log      string
		wantHint bool
	}{
		{name: "with debhelper marker", log: "dpkg-checkbuilddeps: Unmet build dependencies: debhelper (>= 9)\n", wantHint: true},
		{name: "without marker", log: "lintian failed\n", wantHint: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			opts := testOptions(t)
			opts.Repository = "ppa:team/stable"

			runner := &fakeRunner{
				exitCodes: map[string]int{BuildTool: 2},
				onRun: func(ProcessSpec) {
					writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_amd64.build", tc.log)
				},
			}
			d := New(opts, WithRunner(runner), WithLookPath(foundTool), WithOutput(nil, nil))

			result, err := d.Build(context.Background(), opts.TreeDir(), false)
			require.ErrorIs(t, err, deb.ErrBuildFailed)
			require.Equal(t, 2, result.ExitCode)
			require.Equal(t, tc.log, result.LogText)
			require.Equal(t, tc.wantHint, result.MissingDependencyHint != "")
			require.Equal(t, deb.StageBuildFailed, d.Stage())
			require.Equal(t, 0, runner.count(UploadTool))
		})
	}
}

func TestSimulateNeverSpawns(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Simulate = true
	opts.Repository = "ppa:team/stable"

	runner := &fakeRunner{}
	d := New(opts, WithRunner(runner), WithLookPath(missingTool))

	_, err := d.Build(context.Background(), "tree", false)
	require.NoError(t, err)

	_, err = d.Upload(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, runner.calls)
	require.Equal(t, deb.StageDone, d.Stage())
}

func TestExecRunnerExitCode(t *testing.T) {
	t.Parallel()

	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	code, err := ExecRunner{}.Run(context.Background(), ProcessSpec{Command: sh, Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	require.Equal(t, 3, code)

	_, err = ExecRunner{}.Run(context.Background(), ProcessSpec{Command: filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
	require.False(t, errors.Is(err, deb.ErrBuildFailed))
}

func TestUploadIgnoresPreviousRelease(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Version = "1.1"
	opts.Repository = "ppa:team/stable"

	writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_source.changes", "old")
	writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_all.deb", "old")
	writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_amd64.build", "Unmet build dependencies: debhelper\n")

	var current string

	runner := &fakeRunner{
		onRun: func(spec ProcessSpec) {
			if spec.Command != BuildTool {
				return
			}

			current = writeArtifact(t, opts.WorkingDirectory, "foo_1.1-1_source.changes", "new")
			writeArtifact(t, opts.WorkingDirectory, "foo_1.1-1_all.deb", "new")
		},
	}
	d := New(opts, WithRunner(runner), WithLookPath(foundTool), WithOutput(nil, nil))

	result, err := d.Build(context.Background(), opts.TreeDir(), false)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(opts.WorkingDirectory, "foo_1.1-1_all.deb")}, result.Artifacts)

	upload, err := d.Upload(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, current, upload.ChangesFile)
	require.Equal(t, []string{"ppa:team/stable", current}, runner.calls[1].Args)
}

func TestBuildFailureIgnoresStaleLog(t *testing.T) {
	t.Parallel()

	opts := testOptions(t)
	opts.Version = "1.1"
	writeArtifact(t, opts.WorkingDirectory, "foo_1.0-1_amd64.build", "Unmet build dependencies: debhelper\n")

	runner := &fakeRunner{exitCodes: map[string]int{BuildTool: 2}}
	d := New(opts, WithRunner(runner), WithLookPath(foundTool), WithOutput(nil, nil))

	result, err := d.Build(context.Background(), opts.TreeDir(), false)
	require.ErrorIs(t, err, deb.ErrBuildFailed)
	require.Empty(t, result.LogText)
	require.Empty(t, result.MissingDependencyHint)
}
