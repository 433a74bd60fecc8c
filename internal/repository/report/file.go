package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/deb-packager/internal/domain/deb"
	"github.com/oshokin/deb-packager/internal/service/common"
)

// Repository defines persistence operations for run reports.
type Repository interface {
	Load(ctx context.Context) (*deb.Report, error)
	Save(ctx context.Context, report *deb.Report) error
}

// FileRepository persists a run report to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the report file.
	path string
	// mu protects concurrent access to the report file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the report file does not exist yet.
	ErrNotFound = errors.New("report not found")

	errUnknownStage = errors.New("unknown stage")
)

// record is the on-disk shape of a report.
type record struct {
	Package    string        `yaml:"package"`
	Version    string        `yaml:"version"`
	Stage      string        `yaml:"stage"`
	Simulated  bool          `yaml:"simulated"`
	StartedAt  time.Time     `yaml:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Actor      *common.Actor `yaml:"actor,omitempty"`
	Build      *buildRecord  `yaml:"build,omitempty"`
	Upload     *uploadRecord `yaml:"upload,omitempty"`
	Error      string        `yaml:"error,omitempty"`
}

type buildRecord struct {
	ExitCode              int      `yaml:"exit_code"`
	Artifacts             []string `yaml:"artifacts,omitempty"`
	MissingDependencyHint string   `yaml:"missing_dependency_hint,omitempty"`
}

type uploadRecord struct {
	ExitCode    int    `yaml:"exit_code"`
	ChangesFile string `yaml:"changes_file"`
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the report from disk.
func (r *FileRepository) Load(_ context.Context) (*deb.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read report file: %w", err)
	}

	var rec record
	if err = yaml.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode report file: %w", err)
	}

	return fromRecord(&rec)
}

// Save writes the report to disk, replacing any previous one.
// The build log text is not persisted.
func (r *FileRepository) Save(_ context.Context, report *deb.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(toRecord(report))
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	if err = common.WriteFileAtomic(r.path, data, common.DefaultFileMode); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}

	return nil
}

// fromRecord converts the on-disk record into the domain Report model.
func fromRecord(rec *record) (*deb.Report, error) {
	stage, ok := deb.ParseStage(rec.Stage)
	if !ok {
		return nil, fmt.Errorf("%w %q", errUnknownStage, rec.Stage)
	}

	report := &deb.Report{
		Package:    rec.Package,
		Version:    rec.Version,
		Stage:      stage,
		Simulated:  rec.Simulated,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
		Error:      rec.Error,
	}

	if rec.Actor != nil {
		report.Hostname = rec.Actor.Hostname
		report.Username = rec.Actor.Username
	}

	if rec.Build != nil {
		report.Build = &deb.BuildResult{
			ExitCode:              rec.Build.ExitCode,
			Artifacts:             rec.Build.Artifacts,
			MissingDependencyHint: rec.Build.MissingDependencyHint,
		}
	}

	if rec.Upload != nil {
		report.Upload = &deb.UploadResult{
			ExitCode:    rec.Upload.ExitCode,
			ChangesFile: rec.Upload.ChangesFile,
		}
	}

	return report, nil
}

// toRecord converts the domain Report model into the on-disk record.
func toRecord(report *deb.Report) *record {
	rec := &record{
		Package:    report.Package,
		Version:    report.Version,
		Stage:      report.Stage.String(),
		Simulated:  report.Simulated,
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Error:      report.Error,
	}

	if report.Hostname != "" || report.Username != "" {
		rec.Actor = &common.Actor{
			Hostname: report.Hostname,
			Username: report.Username,
		}
	}

	if report.Build != nil {
		rec.Build = &buildRecord{
			ExitCode:              report.Build.ExitCode,
			Artifacts:             report.Build.Artifacts,
			MissingDependencyHint: report.Build.MissingDependencyHint,
		}
	}

	if report.Upload != nil {
		rec.Upload = &uploadRecord{
			ExitCode:    report.Upload.ExitCode,
			ChangesFile: report.Upload.ChangesFile,
		}
	}

	return rec
}
