package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/deb-packager/internal/config"
	"github.com/oshokin/deb-packager/internal/logger"
	"github.com/oshokin/deb-packager/internal/service/packager"
	"github.com/oshokin/deb-packager/internal/version"
)

var (
	// configPath to the packaging task file.
	configPath string
	// projectPath to the project manifest supplying name, version, description and author.
	projectPath string
	// envFile is an optional dotenv file overlaid on the process environment.
	envFile string
	// repository overrides the upload target of the task file.
	repository string
	// reportPath is where the run report is written.
	reportPath string
	// logLevel is the minimum level of printed log entries.
	logLevel string
	// verbose forwards build tool output and lowers the log level to debug.
	verbose bool
	// simulate renders the package tree without running the build tools.
	simulate bool

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:           "deb-packager",
		Short:         "Build Debian packages from a declarative task file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogger()
		},
	}

	// buildCmd renders the package tree, builds it and uploads the result when a repository is set.
	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Render the package tree, build the package and optionally upload it",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(false)
		},
	}

	// renderCmd only renders the package tree.
	renderCmd = &cobra.Command{
		Use:   "render",
		Short: "Render the package tree without building it",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(true)
		},
	}

	// reportCmd prints the report saved by a previous run.
	reportCmd = &cobra.Command{
		Use:   "report [path]",
		Short: "Print the run report saved by a previous build",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := reportPath
			if len(args) > 0 {
				path = args[0]
			}

			return packager.ShowReport(cmd.Context(), path, cmd.OutOrStdout())
		},
	}
)

// Execute runs the deb-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(renderOnly bool) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	options := &packager.Options{
		ConfigPath:  configPath,
		ProjectPath: projectPath,
		EnvFile:     envFile,
		Verbose:     verbose,
		Simulate:    simulate,
		RenderOnly:  renderOnly,
		Repository:  repository,
		ReportPath:  reportPath,
	}

	return packager.Run(ctx, options)
}

func setupLogger() error {
	level, ok := logger.ParseLogLevel(logLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", logLevel)
	}

	if verbose && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}

	logger.SetLevel(level)

	return nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "path to the task file (default "+config.DefaultConfigFilename+")")
	flags.StringVarP(&projectPath, "project", "p", config.DefaultProjectFilename, "path to the project manifest")
	flags.StringVar(&envFile, "env-file", "", "optional dotenv file overlaid on the environment")
	flags.StringVar(&repository, "repository", "", "upload target, overrides the task file")
	flags.StringVar(&reportPath, "report", "", "YAML run report path, written by build and render, read by report")
	flags.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.BoolVarP(&verbose, "verbose", "v", false, "forward build tool output and log at debug level")
	flags.BoolVar(&simulate, "simulate", false, "render the package tree without running the build tools")

	rootCmd.AddCommand(buildCmd, renderCmd, reportCmd)
}
