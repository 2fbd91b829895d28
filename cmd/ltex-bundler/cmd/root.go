package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/ltex-ls-bundler/internal/logger"
	"github.com/oshokin/ltex-ls-bundler/internal/service/bundler"
	"github.com/oshokin/ltex-ls-bundler/internal/version"
)

// errUnknownLogLevel is returned for unsupported --log-level values.
var errUnknownLogLevel = errors.New("unknown log level")

var (
	// configPath to the configuration YAML file; empty uses ltex-bundler.yaml when present.
	configPath string
	// logLevel is the minimum level of printed messages.
	logLevel string
	// concurrency overrides the configured number of parallel targets.
	concurrency int
	// continueOnError keeps building the remaining targets after a failure.
	continueOnError bool
	// manifestFile enables the release manifest at the given path.
	manifestFile string

	// rootCmd represents the base command for building the per-platform archives.
	rootCmd = &cobra.Command{
		Use:           "ltex-bundler",
		Short:         "Build ltex-ls archives with a bundled Java runtime",
		Long:          "Build one ltex-ls archive per target platform, each shipping a minimized Temurin runtime image that the launcher uses when JAVA_HOME is not set.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				err := fmt.Errorf("%q: %w", logLevel, errUnknownLogLevel)
				logger.Error(context.Background(), err)

				return err
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &bundler.Options{
				ConfigPath:      configPath,
				Concurrency:     concurrency,
				ContinueOnError: continueOnError,
				ManifestFile:    manifestFile,
			}

			if err := bundler.Run(ctx, options); err != nil {
				logger.Error(ctx, err)

				return err
			}

			return nil
		},
	}
)

// Execute runs the ltex-bundler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to configuration file (default ltex-bundler.yaml when present)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of targets built at once (default from configuration)")
	rootCmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "build the remaining targets after a failure")
	rootCmd.Flags().StringVar(&manifestFile, "manifest-file", "", "write a release manifest of the produced archives to this path")
}
