package bundler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/ltex-ls-bundler/internal/config"
	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
	"github.com/oshokin/ltex-ls-bundler/internal/logger"
	"github.com/oshokin/ltex-ls-bundler/internal/metadata"
	"github.com/oshokin/ltex-ls-bundler/internal/metrics"
	"github.com/oshokin/ltex-ls-bundler/internal/repository/lock"
	"github.com/oshokin/ltex-ls-bundler/internal/repository/manifest"
	"github.com/oshokin/ltex-ls-bundler/internal/service/common"
)

// metricsNamespace prefixes every exported metric.
const metricsNamespace = "ltex_bundler"

// Options contains inputs for the bundler entry point.
type Options struct {
	// ConfigPath is an optional settings file (defaults to ltex-bundler.yaml when present).
	ConfigPath string
	// Concurrency overrides the configured number of parallel targets when positive.
	Concurrency int
	// ContinueOnError builds the remaining targets after a failure when set.
	ContinueOnError bool
	// ManifestFile overrides the configured release manifest path when not empty.
	ManifestFile string
	// BundlerOptions are applied to the Bundler, mainly to replace the fetcher or linker.
	BundlerOptions []Option
}

// Run executes the bundling workflow: it loads settings, locks the output
// directory, resolves the distribution version once and builds every target.
// The release manifest and the metrics textfile are written only when configured.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "ltex-bundler")

	if opts == nil {
		opts = &Options{}
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.Concurrency > 0 {
		cfg.Concurrency = opts.Concurrency
	}

	if opts.ContinueOnError {
		cfg.ContinueOnError = true
	}

	if opts.ManifestFile != "" {
		cfg.ManifestFile = opts.ManifestFile
	}

	runLock, err := lock.Acquire(ctx, cfg.OutputDir)
	if err != nil {
		return err
	}

	defer func() {
		if releaseErr := runLock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release run lock", "error", releaseErr)
		}
	}()

	version, err := metadata.ResolveVersion(cfg.MetadataFile)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Resolved distribution version", "file", cfg.MetadataFile, "version", version)

	var (
		recorder metrics.Recorder = metrics.Noop{}
		prom     *metrics.Prom
	)

	if cfg.MetricsFile != "" {
		prom = metrics.NewProm(metricsNamespace)
		recorder = prom
	}

	bundlerOptions := append([]Option{WithMetrics(recorder)}, opts.BundlerOptions...)

	b, err := New(cfg, version, bundlerOptions...)
	if err != nil {
		return fmt.Errorf("initialize bundler: %w", err)
	}

	logger.InfoKV(ctx, "Starting run", "run_id", b.RunID())

	report, runErr := b.Run(ctx, cfg.Targets)

	if cfg.ManifestFile != "" {
		logger.InfoKV(ctx, "Saving release manifest", "path", cfg.ManifestFile)

		if err = saveManifest(ctx, manifest.NewFileRepository(cfg.ManifestFile), report); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	if prom != nil {
		logger.InfoKV(ctx, "Writing metrics", "path", cfg.MetricsFile)

		if err = prom.WriteTextfile(cfg.MetricsFile); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	logSummary(ctx, report)

	if runErr != nil {
		return fmt.Errorf("bundler failed: %w", runErr)
	}

	logger.Info(ctx, "Bundler completed successfully")

	return nil
}

// saveManifest records the archives produced by the run in repo.
// Nothing is written when no archive was produced.
func saveManifest(ctx context.Context, repo manifest.Repository, report *Report) error {
	archives := report.Archives()
	if len(archives) == 0 {
		return nil
	}

	builtManifest := &release.Manifest{
		Version:        report.Version,
		RuntimeVersion: report.RuntimeVersion,
		RunID:          report.RunID,
		BuiltAt:        time.Now().UTC(),
		Artifacts:      make([]release.Artifact, 0, len(archives)),
	}

	if actor, err := common.DetectActor(); err == nil {
		builtManifest.Builder = actor
	} else {
		logger.WarnKV(ctx, "Unable to detect builder", "error", err)
	}

	for _, result := range report.Results {
		if !result.Succeeded() {
			continue
		}

		artifact, err := manifest.Describe(result.Archive, result.Target)
		if err != nil {
			return err
		}

		builtManifest.Artifacts = append(builtManifest.Artifacts, artifact)
	}

	return repo.Save(ctx, builtManifest)
}

// logSummary logs one line per target.
func logSummary(ctx context.Context, report *Report) {
	for _, result := range report.Results {
		switch {
		case result.Skipped:
			logger.WarnKV(ctx, "Target skipped", "target", result.Target.String())
		case result.Err != nil:
			logger.ErrorKV(ctx, "Target failed", "target", result.Target.String(), "error", result.Err)
		default:
			logger.InfoKV(ctx, "Target built",
				"target", result.Target.String(),
				"archive", result.Archive,
				"duration", result.Duration.Round(time.Millisecond))
		}
	}
}
