package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/ltex-ls-bundler/internal/archive"
	"github.com/oshokin/ltex-ls-bundler/internal/config"
	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
	"github.com/oshokin/ltex-ls-bundler/internal/jdk"
	"github.com/oshokin/ltex-ls-bundler/internal/launcher"
	"github.com/oshokin/ltex-ls-bundler/internal/logger"
	"github.com/oshokin/ltex-ls-bundler/internal/metrics"
)

// RuntimeFetcher provides an extracted JDK for a target.
type RuntimeFetcher interface {
	Fetch(ctx context.Context, t release.Target, destDir string) (string, error)
	Version() string
}

const (
	// distDirName holds the extracted base distribution inside a workspace.
	distDirName = "dist"
	// runtimeDirName holds the downloaded JDK inside a workspace.
	runtimeDirName = "runtime"
)

// errVersionRequired is returned when the bundler is created without a version.
var errVersionRequired = errors.New("distribution version is required")

// Bundler builds per-target archives of one distribution version.
type Bundler struct {
	// cfg holds the run settings.
	cfg *config.Config
	// version is the distribution version read from the metadata file.
	version string
	// runID identifies the run in logs and the manifest.
	runID string
	// fetcher provides the full JDK of a target.
	fetcher RuntimeFetcher
	// builder links the minimized runtime image.
	builder jdk.ImageBuilder
	// metrics records stage durations and outcomes.
	metrics metrics.Recorder
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithFetcher replaces the JDK fetcher.
func WithFetcher(fetcher RuntimeFetcher) Option {
	return func(b *Bundler) {
		if fetcher != nil {
			b.fetcher = fetcher
		}
	}
}

// WithImageBuilder replaces the runtime image builder.
func WithImageBuilder(builder jdk.ImageBuilder) Option {
	return func(b *Bundler) {
		if builder != nil {
			b.builder = builder
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder metrics.Recorder) Option {
	return func(b *Bundler) {
		if recorder != nil {
			b.metrics = recorder
		}
	}
}

// WithRunID sets the run identifier instead of a random one.
func WithRunID(runID string) Option {
	return func(b *Bundler) {
		if runID != "" {
			b.runID = runID
		}
	}
}

// New creates a Bundler for version. cfg must already be validated.
func New(cfg *config.Config, version string, opts ...Option) (*Bundler, error) {
	if version == "" {
		return nil, errVersionRequired
	}

	b := &Bundler{
		cfg:     cfg,
		version: version,
		runID:   uuid.NewString(),
		metrics: metrics.Noop{},
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.fetcher == nil {
		fetcher, err := jdk.NewFetcher(cfg.Runtime.ReleaseHost, cfg.Runtime.Version,
			jdk.WithRetries(cfg.DownloadRetries, cfg.RetryDelay),
			jdk.WithDownloadTimeout(cfg.DownloadTimeout),
			jdk.WithChecksumVerification(cfg.Runtime.VerifyChecksum),
		)
		if err != nil {
			return nil, fmt.Errorf("create runtime fetcher: %w", err)
		}

		b.fetcher = fetcher
	}

	if b.builder == nil {
		b.builder = jdk.NewJLink(cfg.Runtime.Linker, cfg.Runtime.Modules, cfg.Runtime.CompressLevel, cfg.LinkerTimeout)
	}

	return b, nil
}

// RunID returns the identifier of the run.
func (b *Bundler) RunID() string {
	return b.runID
}

// BaseArchive returns the path of the base distribution archive.
func (b *Bundler) BaseArchive() string {
	return filepath.Join(b.cfg.BaseArchiveDir, release.BaseArchiveName(b.cfg.AppName, b.version))
}

// Run builds one archive per target in the given order. The report lists every
// target, including failed and skipped ones, even when an error is returned.
func (b *Bundler) Run(ctx context.Context, targets []release.Target) (*Report, error) {
	ctx = logger.WithKV(ctx, "run_id", b.runID)

	report := &Report{
		RunID:          b.runID,
		Version:        b.version,
		RuntimeVersion: b.fetcher.Version(),
		Results:        make([]Result, len(targets)),
	}

	for i, target := range targets {
		report.Results[i].Target = target
	}

	logger.InfoKV(ctx, "Bundling distribution",
		"version", b.version, "runtime", report.RuntimeVersion, "targets", len(targets))

	runner := executor{limit: b.cfg.Concurrency, continueOnError: b.cfg.ContinueOnError}

	skipped, err := runner.execute(ctx, len(targets), func(ctx context.Context, i int) error {
		result := &report.Results[i]
		start := time.Now()

		result.Archive, result.Err = b.build(ctx, result.Target)
		result.Duration = time.Since(start)

		return result.Err
	})

	for i := range report.Results {
		result := &report.Results[i]
		result.Skipped = skipped[i]

		outcome := metrics.OutcomeSuccess

		switch {
		case result.Skipped:
			outcome = metrics.OutcomeSkipped
		case result.Err != nil:
			outcome = metrics.OutcomeFailure
		}

		b.metrics.IncTarget(result.Target.String(), outcome)
	}

	return report, err
}

// build runs the pipeline of one target and returns the produced archive.
func (b *Bundler) build(ctx context.Context, t release.Target) (string, error) {
	ctx = logger.WithKV(ctx, "target", t.String())

	workspace, err := os.MkdirTemp(b.cfg.TempDir, fmt.Sprintf("ltex-bundler-%s-%s-*", t.Platform, t.Arch))
	if err != nil {
		return "", &release.StageError{
			Target: t,
			Stage:  release.StageWorkspace,
			Err:    release.Filesystem("create workspace", err),
		}
	}

	defer func() {
		if removeErr := os.RemoveAll(workspace); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove workspace", "path", workspace, "error", removeErr)
		}
	}()

	logger.DebugKV(ctx, "Created workspace", "path", workspace)

	var (
		distRoot   = filepath.Join(workspace, distDirName)
		distName   = release.DistributionName(b.cfg.AppName, b.version)
		distDir    = filepath.Join(distRoot, distName)
		runtimeRel = jdk.HomeDirName(b.fetcher.Version())
		output     = filepath.Join(b.cfg.OutputDir, release.ArchiveName(b.cfg.AppName, b.version, t))
		jdkHome    string
	)

	err = b.stage(ctx, t, release.StageExtractBase, func(ctx context.Context) error {
		logger.InfoKV(ctx, "Extracting base distribution", "archive", b.BaseArchive(), "path", distRoot)

		if err := archive.Extract(ctx, b.BaseArchive(), distRoot); err != nil {
			return err
		}

		if _, err := os.Stat(distDir); err != nil {
			return release.Filesystem("locate distribution root", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	err = b.stage(ctx, t, release.StageFetchRuntime, func(ctx context.Context) error {
		var err error

		jdkHome, err = b.fetcher.Fetch(ctx, t, filepath.Join(workspace, runtimeDirName))

		return err
	})
	if err != nil {
		return "", err
	}

	err = b.stage(ctx, t, release.StageBuildImage, func(ctx context.Context) error {
		image := filepath.Join(distDir, runtimeRel)

		logger.InfoKV(ctx, "Creating runtime image", "path", image)

		if err := b.builder.Build(ctx, jdk.ModulesDir(jdkHome, t.Platform), image); err != nil {
			return err
		}

		logger.InfoKV(ctx, "Removing JDK", "path", jdkHome)

		if err := os.RemoveAll(jdkHome); err != nil {
			return release.Filesystem("remove JDK", err)
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	err = b.stage(ctx, t, release.StagePatch, func(ctx context.Context) error {
		script, err := launcher.Prepare(distDir, b.cfg.AppName, t.Family(), runtimeRel)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Patched launcher", "path", script)

		return nil
	})
	if err != nil {
		return "", err
	}

	err = b.stage(ctx, t, release.StagePackage, func(ctx context.Context) error {
		logger.InfoKV(ctx, "Creating archive", "path", output)

		return archive.Package(ctx, distRoot, distName, output, t.Format())
	})
	if err != nil {
		return "", err
	}

	return output, nil
}

// stage runs one pipeline step, timing it and tagging its failure with the stage name.
func (b *Bundler) stage(
	ctx context.Context,
	t release.Target,
	stage release.Stage,
	fn func(ctx context.Context) error,
) error {
	ctx = logger.WithKV(ctx, "stage", string(stage))

	if err := ctx.Err(); err != nil {
		return &release.StageError{Target: t, Stage: stage, Err: err}
	}

	logger.Debug(ctx, "Stage started")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	b.metrics.ObserveStage(t.String(), string(stage), elapsed)

	if err != nil {
		logger.ErrorKV(ctx, "Stage failed", "duration", elapsed, "error", err)

		return &release.StageError{Target: t, Stage: stage, Err: err}
	}

	logger.DebugKV(ctx, "Stage finished", "duration", elapsed)

	return nil
}
