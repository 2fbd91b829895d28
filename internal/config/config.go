package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// Runtime describes the Java runtime bundled into every archive.
type Runtime struct {
	// Version is the Temurin release, e.g. 11.0.12+7.
	Version string `yaml:"version"`
	// ReleaseHost is the base URL hosting the temurin<major>-binaries repositories.
	ReleaseHost string `yaml:"release_host"`
	// Modules are passed to jlink --add-modules.
	Modules []string `yaml:"modules"`
	// CompressLevel is passed to jlink --compress.
	CompressLevel int `yaml:"compress_level"`
	// Linker is the jlink executable. Empty means $JAVA_HOME/bin/jlink or jlink on PATH.
	Linker string `yaml:"linker"`
	// VerifyChecksum enables SHA-256 verification against the vendor sidecar file.
	VerifyChecksum bool `yaml:"verify_checksum"`
}

// Config holds the settings of one bundling run.
type Config struct {
	// AppName is the distribution name prefix, e.g. ltex-ls.
	AppName string `yaml:"app_name"`
	// MetadataFile is the project file the distribution version is read from.
	MetadataFile string `yaml:"metadata_file"`
	// BaseArchiveDir holds <app>-<version>.tar.gz produced by the project build.
	BaseArchiveDir string `yaml:"base_archive_dir"`
	// OutputDir receives the per-target archives and the release manifest.
	OutputDir string `yaml:"output_dir"`
	// TempDir is the parent of per-target workspaces. Empty means the system temp dir.
	TempDir string `yaml:"temp_dir"`
	// Runtime configures the bundled Java runtime.
	Runtime Runtime `yaml:"runtime"`
	// Targets is the ordered build matrix.
	Targets []release.Target `yaml:"targets"`
	// DownloadTimeout bounds a single runtime download attempt.
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	// DownloadRetries is the number of download attempts.
	DownloadRetries int `yaml:"download_retries"`
	// RetryDelay is the pause between download attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
	// LinkerTimeout bounds a single jlink invocation.
	LinkerTimeout time.Duration `yaml:"linker_timeout"`
	// Concurrency is the number of targets built at once.
	Concurrency int `yaml:"concurrency"`
	// ContinueOnError keeps building the remaining targets after a failure.
	ContinueOnError bool `yaml:"continue_on_error"`
	// MetricsFile is an optional Prometheus textfile written after the run.
	MetricsFile string `yaml:"metrics_file"`
	// ManifestFile is an optional release manifest of the produced archives written after the run.
	ManifestFile string `yaml:"manifest_file"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "ltex-bundler.yaml"

	// DefaultAppName is the name of the bundled application.
	DefaultAppName = "ltex-ls"

	// DefaultMetadataFile is the project metadata holding the version tag.
	DefaultMetadataFile = "pom.xml"

	// DefaultTargetDir is where the base archive is read and archives are written.
	DefaultTargetDir = "target"

	// DefaultRuntimeVersion is the pinned Temurin release.
	DefaultRuntimeVersion = "11.0.12+7"

	// DefaultReleaseHost hosts the Temurin release repositories.
	DefaultReleaseHost = "https://github.com/adoptium"

	// DefaultCompressLevel is the jlink compression level.
	DefaultCompressLevel = 2

	// DefaultDownloadTimeout bounds a single download attempt.
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultDownloadRetries is the number of download attempts.
	DefaultDownloadRetries = 3

	// DefaultRetryDelay is the pause between download attempts.
	DefaultRetryDelay = 2 * time.Second

	// DefaultLinkerTimeout bounds a single jlink invocation.
	DefaultLinkerTimeout = 10 * time.Minute

	// DefaultFilePermissions is the mode of files written by the bundler.
	DefaultFilePermissions = 0o644
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAppNameRequired is returned when the application name is empty.
	errAppNameRequired = errors.New("app name must be provided")
	// errNoTargets is returned when the build matrix is empty.
	errNoTargets = errors.New("at least one target must be configured")
	// errArchRequired is returned for targets without an architecture.
	errArchRequired = errors.New("target architecture must be provided")
	// errDuplicateTarget is returned when a target appears twice in the matrix.
	errDuplicateTarget = errors.New("duplicate target")
	// errNegativeValue is returned for negative counters.
	errNegativeValue = errors.New("value must not be negative")
)

// DefaultModules returns the module set linked into the runtime image.
func DefaultModules() []string {
	return []string{"java.se"}
}

// Default returns the settings of a parameterless run.
func Default() *Config {
	return &Config{
		AppName:        DefaultAppName,
		MetadataFile:   DefaultMetadataFile,
		BaseArchiveDir: DefaultTargetDir,
		OutputDir:      DefaultTargetDir,
		Runtime: Runtime{
			Version:       DefaultRuntimeVersion,
			ReleaseHost:   DefaultReleaseHost,
			Modules:       DefaultModules(),
			CompressLevel: DefaultCompressLevel,
		},
		Targets:         release.DefaultTargets(),
		DownloadTimeout: DefaultDownloadTimeout,
		DownloadRetries: DefaultDownloadRetries,
		RetryDelay:      DefaultRetryDelay,
		LinkerTimeout:   DefaultLinkerTimeout,
		Concurrency:     1,
	}
}

// Load reads configuration from path on top of Default and validates it.
// An empty path loads DefaultConfigFilename if present and Default otherwise.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		// Settings below override the defaults, omitted keys keep them.
		// Sequences present in the file replace the default ones.
		if err = yaml.Unmarshal(contents, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
		// Parameterless run.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for omitted ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if strings.TrimSpace(cfg.AppName) == "" {
		return errAppNameRequired
	}

	setStringDefault(&cfg.MetadataFile, DefaultMetadataFile)
	setStringDefault(&cfg.BaseArchiveDir, DefaultTargetDir)
	setStringDefault(&cfg.OutputDir, DefaultTargetDir)

	if err := validateRuntime(&cfg.Runtime); err != nil {
		return err
	}

	// An omitted matrix means the default one, an explicitly empty one is an error.
	if cfg.Targets == nil {
		cfg.Targets = release.DefaultTargets()
	}

	if len(cfg.Targets) == 0 {
		return errNoTargets
	}

	seen := make(map[release.Target]struct{}, len(cfg.Targets))

	for i, target := range cfg.Targets {
		platform, err := release.ParsePlatform(string(target.Platform))
		if err != nil {
			return fmt.Errorf("target #%d: %w", i+1, err)
		}

		arch := strings.TrimSpace(target.Arch)
		if arch == "" {
			return fmt.Errorf("target #%d: %w", i+1, errArchRequired)
		}

		cfg.Targets[i] = release.Target{Platform: platform, Arch: arch}

		if _, dup := seen[cfg.Targets[i]]; dup {
			return fmt.Errorf("%s: %w", cfg.Targets[i], errDuplicateTarget)
		}

		seen[cfg.Targets[i]] = struct{}{}
	}

	if cfg.DownloadRetries < 0 || cfg.Concurrency < 0 {
		return fmt.Errorf("download_retries/concurrency: %w", errNegativeValue)
	}

	setDurationDefault(&cfg.DownloadTimeout, DefaultDownloadTimeout)
	setDurationDefault(&cfg.LinkerTimeout, DefaultLinkerTimeout)

	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	if cfg.DownloadRetries == 0 {
		cfg.DownloadRetries = DefaultDownloadRetries
	}

	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}

	return nil
}

// validateRuntime checks the runtime section.
func validateRuntime(rt *Runtime) error {
	setStringDefault(&rt.Version, DefaultRuntimeVersion)
	setStringDefault(&rt.ReleaseHost, DefaultReleaseHost)

	if _, err := semver.NewVersion(rt.Version); err != nil {
		return fmt.Errorf("invalid runtime version %q: %w", rt.Version, err)
	}

	if _, err := url.ParseRequestURI(rt.ReleaseHost); err != nil {
		return fmt.Errorf("invalid release host: %w", err)
	}

	if len(rt.Modules) == 0 {
		rt.Modules = DefaultModules()
	}

	if rt.CompressLevel < 0 {
		return fmt.Errorf("compress_level: %w", errNegativeValue)
	}

	return nil
}

func setStringDefault(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

func setDurationDefault(field *time.Duration, value time.Duration) {
	if *field <= 0 {
		*field = value
	}
}
