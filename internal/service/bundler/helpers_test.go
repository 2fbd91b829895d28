package bundler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ltex-ls-bundler/internal/archive"
	"github.com/oshokin/ltex-ls-bundler/internal/config"
	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
	"github.com/oshokin/ltex-ls-bundler/internal/jdk"
)

const (
	testVersion        = "7.2.0"
	testRuntimeVersion = "11.0.12+7"

	unixLauncher = "#!/bin/sh\n" +
		"PRGDIR=`dirname \"$0\"`\n" +
		"BASEDIR=`cd \"$PRGDIR/..\" >/dev/null; pwd`\n" +
		"exec \"$JAVA_HOME/bin/java\" -jar \"$BASEDIR/lib/ltex-ls.jar\"\n"

	windowsLauncher = "@echo off\r\n" +
		"set BASEDIR=%~dp0..\r\n" +
		"set REPO=%BASEDIR%\\lib\r\n" +
		"\"%JAVA_HOME%\\bin\\java\" -jar \"%REPO%\\ltex-ls.jar\"\r\n"
)

// fakeFetcher lays out a minimal JDK instead of downloading one.
type fakeFetcher struct {
	// fail maps platforms to the error returned for them.
	fail map[release.Platform]error
}

func (f *fakeFetcher) Version() string {
	return testRuntimeVersion
}

func (f *fakeFetcher) Fetch(_ context.Context, t release.Target, destDir string) (string, error) {
	if err := f.fail[t.Platform]; err != nil {
		return "", err
	}

	home := filepath.Join(destDir, jdk.HomeDirName(testRuntimeVersion))
	modules := jdk.ModulesDir(home, t.Platform)

	if err := os.MkdirAll(modules, 0o755); err != nil {
		return "", err
	}

	if err := os.WriteFile(filepath.Join(modules, "java.base.jmod"), []byte("jmod"), 0o644); err != nil {
		return "", err
	}

	return home, nil
}

// fakeBuilder writes a stub runtime image and records the modules directories it was given.
type fakeBuilder struct {
	mu      sync.Mutex
	modules []string
	err     error
}

func (f *fakeBuilder) Build(_ context.Context, modulesDir, outputDir string) error {
	f.mu.Lock()
	f.modules = append(f.modules, modulesDir)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	if _, err := os.Stat(filepath.Join(modulesDir, "java.base.jmod")); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(outputDir, "bin"), 0o755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(outputDir, "bin", "java"), []byte("#!/bin/sh\n"), 0o755)
}

// writeBaseArchive packages a base distribution with the given unix launcher into dir.
func writeBaseArchive(t *testing.T, dir, unixScript string) {
	t.Helper()

	root := t.TempDir()
	dist := filepath.Join(root, release.DistributionName(config.DefaultAppName, testVersion))

	require.NoError(t, os.MkdirAll(filepath.Join(dist, "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "bin", "ltex-ls"), []byte(unixScript), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "bin", "ltex-ls.bat"), []byte(windowsLauncher), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "lib", "ltex-ls.jar"), []byte("jar"), 0o644))

	output := filepath.Join(dir, release.BaseArchiveName(config.DefaultAppName, testVersion))
	require.NoError(t, archive.Package(context.Background(), root, filepath.Base(dist), output, release.FormatTarGz))
}

// testConfig returns validated settings rooted in temporary directories.
func testConfig(t *testing.T) *config.Config {
	t.Helper()

	root := t.TempDir()

	cfg := config.Default()
	cfg.MetadataFile = filepath.Join(root, "pom.xml")
	cfg.BaseArchiveDir = filepath.Join(root, "target")
	cfg.OutputDir = filepath.Join(root, "target")
	cfg.TempDir = filepath.Join(root, "tmp")

	require.NoError(t, os.MkdirAll(cfg.BaseArchiveDir, 0o755))
	require.NoError(t, os.MkdirAll(cfg.TempDir, 0o755))
	require.NoError(t, os.WriteFile(cfg.MetadataFile,
		[]byte("<project>\n  <artifactId>ltex-ls</artifactId>\n  <version>"+testVersion+"</version>\n</project>\n"),
		0o644))
	require.NoError(t, config.Validate(cfg))

	writeBaseArchive(t, cfg.BaseArchiveDir, unixLauncher)

	return cfg
}

// requireNoWorkspaces checks that every workspace was released.
func requireNoWorkspaces(t *testing.T, cfg *config.Config) {
	t.Helper()

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// extractArchive unpacks an archive into a fresh directory and returns it.
func extractArchive(t *testing.T, path string) string {
	t.Helper()

	dest := t.TempDir()
	require.NoError(t, archive.Extract(context.Background(), path, dest))

	return dest
}
