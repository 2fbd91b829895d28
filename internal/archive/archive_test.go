package archive

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// snapshotEntry is the observable state of one path in a tree.
type snapshotEntry struct {
	mode    fs.FileMode
	content string
	link    string
}

// snapshot records every path below root with its mode and contents.
func snapshot(t *testing.T, root string) map[string]snapshotEntry {
	t.Helper()

	result := make(map[string]snapshotEntry)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		require.NoError(t, err)

		rel, err := filepath.Rel(root, p)
		require.NoError(t, err)

		info, err := d.Info()
		require.NoError(t, err)

		var item snapshotEntry

		item.mode = info.Mode()

		switch {
		case info.Mode()&fs.ModeSymlink != 0:
			item.link, err = os.Readlink(p)
			require.NoError(t, err)
		case info.Mode().IsRegular():
			data, readErr := os.ReadFile(p)
			require.NoError(t, readErr)

			item.content = string(data)
		}

		result[filepath.ToSlash(rel)] = item

		return nil
	})
	require.NoError(t, err)

	return result
}

// writeTree creates a small distribution with mixed permission bits.
func writeTree(t *testing.T, root string) {
	t.Helper()

	dist := filepath.Join(root, "ltex-ls-7.2.0")
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "bin"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dist, "lib", "private"), 0o750))

	files := map[string]fs.FileMode{
		"bin/ltex-ls":             0o755,
		"bin/ltex-ls.bat":         0o644,
		"lib/ltexls.jar":          0o644,
		"lib/private/secret.conf": 0o600,
		"lib/private/run-tool.sh": 0o700,
		"README.md":               0o444,
	}

	for name, mode := range files {
		p := filepath.Join(dist, filepath.FromSlash(name))
		require.NoError(t, os.WriteFile(p, []byte("contents of "+name), 0o600))
		require.NoError(t, os.Chmod(p, mode))
	}

	require.NoError(t, os.Chmod(filepath.Join(dist, "lib", "private"), 0o750))
}

// TestPackageExtract_Roundtrip checks that both output formats reproduce files and permission bits.
func TestPackageExtract_Roundtrip(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	t.Parallel()

	for _, target := range release.DefaultTargets() {
		t.Run(target.String(), func(t *testing.T) {
			t.Parallel()

			root := t.TempDir()
			writeTree(t, root)

			if target.Format() == release.FormatTarGz {
				require.NoError(t, os.Symlink("ltex-ls", filepath.Join(root, "ltex-ls-7.2.0", "bin", "ltex")))
			}

			output := filepath.Join(t.TempDir(), release.ArchiveName("ltex-ls", "7.2.0", target))
			require.NoError(t, Package(context.Background(), root, "ltex-ls-7.2.0", output, target.Format()))

			info, err := os.Stat(output)
			require.NoError(t, err)
			require.Equal(t, outputFileMode, info.Mode().Perm())

			extracted := t.TempDir()
			require.NoError(t, Extract(context.Background(), output, extracted))

			require.Equal(t, snapshot(t, root), snapshot(t, extracted))
		})
	}
}

// TestExtract_UnsupportedFormat rejects unknown extensions.
func TestExtract_UnsupportedFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "runtime.rar")
	require.NoError(t, os.WriteFile(path, []byte("rar"), 0o600))

	err := Extract(context.Background(), path, t.TempDir())
	require.ErrorIs(t, err, release.ErrUnsupportedFormat)
}

// TestExtract_CorruptArchive reports a filesystem failure for unreadable data.
func TestExtract_CorruptArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "broken.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("definitely not gzip"), 0o600))

	err := Extract(context.Background(), path, t.TempDir())
	require.ErrorIs(t, err, release.ErrFilesystem)
}

// TestExtract_RejectsTraversal refuses entries that escape the destination.
func TestExtract_RejectsTraversal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "evil.tar.gz")

	file, err := os.Create(path)
	require.NoError(t, err)

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)
	body := []byte("owned")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Mode:     0o644,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))
	_, err = tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, file.Close())

	dest := filepath.Join(t.TempDir(), "dest")
	err = Extract(context.Background(), path, dest)
	require.ErrorIs(t, err, release.ErrFilesystem)

	_, err = os.Stat(filepath.Join(filepath.Dir(dest), "escape.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPackage_NoPartialOutput leaves nothing at the destination when packaging fails.
func TestPackage_NoPartialOutput(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root)

	outputDir := t.TempDir()
	output := filepath.Join(outputDir, "ltex-ls-7.2.0-linux-x64.tar.gz")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Package(ctx, root, "ltex-ls-7.2.0", output, release.FormatTarGz)
	require.ErrorIs(t, err, context.Canceled)

	_, err = os.Stat(output)
	require.ErrorIs(t, err, os.ErrNotExist)

	// A missing source tree fails before anything is created.
	err = Package(context.Background(), root, "ltex-ls-0.0.0", output, release.FormatZip)
	require.ErrorIs(t, err, release.ErrFilesystem)

	leftovers, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Empty(t, leftovers)
}

// TestPackage_ZipDirectorySymlink refuses to flatten a linked directory into an empty zip entry.
func TestPackage_ZipDirectorySymlink(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("creating symlinks requires extra privileges on windows")
	}

	root := t.TempDir()
	dist := filepath.Join(root, "ltex-ls-7.2.0")

	require.NoError(t, os.MkdirAll(filepath.Join(dist, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "lib", "ltex-ls.jar"), []byte("jar"), 0o644))
	require.NoError(t, os.Symlink("lib", filepath.Join(dist, "jars")))

	outputDir := t.TempDir()
	output := filepath.Join(outputDir, "ltex-ls-7.2.0-windows-x64.zip")

	err := Package(context.Background(), root, "ltex-ls-7.2.0", output, release.FormatZip)
	require.ErrorIs(t, err, errDirectorySymlink)
	require.ErrorIs(t, err, release.ErrFilesystem)

	leftovers, err := os.ReadDir(outputDir)
	require.NoError(t, err)
	require.Empty(t, leftovers)

	// The same tree still packs as tar.gz, which keeps the link as is.
	output = filepath.Join(outputDir, "ltex-ls-7.2.0-linux-x64.tar.gz")
	require.NoError(t, Package(context.Background(), root, "ltex-ls-7.2.0", output, release.FormatTarGz))
}

// TestDetectFormat maps extensions onto formats.
func TestDetectFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]release.Format{
		"OpenJDK11U-jdk_x64_windows_hotspot_11.0.12_7.zip":  release.FormatZip,
		"OpenJDK11U-jdk_x64_linux_hotspot_11.0.12_7.tar.gz": release.FormatTarGz,
		"base.TGZ":       release.FormatTarGz,
		"runtime.tar.xz": release.FormatTarXz,
	}

	for name, want := range cases {
		got, err := DetectFormat(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
}
