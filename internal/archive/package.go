package archive

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// outputFileMode is the mode of produced archives.
const outputFileMode fs.FileMode = 0o644

// errDirectorySymlink is returned when a zip would have to store a symlink to a directory.
var errDirectorySymlink = errors.New("symlink to directory cannot be stored in zip")

// entry is a file system object queued for packaging.
type entry struct {
	// path is the absolute location on disk.
	path string
	// name is the slash separated archive name.
	name string
	// info is the Lstat result of path.
	info fs.FileInfo
}

// Package archives rootDir/entryName into outputPath so that every archive
// path starts with entryName. The destination only appears once the archive
// has been completely written.
func Package(ctx context.Context, rootDir, entryName, outputPath string, format release.Format) error {
	entries, err := collect(rootDir, entryName)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return release.Filesystem("create output directory", err)
	}

	out, err := newPendingFile(outputPath)
	if err != nil {
		return release.Filesystem("create pending archive", err)
	}

	defer func() {
		_ = out.Cleanup()
	}()

	switch format {
	case release.FormatZip:
		err = writeZip(ctx, out, entries)
	case release.FormatTarGz:
		err = writeTarGz(ctx, out, entries)
	default:
		err = fmt.Errorf("packaging %s: %w", format, release.ErrUnsupportedFormat)
	}

	if err != nil {
		return err
	}

	if err = out.Chmod(outputFileMode); err != nil {
		return release.Filesystem("chmod archive", err)
	}

	if err = out.Commit(); err != nil {
		return release.Filesystem("publish archive", err)
	}

	return nil
}

// collect walks rootDir/entryName in lexical order.
func collect(rootDir, entryName string) ([]entry, error) {
	var entries []entry

	source := filepath.Join(rootDir, entryName)

	err := filepath.WalkDir(source, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(rootDir, p)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(rel)
		if d.IsDir() {
			name += "/"
		}

		entries = append(entries, entry{path: p, name: name, info: info})

		return nil
	})
	if err != nil {
		return nil, release.Filesystem("walk "+source, err)
	}

	return entries, nil
}

// writeTarGz streams entries as a gzip compressed tarball. Symlinks stay links.
func writeTarGz(ctx context.Context, w io.Writer, entries []entry) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := writeTarEntry(tw, e); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return release.Filesystem("close tar stream", err)
	}

	if err := gz.Close(); err != nil {
		return release.Filesystem("close gzip stream", err)
	}

	return nil
}

// writeTarEntry writes a single header and, for regular files, its contents.
func writeTarEntry(tw *tar.Writer, e entry) error {
	var link string

	if e.info.Mode()&fs.ModeSymlink != 0 {
		target, err := os.Readlink(e.path)
		if err != nil {
			return release.Filesystem("read symlink", err)
		}

		link = target
	}

	header, err := tar.FileInfoHeader(e.info, link)
	if err != nil {
		return release.Filesystem("tar header "+e.name, err)
	}

	header.Name = e.name
	header.Uid, header.Gid = 0, 0
	header.Uname, header.Gname = "", ""

	if err = tw.WriteHeader(header); err != nil {
		return release.Filesystem("write tar header "+e.name, err)
	}

	if !e.info.Mode().IsRegular() {
		return nil
	}

	return copyFile(tw, e.path)
}

// writeZip writes entries into a deflate compressed zip. Symlinks to files are
// dereferenced since windows extractors do not restore them, symlinks to
// directories are rejected.
func writeZip(ctx context.Context, w io.Writer, entries []entry) error {
	zw := zip.NewWriter(w)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := writeZipEntry(zw, e); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return release.Filesystem("close zip stream", err)
	}

	return nil
}

// writeZipEntry writes a single zip entry carrying unix mode bits.
func writeZipEntry(zw *zip.Writer, e entry) error {
	info := e.info

	if info.Mode()&fs.ModeSymlink != 0 {
		resolved, err := os.Stat(e.path)
		if err != nil {
			return release.Filesystem("resolve symlink "+e.name, err)
		}

		if resolved.IsDir() {
			return release.Filesystem("package "+e.name, errDirectorySymlink)
		}

		info = resolved
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return release.Filesystem("zip header "+e.name, err)
	}

	header.Name = e.name
	header.Method = zip.Deflate

	if info.IsDir() {
		header.Method = zip.Store

		if e.name[len(e.name)-1] != '/' {
			header.Name += "/"
		}
	}

	w, err := zw.CreateHeader(header)
	if err != nil {
		return release.Filesystem("write zip header "+e.name, err)
	}

	if !info.Mode().IsRegular() {
		return nil
	}

	return copyFile(w, e.path)
}

// copyFile streams the file at p into w.
func copyFile(w io.Writer, p string) error {
	file, err := os.Open(filepath.Clean(p))
	if err != nil {
		return release.Filesystem("open "+p, err)
	}

	defer func() {
		_ = file.Close()
	}()

	if _, err = io.Copy(w, file); err != nil {
		return release.Filesystem("copy "+p, err)
	}

	return nil
}
