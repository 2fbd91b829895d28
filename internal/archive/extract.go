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
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

var (
	// errPathEscapes is returned for entries resolving outside the destination.
	errPathEscapes = errors.New("path escapes destination")
	// errAbsoluteLink is returned for symlinks with absolute targets.
	errAbsoluteLink = errors.New("absolute symlink rejected")
)

// Extract unpacks the archive at archivePath into destDir.
// The format is selected from the archive extension.
func Extract(ctx context.Context, archivePath, destDir string) error {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return err
	}

	if err = os.MkdirAll(destDir, 0o755); err != nil {
		return release.Filesystem("create destination", err)
	}

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return release.Filesystem("resolve destination", err)
	}

	x := &extractor{dest: absDest}

	switch format {
	case release.FormatZip:
		err = x.unzip(ctx, archivePath)
	case release.FormatTarGz, release.FormatTarXz:
		err = x.untar(ctx, archivePath, format)
	default:
		return fmt.Errorf("%s: %w", format, release.ErrUnsupportedFormat)
	}

	if err != nil {
		return err
	}

	return x.finish()
}

// dirMode is a directory permission applied once all entries are written.
type dirMode struct {
	path string
	mode fs.FileMode
}

// extractor writes entries below dest.
type extractor struct {
	// dest is the absolute destination directory.
	dest string
	// dirs collects directory modes to restore after extraction,
	// so read-only directories do not block writing their children.
	dirs []dirMode
}

// untar streams a gzip or xz compressed tar file.
func (x *extractor) untar(ctx context.Context, archivePath string, format release.Format) error {
	file, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return release.Filesystem("open archive", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var stream io.Reader

	if format == release.FormatTarXz {
		stream, err = xz.NewReader(file)
		if err != nil {
			return release.Filesystem("read xz stream", err)
		}
	} else {
		gz, gzErr := gzip.NewReader(file)
		if gzErr != nil {
			return release.Filesystem("read gzip stream", gzErr)
		}

		defer func() {
			_ = gz.Close()
		}()

		stream = gz
	}

	tr := tar.NewReader(stream)

	for {
		if err = ctx.Err(); err != nil {
			return err
		}

		header, nextErr := tr.Next()
		if errors.Is(nextErr, io.EOF) {
			return nil
		}

		if nextErr != nil {
			return release.Filesystem("read tar entry", nextErr)
		}

		if err = x.tarEntry(header, tr); err != nil {
			return err
		}
	}
}

// tarEntry materializes a single tar header.
func (x *extractor) tarEntry(header *tar.Header, body io.Reader) error {
	target, err := x.join(header.Name)
	if err != nil || target == "" {
		return err
	}

	mode := header.FileInfo().Mode().Perm()

	switch header.Typeflag {
	case tar.TypeDir:
		return x.dir(target, mode)
	case tar.TypeReg, tar.TypeRegA: //nolint:staticcheck // TypeRegA still appears in old tarballs.
		return x.file(target, mode, body)
	case tar.TypeSymlink:
		return x.symlink(target, header.Linkname)
	case tar.TypeLink:
		source, joinErr := x.join(header.Linkname)
		if joinErr != nil {
			return joinErr
		}

		return x.hardlink(target, source)
	default:
		return nil
	}
}

// unzip extracts every entry of a zip file.
func (x *extractor) unzip(ctx context.Context, archivePath string) error {
	reader, err := zip.OpenReader(filepath.Clean(archivePath))
	if err != nil {
		return release.Filesystem("open zip", err)
	}

	defer func() {
		_ = reader.Close()
	}()

	for _, entry := range reader.File {
		if err = ctx.Err(); err != nil {
			return err
		}

		if err = x.zipEntry(entry); err != nil {
			return err
		}
	}

	return nil
}

// zipEntry materializes a single zip entry.
func (x *extractor) zipEntry(entry *zip.File) error {
	target, err := x.join(entry.Name)
	if err != nil || target == "" {
		return err
	}

	mode := entry.Mode()
	if mode.IsDir() || strings.HasSuffix(entry.Name, "/") {
		return x.dir(target, mode.Perm())
	}

	body, err := entry.Open()
	if err != nil {
		return release.Filesystem("open zip entry "+entry.Name, err)
	}

	defer func() {
		_ = body.Close()
	}()

	if mode&fs.ModeSymlink != 0 {
		link, readErr := io.ReadAll(body)
		if readErr != nil {
			return release.Filesystem("read zip symlink "+entry.Name, readErr)
		}

		return x.symlink(target, string(link))
	}

	perm := mode.Perm()
	if perm == 0 {
		// Archives created on windows carry no unix mode.
		perm = 0o644
	}

	return x.file(target, perm, body)
}

// dir creates a directory and records its final mode.
func (x *extractor) dir(target string, mode fs.FileMode) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return release.Filesystem("create directory", err)
	}

	if mode == 0 {
		mode = 0o755
	}

	x.dirs = append(x.dirs, dirMode{path: target, mode: mode})

	return nil
}

// file writes a regular file with the given permission bits.
func (x *extractor) file(target string, mode fs.FileMode, body io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return release.Filesystem("create parent directory", err)
	}

	_ = os.Remove(target)

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o200)
	if err != nil {
		return release.Filesystem("create file", err)
	}

	if _, err = io.Copy(out, body); err != nil {
		_ = out.Close()

		return release.Filesystem("write file", err)
	}

	if err = out.Close(); err != nil {
		return release.Filesystem("close file", err)
	}

	// Umask may have narrowed the bits recorded in the archive.
	if err = os.Chmod(target, mode); err != nil {
		return release.Filesystem("chmod file", err)
	}

	return nil
}

// symlink creates a relative symlink that must stay inside the destination.
func (x *extractor) symlink(target, linkname string) error {
	if path.IsAbs(linkname) || filepath.IsAbs(linkname) {
		return release.Filesystem("symlink "+target, errAbsoluteLink)
	}

	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !x.contains(resolved) {
		return release.Filesystem("symlink "+target, errPathEscapes)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return release.Filesystem("create parent directory", err)
	}

	_ = os.Remove(target)

	if err := os.Symlink(linkname, target); err != nil {
		return release.Filesystem("create symlink", err)
	}

	return nil
}

// hardlink links target to an already extracted source.
func (x *extractor) hardlink(target, source string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return release.Filesystem("create parent directory", err)
	}

	_ = os.Remove(target)

	if err := os.Link(source, target); err != nil {
		return release.Filesystem("create hardlink", err)
	}

	return nil
}

// join maps an archive entry name onto the destination.
// It returns an empty path for entries naming the archive root.
func (x *extractor) join(name string) (string, error) {
	cleaned := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "./")

	if cleaned == "." || cleaned == "" {
		return "", nil
	}

	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", release.Filesystem("entry "+name, errPathEscapes)
	}

	full := filepath.Join(x.dest, filepath.FromSlash(cleaned))
	if !x.contains(full) {
		return "", release.Filesystem("entry "+name, errPathEscapes)
	}

	return full, nil
}

// contains reports whether p lies within the destination.
func (x *extractor) contains(p string) bool {
	p = filepath.Clean(p)

	return p == x.dest || strings.HasPrefix(p, x.dest+string(os.PathSeparator))
}

// finish applies the recorded directory modes, deepest first.
func (x *extractor) finish() error {
	slices.SortFunc(x.dirs, func(a, b dirMode) int {
		return strings.Count(b.path, string(os.PathSeparator)) - strings.Count(a.path, string(os.PathSeparator))
	})

	for _, d := range x.dirs {
		if err := os.Chmod(d.path, d.mode); err != nil {
			return release.Filesystem("chmod directory", err)
		}
	}

	return nil
}
