package jdk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

const (
	// checksumSuffix is appended to the archive URL to locate the vendor digest.
	checksumSuffix = ".sha256.txt"
	// maxChecksumBytes caps the size of a digest file.
	maxChecksumBytes = 64 << 10
)

// errMalformedChecksum is returned when a digest file cannot be parsed.
var errMalformedChecksum = errors.New("malformed checksum file")

// verify compares the SHA-256 of archivePath with the vendor sidecar digest.
func (f *Fetcher) verify(ctx context.Context, downloadURL, archivePath string) error {
	expected, err := f.fetchChecksum(ctx, downloadURL+checksumSuffix)
	if err != nil {
		return err
	}

	actual, err := fileSHA256(archivePath)
	if err != nil {
		return err
	}

	if !strings.EqualFold(expected, actual) {
		return fmt.Errorf("%w: archive=%s expected=%s actual=%s",
			release.ErrIntegrity, filepath.Base(archivePath), expected, actual)
	}

	return nil
}

// fetchChecksum downloads and parses a "<hex digest>  <file name>" sidecar.
func (f *Fetcher) fetchChecksum(ctx context.Context, rawURL string) (string, error) {
	response, cancel, err := f.get(ctx, rawURL)
	if err != nil {
		return "", err
	}

	defer cancel()

	defer func() {
		_ = response.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(response.Body, maxChecksumBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", release.ErrNetwork, rawURL, err)
	}

	return ParseChecksum(data)
}

// ParseChecksum extracts the hex SHA-256 digest from a checksum file.
func ParseChecksum(data []byte) (string, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: %w", release.ErrIntegrity, errMalformedChecksum)
	}

	digest := strings.ToLower(fields[0])

	decoded, err := hex.DecodeString(digest)
	if err != nil || len(decoded) != sha256.Size {
		return "", fmt.Errorf("%w: %w: %q", release.ErrIntegrity, errMalformedChecksum, fields[0])
	}

	return digest, nil
}

// fileSHA256 returns the hex SHA-256 digest of the file at path.
func fileSHA256(path string) (string, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", release.Filesystem("open archive", err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := sha256.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", release.Filesystem("hash archive", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
