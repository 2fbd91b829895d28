package manifest

import (
	"context"
	"crypto"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/ltex-ls-bundler/internal/config"
	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

// ChecksumFunction is used to calculate archive digests.
const ChecksumFunction = crypto.SHA512

var (
	// ErrNotFound is returned when the manifest file does not exist yet.
	ErrNotFound = errors.New("manifest not found")

	errHashUnavailable = errors.New("hash function unavailable")
)

// Repository defines persistence operations for the release manifest.
type Repository interface {
	Load(ctx context.Context) (*release.Manifest, error)
	Save(ctx context.Context, manifest *release.Manifest) error
}

// FileRepository persists the manifest to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the manifest.
	path string
	// mu protects concurrent access to the manifest file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the manifest from disk.
func (r *FileRepository) Load(_ context.Context) (*release.Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, release.Filesystem("read manifest", err)
	}

	var manifest release.Manifest
	if err = yaml.Unmarshal(contents, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &manifest, nil
}

// Save atomically replaces the manifest on disk.
func (r *FileRepository) Save(_ context.Context, manifest *release.Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return release.Filesystem("create manifest directory", err)
	}

	if err = writeFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return release.Filesystem("write manifest", err)
	}

	return nil
}

// Checksum returns the base64-encoded ChecksumFunction digest of the file at path.
func Checksum(path string) (string, error) {
	if !ChecksumFunction.Available() {
		return "", fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", release.Filesystem("open archive", err)
	}

	defer func() {
		_ = file.Close()
	}()

	hasher := ChecksumFunction.New()
	if _, err = io.Copy(hasher, file); err != nil {
		return "", release.Filesystem("calculate checksum", err)
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// Describe builds the manifest entry of an archive produced for target.
func Describe(path string, target release.Target) (release.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return release.Artifact{}, release.Filesystem("stat archive", err)
	}

	checksum, err := Checksum(path)
	if err != nil {
		return release.Artifact{}, err
	}

	return release.Artifact{
		Target:   target,
		File:     filepath.Base(path),
		Size:     info.Size(),
		Checksum: checksum,
	}, nil
}
