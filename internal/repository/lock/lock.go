package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
	"github.com/oshokin/ltex-ls-bundler/internal/logger"
)

// Filename is the lock file created inside the guarded directory.
const Filename = ".ltex-bundler.lock"

// acquireAttempts bounds stale lock takeovers.
const acquireAttempts = 2

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("output directory is locked by another run")

// Lock is a held directory lock.
type Lock struct {
	// path is the lock file location.
	path string
	// once makes Release idempotent.
	once sync.Once
}

// Acquire takes the lock of dir, creating dir when needed.
func Acquire(ctx context.Context, dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, release.Filesystem("create output directory", err)
	}

	path := filepath.Join(dir, Filename)

	for range acquireAttempts {
		err := create(path)
		if err == nil {
			logger.DebugKV(ctx, "Acquired run lock", "path", path)

			return &Lock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, release.Filesystem("create lock file", err)
		}

		pid, alive := holder(path)
		if alive {
			return nil, fmt.Errorf("%w: pid %d, lock file %s", ErrLocked, pid, path)
		}

		logger.WarnKV(ctx, "Removing stale run lock", "path", path, "pid", pid)

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, release.Filesystem("remove stale lock file", err)
		}
	}

	return nil, fmt.Errorf("%w: lock file %s", ErrLocked, path)
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release removes the lock file. Calling it more than once is safe.
func (l *Lock) Release() error {
	var err error

	l.once.Do(func() {
		if removeErr := os.Remove(l.path); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			err = release.Filesystem("remove lock file", removeErr)
		}
	})

	return err
}

// create writes a new lock file with the current PID, failing if it exists.
func create(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, err = file.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(path)
	}

	return err
}

// holder reads the owner PID of path and reports whether that process is alive.
// A lock file that cannot be read or parsed is considered held, except when it
// disappeared in the meantime.
func holder(path string) (int, bool) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, !errors.Is(err, os.ErrNotExist)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(contents)))
	if err != nil || pid <= 0 {
		return 0, true
	}

	process, err := ps.FindProcess(pid)
	if err != nil {
		return pid, true
	}

	return pid, process != nil
}
