package jdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oshokin/ltex-ls-bundler/internal/archive"
	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
	"github.com/oshokin/ltex-ls-bundler/internal/logger"
)

const (
	// defaultAttempts is the number of download attempts when not configured.
	defaultAttempts = 3
	// defaultRetryDelay is the pause between attempts when not configured.
	defaultRetryDelay = 2 * time.Second
	// defaultDownloadTimeout bounds one attempt when not configured.
	defaultDownloadTimeout = 10 * time.Minute
)

// errBadHTTPStatus is returned for non-success responses.
var errBadHTTPStatus = errors.New("unexpected http status")

// statusError carries the HTTP status of a failed response.
type statusError struct {
	url    string
	status string
	code   int
}

// Error implements error.
func (e *statusError) Error() string {
	return fmt.Sprintf("%s, %s: %v", e.url, e.status, errBadHTTPStatus)
}

// Unwrap exposes errBadHTTPStatus.
func (e *statusError) Unwrap() error {
	return errBadHTTPStatus
}

// retryable reports whether another attempt may succeed.
func (e *statusError) retryable() bool {
	return e.code >= http.StatusInternalServerError || e.code == http.StatusTooManyRequests
}

// Fetcher downloads and extracts Temurin JDK archives.
type Fetcher struct {
	// client performs the HTTP requests.
	client *http.Client
	// releaseHost is the base URL of the vendor release repositories.
	releaseHost string
	// version is the runtime release, e.g. 11.0.12+7.
	version string
	// attempts is the number of download attempts.
	attempts int
	// retryDelay is the pause between attempts.
	retryDelay time.Duration
	// timeout bounds a single attempt.
	timeout time.Duration
	// verifyChecksum enables sidecar checksum verification.
	verifyChecksum bool
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithRetries sets the number of attempts and the pause between them.
func WithRetries(attempts int, delay time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if attempts > 0 {
			f.attempts = attempts
		}

		if delay >= 0 {
			f.retryDelay = delay
		}
	}
}

// WithDownloadTimeout bounds each download attempt.
func WithDownloadTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithChecksumVerification toggles sidecar checksum verification.
func WithChecksumVerification(enabled bool) FetcherOption {
	return func(f *Fetcher) {
		f.verifyChecksum = enabled
	}
}

// NewFetcher creates a Fetcher for one runtime version.
func NewFetcher(releaseHost, version string, opts ...FetcherOption) (*Fetcher, error) {
	if _, err := FeatureVersion(version); err != nil {
		return nil, err
	}

	f := &Fetcher{
		client:      http.DefaultClient,
		releaseHost: releaseHost,
		version:     version,
		attempts:    defaultAttempts,
		retryDelay:  defaultRetryDelay,
		timeout:     defaultDownloadTimeout,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Version returns the runtime version handled by the fetcher.
func (f *Fetcher) Version() string {
	return f.version
}

// Fetch downloads the JDK archive for t into destDir, extracts it there and
// removes the archive. It returns the extracted JDK home.
func (f *Fetcher) Fetch(ctx context.Context, t release.Target, destDir string) (string, error) {
	name, err := ArchiveName(f.version, t)
	if err != nil {
		return "", err
	}

	downloadURL, err := DownloadURL(f.releaseHost, f.version, t)
	if err != nil {
		return "", err
	}

	if err = os.MkdirAll(destDir, 0o755); err != nil {
		return "", release.Filesystem("create runtime directory", err)
	}

	archivePath := filepath.Join(destDir, name)

	logger.InfoKV(ctx, "Downloading JDK", "url", downloadURL, "path", archivePath)

	if err = f.download(ctx, downloadURL, archivePath); err != nil {
		return "", err
	}

	// The archive is never left behind, whatever happens below.
	defer func() {
		_ = os.Remove(archivePath)
	}()

	if f.verifyChecksum {
		logger.InfoKV(ctx, "Verifying JDK archive checksum", "archive", name)

		if err = f.verify(ctx, downloadURL, archivePath); err != nil {
			return "", err
		}
	}

	logger.Info(ctx, "Extracting JDK archive")

	if err = archive.Extract(ctx, archivePath, destDir); err != nil {
		return "", err
	}

	logger.Info(ctx, "Removing JDK archive")

	if err = os.Remove(archivePath); err != nil {
		return "", release.Filesystem("remove runtime archive", err)
	}

	home := filepath.Join(destDir, HomeDirName(f.version))
	if _, err = os.Stat(home); err != nil {
		return "", release.Filesystem("locate extracted JDK", err)
	}

	return home, nil
}

// download retrieves rawURL into dest, retrying transient failures.
func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	var lastErr error

	for attempt := range f.attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", release.ErrNetwork, err)
		}

		lastErr = f.downloadOnce(ctx, rawURL, dest)
		if lastErr == nil {
			return nil
		}

		var statusErr *statusError
		if errors.As(lastErr, &statusErr) && !statusErr.retryable() {
			break
		}

		if attempt+1 >= f.attempts {
			break
		}

		logger.WarnKV(ctx, "Retrying download",
			"url", rawURL, "attempt", attempt+1, "attempts", f.attempts, "error", lastErr)

		if err := sleep(ctx, f.retryDelay); err != nil {
			return fmt.Errorf("%w: %w", release.ErrNetwork, err)
		}
	}

	_ = os.Remove(dest)

	return lastErr
}

// downloadOnce performs a single bounded GET of rawURL into dest.
func (f *Fetcher) downloadOnce(ctx context.Context, rawURL, dest string) error {
	response, cancel, err := f.get(ctx, rawURL)
	if err != nil {
		return err
	}

	defer cancel()

	defer func() {
		_ = response.Body.Close()
	}()

	out, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return release.Filesystem("create download file", err)
	}

	if _, err = io.Copy(out, response.Body); err != nil {
		_ = out.Close()

		return fmt.Errorf("%w: read %s: %w", release.ErrNetwork, rawURL, err)
	}

	if err = out.Close(); err != nil {
		return release.Filesystem("close download file", err)
	}

	return nil
}

// get issues a GET bounded by the per-attempt timeout. The returned cancel
// function must be called once the body has been consumed.
func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, context.CancelFunc, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		cancel()

		return nil, nil, fmt.Errorf("%w: %w", release.ErrNetwork, err)
	}

	response, err := f.client.Do(req)
	if err != nil {
		cancel()

		return nil, nil, fmt.Errorf("%w: GET %s: %w", release.ErrNetwork, rawURL, err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_ = response.Body.Close()

		cancel()

		return nil, nil, fmt.Errorf("%w: %w", release.ErrNetwork, &statusError{
			url:    rawURL,
			status: response.Status,
			code:   response.StatusCode,
		})
	}

	return response, cancel, nil
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
