package bundler

import (
	"time"

	"github.com/oshokin/ltex-ls-bundler/internal/domain/release"
)

// Result is the outcome of one target.
type Result struct {
	// Target is the build job.
	Target release.Target
	// Archive is the produced archive path, empty unless the target succeeded.
	Archive string
	// Err is the *release.StageError of a failed target.
	Err error
	// Skipped is set when the target never started because the run was aborted.
	Skipped bool
	// Duration is how long the target took.
	Duration time.Duration
}

// Succeeded reports whether the target produced an archive.
func (r Result) Succeeded() bool {
	return !r.Skipped && r.Err == nil && r.Archive != ""
}

// Report summarizes a run in matrix order.
type Report struct {
	// RunID identifies the run.
	RunID string
	// Version is the distribution version.
	Version string
	// RuntimeVersion is the bundled runtime release.
	RuntimeVersion string
	// Results holds one entry per target.
	Results []Result
}

// Archives returns the produced archive paths in matrix order.
func (r *Report) Archives() []string {
	archives := make([]string, 0, len(r.Results))

	for _, result := range r.Results {
		if result.Succeeded() {
			archives = append(archives, result.Archive)
		}
	}

	return archives
}

// Failed returns the results of failed targets.
func (r *Report) Failed() []Result {
	var failed []Result

	for _, result := range r.Results {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}

	return failed
}
