package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// hasMetric reports whether families contain name with the given labels.
func hasMetric(families []*dto.MetricFamily, name string, labels map[string]string) bool {
	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			matched := 0

			for _, pair := range metric.GetLabel() {
				if value, ok := labels[pair.GetName()]; ok && value == pair.GetValue() {
					matched++
				}
			}

			if matched == len(labels) {
				return true
			}
		}
	}

	return false
}

// TestNoop accepts every call.
func TestNoop(t *testing.T) {
	t.Parallel()

	var r Recorder = Noop{}
	r.ObserveStage("linux/x64", "package", time.Second)
	r.IncTarget("linux/x64", OutcomeSuccess)
}

// TestProm records stage durations and outcomes in its own registry.
func TestProm(t *testing.T) {
	t.Parallel()

	p := NewProm("ltex_bundler")
	p.ObserveStage("linux/x64", "fetch-runtime", 3*time.Second)
	p.IncTarget("linux/x64", OutcomeSuccess)
	p.IncTarget("windows/x64", OutcomeFailure)

	families, err := p.Gatherer().Gather()
	require.NoError(t, err)
	require.True(t, hasMetric(families, "ltex_bundler_stage_duration_seconds",
		map[string]string{"target": "linux/x64", "stage": "fetch-runtime"}))
	require.True(t, hasMetric(families, "ltex_bundler_targets_total",
		map[string]string{"target": "windows/x64", "outcome": OutcomeFailure}))
	require.False(t, hasMetric(families, "ltex_bundler_targets_total",
		map[string]string{"target": "mac/x64"}))

	// Separate recorders do not share state.
	other, err := NewProm("ltex_bundler").Gatherer().Gather()
	require.NoError(t, err)
	require.False(t, hasMetric(other, "ltex_bundler_targets_total", map[string]string{"target": "linux/x64"}))
}

// TestProm_WriteTextfile produces a readable exposition file.
func TestProm_WriteTextfile(t *testing.T) {
	t.Parallel()

	p := NewProm("ltex_bundler")
	p.IncTarget("mac/x64", OutcomeSkipped)

	path := filepath.Join(t.TempDir(), "nested", "bundler.prom")
	require.NoError(t, p.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), `ltex_bundler_targets_total{outcome="skipped",target="mac/x64"} 1`)
}
