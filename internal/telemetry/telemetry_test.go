package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghostmonk/storyfeed/internal/telemetry"
)

// providerOnce ensures we only create one Provider per test run to avoid
// duplicate Prometheus metric registration errors from promauto's global
// registry.
var (
	testProvider *telemetry.Provider
	providerOnce sync.Once
)

func getTestProvider(t *testing.T) *telemetry.Provider {
	t.Helper()
	providerOnce.Do(func() {
		testProvider = telemetry.NewProvider()
	})
	return testProvider
}

func TestNewProvider(t *testing.T) {
	provider := getTestProvider(t)
	require.NotNil(t, provider)
	require.NotNil(t, provider.Metrics)
	assert.NotNil(t, provider.Handler())
}

func TestRecordControllerEvents(t *testing.T) {
	provider := getTestProvider(t)

	// Must not panic for any known label combination.
	provider.RecordFetch(telemetry.OutcomeApplied, 10*time.Millisecond)
	provider.RecordFetch(telemetry.OutcomeStale, time.Millisecond)
	provider.RecordFetch(telemetry.OutcomeError, 50*time.Millisecond)
	provider.RecordSingleFlightRejection()
	provider.RecordReset()
	provider.RecordMutation(telemetry.OpCreate, telemetry.OutcomeOK)
	provider.RecordMutation(telemetry.OpDelete, telemetry.OutcomeRejected)
	provider.RecordRequest("GET", "/stories", 200, 5*time.Millisecond)
}

func TestNopRecorderImplementsRecorder(t *testing.T) {
	var rec telemetry.Recorder = telemetry.NewNop()

	rec.RecordFetch(telemetry.OutcomeApplied, time.Second)
	rec.RecordSingleFlightRejection()
	rec.RecordReset()
	rec.RecordMutation(telemetry.OpUpdate, telemetry.OutcomeError)
}
