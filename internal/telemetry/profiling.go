package telemetry

import (
	"fmt"
	"os"
	"runtime"

	"github.com/grafana/pyroscope-go"
)

// Profiler wraps a running Pyroscope session.
type Profiler struct {
	profiler *pyroscope.Profiler
}

// StartPyroscope starts continuous profiling when enabled by environment:
//   - ENABLE_CONTINUOUS_PROFILING: "true" to enable (default off)
//   - PYROSCOPE_SERVER_URL: server address (default http://pyroscope:4040)
//   - PYROSCOPE_ENVIRONMENT: environment tag (default development)
//
// Returns nil with no error when profiling is disabled.
func StartPyroscope(serviceName, version string) (*Profiler, error) {
	if os.Getenv("ENABLE_CONTINUOUS_PROFILING") != "true" {
		return nil, nil
	}

	serverURL := os.Getenv("PYROSCOPE_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://pyroscope:4040"
	}
	environment := os.Getenv("PYROSCOPE_ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: fmt.Sprintf("storyfeed.%s", serviceName),
		ServerAddress:   serverURL,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
		Tags: map[string]string{
			"environment": environment,
			"version":     version,
			"hostname":    hostname(),
			"go_version":  runtime.Version(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start pyroscope profiler: %w", err)
	}
	return &Profiler{profiler: profiler}, nil
}

// Stop flushes and stops the profiler. Safe on nil.
func (p *Profiler) Stop() error {
	if p == nil || p.profiler == nil {
		return nil
	}
	return p.profiler.Stop()
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}
