package utils

import (
	"github.com/Luismorlan/chirpmux/utils/flag"
	"github.com/pkg/errors"
	"gopkg.in/DataDog/dd-trace-go.v1/profiler"
)

// StartProfiler starts the Datadog profiler when -datadog is set.
func StartProfiler() error {
	if !flag.EnableDatadog {
		return nil
	}
	err := profiler.Start(
		profiler.WithService(flag.ServiceName),
		profiler.WithEnv(DatadogEnv()),
		profiler.WithProfileTypes(
			profiler.CPUProfile,
			profiler.HeapProfile,
			// The profiles below are disabled by
			// default to keep overhead low, but
			// can be enabled as needed.
			// profiler.BlockProfile,
			// profiler.MutexProfile,
			// profiler.GoroutineProfile,
		),
	)
	return errors.Wrap(err, "fail to start profiler")
}

// Stop profiler, OK to be closed multiple times
func CloseProfiler() {
	profiler.Stop()
}
