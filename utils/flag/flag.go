/*
flag Package set up cli flags shared across binaries

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic.
	Binary specific flags are defined in their own main package, and ParseFlags
	must be called once in main before the flags are read.
*/

package flag

import (
	"flag"
)

const (
	APIServer   = "api_server"
	LoadFollows = "load_follows"
	Benchmark   = "benchmark"
)

var (
	IsDevelopment bool
	ServiceName   = APIServer
	AppConfigPath string
	EnableDatadog bool
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	flag.StringVar(&ServiceName, "service", ServiceName, "'api_server', 'load_follows' or 'benchmark'")
	flag.StringVar(&AppConfigPath, "app_config_path", "", "path to the timeline app config yaml, defaults are used when empty")
	flag.BoolVar(&EnableDatadog, "datadog", false, "start Datadog tracer and profiler")
}

// ParseFlags parses the command line. It is a no-op when already parsed.
func ParseFlags() {
	if !flag.Parsed() {
		flag.Parse()
	}
}
