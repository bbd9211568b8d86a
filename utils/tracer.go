package utils

import (
	"github.com/Luismorlan/chirpmux/utils/dotenv"
	"github.com/Luismorlan/chirpmux/utils/flag"
	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/sirupsen/logrus"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// DatadogEnv is the env tag attached to traces and profiles.
func DatadogEnv() string {
	if dotenv.IsProdEnv() {
		return "production"
	}
	return "development"
}

// StartTracer starts the Datadog tracer when -datadog is set.
func StartTracer() {
	if !flag.EnableDatadog {
		return
	}
	tracer.Start(
		tracer.WithService(flag.ServiceName),
		tracer.WithEnv(DatadogEnv()),
	)

	Logger.Log.WithFields(
		logrus.Fields{"service": flag.ServiceName, "env": DatadogEnv()},
	).Info("tracer initialized")
}

// Stop tracer, OK to be closed multiple times
func CloseTracer() {
	tracer.Stop()
}
