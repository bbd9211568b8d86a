package engine

import (
	"context"
	"time"

	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/sirupsen/logrus"
)

const (
	GracefulRetryDelay = 3 * time.Second
)

type Module interface {
	// RunModule contains the customized logic of the module. It takes in a
	// context object by which its lifecycle is managed. Return error if
	// encountered any error during execution.
	RunModule(ctx context.Context) error

	// Return name of the Module. Uniquely identifies the module instance. Note
	// that if there are multiple instances of the same module, each instance
	// should have a unique name instead of using the same name.
	Name() string

	// Shutdown releases resources owned by the module. Called once after the
	// engine context is cancelled.
	Shutdown()
}

// RunModuleWithGracefulRestart runs module until it returns nil or ctx is done,
// restarting it after retryDelay whenever it fails.
func RunModuleWithGracefulRestart(ctx context.Context, module Module, retryDelay time.Duration) {
	for {
		err := module.RunModule(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}
		Logger.Log.WithFields(logrus.Fields{
			"module":   module.Name(),
			"retry_in": retryDelay,
		}).Errorln("module exited with error: ", err)

		// Wait for a small amount of time and restart.
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
