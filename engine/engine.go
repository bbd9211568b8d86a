// Package engine runs long lived modules that share one in-process event bus.
package engine

import (
	"context"
	"sync"
	"time"

	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Engine manages shared resources and execution lifecycle of each module. It
// maintains a shared event bus
type Engine struct {
	// A list of modules that will be run in this Engine. Module's lifetime is
	// bound to Engine's lifetime. Each Module will be ran in a separate routine.
	Modules []Module

	// Root this engine is running on
	ctx context.Context

	// Cancel function for root context, used for graceful shutdown
	cancel context.CancelFunc

	// The EventBus this engine managed. For now we use a golang channel
	// implementation for the EventBus, but later when needed we could substitute
	// it with Kafka-based EventBus.
	EventBus *gochannel.GoChannel

	retryDelay time.Duration
}

// NewEventBus creates the in-process bus shared by modules.
func NewEventBus() *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            100,
			BlockPublishUntilSubscriberAck: false,
		},
		watermill.NewStdLogger(false, false),
	)
}

// Create a new Engine given the provided modules and event bus. Cancelling
// ctx or calling Shutdown stops all modules.
func NewEngine(ctx context.Context, ms []Module, e *gochannel.GoChannel) *Engine {
	ctx, cancel := context.WithCancel(ctx)
	return &Engine{
		Modules:    ms,
		ctx:        ctx,
		cancel:     cancel,
		EventBus:   e,
		retryDelay: GracefulRetryDelay,
	}
}

// SetRetryDelay changes how long a failed module waits before restarting.
func (e *Engine) SetRetryDelay(d time.Duration) {
	e.retryDelay = d
}

// Execute all Engine modules and wait untils all modules to finish execution.
func (e *Engine) Run() {
	var wg sync.WaitGroup

	for idx := range e.Modules {
		wg.Add(1)
		go func(m Module) {
			defer wg.Done()
			Logger.Log.Infof("start engine module %s", m.Name())
			RunModuleWithGracefulRestart(e.ctx, m, e.retryDelay)
			Logger.Log.Infof("Module %s finished execution.", m.Name())
		}(e.Modules[idx])
	}

	// Block until all goroutine finished execution.
	wg.Wait()
}

func (e *Engine) Shutdown() {
	Logger.Log.Infoln("Starting graceful shutdown process. Goodbye!")
	e.cancel()

	var wg sync.WaitGroup
	for idx := range e.Modules {
		wg.Add(1)
		go func(m Module) {
			defer wg.Done()
			Logger.Log.Infof("shutdown engine module %s", m.Name())
			m.Shutdown()
			Logger.Log.Infof("Module %s shut down.", m.Name())
		}(e.Modules[idx])
	}

	// Block until all goroutine finished execution.
	wg.Wait()

	if err := e.EventBus.Close(); err != nil {
		Logger.Log.Errorln("fail to close event bus: ", err)
	}
}
