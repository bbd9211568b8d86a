package server

import (
	"context"
	"net/http"
	"time"

	Logger "github.com/Luismorlan/chirpmux/utils/log"
	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

// HTTPModule serves a handler as an engine module until its context is done.
type HTTPModule struct {
	name   string
	server *http.Server
}

func NewHTTPModule(name, addr string, handler http.Handler) *HTTPModule {
	return &HTTPModule{
		name:   name,
		server: &http.Server{Addr: addr, Handler: handler},
	}
}

func (m *HTTPModule) RunModule(ctx context.Context) error {
	errs := make(chan error, 1)
	go func() {
		Logger.Log.Infof("%s listening on %s", m.name, m.server.Addr)
		errs <- m.server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "%s stopped serving", m.name)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrapf(err, "fail to shutdown %s", m.name)
	}
	return nil
}

func (m *HTTPModule) Name() string {
	return m.name
}

func (m *HTTPModule) Shutdown() {
	Logger.Log.Infoln("Module ", m.name, " gracefully shutdown")
}
