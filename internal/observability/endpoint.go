package observability

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tphakala/visits-go/internal/errors"
	"github.com/tphakala/visits-go/internal/logger"
)

// ShutdownTimeout bounds graceful shutdown of the metrics server.
const ShutdownTimeout = 5 * time.Second

// Endpoint serves Prometheus metrics over HTTP.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	listener      net.Listener
	log           logger.Logger
}

// NewEndpoint creates an endpoint for the given listen address.
func NewEndpoint(listenAddress string, metrics *Metrics) *Endpoint {
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       metrics,
		log:           logger.Global().Module("metrics"),
	}
}

// Start binds the listener and serves until ctx is cancelled. The server
// goroutine is tracked by wg.
func (e *Endpoint) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if e.server != nil {
		return errors.Newf("metrics endpoint already started").
			Component("observability").
			Category(errors.CategoryState).
			Context("address", e.Addr()).
			Build()
	}

	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	listener, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return errors.New(err).
			Component("observability").
			Category(errors.CategoryConfiguration).
			Context("address", e.listenAddress).
			Build()
	}
	e.listener = listener
	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	wg.Go(func() {
		e.log.Info("metrics endpoint starting", logger.String("address", listener.Addr().String()))
		if err := e.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.log.Error("metrics HTTP server error", logger.Error(err))
		}
	})

	wg.Go(func() {
		<-ctx.Done()
		e.shutdown()
	})
	return nil
}

// Addr returns the bound address, useful when listening on port 0.
func (e *Endpoint) Addr() string {
	if e.listener == nil {
		return e.listenAddress
	}
	return e.listener.Addr().String()
}

func (e *Endpoint) shutdown() {
	e.log.Info("stopping metrics server")
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		e.log.Error("metrics server shutdown error", logger.Error(err))
	}
}
