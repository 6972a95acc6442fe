package infra

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// HTTPServer serves the API until its context ends, then shuts down within
// a grace period and runs the registered shutdown hooks.
type HTTPServer struct {
	server *http.Server
	grace  time.Duration
	hooks  []func(context.Context) error
}

func NewHTTPServer(cfg *Config, handler http.Handler) *HTTPServer {
	return &HTTPServer{
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.HTTPReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.HTTPWriteTimeout,
			IdleTimeout:       cfg.HTTPIdleTimeout,
		},
		grace: cfg.HTTPIdleTimeout,
	}
}

func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

// OnShutdown registers fn to run after in-flight requests finish. Hooks run
// in order and share the grace period.
func (s *HTTPServer) OnShutdown(fn func(context.Context) error) {
	s.hooks = append(s.hooks, fn)
}

// ListenAndRun listens on the configured address and calls Run.
func (s *HTTPServer) ListenAndRun(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	return s.Run(ctx, ln)
}

// Run serves on ln until ctx is done or serving fails. A clean shutdown
// returns the joined errors of Shutdown and the hooks.
func (s *HTTPServer) Run(ctx context.Context, ln net.Listener) error {
	served := make(chan error, 1)
	go func() { served <- s.server.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	grace := s.grace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	for _, hook := range s.hooks {
		err = errors.Join(err, hook(shutdownCtx))
	}
	<-served
	return err
}
