package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/f4ah6o/magicserver-go/internal/catalog"
	"github.com/f4ah6o/magicserver-go/internal/config"
	"github.com/f4ah6o/magicserver-go/internal/logger"
)

// Server is a running HTTP listener backed by a catalog.
type Server struct {
	http     *http.Server
	listener net.Listener
	done     chan struct{}
	err      error
}

// Start binds cfg.Port and begins serving cat in the background. Listen
// errors such as a port already in use are returned before any request is
// accepted. The catalog must be fully built before Start is called.
func Start(cat catalog.Lookuper, cfg *config.Config, log *logger.Logger) (*Server, error) {
	log.Infof("start server on %s:%d", cfg.CNAME, cfg.Port)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}

	s := &Server{
		http: &http.Server{
			Handler:           NewHandler(cat, cfg, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
		done:     make(chan struct{}),
	}

	go func() {
		err := s.http.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.err = err
		close(s.done)
	}()

	log.Successf("server listening to localhost:%d", s.Port())
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Port returns the bound TCP port, useful when cfg.Port was 0.
func (s *Server) Port() int {
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Shutdown stops accepting connections and waits for active requests to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Done is closed once the server has stopped serving.
func (s *Server) Done() <-chan struct{} { return s.done }

// Wait blocks until the server stops and returns the serve error, if any.
// It may be called any number of times, from any goroutine.
func (s *Server) Wait() error {
	<-s.done
	return s.err
}
