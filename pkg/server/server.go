// Package server implements the harvester status server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leptonai/harvester/pkg/config"
	"github.com/leptonai/harvester/pkg/log"
	"github.com/leptonai/harvester/pkg/metrics"
)

const (
	URLPathMetrics = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Server serves the health, metrics and status endpoints of a harvester.
type Server struct {
	router *gin.Engine
	addr   string

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	doneC    chan struct{}
}

// New creates the server and registers the harvester metrics with reg.
func New(cfg *config.Config, p StatusProvider, reg *prometheus.Registry) (*Server, error) {
	if cfg.Address == "" {
		return nil, errors.New("address is required")
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	router := gin.New()
	installRootGinMiddlewares(router)
	installCommonGinMiddlewares(router, log.Logger.Desugar())

	router.GET(URLPathHealthz, createHealthzHandler())

	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	router.GET(URLPathMetrics, func(ctx *gin.Context) {
		promHandler.ServeHTTP(ctx.Writer, ctx.Request)
	})

	// if the request header is set "Accept-Encoding: gzip",
	// the middleware gzip-compresses the response with "Content-Encoding: gzip"
	v1 := router.Group("/v1")
	v1.Use(gzip.Gzip(gzip.DefaultCompression))
	v1.GET("/status", createStatusHandler(p))
	v1.GET("/files", createFilesHandler(p))

	admin := router.Group("/admin")
	admin.GET("/config", createConfigHandler(cfg))
	if cfg.Pprof {
		log.Logger.Debugw("registering pprof handlers")
		admin.GET("/pprof/profile", gin.WrapH(http.HandlerFunc(pprof.Profile)))
		admin.GET("/pprof/heap", gin.WrapH(pprof.Handler("heap")))
		admin.GET("/pprof/trace", gin.WrapH(http.HandlerFunc(pprof.Trace)))
	}

	return &Server{
		router: router,
		addr:   cfg.Address,
	}, nil
}

// Handler returns the router, for serving without a listener (e.g., tests).
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errors.New("server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", s.addr, err)
	}
	s.listener = ln
	s.srv = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.doneC = make(chan struct{})

	go func(srv *http.Server, doneC chan struct{}) {
		defer close(doneC)
		log.Logger.Infof("serving %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Errorw("server stopped unexpectedly", "address", s.addr, "error", err)
		}
	}(s.srv, s.doneC)
	return nil
}

// Addr returns the address the server listens on, or the configured
// address if it has not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	s.mu.Lock()
	srv, doneC := s.srv, s.doneC
	s.mu.Unlock()

	if srv == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Logger.Warnw("failed to shut down server", "error", err)
	}
	<-doneC
	log.Logger.Debugw("server stopped", "address", s.addr)
}
