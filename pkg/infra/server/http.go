package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/guidebot/pkg/infra/middleware"
	httpopts "github.com/kart-io/guidebot/pkg/options/http"
	"github.com/kart-io/guidebot/pkg/utils/response"
)

// unloggedPaths 不写访问日志、不创建 span 的探活路径。
var unloggedPaths = []string{"/healthz", "/metrics"}

// HTTPServer is a gin based HTTP server.
type HTTPServer struct {
	opts   *httpopts.Options
	engine *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHTTPServer creates the server and installs the middleware chain:
// recovery, request id, access log, tracing, request deadline.
// Routes are registered on Engine before Start is called.
func NewHTTPServer(opts *httpopts.Options) *HTTPServer {
	if opts == nil {
		opts = httpopts.NewOptions()
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(unloggedPaths...),
		middleware.Tracing(unloggedPaths...),
		middleware.Timeout(opts.RequestTimeout, unloggedPaths...),
	)

	engine.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorBody{Error: "Not found"})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, response.ErrorBody{Error: "Method not allowed"})
	})

	return &HTTPServer{
		opts:   opts,
		engine: engine,
	}
}

// Name returns the server name.
func (s *HTTPServer) Name() string {
	return "http[gin]"
}

// Engine returns the underlying gin.Engine.
func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the bound address once started, otherwise the configured one.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.opts.Addr
}

// Start binds the listen address and serves in the background.
// Bind errors are returned synchronously.
func (s *HTTPServer) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("http server already started")
	}

	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return err
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  s.opts.IdleTimeout,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorw("HTTP server stopped unexpectedly", "error", err.Error())
		}
	}()

	logger.Infow("HTTP server listening", "addr", ln.Addr().String())
	return nil
}

// Stop stops the HTTP server gracefully.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

var _ Runnable = (*HTTPServer)(nil)
