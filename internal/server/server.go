package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"codeberg.org/snonux/linkmemory/internal"
	"codeberg.org/snonux/linkmemory/internal/session"
	"codeberg.org/snonux/linkmemory/internal/wordpool"
)

// Controller is the part of a study session the API drives
type Controller interface {
	ID() string
	SelectCategory(category wordpool.Category) error
	Grade(known bool) error
	Flip() error
	Retry() error
	View() session.View
	Subscribe(fn func(session.View)) func()
}

// Options configures the HTTP adapter
type Options struct {
	RateLimitRPS   float64 // requests per second per client IP
	RateLimitBurst int
	Logger         *slog.Logger
}

// DefaultOptions returns 10 requests per second with a burst of 20
func DefaultOptions() *Options {
	return &Options{RateLimitRPS: 10, RateLimitBurst: 20}
}

// Server serves one controller over HTTP
type Server struct {
	ctrl    Controller
	catalog *wordpool.Catalog
	opts    Options
	logger  *slog.Logger
	router  *gin.Engine
	started time.Time

	limiterMu sync.Mutex
	limiters  map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time

	stopping chan struct{} // closed when shutdown begins
	stopOnce sync.Once
}

// CategoryInfo describes one selectable category
type CategoryInfo struct {
	ID       wordpool.Category `json:"id"`
	Name     string            `json:"name"`
	PoolSize int               `json:"poolSize"`
}

type categoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type gradeRequest struct {
	Known *bool `json:"known" binding:"required"`
}

// New builds the router for ctrl
func New(ctrl Controller, catalog *wordpool.Catalog, opts *Options) *Server {
	o := *DefaultOptions()
	if opts != nil {
		if opts.RateLimitRPS > 0 {
			o.RateLimitRPS = opts.RateLimitRPS
		}
		if opts.RateLimitBurst > 0 {
			o.RateLimitBurst = opts.RateLimitBurst
		}
		o.Logger = opts.Logger
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	s := &Server{
		ctrl:     ctrl,
		catalog:  catalog,
		opts:     o,
		logger:   o.Logger.With("session", ctrl.ID()),
		started:  time.Now(),
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
		stopping: make(chan struct{}),
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestIDMiddleware(),
		loggingMiddleware(s.logger),
		// Event streams must not be buffered by the compressor
		ginGzip.Gzip(ginGzip.DefaultCompression, ginGzip.WithExcludedPaths([]string{"/api/events"})),
	)

	router.GET("/healthz", s.healthHandler)

	api := router.Group("/api")
	api.GET("/categories", s.categoriesHandler)
	api.GET("/state", s.stateHandler)
	api.GET("/events", s.eventsHandler)
	api.POST("/category", s.rateLimitMiddleware(), s.categoryHandler)
	api.POST("/flip", s.rateLimitMiddleware(), s.flipHandler)
	api.POST("/grade", s.rateLimitMiddleware(), s.gradeHandler)
	api.POST("/retry", s.rateLimitMiddleware(), s.retryHandler)

	return router
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. Open event
// streams are closed when shutdown begins.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv.RegisterOnShutdown(s.stopStreams)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) stopStreams() {
	s.stopOnce.Do(func() { close(s.stopping) })
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": internal.Version,
		"session": s.ctrl.ID(),
		"state":   s.ctrl.View().State,
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) categoriesHandler(c *gin.Context) {
	categories := wordpool.Categories()
	infos := make([]CategoryInfo, 0, len(categories))
	for _, cat := range categories {
		infos = append(infos, CategoryInfo{
			ID:       cat,
			Name:     cat.DisplayName(),
			PoolSize: s.catalog.Size(cat),
		})
	}
	c.JSON(http.StatusOK, infos)
}

func (s *Server) stateHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.View())
}

func (s *Server) categoryHandler(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}
	category, err := wordpool.ParseCategory(req.Category)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.respond(c, s.ctrl.SelectCategory(category))
}

func (s *Server) flipHandler(c *gin.Context) {
	s.respond(c, s.ctrl.Flip())
}

func (s *Server) gradeHandler(c *gin.Context) {
	var req gradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "known must be true or false"})
		return
	}
	s.respond(c, s.ctrl.Grade(*req.Known))
}

func (s *Server) retryHandler(c *gin.Context) {
	s.respond(c, s.ctrl.Retry())
}

// eventsHandler streams a state snapshot after every change. Slow clients
// only ever receive the newest snapshot.
func (s *Server) eventsHandler(c *gin.Context) {
	updates := make(chan session.View, 1)
	unsubscribe := s.ctrl.Subscribe(func(v session.View) {
		for {
			select {
			case updates <- v:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer unsubscribe()

	c.SSEvent("state", s.ctrl.View())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case v := <-updates:
			c.SSEvent("state", v)
			return true
		case <-c.Request.Context().Done():
			return false
		case <-s.stopping:
			return false
		}
	})
}

// respond writes the current view or maps err to a status code
func (s *Server) respond(c *gin.Context, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.ctrl.View())
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, wordpool.ErrUnknownCategory):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrNotReady),
		errors.Is(err, session.ErrNotInError),
		errors.Is(err, session.ErrNoCategory),
		errors.Is(err, session.ErrClosed):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
