package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	applog "custos/internal/log"
	"custos/internal/metrics"
	"custos/internal/middleware/ratelimit"
	"custos/internal/middleware/security"
	"custos/internal/middleware/trace"
	"custos/internal/report"
	"custos/internal/services"
	"custos/internal/storage"
	appweb "custos/web"
)

// DashboardService is what the handlers need from the service layer.
type DashboardService interface {
	Report(ctx context.Context, f report.Filter) (services.Report, error)
	Refresh(ctx context.Context) (services.LoadResult, error)
	RecentLoads(ctx context.Context, limit int) ([]storage.LoadRecord, error)
	Ready() bool
	SourceKey() string
}

// Options configures optional parts of the server.
type Options struct {
	Logger  *applog.Logger
	Metrics *metrics.Metrics
	// RefreshPerMinute bounds POST /api/refresh per client.
	RefreshPerMinute int
	// RequestTimeout bounds a dashboard build; zero means 30s.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	templates      *template.Template
	dashboard      DashboardService
	metrics        *metrics.Metrics
	logger         *applog.Logger
	clientIP       *security.ClientIP
	refreshLimiter *ratelimit.Limiter
	tracer         *trace.Middleware
	requestTimeout time.Duration
	started        time.Time
	shutdownOnce   sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dashboard DashboardService, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      timeout + 15*time.Second,
			IdleTimeout:       60 * time.Second,
		},
		dashboard:      dashboard,
		metrics:        opts.Metrics,
		logger:         logger.WithComponent(applog.ComponentHTTP),
		clientIP:       security.NewClientIP(),
		refreshLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RefreshPerMinute}),
		requestTimeout: timeout,
		started:        time.Now(),
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	limited := s.refreshLimiter.Middleware(s.clientIP.Extract, s.handleRateLimited)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboardPartial)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboardJSON)
	mux.HandleFunc("GET /api/loads", s.handleLoads)
	mux.Handle("POST /api/refresh", limited(http.HandlerFunc(s.handleRefresh)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	var observe trace.ObserveFunc
	if s.metrics != nil {
		observe = s.metrics.ObserveHTTP
	}
	s.tracer = trace.NewMiddleware(logger, s.clientIP.Extract, observe)
	s.Handler = s.tracer.Middleware(security.Headers(security.DefaultHeadersConfig())(mux))

	return s
}

// Shutdown stops background helpers and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.refreshLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
