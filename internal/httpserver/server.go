package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/content"
	custommw "github.com/tarakkrishna/StyleSense/internal/httpserver/middleware"
	"github.com/tarakkrishna/StyleSense/internal/observability"
	appsession "github.com/tarakkrishna/StyleSense/internal/session"
	"github.com/tarakkrishna/StyleSense/internal/ui"
	"github.com/tarakkrishna/StyleSense/public"
)

const (
	defaultMaxUploadBytes = 10 << 20
	defaultRequestTimeout = 90 * time.Second
	// multipart framing and the csrf field ride on top of the image itself
	multipartOverhead = 64 << 10
)

// Backend is probed by the readiness endpoint.
type Backend interface {
	Health(ctx context.Context) error
}

// Config holds runtime options for the HTTP server.
type Config struct {
	Address        string
	Logger         *zap.Logger
	Backend        Backend
	Sessions       custommw.SessionStore
	Workspaces     *appsession.Store
	Content        *content.Loader
	MaxUploadBytes int64
	RequestTimeout time.Duration

	CSRFCookieName   string
	CSRFHeaderName   string
	CSRFCookieSecure bool
}

// New constructs the HTTP server with middleware stack and embedded assets.
func New(cfg Config) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Sessions == nil || cfg.Workspaces == nil {
		panic("httpserver: session manager and workspace store are required")
	}
	if cfg.Content == nil {
		cfg.Content = content.NewLoader(nil)
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.CSRFHeaderName == "" {
		cfg.CSRFHeaderName = "X-CSRF-Token"
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(chimw.Compress(5))

	staticContent, err := public.StaticFS()
	if err != nil {
		logger.Fatal("embed static", zap.Error(err))
	}
	router.Handle(ui.StaticPrefix+"*", http.StripPrefix(ui.StaticPrefix, http.FileServer(http.FS(staticContent))))

	h := newHandlers(cfg)
	router.Get("/healthz", h.healthz)
	router.Get("/readyz", h.readyz)

	router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
		r.Use(chimw.NoCache)
		r.Use(custommw.HTMX())
		r.Use(custommw.Session(cfg.Sessions, cfg.Workspaces.Remove))
		r.Use(chimw.RequestSize(cfg.MaxUploadBytes + multipartOverhead))
		r.Use(custommw.CSRF(custommw.CSRFConfig{
			CookieName: cfg.CSRFCookieName,
			HeaderName: cfg.CSRFHeaderName,
			FieldName:  ui.CSRFFieldName,
			Secure:     cfg.CSRFCookieSecure,
		}))

		r.Get("/", h.page)
		r.Get(ui.RoutePreview, h.preview)
		RegisterFragment(r, ui.RouteToasts, h.toasts)

		r.Post(ui.RouteStart, h.start)
		r.Post(ui.RouteBack, h.back)
		r.Post(ui.RouteUpload, h.upload)
		r.Post(ui.RouteRecommend, h.recommend)
		r.Post(ui.RouteRetry, h.retry)
		r.Post(ui.RouteReset, h.reset)
	})

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// uploads wait on the backend's analysis before the fragment is written
		WriteTimeout: cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// RegisterFragment registers a GET handler intended for htmx fragment rendering.
func RegisterFragment(r chi.Router, pattern string, handler http.HandlerFunc) {
	r.With(custommw.RequireHTMX()).Get(pattern, handler)
}
