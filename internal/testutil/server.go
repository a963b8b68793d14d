package testutil

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/controller"
	"github.com/tarakkrishna/StyleSense/internal/httpserver"
	appsession "github.com/tarakkrishna/StyleSense/internal/session"
	"github.com/tarakkrishna/StyleSense/internal/styleapi"
)

// CSRFHeader is the header the test server expects the token in.
const CSRFHeader = "X-CSRF-Token"

type serverOptions struct {
	backendURL string
	logger     *zap.Logger
	maxUpload  int64
}

// ServerOption customises the HTTP server configuration for tests.
type ServerOption func(*serverOptions)

// WithBackendURL points the API client at a fake backend.
func WithBackendURL(url string) ServerOption {
	return func(o *serverOptions) {
		o.backendURL = url
	}
}

// WithLogger routes server logs to logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithMaxUploadBytes lowers the upload limit.
func WithMaxUploadBytes(n int64) ServerOption {
	return func(o *serverOptions) {
		o.maxUpload = n
	}
}

// NewServer constructs an httptest server running the full HTTP stack with sensible defaults.
func NewServer(t testing.TB, opts ...ServerOption) *httptest.Server {
	t.Helper()

	options := serverOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&options)
	}

	client := styleapi.NewClient(options.backendURL,
		styleapi.WithTimeout(5*time.Second),
		styleapi.WithLogger(options.logger),
	)
	manager, err := appsession.NewManager(appsession.Config{
		CookieName: "test_session",
		HashKey:    []byte("12345678901234567890123456789012"),
		BlockKey:   []byte("abcdefghijklmnopqrstuvwxyzABCDEF"),
	})
	if err != nil {
		t.Fatalf("session manager init: %v", err)
	}
	store := appsession.NewStore(func(string) *controller.Controller {
		return controller.New(client, controller.WithLogger(options.logger))
	}, appsession.StoreConfig{Logger: options.logger})

	srv := httpserver.New(httpserver.Config{
		Address:        ":0",
		Logger:         options.logger,
		Backend:        client,
		Sessions:       manager,
		Workspaces:     store,
		MaxUploadBytes: options.maxUpload,
		CSRFCookieName: "csrf_token",
		CSRFHeaderName: CSRFHeader,
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}
