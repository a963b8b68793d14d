package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/securecookie"
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/config"
	"github.com/tarakkrishna/StyleSense/internal/content"
	"github.com/tarakkrishna/StyleSense/internal/controller"
	"github.com/tarakkrishna/StyleSense/internal/httpserver"
	"github.com/tarakkrishna/StyleSense/internal/observability"
	"github.com/tarakkrishna/StyleSense/internal/session"
	"github.com/tarakkrishna/StyleSense/internal/styleapi"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var (
		addr       string
		apiBase    string
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web front end",
		Long: `Run the web front end. Settings come from STYLEAI_* environment variables,
a .env file in the working directory and an optional YAML file; flags win.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var opts []config.Option
			if configFile != "" {
				opts = append(opts, config.WithConfigFile(configFile))
			}
			cfg, err := config.Load(opts...)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTP.Addr = addr
			}
			if cmd.Flags().Changed("api-base") {
				cfg.API.BaseURL = strings.TrimRight(apiBase, "/")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides STYLEAI_HTTP_ADDR)")
	cmd.Flags().StringVar(&apiBase, "api-base", "", "backend base URL (overrides STYLEAI_API_BASE)")
	cmd.Flags().StringVar(&configFile, "config", "", "YAML config file")

	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	logger, err := observability.NewLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	hashKey, blockKey := cfg.Session.HashKey, cfg.Session.BlockKey
	if len(hashKey) == 0 {
		logger.Warn("STYLEAI_SESSION_HASH_KEY not set; using ephemeral session keys")
		hashKey = securecookie.GenerateRandomKey(32)
		blockKey = securecookie.GenerateRandomKey(32)
	}

	client := styleapi.NewClient(cfg.API.BaseURL,
		styleapi.WithTimeout(cfg.API.Timeout),
		styleapi.WithLogger(logger.Named("styleapi")),
	)
	manager, err := session.NewManager(session.Config{
		HashKey:      hashKey,
		BlockKey:     blockKey,
		CookieSecure: cfg.Session.CookieSecure,
		IdleTimeout:  cfg.Session.IdleTimeout,
	})
	if err != nil {
		return err
	}
	store := session.NewStore(func(string) *controller.Controller {
		// workspaces are tagged with their own id so logs never carry the cookie value
		wsLogger := logger.Named("controller").With(zap.String("workspace", ulid.Make().String()))
		return controller.New(client, controller.WithLogger(wsLogger))
	}, session.StoreConfig{
		IdleTimeout: cfg.Session.IdleTimeout,
		Logger:      logger.Named("session"),
	})
	go store.Run(ctx, session.DefaultSweepInterval)

	srv := httpserver.New(httpserver.Config{
		Address:          cfg.HTTP.Addr,
		Logger:           logger,
		Backend:          client,
		Sessions:         manager,
		Workspaces:       store,
		Content:          content.NewLoader(nil),
		MaxUploadBytes:   cfg.Upload.MaxBytes,
		RequestTimeout:   cfg.API.Timeout + cfg.HTTP.ShutdownTimeout,
		CSRFCookieSecure: cfg.Session.CookieSecure,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("styleai listening",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("api_base", client.BaseURL()),
		zap.String("environment", cfg.Environment),
	)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("styleai stopped")
	return nil
}
