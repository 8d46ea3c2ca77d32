// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/inkpact/internal/api"
	"github.com/starford/inkpact/internal/contentservice"
	"github.com/starford/inkpact/internal/journal"
	"github.com/starford/inkpact/internal/mcpserver"
	"github.com/starford/inkpact/internal/sse"
	"github.com/starford/inkpact/internal/storage"
)

// content bundles the data directory, the optional journal and the service
// on top of them.
type content struct {
	store storage.Provider
	db    *journal.DB
	svc   *contentservice.Service
}

func (c *content) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

// openContent prepares the data directory, opens and syncs the journal when
// enabled and builds the content service.
func openContent(ctx context.Context, cfg *Config, logger *slog.Logger, notifier contentservice.Notifier) (*content, error) {
	if err := os.MkdirAll(cfg.Data.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Data.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c := &content{store: store}
	opts := []contentservice.Option{
		contentservice.WithLogger(logger),
		contentservice.WithMaxImageBytes(cfg.Uploads.MaxBytes),
	}
	if notifier != nil {
		opts = append(opts, contentservice.WithNotifier(notifier))
	}

	if cfg.Journal.Enabled {
		db, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("init journal: %w", err)
		}
		c.db = db
		opts = append(opts, contentservice.WithRecorder(db))

		n, err := journal.Sync(ctx, db, store, logger)
		if err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("external changes found at startup", slog.Int("count", n))
		}
	}

	c.svc = contentservice.New(store, opts...)
	if err := c.svc.Bootstrap(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("bootstrap data dir: %w", err)
	}
	return c, nil
}

func newLogger(app *application) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the dashboard server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(app)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_path", cfg.Data.Path),
		slog.String("static_dir", cfg.Data.StaticDir),
		slog.Bool("journal", cfg.Journal.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)

	c, err := openContent(ctx, cfg, logger, broker)
	if err != nil {
		broker.Close()
		return err
	}
	defer c.Close()

	routerCfg := api.RouterConfig{
		Events:         broker,
		DataDir:        c.store.Root(),
		StaticDir:      cfg.Data.StaticDir,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if c.db != nil {
		routerCfg.Activity = c.db
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", api.NewRouter(c.svc, routerCfg))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Report edits made outside the server.
	if cfg.Watch.Enabled && c.db != nil {
		g.Go(func() error {
			err := journal.Watch(gCtx, c.db, c.store, logger, func(action, path string) {
				broker.PublishChange(sse.TypeFileChanged, map[string]string{"action": action, "path": path})
			})
			if err != nil {
				logger.Warn("watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Closing the broker ends open event streams so Shutdown can finish.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once shutdown has been handled so the
// watcher stops too.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to the configured
// output, which must not be stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	logger := newLogger(app)

	c, err := openContent(ctx, app.config, logger, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	logger.Info("MCP server starting", slog.String("data_path", app.config.Data.Path))
	return mcpserver.New(c.svc, logger).ServeStdio()
}
