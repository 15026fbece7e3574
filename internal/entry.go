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

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/inbox"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/metrics"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
)

// components are the pieces shared by every command.
type components struct {
	logger  *slog.Logger
	db      *history.DB
	metrics *metrics.Metrics
	svc     *compiler.Service
}

func (c *components) Close() error {
	return c.db.Close()
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// setup builds the logger, history store, metrics and compile service.
func (a *application) setup(extra ...compiler.Option) (*components, error) {
	cfg := a.config

	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.Bool("inbox_enabled", cfg.Inbox.Enabled),
		slog.String("timezone", cfg.Context.Timezone),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := history.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init history: %w", err)
	}

	m := metrics.New()
	opts := append([]compiler.Option{
		compiler.WithHistory(db),
		compiler.WithMetrics(m),
		compiler.WithLogger(logger),
		compiler.WithDefaults(compiler.Defaults{
			User:     cfg.Context.DefaultUser,
			Folder:   cfg.Context.DefaultFolder,
			Location: cfg.Context.Location(),
		}),
	}, extra...)

	return &components{
		logger:  logger,
		db:      db,
		metrics: m,
		svc:     compiler.NewService(opts...),
	}, nil
}

// Run starts the HTTP server, and the inbox watcher when enabled.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	broker := sse.NewBroker(cfg.Events.HistoryThrottle)
	defer broker.Close()

	c, err := app.setup(compiler.WithEvents(broker))
	if err != nil {
		return err
	}
	defer c.Close()
	logger := c.logger

	var proc *inbox.Processor
	if cfg.Inbox.Enabled {
		proc, err = newInbox(cfg.Inbox, c)
		if err != nil {
			return err
		}
		if err := inbox.Sync(ctx, proc); err != nil {
			logger.Warn("initial sync failed", slog.String("error", err.Error()))
		}
	}

	apiRouter := api.NewRouter(c.svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := c.db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", c.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if proc != nil {
		g.Go(func() error {
			return inbox.Watch(gCtx, proc, logger, func(kind, path string) {
				if kind == inbox.EventRemoved {
					broker.Publish(sse.Event{Type: sse.TypeDocumentRemoved, Data: map[string]string{"path": path}})
				}
			})
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

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools over stdio. Logs must not go to stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}
	c, err := app.setup()
	if err != nil {
		return err
	}
	defer c.Close()

	c.logger.Info("Starting MCP server on stdio")
	return mcpserver.New(c.svc).ServeStdio()
}

func newInbox(cfg InboxConfig, c *components) (*inbox.Processor, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	docs, err := storage.NewFS(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("init inbox: %w", err)
	}
	results := docs
	if cfg.Results() != cfg.Path {
		if err := os.MkdirAll(cfg.Results(), 0o755); err != nil {
			return nil, fmt.Errorf("create results dir: %w", err)
		}
		results, err = storage.NewFS(cfg.Results())
		if err != nil {
			return nil, fmt.Errorf("init results: %w", err)
		}
	}
	return inbox.NewProcessor(c.svc, docs, results, c.db, c.logger), nil
}
