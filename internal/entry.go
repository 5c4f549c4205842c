// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/camroll/internal/api"
	"github.com/starford/camroll/internal/capture"
	"github.com/starford/camroll/internal/index"
	"github.com/starford/camroll/internal/mcpserver"
	"github.com/starford/camroll/internal/mediaservice"
	"github.com/starford/camroll/internal/models"
	"github.com/starford/camroll/internal/session"
	"github.com/starford/camroll/internal/sse"
	"github.com/starford/camroll/internal/storage"
	"github.com/starford/camroll/internal/tui"
)

// runtime is the state shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  storage.Provider
	db     *index.DB
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

// setup builds the logger, opens the library and index, and runs the
// startup sync.
func setup(ctx context.Context, app *application) (*runtime, error) {
	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.Bool("read_only", cfg.Library.ReadOnly),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(ctx, db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return &runtime{cfg: cfg, logger: logger, store: store, db: db}, nil
}

func (rt *runtime) service(opts ...mediaservice.Option) *mediaservice.Service {
	opts = append([]mediaservice.Option{mediaservice.WithReadOnly(rt.cfg.Library.ReadOnly)}, opts...)
	return mediaservice.NewService(rt.store, rt.db, opts...)
}

func (rt *runtime) capture(svc *mediaservice.Service) *capture.Controller {
	return capture.New(svc, rt.cfg.Library.PhotoDir, rt.cfg.Library.VideoDir, rt.logger)
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := setup(ctx, app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	cfg, logger := rt.cfg, rt.logger

	broker := sse.NewBroker(cfg.Events.RefreshThrottle)
	defer broker.Close()

	svc := rt.service(mediaservice.WithChangeFunc(broker.PublishMediaEvent))
	host := session.New(svc, broker, logger)
	defer host.Close()

	apiRouter := api.NewRouter(api.Deps{
		Media:   svc,
		Session: host,
		Capture: rt.capture(svc),
	}, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if _, err := svc.Counts(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"index unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// External captures and file managers change the library behind our back.
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, logger, func(kind string, loc models.Locator, path string) {
			broker.PublishMediaEvent(kind, loc, path)
		})
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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
		// Unblocks the watcher.
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunTUI shows the terminal UI. The log goes to app.log_file.
func RunTUI(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logFile, err := os.OpenFile(app.config.App.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	app.logOutput = logFile

	rt, err := setup(ctx, app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return index.Watch(gCtx, rt.db, rt.store, rt.logger, nil)
	})
	g.Go(func() error {
		defer cancel()
		return tui.Run(gCtx, rt.service(), rt.logger)
	})
	return g.Wait()
}

// RunMCP serves the MCP tools on stdio. stdout carries the protocol, so the
// log goes to stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	rt, err := setup(ctx, app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	svc := rt.service()
	host := session.New(svc, nil, rt.logger)
	defer host.Close()

	srv := mcpserver.New(svc, host, rt.cfg.Library.ImportDir)
	rt.logger.Info("mcp: serving on stdio")
	return srv.ServeStdio()
}

// RunSync indexes the library once and prints the per-kind counts.
func RunSync(ctx context.Context, out io.Writer, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	rt, err := setup(ctx, app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	counts, err := rt.service().Counts(ctx)
	if err != nil {
		return err
	}
	for _, k := range models.Kinds {
		fmt.Fprintf(out, "%s: %d\n", k.Collection(), counts[k])
	}
	return nil
}

// RunCapture stores one photo or video read from r as if the camera had just
// produced it, and prints its locator.
func RunCapture(ctx context.Context, kind models.Kind, r io.Reader, out io.Writer, opts ...Option) error {
	app, err := newApplication(append(opts, WithLogOutput(os.Stderr)))
	if err != nil {
		return err
	}
	rt, err := setup(ctx, app)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	c := rt.capture(rt.service())
	var m *models.Media
	if kind == models.KindVideo {
		m, err = c.RecordVideo(ctx, r)
	} else {
		m, err = c.CapturePhoto(ctx, r)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\t%s\n", m.Locator, m.Path)
	return nil
}
