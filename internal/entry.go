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

	"github.com/starford/recall/internal/api"
	"github.com/starford/recall/internal/credential"
	"github.com/starford/recall/internal/embedding"
	"github.com/starford/recall/internal/gateway"
	"github.com/starford/recall/internal/importer"
	"github.com/starford/recall/internal/index"
	"github.com/starford/recall/internal/mcpserver"
	"github.com/starford/recall/internal/metrics"
	"github.com/starford/recall/internal/noteservice"
	"github.com/starford/recall/internal/session"
	"github.com/starford/recall/internal/sse"
	"github.com/starford/recall/internal/storage"
	"github.com/starford/recall/internal/tools"
)

// stack holds the wired components shared by the HTTP and stdio entry points.
type stack struct {
	cfg     *Config
	logger  *slog.Logger
	db      *index.DB
	metrics *metrics.Metrics
	broker  *sse.Broker
	notes   *noteservice.Service
	keys    *credential.Store
	issuer  *session.Issuer
	gateway *gateway.Gateway
	surface *tools.Surface
	mcp     *mcpserver.Server
}

func (s *stack) close() {
	s.keys.Flush()
	s.broker.Close()
	if err := s.db.Close(); err != nil {
		s.logger.Error("close index", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger. Stdio mode writes logs to
// stderr because stdout carries the protocol.
func newLogger(cfg *Config, stdio bool) *slog.Logger {
	out := os.Stdout
	if stdio {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func buildStack(app *application, logger *slog.Logger, auth func(*gateway.Gateway) mcpserver.Authenticator) (*stack, error) {
	cfg := app.config

	embedder := app.embedder
	if embedder == nil {
		p, err := embedding.NewProvider(cfg.Embedding.Config)
		if err != nil {
			return nil, fmt.Errorf("init embedding: %w", err)
		}
		embedder = p
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	issuer, err := session.NewIssuer(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sessions: %w", err)
	}

	m := metrics.New()
	broker := sse.NewBroker(2 * time.Second)

	notes := noteservice.NewService(db, db, embedder,
		noteservice.WithEvents(broker),
		noteservice.WithMetrics(m),
		noteservice.WithLogger(logger),
	)
	keys := credential.NewStore(db, logger)
	gw := gateway.New(
		[]gateway.Resolver{
			gateway.SessionResolver{Sessions: issuer},
			gateway.KeyResolver{Keys: keys},
		},
		gateway.WithKeyRate(cfg.Auth.KeyRatePerMinute),
		gateway.WithMetrics(m),
		gateway.WithLogger(logger),
	)
	surface := tools.NewSurface(notes,
		tools.SearchDefaults{Threshold: cfg.Search.MatchThreshold, Count: cfg.Search.MatchCount},
		tools.WithMetrics(m),
		tools.WithLogger(logger),
	)

	logger.Info("Embedding provider ready",
		slog.String("provider", embedder.Name()),
		slog.Int("dimensions", embedder.Dimensions()))

	return &stack{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		metrics: m,
		broker:  broker,
		notes:   notes,
		keys:    keys,
		issuer:  issuer,
		gateway: gw,
		surface: surface,
		mcp:     mcpserver.New(surface, auth(gw), app.version, logger),
	}, nil
}

// handler builds the full HTTP handler tree.
func (s *stack) handler() http.Handler {
	apiRouter := api.NewRouter(api.Deps{
		Notes:      s.notes,
		Keys:       s.keys,
		Gateway:    s.gateway,
		Tools:      s.surface,
		Events:     s.broker,
		Search:     tools.SearchDefaults{Threshold: s.cfg.Search.MatchThreshold, Count: s.cfg.Search.MatchCount},
		CookieName: s.cfg.Auth.CookieName,
	})

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := s.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", s.metrics.Handler())

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// MCP streamable HTTP transport, authenticated per request.
	r.With(s.gateway.Middleware(s.cfg.Auth.CookieName)).Mount("/mcp", s.mcp.HTTPHandler())

	return r
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, false)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("embedding_provider", cfg.Embedding.Provider),
		slog.Bool("import_enabled", cfg.Import.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	s, err := buildStack(app, logger, func(*gateway.Gateway) mcpserver.Authenticator {
		return mcpserver.FromRequestContext
	})
	if err != nil {
		return err
	}
	defer s.close()

	var imp *importer.Importer
	if cfg.Import.Enabled {
		if err := os.MkdirAll(cfg.Import.Dir, 0o755); err != nil {
			return fmt.Errorf("create import dir: %w", err)
		}
		inbox, err := storage.NewFS(cfg.Import.Dir)
		if err != nil {
			return fmt.Errorf("init import storage: %w", err)
		}
		imp = importer.New(inbox, s.notes, cfg.Import.Owner, logger)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           s.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Start the inbox importer.
	if imp != nil {
		g.Go(func() error {
			return imp.Run(gCtx)
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

		// Ending SSE streams first lets Shutdown drain promptly.
		s.broker.Close()

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

// errShutdown cancels the group so the importer stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the tool surface on stdio. Every call is authenticated with
// creds, so a revoked key stops working mid-session.
func RunMCP(ctx context.Context, creds gateway.Credentials, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, true)

	s, err := buildStack(app, logger, func(gw *gateway.Gateway) mcpserver.Authenticator {
		return mcpserver.StaticCredentials(gw, creds)
	})
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.gateway.Authenticate(ctx, creds); err != nil {
		return fmt.Errorf("mcp: credentials rejected: %w", err)
	}

	logger.Info("MCP stdio server starting")
	return s.mcp.ServeStdio()
}

// MintSession issues a development session token for owner.
func MintSession(cfg *Config, owner string) (string, error) {
	issuer, err := session.NewIssuer(cfg.Auth.SessionSecret, cfg.Auth.SessionTTL)
	if err != nil {
		return "", err
	}
	return issuer.Mint(owner)
}
