package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	api "github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/http"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/api/ws"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/blob"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/capture"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/comment"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/mention"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/project"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/domain/review"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/notify"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/overlay"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/providers/http/client"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/proxy"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/realtime"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/paths"
	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second
	gcInterval      = 10 * time.Minute
	readTimeout     = 30 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	store    *storage.Store
	blobs    *blob.LocalStore
	comments *comment.Manager
	pool     *capture.Pool
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Development: cfg.Logging.Development})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	logger.Info("Initializing ReviewCanvas server",
		zap.String("addr", cfg.Server.Address()),
		zap.String("data_dir", cfg.Storage.DataDir),
		zap.Bool("remote_capture", cfg.Capture.RemoteCaptureEnabled()),
		zap.Bool("browser_capture", cfg.Capture.BrowserEnabled),
	)

	// Everything opened below is released in reverse order if setup fails
	var opened []func()
	fail := func(err error) (*Server, error) {
		for i := len(opened) - 1; i >= 0; i-- {
			opened[i]()
		}
		_ = logger.Sync()
		return nil, err
	}

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	opened = append(opened, metrics.Close)
	tracer := tracing.New("backend", logger.Logger)
	opened = append(opened, tracer.Close)

	layout := paths.Layout{DataDir: cfg.Storage.DataDir, UploadsDir: cfg.Storage.UploadsDir}
	store, err := storage.Open(storage.Options{
		Dir:      layout.DatabaseDir(),
		InMemory: cfg.Storage.InMemory,
		Logger:   logger,
	})
	if err != nil {
		return fail(fmt.Errorf("failed to open store: %w", err))
	}
	opened = append(opened, func() { _ = store.Close() })

	// The local blob store holds no open handles
	blobs, err := blob.NewLocalStore(layout.ScreenshotDir(), logger)
	if err != nil {
		return fail(err)
	}

	// Outbound clients: the proxy and the screenshot API surface upstream
	// failures immediately, webhooks tolerate transient errors.
	proxyClient := client.NewClient(proxyClientOptions(cfg.Proxy))
	captureClient := client.NewClient(remoteCaptureOptions(cfg.Capture))
	webhookClient := client.NewClient(webhookOptions())

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
	if cfg.Sync.NotifyWebhook != "" {
		dispatcher = notify.NewWebhookDispatcher(webhookClient, cfg.Sync.NotifyWebhook)
	}

	hub := realtime.NewHub(metrics, logger)
	projects := project.NewManager(store.Projects, store.Reviews, store.Users, metrics, logger)
	reviews := review.NewManager(store.Reviews, store.Projects, hub, metrics, logger)
	comments := comment.NewManager(comment.Deps{
		Comments: store.Comments,
		Projects: store.Projects,
		Mentions: mention.NewResolver(store.Users),
		Notifier: dispatcher,
		Hub:      hub,
		Metrics:  metrics,
		Logger:   logger,
	})

	profiles := proxy.DefaultProfiles()
	if cfg.Proxy.ProfilesFile != "" {
		if profiles, err = proxy.LoadProfiles(cfg.Proxy.ProfilesFile); err != nil {
			return fail(fmt.Errorf("failed to load browser profiles: %w", err))
		}
	}
	guard, err := proxy.NewGuard(cfg.Proxy.BlockedHosts)
	if err != nil {
		return fail(fmt.Errorf("invalid blocked hosts: %w", err))
	}
	script, err := overlay.LoadScript()
	if err != nil {
		return fail(fmt.Errorf("failed to load overlay script: %w", err))
	}
	proxySvc := proxy.NewService(proxyClient, profiles, guard, overlay.Injector{}, metrics, logger)

	// Renderers in preference order: the remote API, then the local browser pool
	settings := capture.SettingsFrom(cfg.Capture)
	renderers := []capture.Renderer{
		capture.NewRemoteRenderer(captureClient, cfg.Capture.RemoteURL, cfg.Capture.RemoteKey, cfg.Capture.Quality, cfg.Capture.RemoteTimeout),
	}
	var pool *capture.Pool
	if cfg.Capture.BrowserEnabled {
		pool = capture.NewPool(capture.RodLauncher(cfg.Capture.BrowserBin, logger), capture.PoolOptions{Size: cfg.Capture.PoolSize}, metrics, logger)
		renderers = append(renderers, capture.NewBrowserRenderer(pool, settings))
	}
	captureSvc := capture.NewService(metrics, logger, renderers...)

	verifier := middleware.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if !verifier.Enabled() {
		logger.Warn("JWT_SECRET not set, authenticated routes will reject every request")
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.Server.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	var captureLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
			zap.Int("capture_rps", cfg.RateLimit.CaptureRPS),
		)
		limits := middleware.DefaultRateLimitConfig()
		limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		limits.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(limits))

		// Zero leaves capture bounded only by the browser pool
		if cfg.RateLimit.CaptureRPS > 0 {
			captureLimits := middleware.DefaultRateLimitConfig()
			captureLimits.RequestsPerSecond = cfg.RateLimit.CaptureRPS
			captureLimits.Burst = cfg.RateLimit.CaptureRPS
			captureLimit = middleware.GlobalRateLimit(captureLimits)
		}
	}

	handlers := api.NewHandlers(api.Deps{
		Proxy:           proxySvc,
		Script:          script,
		Comments:        comments,
		Reviews:         reviews,
		Projects:        projects,
		Blobs:           blobs,
		Capture:         captureSvc,
		Hub:             hub,
		CaptureSettings: settings,
		Sync:            cfg.Sync,
		PublicURL:       cfg.Server.PublicURL,
		Metrics:         metrics,
		Logger:          logger,
	})
	handlers.Register(router, verifier, captureLimit)

	wsOpts := ws.DefaultOptions()
	wsOpts.SendQueue = cfg.Sync.SendQueue
	wsHandler := ws.NewHandler(hub, projects, wsOpts, metrics, logger)
	router.GET(paths.SocketRoute, middleware.OptionalAuth(verifier), wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           router,
			ReadHeaderTimeout: readTimeout,
		},
		store:    store,
		blobs:    blobs,
		comments: comments,
		pool:     pool,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func proxyClientOptions(cfg config.ProxyConfig) client.Options {
	opts := client.DefaultOptions()
	opts.Timeout = cfg.Timeout
	opts.MaxRedirects = cfg.MaxRedirects
	opts.MaxBodyBytes = cfg.MaxBodyBytes
	opts.Cache = cfg.CacheEnabled
	opts.CacheEntries = cfg.CacheEntries
	opts.UserAgent = ""
	return opts
}

// remoteCaptureOptions makes the screenshot API a single bounded call.
func remoteCaptureOptions(cfg config.CaptureConfig) client.Options {
	opts := client.DefaultOptions()
	opts.Timeout = cfg.RemoteTimeout
	opts.Retries = 0
	return opts
}

func webhookOptions() client.Options {
	opts := client.DefaultOptions()
	opts.Retries = 2
	opts.Timeout = 10 * time.Second
	return opts
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP and the background maintenance loops until ctx is done,
// then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
		s.http.BaseContext = func(net.Listener) context.Context { return ctx }
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		s.store.RunGC(ctx, gcInterval)
		return nil
	})
	g.Go(func() error {
		s.blobs.RunSweeper(ctx, s.config.Storage.SweepInterval, s.config.Storage.ScreenshotRetention)
		return nil
	})

	return g.Wait()
}

// Close releases everything NewServer opened
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	// Let in-flight mention notifications finish before the store goes away
	s.comments.Wait()

	var errs []error
	if s.pool != nil {
		if err := s.pool.Close(); err != nil {
			s.logger.Error("Failed to close browser pool", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		errs = append(errs, err)
	}
	s.tracer.Close()
	s.metrics.Close()

	// Sync logger before exit
	_ = s.logger.Sync()

	return errors.Join(errs...)
}
