package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sitejournal/api/internal/capture"
	"github.com/sitejournal/api/internal/config"
	"github.com/sitejournal/api/internal/database"
	"github.com/sitejournal/api/internal/handlers"
	"github.com/sitejournal/api/internal/logger"
	"github.com/sitejournal/api/internal/media"
	"github.com/sitejournal/api/internal/middleware"
	"github.com/sitejournal/api/internal/queue"
	"github.com/sitejournal/api/internal/report"
	"github.com/sitejournal/api/internal/retrieve"
	"github.com/sitejournal/api/internal/services/ai"
	"github.com/sitejournal/api/internal/services/oidc"
	"github.com/sitejournal/api/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = zapLogger.Sync()
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	tracerProvider := initTracing(cfg, zapLogger)
	if tracerProvider != nil {
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
			}
		}()
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	if err := db.EnsureSchema(context.Background()); err != nil {
		zapLogger.Fatal("failed_to_ensure_schema", zap.Error(err))
	}
	zapLogger.Info("connected_to_database")

	redisLimiter, err := middleware.NewRedisRateLimiter(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisLimiter.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	jobQueue, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	artifactStore := database.NewArtifactStore(db)
	blobRepo := database.NewBlobRepository(db)
	oidcConfigRepo := database.NewOIDCConfigRepository(db)

	oidcProvider := oidc.NewProvider(oidcConfigRepo)
	jwksManager := oidc.NewJWKSManager()

	aiProvider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_reports_will_degrade", zap.Error(err))
		aiProvider = nil
	}

	var summarizer report.Summarizer
	if aiProvider != nil {
		summarizer = aiProvider
	} else {
		summarizer = unavailableSummarizer{}
	}

	committer := capture.NewCommitter(
		media.NewJPEGTranscoder(),
		blobRepo,
		artifactStore,
		zapLogger,
		capture.WithDerivativeEnqueuer(queue.NewDerivativeScheduler(jobQueue)),
	)
	synthesizer := report.NewSynthesizer(summarizer, artifactStore, zapLogger)
	aggregatorFor := func(userID uuid.UUID) handlers.DayAggregator {
		agg := retrieve.NewAggregator(artifactStore.ForUser(userID), blobRepo, zapLogger)
		agg.SetResolveWorkers(cfg.ResolveWorkers)
		return agg
	}

	deps := routerDeps{
		cfg:            cfg,
		logger:         zapLogger,
		db:             db,
		redisLimiter:   redisLimiter,
		jobQueue:       jobQueue,
		oidcProvider:   oidcProvider,
		jwksManager:    jwksManager,
		tracingEnabled: tracerProvider != nil,
		authHandler:    handlers.NewAuthHandler(oidcProvider, cfg.OIDCProvider),
		captureHandler: handlers.NewCaptureHandler(committer),
		dayHandler:     handlers.NewDayHandler(aggregatorFor),
		reportHandler:  handlers.NewReportHandler(artifactStore, synthesizer),
	}
	r, err := buildRouter(deps)
	if err != nil {
		zapLogger.Fatal("failed_to_build_router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	gcCtx, gcCancel := context.WithCancel(context.Background())
	defer gcCancel()
	startDLQGarbageCollector(gcCtx, jobQueue, zapLogger)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	gcCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// initTracing sets up the OTLP trace exporter when enabled. Returns nil when
// tracing is off or initialization fails; the server runs untraced in that
// case.
func initTracing(cfg *config.Config, zapLogger *zap.Logger) interface{ Shutdown(context.Context) error } {
	if !cfg.OTELEnabled {
		return nil
	}
	if cfg.OTELEndpoint == "" {
		zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		return nil
	}

	tp, err := telemetry.InitTracer(context.Background(), "sitejournal-api", cfg.OTELEndpoint)
	if err != nil {
		zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		return nil
	}
	zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
	return tp
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup
// delays when both containers come up together.
func connectRabbitMQ(amqpURL string, zapLogger *zap.Logger) (queue.JobQueue, error) {
	const maxRetries = 10
	const initialDelay = 2 * time.Second

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err := queue.NewRabbitMQQueue(amqpURL, zapLogger)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			return jobQueue, nil
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, lastErr
}

type routerDeps struct {
	cfg            *config.Config
	logger         *zap.Logger
	db             *database.DB
	redisLimiter   *middleware.RedisRateLimiter
	jobQueue       queue.JobQueue
	oidcProvider   *oidc.Provider
	jwksManager    *oidc.JWKSManager
	tracingEnabled bool
	authHandler    *handlers.AuthHandler
	captureHandler *handlers.CaptureHandler
	dayHandler     *handlers.DayHandler
	reportHandler  *handlers.ReportHandler
}

func buildRouter(d routerDeps) (*mux.Router, error) {
	r := mux.NewRouter()

	// Middleware order matters: security headers and CORS outermost, the
	// request logger innermost so it sees the final status.
	if d.tracingEnabled {
		r.Use(otelmux.Middleware("sitejournal-api"))
	}
	r.Use(middleware.SecurityHeaders(d.cfg.EnableHSTS))
	r.Use(middleware.CORSFromEnv(d.cfg.FrontendURL))
	// Photo uploads arrive base64 inline, hence the generous body cap.
	r.Use(middleware.MaxRequestSize(middleware.MaxPhotoRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(d.logger))
	r.Use(middleware.Audit(d.logger))
	r.Use(middleware.Logging(d.logger))

	rateLimitMW, err := middleware.RateLimitUlule(d.redisLimiter.Client(), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limiter: %w", err)
	}

	// Health and version stay outside rate limiting.
	healthChecker := handlers.NewHealthChecker(d.db, d.redisLimiter.Client(), d.jobQueue)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET") // Legacy endpoint
	r.HandleFunc("/version", versionInfo).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"))
	openAPIHandler.RegisterRoutes(r)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	authMW := middleware.Auth(d.db, d.oidcProvider, d.jwksManager, d.cfg.OIDCProvider, d.logger)

	authRouter := apiRouter.PathPrefix("/auth").Subrouter()

	loginRouter := authRouter.PathPrefix("/oidc").Subrouter()
	loginRouter.Use(rateLimitMW)
	loginRouter.HandleFunc("/login", d.authHandler.GetOIDCLogin).Methods("GET")

	protectedAuthRouter := authRouter.PathPrefix("").Subrouter()
	protectedAuthRouter.Use(authMW)
	protectedAuthRouter.Use(rateLimitMW)
	protectedAuthRouter.HandleFunc("/me", d.authHandler.GetMe).Methods("GET")

	for prefix, register := range map[string]func(*mux.Router){
		"/captures": d.captureHandler.RegisterRoutes,
		"/days":     d.dayHandler.RegisterRoutes,
		"/reports":  d.reportHandler.RegisterRoutes,
	} {
		sub := apiRouter.PathPrefix(prefix).Subrouter()
		sub.Use(authMW)
		sub.Use(rateLimitMW)
		register(sub)
	}

	// Preflight requests get their headers from the CORS middleware.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r, nil
}

// startDLQGarbageCollector sweeps the dead letter queue hourly with a 24 hour
// retention when the queue implementation supports purging.
func startDLQGarbageCollector(ctx context.Context, jobQueue queue.JobQueue, zapLogger *zap.Logger) {
	dlqPurger, ok := jobQueue.(queue.DLQPurger)
	if !ok {
		return
	}

	dlqGC := queue.NewGarbageCollector(dlqPurger, zapLogger, 1*time.Hour, 24*time.Hour)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
		}
	}()
	zapLogger.Info("started_dlq_garbage_collector",
		zap.Duration("interval", 1*time.Hour),
		zap.Duration("retention", 24*time.Hour),
	)
}

// unavailableSummarizer stands in when no AI provider is configured. Reports
// still persist, carrying the fallback summary text.
type unavailableSummarizer struct{}

func (unavailableSummarizer) Summarize(context.Context, string) (string, error) {
	return "", fmt.Errorf("ai provider not configured")
}

func createAIProvider(cfg *config.Config, zapLogger *zap.Logger, debugMode bool) (ai.AIProvider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			zapLogger,
			debugMode,
		), nil
	}

	// The registry covers alternative providers, without debug logging.
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	providerConfig := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}
	return registry.GetProvider(providerType, providerConfig)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}
