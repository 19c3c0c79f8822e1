package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"neurohub/internal/core/domain"
	"neurohub/internal/core/services"
	handlers "neurohub/internal/handlers/http"
	"neurohub/internal/infrastructure/middleware"
	"neurohub/internal/infrastructure/monitoring"
	wsignal "neurohub/internal/infrastructure/signal"
	"neurohub/pkg/config"
	"neurohub/pkg/logger"
	"neurohub/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := os.Getenv("NEUROHUB_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zlog.Sync()
	sugar := zlog.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		sugar.Fatalw("failed to init tracing", "error", err)
	}

	collector := monitoring.NewPrometheusCollector()
	verifier := services.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	coordinator := services.NewCoordinator(services.CoordinatorConfig{
		SweepInterval:     cfg.Hub.SweepInterval,
		RetentionWindow:   cfg.Hub.RetentionWindow,
		PurgeInterval:     cfg.Hub.PurgeInterval,
		MaxBufferCapacity: cfg.Hub.MaxBufferCapacity,
		DefaultStream: domain.StreamConfig{
			SampleRate:     cfg.Hub.DefaultSampleRate,
			ChannelCount:   cfg.Hub.DefaultChannels,
			BufferCapacity: cfg.Hub.DefaultBufferCap,
		},
	}, nil, collector, sugar)

	wsServer := wsignal.NewWebSocketServer(coordinator, verifier, collector, wsignal.Options{
		PingInterval:      cfg.Signal.PingInterval,
		PongTimeout:       cfg.Signal.PongTimeout,
		WriteTimeout:      cfg.Signal.WriteTimeout,
		ReadLimitBytes:    cfg.Signal.ReadLimitBytes,
		SendBufferSize:    cfg.Signal.SendBufferSize,
		MessagesPerSecond: cfg.Signal.MessagesPerSecond,
		MessageBurst:      cfg.Signal.MessageBurst,
	}, sugar)
	coordinator.SetSender(wsServer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go coordinator.Run(ctx)

	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	router.GET("/ws", func(c *gin.Context) {
		wsServer.HandleWebSocket(c.Writer, c.Request)
	})
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	handlers.NewHubHandler(coordinator).SetupRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		sugar.Infow("neurohub listening", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	sugar.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("server shutdown", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("tracer shutdown", "error", err)
	}
}
