// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/car-rental-backend/internal/admin"
	"github.com/carterperez-dev/car-rental-backend/internal/auth"
	"github.com/carterperez-dev/car-rental-backend/internal/booking"
	"github.com/carterperez-dev/car-rental-backend/internal/car"
	"github.com/carterperez-dev/car-rental-backend/internal/config"
	"github.com/carterperez-dev/car-rental-backend/internal/core"
	"github.com/carterperez-dev/car-rental-backend/internal/events"
	"github.com/carterperez-dev/car-rental-backend/internal/health"
	"github.com/carterperez-dev/car-rental-backend/internal/mail"
	"github.com/carterperez-dev/car-rental-backend/internal/message"
	"github.com/carterperez-dev/car-rental-backend/internal/middleware"
	"github.com/carterperez-dev/car-rental-backend/internal/mirror"
	"github.com/carterperez-dev/car-rental-backend/internal/payout"
	"github.com/carterperez-dev/car-rental-backend/internal/server"
	"github.com/carterperez-dev/car-rental-backend/internal/upload"
	"github.com/carterperez-dev/car-rental-backend/internal/user"
)

const (
	drainDelay    = 5 * time.Second
	purgeInterval = time.Hour
	eventBuffer   = 32

	authRequestsPerMinute = 10
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	if err := run(*configPath, *generateKeys); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string, generateKeys bool) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if generateKeys {
		if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
			return fmt.Errorf("generate keys: %w", err)
		}
		slog.Info("key pair written",
			"private", cfg.JWT.PrivateKeyPath,
			"public", cfg.JWT.PublicKeyPath,
		)
		return nil
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	mongo := core.NewMongo(cfg.Mongo)
	store := mirror.NewStore(mongo, cfg.Mongo, logger)

	var mirrorWriter mirror.Mirror = mirror.Disabled{}
	if store.Configured() {
		mirrorWriter = mirror.NewMongoMirror(store)
		logger.Info("mirror store configured",
			"database", cfg.Mongo.Database,
			"reachable", store.Reachable(ctx),
		)
	} else {
		logger.Info("mirror store disabled")
	}

	hooks := mirror.NewHooks(cfg.Mongo.HookTimeout, logger)

	hub := events.NewHub(eventBuffer, logger)
	var amqpSink *events.AMQPSink
	if cfg.AMQP.Enabled {
		amqpSink = events.NewAMQPSink(cfg.AMQP)
		hub.AddSink(amqpSink)
		logger.Info("amqp event sink enabled", "exchange", cfg.AMQP.Exchange)
	}

	uploads, err := upload.NewStore(cfg.Upload)
	if err != nil {
		return err
	}

	mailer := mail.NewSMTPSender(cfg.Mail)
	if !mailer.Enabled() {
		logger.Warn("smtp not configured, otp codes and message replies will not be emailed")
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized",
		"algorithm", "ES256",
		"key_id", jwtManager.GetKeyID(),
	)

	userRepo := user.NewRepository(db.DB)
	userPrimary := user.NewPrimaryReader(userRepo)
	userMongo := user.NewMongoReader(store)
	userSvc := user.NewService(userRepo,
		mirror.NewPicker(userPrimary, userMongo, store), mirrorWriter, hooks)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(authRepo, jwtManager, userSvc, redis, mailer, cfg.OTP)
	authHandler := auth.NewHandler(authSvc)

	adminRepo := admin.NewRepository(db.DB)
	adminSvc := admin.NewService(adminRepo, jwtManager)
	if err := adminSvc.Seed(ctx, cfg.Admin); err != nil {
		return err
	}

	carRepo := car.NewRepository(db.DB)
	carPrimary := car.NewPrimaryReader(carRepo)
	carMongo := car.NewMongoReader(store)
	carSvc := car.NewService(carRepo,
		mirror.NewPicker(carPrimary, carMongo, store), mirrorWriter, hooks, uploads)
	carHandler := car.NewHandler(carSvc)

	bookingRepo := booking.NewRepository(db.DB)
	bookingPrimary := booking.NewPrimaryReader(bookingRepo, carPrimary, userPrimary)
	bookingMongo := booking.NewMongoReader(store, carMongo, userMongo)
	bookingSvc := booking.NewService(bookingRepo,
		mirror.NewPicker(bookingPrimary, bookingMongo, store),
		carSvc, uploads, hub, mirrorWriter, hooks)
	bookingHandler := booking.NewHandler(bookingSvc)

	payoutRepo := payout.NewRepository(db.DB)
	payoutSvc := payout.NewService(payoutRepo,
		mirror.NewPicker(
			payout.NewPrimaryReader(payoutRepo, bookingPrimary),
			payout.NewMongoReader(store, bookingMongo),
			store,
		),
		bookingSvc, hub, mirrorWriter, hooks)
	payoutHandler := payout.NewHandler(payoutSvc)

	messageRepo := message.NewRepository(db.DB)
	messageSvc := message.NewService(messageRepo, mailer, mirrorWriter, hooks)
	messageHandler := message.NewHandler(messageSvc)

	eventsHandler := events.NewHandler(hub, cfg.CORS.AllowedOrigins, logger)

	healthHandler := health.NewHandler(db, redis, store)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Service:      adminSvc,
		DBStats:      db.Stats,
		RedisStats:   redis.PoolStats,
		DBPing:       db.Ping,
		RedisPing:    redis.Ping,
		MirrorStatus: store.Status,
	})

	go authSvc.RunPurge(ctx, purgeInterval)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recoverer(logger))
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.OptionalAuth(authSvc))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.Per(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			KeyFunc:  middleware.KeyByUser,
			FailOpen: true,
		}).Handler,
	)

	authLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Limit:    middleware.Per(authRequestsPerMinute, authRequestsPerMinute, time.Minute),
		KeyFunc:  middleware.KeyByIPAndEndpoint,
		FailOpen: true,
	})

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())
	router.Handle(uploads.Prefix()+"/*", uploads.Handler())

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin

	router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authLimiter.Handler)
			authHandler.RegisterRoutes(r, authenticator)
		})

		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
		userHandler.RegisterRoutes(r, authenticator)
		carHandler.RegisterRoutes(r, authenticator)
		bookingHandler.RegisterRoutes(r, authenticator)
		payoutHandler.RegisterRoutes(r, authenticator)
		messageHandler.RegisterRoutes(r, authenticator, adminOnly)
		eventsHandler.RegisterRoutes(r)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	hub.Close()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := hooks.Wait(shutdownCtx); err != nil {
		logger.Error("post-commit hooks did not finish", "error", err)
	}

	if amqpSink != nil {
		if err := amqpSink.Close(); err != nil {
			logger.Error("amqp close error", "error", err)
		}
	}

	if err := mongo.Close(shutdownCtx); err != nil {
		logger.Error("mongo close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
