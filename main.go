package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/adi27online/meruglobalconnect/config"
	"github.com/adi27online/meruglobalconnect/database"
	"github.com/adi27online/meruglobalconnect/handlers"
	"github.com/adi27online/meruglobalconnect/logger"
	"github.com/adi27online/meruglobalconnect/mailer"
	"github.com/adi27online/meruglobalconnect/metrics"
	"github.com/adi27online/meruglobalconnect/middleware"
	"github.com/adi27online/meruglobalconnect/payment"
	"github.com/adi27online/meruglobalconnect/services"
	"github.com/adi27online/meruglobalconnect/storage"
	"github.com/adi27online/meruglobalconnect/utils"
	"github.com/adi27online/meruglobalconnect/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.Env)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := database.Open(openCtx, database.Options{
		Driver:        cfg.StoreDriver,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		MysqlDSN:      cfg.MysqlDSN,
	})
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}

	var mail mailer.Mailer = mailer.LogMailer{}
	if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
		mail = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.EmailFrom)
	}

	var processor payment.Processor = payment.Disabled{}
	if cfg.StripeSecretKey != "" {
		processor = payment.NewStripe(cfg.StripeSecretKey)
	} else {
		logger.Warn().Msg("stripe key not set, payments are disabled")
	}

	var files storage.FileStore
	var local *storage.Local
	switch cfg.UploadBackend {
	case "s3":
		files, err = storage.NewS3(ctx, cfg.S3Bucket, cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	default:
		local, err = storage.NewLocal(cfg.UploadDir)
		files = local
	}
	if err != nil {
		logger.Fatal().Err(err).Str("backend", cfg.UploadBackend).Msg("failed to set up uploads")
	}

	hub := websocket.NewHub()
	go hub.Run(ctx)
	if cfg.RedisURL != "" {
		client, err := websocket.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		relay := websocket.NewRelay(client)
		hub.AttachRelay(relay)
		go relay.Run(ctx, hub)
	}
	if err := metrics.RegisterConnections(hub.Connections); err != nil {
		logger.Warn().Err(err).Msg("websocket gauge not registered")
	}

	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	deps := services.Deps{
		Store:           store,
		Notifier:        hub,
		DBTimeout:       cfg.DBTimeout,
		ProviderTimeout: cfg.ProviderTimeout,
	}
	messaging := services.NewMessagingService(deps)

	h := &handlers.Handler{
		Accounts:      services.NewAccountService(deps, tokens, mail, cfg.BaseURL),
		Relationships: services.NewRelationshipService(deps),
		Messaging:     messaging,
		Bulletins:     services.NewBulletinService(deps),
		Payments:      services.NewPaymentService(deps, processor, cfg.RegistrationFeeCents, cfg.Currency),
		Media:         services.NewMediaService(deps, files),
		Store:         store,
		Tokens:        tokens,
		Files:         local,
		WebSocket:     websocket.NewHandler(hub, tokens, messaging, cfg.CORSAllowedOrigins),
	}

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)
	go limiter.Cleanup(ctx.Done())

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h.Router(limiter, cfg.CORSAllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to close store")
	}
	logger.Info().Msg("server exited")
}
