package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gigmarket/internal/cache"
	"gigmarket/internal/config"
	"gigmarket/internal/database"
	"gigmarket/internal/domain"
	"gigmarket/internal/domain/listing"
	"gigmarket/internal/events"
	jwtsvc "gigmarket/internal/pkg/jwt"
	"gigmarket/internal/platform/logger"
	"gigmarket/internal/server"
	"gigmarket/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.ConnectWithPool(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	if err := db.AutoMigrate(&domain.User{}, &listing.Listing{}); err != nil {
		zl.Fatal("auto migrate failed", zap.Error(err))
	}

	store, err := storage.NewS3Storage(ctx, storage.Config{
		Endpoint:     cfg.S3.Endpoint,
		Region:       cfg.S3.Region,
		AccessKey:    cfg.S3.AccessKey,
		SecretKey:    cfg.S3.SecretKey,
		Bucket:       cfg.S3.Bucket,
		PublicDomain: cfg.S3.PublicDomain,
		UseSSL:       cfg.S3.UseSSL,
		EnsureBucket: cfg.S3.EnsureBucket,
	}, zl)
	if err != nil {
		zl.Fatal("object storage init failed", zap.Error(err))
	}

	opts := listing.Options{
		FailurePolicy:     cfg.UploadPolicy,
		UploadConcurrency: cfg.UploadConcurrency,
		UploadTimeout:     cfg.UploadTimeout,
		CacheDir:          cfg.UploadCacheDir,
	}

	if cfg.RedisAddr != "" {
		lc, err := cache.NewListingCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			zl.Fatal("redis init failed", zap.Error(err))
		}
		defer lc.Close()
		opts.Cache = lc
		zl.Info("listing cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewPublisher(cfg.NATSURL)
		if err != nil {
			zl.Fatal("nats init failed", zap.Error(err))
		}
		defer pub.Close()
		opts.Events = pub
		zl.Info("listing events enabled", zap.String("url", cfg.NATSURL))
	}

	listingService := listing.NewService(listing.NewRepository(db), store, zl, opts)

	router := server.NewRouter(server.Deps{
		Logger:          zl,
		JWT:             jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL),
		Listings:        listingService,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		MaxUploadMemory: cfg.MaxUploadMemory,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zl.Info("listing service started", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
