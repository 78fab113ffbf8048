package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mirelletran/fangallery-backend/api/routes"
	"github.com/mirelletran/fangallery-backend/internal/auth"
	"github.com/mirelletran/fangallery-backend/internal/banners"
	"github.com/mirelletran/fangallery-backend/internal/content"
	"github.com/mirelletran/fangallery-backend/internal/taxonomy"
	"github.com/mirelletran/fangallery-backend/pkg/auth/session"
	"github.com/mirelletran/fangallery-backend/pkg/broadcast"
	"github.com/mirelletran/fangallery-backend/pkg/config"
	"github.com/mirelletran/fangallery-backend/pkg/db"
	"github.com/mirelletran/fangallery-backend/pkg/env"
	"github.com/mirelletran/fangallery-backend/pkg/logger"
	"github.com/mirelletran/fangallery-backend/pkg/mailer"
	"github.com/mirelletran/fangallery-backend/pkg/metrics"
	"github.com/mirelletran/fangallery-backend/pkg/migrate"
	"github.com/mirelletran/fangallery-backend/pkg/pubsub"
	"github.com/mirelletran/fangallery-backend/pkg/redis"
	"github.com/mirelletran/fangallery-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := context.Background()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing gcs client", err)
		}
	}()

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(registry)
	syncMetrics := metrics.NewSyncMetrics(registry)

	instanceID := pubsub.InstanceID()
	broadcaster := broadcast.New(logg)

	contentRepo := content.NewRepository(dbClient.DB())
	bannerRepo := banners.NewRepository(dbClient.DB())

	contentSyncer := content.NewSyncer(
		contentRepo,
		content.RecordSnapshotCodec(),
		redisClient,
		content.SyncerConfig{
			Kind:           content.ChannelContent,
			SnapshotKey:    redisClient.SnapshotKey("siteContent"),
			SnapshotTTL:    cfg.Cache.SnapshotTTL,
			RemoteAttempts: cfg.Sync.RemoteAttempts,
			RemoteBackoff:  cfg.Sync.RemoteBackoff,
			MemoryCache:    cfg.Sync.MemoryCache,
		},
		logg,
		syncMetrics,
	)
	defer contentSyncer.AttachTo(broadcaster)()

	bannerSyncer := content.NewSyncer(
		bannerRepo,
		banners.SnapshotCodec(),
		redisClient,
		content.SyncerConfig{
			Kind:           content.ChannelBanners,
			SnapshotKey:    redisClient.SnapshotKey("banners"),
			SnapshotTTL:    cfg.Cache.SnapshotTTL,
			RemoteAttempts: cfg.Sync.RemoteAttempts,
			RemoteBackoff:  cfg.Sync.RemoteBackoff,
			MemoryCache:    cfg.Sync.MemoryCache,
		},
		logg,
		syncMetrics,
	)
	defer bannerSyncer.AttachTo(broadcaster)()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.FeatureFlags.BridgeEnabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		requireResource(ctx, logg, "pubsub", err)
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(ctx, "error closing pubsub client", err)
			}
		}()

		bridge, err := pubsub.NewBridge(pubsubClient, broadcaster, instanceID, logg)
		requireResource(ctx, logg, "invalidation bridge", err)
		bridge.Attach()
		defer bridge.Detach()
		go func() {
			if err := bridge.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logg.Error(runCtx, "invalidation bridge stopped", err)
			}
		}()
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	mailClient, err := mailer.NewClient(cfg.Mail)
	requireResource(ctx, logg, "mailer", err)

	assets, err := content.NewBucketAssets(gcsClient, cfg.GCS.BucketName)
	requireResource(ctx, logg, "asset store", err)

	table := taxonomy.Default()

	contentService, err := content.NewService(
		contentRepo,
		dbClient,
		assets,
		contentSyncer,
		content.NewProjector(table),
		table,
		broadcaster,
		bannerRepo,
		logg,
		syncMetrics,
		instanceID,
	)
	requireResource(ctx, logg, "content service", err)

	bannerService, err := banners.NewService(
		bannerRepo,
		dbClient,
		bannerSyncer,
		broadcaster,
		logg,
		syncMetrics,
		instanceID,
	)
	requireResource(ctx, logg, "banner service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		AdminRepo:      auth.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Codes:          redisClient,
		Mailer:         mailClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Verification:   cfg.Verification,
		Logger:         logg,
	})
	requireResource(ctx, logg, "auth service", err)

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		DBPinger:       dbClient,
		RedisClient:    redisClient,
		StoragePinger:  gcsClient,
		SessionChecker: sessionManager,
		AuthService:    authService,
		ContentService: contentService,
		BannerService:  bannerService,
		HTTPMetrics:    httpMetrics,
		Gatherer:       registry,
	})

	addr := ":" + env.Get("PORT", cfg.App.Port)
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID,
	})
	logg.Info(runCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "api server shutdown failed", err)
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
