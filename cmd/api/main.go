package main

import (
	"context"
	"database/sql"
	"net/http"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"sneaker_hub/internal/adapters/artifact"
	"sneaker_hub/internal/adapters/auth"
	"sneaker_hub/internal/adapters/geocoding"
	server "sneaker_hub/internal/adapters/http_server"
	natsad "sneaker_hub/internal/adapters/nats"
	"sneaker_hub/internal/adapters/observability"
	redisad "sneaker_hub/internal/adapters/redis"
	"sneaker_hub/internal/app"
	"sneaker_hub/internal/domain"
	"sneaker_hub/internal/shared"
	mysqlrepo "sneaker_hub/internal/storage/mysql"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	raw, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := raw.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	db := mysqlrepo.Open(raw, "mysql")
	defer db.Close()
	if err := mysqlrepo.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}
	log.Info().Msg("database connection ok")

	// optional cache
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, "sneakers:")
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, caching disabled")
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	// optional events
	var events domain.EventPublisher
	if cfg.NATSURL != "" {
		pub, err := natsad.Connect(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, events disabled")
		} else {
			defer pub.Close()
			events = pub
		}
	}

	geo, err := geocoding.New(cfg.GeocodingBase, cfg.GeocodingKey, cfg.GeocodingRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize geocoding client")
	}
	tokens, err := auth.NewTokens(cfg.JWTSecret, time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}

	srv := server.New(cfg.HTTPTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))

	var images domain.ArtifactStore
	switch cfg.ImageBackend {
	case "minio":
		ms, err := artifact.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize minio store")
		}
		images = ms
	default:
		ls, err := artifact.NewLocalStore(cfg.UploadDir)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize upload dir")
		}
		images = ls
		prefix := "/" + strings.TrimPrefix(filepath.ToSlash(ls.Dir()), "/") + "/"
		srv.Mount(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(ls.Dir()))))
	}

	// deps
	listings := mysqlrepo.NewListingStore(db)
	owners := mysqlrepo.NewOwnerStore(db)
	lifecycle := app.NewImageLifecycle(images, cfg.CleanupTimeout)
	cmd := app.NewCommandService(listings, owners, mysqlrepo.NewUnitOfWork(db), geo, lifecycle, cache, events)
	q := app.NewQueryService(listings, owners, cache, cfg.CacheTTL)

	srv.MountHandlers(server.NewHandlers(q, cmd, images, cfg.MaxUploadBytes), server.Authenticate(tokens))

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Str("images", cfg.ImageBackend).Msg("API listening")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("API stopped")
}
