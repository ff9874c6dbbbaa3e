package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"metroads/internal/config"
	"metroads/internal/database"
	httpapi "metroads/internal/http"
	"metroads/internal/logger"
	"metroads/internal/objstore"
	"metroads/internal/repository"
	"metroads/internal/service"
	"metroads/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "metroads")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Storage: postgres when reachable, in-memory fallback for dev.
	var (
		db          *sql.DB
		catalogRepo repository.CatalogRepository
		adsRepo     repository.AdvertisementsRepository
		archiveRepo repository.ArchiveRepository
		usersRepo   repository.UsersRepository
	)
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for metroads")
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		}
	}
	if db != nil {
		catalogRepo = repository.NewPostgresCatalogRepository(db)
		adsRepo = repository.NewPostgresAdvertisementsRepository(db)
		archiveRepo = repository.NewPostgresArchiveRepository(db)
		usersRepo = repository.NewPostgresUsersRepository(db)
	} else {
		memCatalog := repository.NewMemoryCatalogRepository()
		memArchive := repository.NewMemoryArchiveRepository()
		catalogRepo = memCatalog
		adsRepo = repository.NewMemoryAdvertisementsRepository(memCatalog, memArchive)
		archiveRepo = memArchive
		usersRepo = repository.NewMemoryUsersRepository()
	}

	// Sessions: redis when configured, in-memory otherwise.
	var kv store.KV
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		kv = store.NewRedisKV(redisClient)
	} else {
		kv = store.NewMemoryKV()
	}

	// Attachments: external object store when configured.
	var files objstore.Store
	if cfg.ObjectStore.Enabled {
		files = objstore.NewHTTPStore(cfg.ObjectStore.BaseURL, cfg.ObjectStore.Token, log)
	} else {
		files = objstore.NewMemoryStore()
	}

	authSvc := service.NewAuthService(usersRepo, kv, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour, log)
	if cfg.Auth.SeedAdmin {
		if err := authSvc.SeedAdmin(context.Background(), cfg.Auth.AdminAccount, cfg.Auth.AdminPassword); err != nil {
			log.Warn("failed to seed admin account", zap.Error(err))
		}
	}

	catalogSvc := service.NewCatalogService(catalogRepo, adsRepo, files, log)
	adSvc := service.NewAdvertisementService(adsRepo, catalogRepo, files, log)
	archiveSvc := service.NewArchiveService(archiveRepo, log)

	router := httpapi.NewRouter(log)
	router.RegisterRoutes(
		authSvc,
		httpapi.NewAuthHandler(authSvc, log),
		httpapi.NewCatalogHandler(catalogSvc, log),
		httpapi.NewAdvertisementHandler(adSvc, log),
		httpapi.NewArchiveHandler(archiveSvc, log),
	)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
}
