package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/docudir-api/internal/auth"
	"github.com/docudir-api/internal/config"
	"github.com/docudir-api/internal/database"
	"github.com/docudir-api/internal/files"
	"github.com/docudir-api/internal/folders"
	"github.com/docudir-api/internal/repository"
	"github.com/docudir-api/internal/sites"
	"github.com/docudir-api/internal/storage"
)

// app holds the wired services shared by every command. The caller must
// defer Close.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *database.DB
	redis  *redis.Client

	auth    *auth.Service
	sites   *sites.Service
	folders *folders.Service
	files   *files.Service
}

func newApp(ctx context.Context, configFile string) (*app, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{cfg: cfg, logger: newLogger(cfg.Logging)}

	if err := a.openDatabase(); err != nil {
		a.Close()
		return nil, err
	}

	var cache auth.RevocationCache
	if cfg.Cache.Type == "redis" {
		if err := a.openRedis(ctx); err != nil {
			a.Close()
			return nil, err
		}
		cache = auth.NewRedisRevocationCache(a.redis)
	}

	blobs, err := storage.New(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	a.logger.WithField("type", cfg.Storage.Type).Info("Storage initialized")

	userRepo := repository.NewUserRepository(a.db)
	siteRepo := repository.NewSiteRepository(a.db)
	fileRepo := repository.NewFileRepository(a.db)

	a.auth = auth.NewService(userRepo, repository.NewTokenRepository(a.db), cache, auth.OptionsFromConfig(cfg.Auth), a.logger)
	a.sites = sites.NewService(siteRepo)
	a.folders = folders.NewService(repository.NewFolderRepository(a.db), fileRepo, cfg.Folders.MaxDepth)
	a.files = files.NewService(fileRepo, blobs, a.folders, siteRepo, a.logger)

	return a, nil
}

func (a *app) openDatabase() error {
	if a.cfg.Database.Type == "sqlite" {
		if path := a.cfg.Database.SQLite.Path; path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	db, err := database.Open(a.cfg)
	if err != nil {
		return err
	}
	a.db = db

	if err := database.MigrateUp(db); err != nil {
		return err
	}
	a.logger.WithField("type", a.cfg.Database.Type).Info("Database ready")
	return nil
}

func (a *app) openRedis(ctx context.Context) error {
	rc := a.cfg.Cache.Redis
	a.redis = redis.NewClient(&redis.Options{
		Addr:         rc.Address,
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  rc.Timeout,
		ReadTimeout:  rc.Timeout,
		WriteTimeout: rc.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, rc.Timeout)
	defer cancel()
	if err := a.redis.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	a.logger.WithField("address", rc.Address).Info("Connected to Redis")
	return nil
}

// Close releases the database and cache connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}
