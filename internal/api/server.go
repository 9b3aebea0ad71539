package api

import (
	"context"
	"errors"
	"fmt"

	"licensecloud/internal/app/auth"
	"licensecloud/internal/app/config"
	"licensecloud/internal/app/dsn"
	"licensecloud/internal/app/handler"
	"licensecloud/internal/app/license"
	"licensecloud/internal/app/middleware"
	"licensecloud/internal/app/redis"
	"licensecloud/internal/app/repository"
	"licensecloud/internal/app/storage"
	"licensecloud/internal/pkg"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StartServer собирает зависимости и запускает HTTP-сервер.
func StartServer(ctx context.Context) error {
	logrus.Info("Starting server")

	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.SetupLogger()

	dsnStr := dsn.FromEnv()
	if dsnStr == "" {
		return errors.New("DSN string is empty, check DB_* variables")
	}
	repo, err := repository.New(dsnStr)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	defer repo.Close()

	signer, err := NewSigner(cfg.License)
	if err != nil {
		return fmt.Errorf("license signer: %w", err)
	}
	licenses := license.NewService(repo, license.NewCodec(signer))
	authService := auth.NewService(repo, cfg.JWT)

	// Redis нужен только для blacklist токенов при выходе
	var revoker handler.TokenRevoker
	var blacklist middleware.TokenBlacklist
	if cfg.Redis.Host != "" {
		redisClient, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		revoker, blacklist = redisClient, redisClient
	} else {
		logrus.Warn("REDIS_HOST is not set, logout will not revoke access tokens")
	}

	var packages handler.PackageStorage
	if cfg.MinIO.Endpoint != "" {
		minioClient, err := storage.NewMinIOClient(ctx, cfg.MinIO)
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		packages = minioClient
	} else {
		logrus.Warn("MINIO_ENDPOINT is not set, update packages are disabled")
	}

	if err := handler.RegisterValidators(); err != nil {
		return err
	}

	h := handler.NewAPIHandler(repo, licenses, authService, revoker, packages)
	authMiddleware := middleware.NewAuthMiddleware(authService, blacklist)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	app := pkg.NewApp(cfg, router, h, authMiddleware)
	return app.RunApp(ctx)
}
