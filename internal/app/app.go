package app

import (
	"os"

	"github.com/azydesilva/Ecorporate-sub004/internal/middleware"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BuildApp(router *gin.Engine) error {
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}
	zap.L().Info("database connection established")

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		// The redis mirror is a fallback, not a requirement. Degrade to
		// store-only reads when it is unreachable.
		zap.L().Warn("redis unavailable, stale fallback mirror disabled", zap.Error(err))
		redisClient = nil
	} else {
		zap.L().Info("redis connection established")
	}

	router.Use(middleware.RequestID())
	router.Use(middleware.ContextLogger(zap.L()))

	return registerModules(router, gormDB, redisClient)
}
