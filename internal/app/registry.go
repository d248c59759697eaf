package app

import (
	"os"

	"github.com/azydesilva/Ecorporate-sub004/internal/blob"
	"github.com/azydesilva/Ecorporate-sub004/internal/events"
	"github.com/azydesilva/Ecorporate-sub004/internal/messaging/kafka"
	"github.com/azydesilva/Ecorporate-sub004/internal/registration"
	"github.com/azydesilva/Ecorporate-sub004/internal/renewal"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	// --- Repositories ---
	registrationRepo := registration.NewRepository(gormDB)
	renewalRepo := renewal.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Shared infrastructure ---
	bus := events.NewBus()
	mirror := registration.NewMirror(rdb)

	blobStore := blob.Store(blob.NewNoopStore())
	if dir := os.Getenv("BLOB_DIR"); dir != "" {
		store, err := blob.NewDiskStore(dir)
		if err != nil {
			return err
		}
		blobStore = store
	}

	// --- Services ---
	registrationService := registration.NewServiceWithDeps(db, registrationRepo, mirror, outboxRepo, bus)
	renewalService := renewal.NewServiceWithDeps(db, renewalRepo, registrationRepo, mirror, outboxRepo, bus, blobStore)

	// --- Handlers ---
	registrationHandler := registration.NewHandler(registrationService)
	renewalHandler := renewal.NewHandlerWithRedis(renewalService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		registration.RegisterRoutes(api, registrationHandler)
		renewal.RegisterRoutes(api, renewalHandler, rdb)
	}

	zap.L().Info("modules registered")
	return nil
}
