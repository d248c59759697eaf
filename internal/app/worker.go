package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azydesilva/Ecorporate-sub004/internal/messaging/kafka"
	"github.com/azydesilva/Ecorporate-sub004/internal/messaging/kafka/producer"
	"github.com/azydesilva/Ecorporate-sub004/internal/registration"
	"github.com/azydesilva/Ecorporate-sub004/internal/renewal"
	"github.com/azydesilva/Ecorporate-sub004/internal/shared/connection"

	"go.uber.org/zap"
)

// RunWorker drains the transactional outbox to Kafka and periodically flips
// the stored expiry flag on lapsed registrations. The sweep is an
// optimization for reporting queries; every read path recomputes expiry from
// the expire date on its own.
func RunWorker() error {
	logger := zap.L().Named("app.worker")

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

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	kafkaBroker := os.Getenv("KAFKA_BROKER")
	if kafkaBroker == "" {
		return fmt.Errorf("KAFKA_BROKER is required")
	}

	kafkaWriter, err := connection.ConnectKafkaWithRetry(kafkaBroker, 5)
	if err != nil {
		return err
	}
	defer kafkaWriter.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)

	registrationRepo := registration.NewRepository(gormDB)
	renewalRepo := renewal.NewRepository(gormDB)
	renewalService := renewal.NewService(sqlDB, renewalRepo, registrationRepo, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(
		ctx,
		outboxRepo,
		kafkaWriter,
		logger,
		3*time.Second,
	)

	go runExpirySweep(ctx, renewalService, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()

	return nil
}

func runExpirySweep(ctx context.Context, svc renewal.Service, logger *zap.Logger) {
	interval := time.Hour
	if v := os.Getenv("SWEEP_INTERVAL"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil || parsed <= 0 {
			logger.Warn("invalid SWEEP_INTERVAL, using default", zap.String("value", v))
		} else {
			interval = parsed
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Run once on startup so a long interval does not delay the first pass.
	if _, err := svc.SweepExpired(ctx); err != nil {
		logger.Error("initial expiry sweep failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.SweepExpired(ctx); err != nil {
				logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}
