package consumer

import (
	"context"
	"encoding/json"

	"github.com/azydesilva/Ecorporate-sub004/internal/bootstrap"
	"github.com/azydesilva/Ecorporate-sub004/internal/events"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ConsumeRegistrationLifecycle replays the registration lifecycle topic into
// the audit trail. Events are hints only; the audit entry records what
// happened, not the registration state.
func ConsumeRegistrationLifecycle(
	ctx context.Context,
	reader *kafkago.Reader,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.registration_lifecycle")
	log.Info("registration lifecycle consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("registration lifecycle consumer stopped")
				return
			}
			log.Error("fetch registration lifecycle message failed", zap.Error(err))
			continue
		}

		var event events.RegistrationLifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Error("decode registration lifecycle event failed", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		auditLogger.Log(ctx, bootstrap.AuditLog{
			Action:  event.EventType,
			Message: "registration lifecycle event",
			Meta: map[string]any{
				"request_id":      event.RequestID,
				"registration_id": event.RegistrationID,
				"stage":           event.Stage,
				"status":          event.Status,
				"actor_id":        event.ActorID,
				"occurred_at":     event.OccurredAt,
			},
		})

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit registration lifecycle message failed", zap.Error(err))
			continue
		}

		log.Info("registration lifecycle event audited",
			zap.String("event_type", event.EventType),
			zap.String("registration_id", event.RegistrationID),
		)
	}
}
