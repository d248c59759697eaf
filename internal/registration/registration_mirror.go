package registration

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	mirrorKeyPrefix = "registrations:mirror:"

	// Mirror entries are bounded so a long outage cannot serve arbitrarily
	// old records as merely "stale".
	mirrorTTL = 24 * time.Hour
)

func mirrorKey(id string) string {
	return mirrorKeyPrefix + id
}

// Mirror is the explicitly-stale fallback copy of registrations, refreshed on
// every successful primary read and only ever served when the record store is
// unreachable. Callers must surface the stale flag, never pass a mirror read
// off as fresh.
type Mirror struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewMirror(rdb *redis.Client, logger ...*zap.Logger) *Mirror {
	l := zap.L().Named("registration.mirror")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("registration.mirror")
	}
	return &Mirror{rdb: rdb, logger: l}
}

// Refresh stores a fresh copy, best effort.
func (m *Mirror) Refresh(ctx context.Context, r *Registration) {
	if m == nil || m.rdb == nil {
		return
	}

	data, err := json.Marshal(r)
	if err != nil {
		m.logger.Error("marshal mirror entry failed", zap.Error(err))
		return
	}
	if err := m.rdb.Set(ctx, mirrorKey(r.ID.String()), data, mirrorTTL).Err(); err != nil {
		m.logger.Warn("refresh mirror entry failed",
			zap.String("registration_id", r.ID.String()),
			zap.Error(err),
		)
	}
}

// Get returns the cached copy, or nil when there is none.
func (m *Mirror) Get(ctx context.Context, id string) *Registration {
	if m == nil || m.rdb == nil {
		return nil
	}

	data, err := m.rdb.Get(ctx, mirrorKey(id)).Bytes()
	if err != nil {
		return nil
	}

	var r Registration
	if err := json.Unmarshal(data, &r); err != nil {
		m.logger.Error("decode mirror entry failed",
			zap.String("registration_id", id),
			zap.Error(err),
		)
		return nil
	}
	return &r
}

// Invalidate drops the cached copy after a mutation, best effort.
func (m *Mirror) Invalidate(ctx context.Context, id string) {
	if m == nil || m.rdb == nil {
		return
	}
	if err := m.rdb.Del(ctx, mirrorKey(id)).Err(); err != nil {
		m.logger.Warn("invalidate mirror entry failed",
			zap.String("registration_id", id),
			zap.Error(err),
		)
	}
}
