// Package view keeps a consumer-facing projection of a single registration
// fresh without interval polling. Refreshes fire on mount, on regained focus,
// and on bus hints for the watched registration; each refresh re-reads the
// authoritative store.
package view

import (
	"context"
	"time"

	"github.com/azydesilva/Ecorporate-sub004/internal/events"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchFunc re-reads the watched registration from the authoritative store.
// Events never carry state, so this is the only way a refresh learns anything.
type FetchFunc func(ctx context.Context) error

type Refresher struct {
	registrationID string
	fetch          FetchFunc
	bus            *events.Bus
	logger         *zap.Logger

	// FallbackPollInterval enables a low-frequency safety poll when set.
	// Zero means no polling at all; hints and focus changes carry the load.
	FallbackPollInterval time.Duration

	sf singleflight.Group
}

func NewRefresher(registrationID string, fetch FetchFunc, bus *events.Bus, logger ...*zap.Logger) *Refresher {
	l := zap.L().Named("view.refresher")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("view.refresher")
	}
	return &Refresher{
		registrationID: registrationID,
		fetch:          fetch,
		bus:            bus,
		logger:         l,
	}
}

// Start performs the initial mount refresh and wires the bus subscriptions.
// The returned stop function unsubscribes; it is safe to call more than once.
func (r *Refresher) Start(ctx context.Context) func() {
	r.Mount(ctx)

	if r.bus == nil {
		return func() {}
	}

	handler := func(e events.Event) {
		if e.RegistrationID != r.registrationID {
			return
		}
		r.refresh(ctx, "bus-hint")
	}

	unsubUpdated := r.bus.Subscribe(events.KindRegistrationUpdated, handler)
	unsubAdmin := r.bus.Subscribe(events.KindAdminActionCompleted, handler)
	unsubRenewal := r.bus.Subscribe(events.KindRenewalSubmitted, handler)

	stopPoll := func() {}
	if r.FallbackPollInterval > 0 {
		pollCtx, cancel := context.WithCancel(ctx)
		stopPoll = cancel
		go r.pollLoop(pollCtx)
	}

	return func() {
		unsubUpdated()
		unsubAdmin()
		unsubRenewal()
		stopPoll()
	}
}

// Mount refreshes when the view first becomes visible.
func (r *Refresher) Mount(ctx context.Context) {
	r.refresh(ctx, "mount")
}

// Focus refreshes when the view regains focus after being backgrounded.
func (r *Refresher) Focus(ctx context.Context) {
	r.refresh(ctx, "focus")
}

func (r *Refresher) refresh(ctx context.Context, trigger string) {
	if r.fetch == nil {
		return
	}

	// Concurrent triggers for the same registration collapse into one fetch.
	_, err, shared := r.sf.Do(r.registrationID, func() (interface{}, error) {
		return nil, r.fetch(ctx)
	})
	if err != nil {
		r.logger.Warn("view refresh failed",
			zap.String("registration_id", r.registrationID),
			zap.String("trigger", trigger),
			zap.Error(err),
		)
		return
	}

	r.logger.Debug("view refreshed",
		zap.String("registration_id", r.registrationID),
		zap.String("trigger", trigger),
		zap.Bool("coalesced", shared),
	)
}

func (r *Refresher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(r.FallbackPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx, "fallback-poll")
		}
	}
}
