package view_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/azydesilva/Ecorporate-sub004/internal/events"
	"github.com/azydesilva/Ecorporate-sub004/internal/view"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRefresher_Triggers(t *testing.T) {
	ctx := context.Background()
	registrationID := uuid.New().String()

	t.Run("start performs the mount refresh", func(t *testing.T) {
		var fetches int32
		bus := events.NewBus()
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, bus)

		stop := r.Start(ctx)
		defer stop()

		assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	})

	t.Run("bus hint for the watched registration triggers a refetch", func(t *testing.T) {
		var fetches int32
		bus := events.NewBus()
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, bus)

		stop := r.Start(ctx)
		defer stop()

		// Dispatch is synchronous, so the count is stable right after Publish.
		bus.Publish(events.KindRegistrationUpdated, events.Event{RegistrationID: registrationID})
		assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))

		bus.Publish(events.KindAdminActionCompleted, events.Event{RegistrationID: registrationID})
		assert.Equal(t, int32(3), atomic.LoadInt32(&fetches))
	})

	t.Run("hints for other registrations are ignored", func(t *testing.T) {
		var fetches int32
		bus := events.NewBus()
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, bus)

		stop := r.Start(ctx)
		defer stop()

		bus.Publish(events.KindRegistrationUpdated, events.Event{RegistrationID: uuid.New().String()})
		assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	})

	t.Run("focus refreshes again", func(t *testing.T) {
		var fetches int32
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, nil)

		r.Mount(ctx)
		r.Focus(ctx)

		assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
	})

	t.Run("stop unsubscribes from the bus", func(t *testing.T) {
		var fetches int32
		bus := events.NewBus()
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, bus)

		stop := r.Start(ctx)
		stop()

		bus.Publish(events.KindRegistrationUpdated, events.Event{RegistrationID: registrationID})
		assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))
	})

	t.Run("no interval polling without an explicit opt-in", func(t *testing.T) {
		var fetches int32
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, events.NewBus())

		stop := r.Start(ctx)
		defer stop()

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "only the mount fetch should have run")
	})

	t.Run("fallback poll fires when enabled", func(t *testing.T) {
		var fetches int32
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return nil
		}, events.NewBus())
		r.FallbackPollInterval = 10 * time.Millisecond

		stop := r.Start(ctx)
		defer stop()

		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&fetches) >= 2
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("fetch errors do not stop later triggers", func(t *testing.T) {
		var fetches int32
		r := view.NewRefresher(registrationID, func(context.Context) error {
			atomic.AddInt32(&fetches, 1)
			return context.DeadlineExceeded
		}, nil)

		r.Mount(ctx)
		r.Focus(ctx)

		assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
	})
}
