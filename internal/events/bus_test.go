package events

import (
	"context"
	"errors"
	"testing"

	"jobsync/internal/logger"

	"github.com/stretchr/testify/assert"
)

func TestBusPublish(t *testing.T) {
	bus := NewBus(logger.NewNopLogger())
	ctx := context.Background()

	var got []StoreChange
	bus.Subscribe("recorder", func(ctx context.Context, c StoreChange) error {
		got = append(got, c)
		return nil
	})
	bus.Subscribe("failing", func(ctx context.Context, c StoreChange) error {
		return errors.New("redis down")
	})
	bus.Subscribe("panicking", func(ctx context.Context, c StoreChange) error {
		panic("boom")
	})

	t.Run("empty change is dropped", func(t *testing.T) {
		bus.Publish(ctx, StoreChange{Source: "reliefweb", Reason: ReasonUpsert})
		assert.Empty(t, got)
	})

	t.Run("delivered despite failing handlers", func(t *testing.T) {
		bus.Publish(ctx, StoreChange{Source: "reliefweb", Reason: ReasonUpsert, Created: 2})
		assert.Len(t, got, 1)
		assert.Equal(t, 2, got[0].Created)
		assert.False(t, got[0].At.IsZero())
	})

	t.Run("unsubscribe", func(t *testing.T) {
		bus.Unsubscribe("recorder")
		bus.Publish(ctx, StoreChange{Reason: ReasonCleanup, Deleted: 1})
		assert.Len(t, got, 1)
	})
}
