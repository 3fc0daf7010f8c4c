package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherDeliversToSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var seen []string
	d.Subscribe(EventClaimCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.Subject)
		return errors.New("mail relay down")
	})
	d.Subscribe(EventClaimCreated, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.Subject)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.Timestamp.IsZero())
		return nil
	})
	d.Subscribe(EventLeadConverted, func(context.Context, Event) error {
		t.Fatal("unrelated subscriber called")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventClaimCreated, Subject: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:c1", "second:c1"}, seen)
}

func TestDispatcherWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventPortalAccountCreated}))
}
