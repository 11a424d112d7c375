package outbox_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"conduit/internal/models"
	"conduit/internal/outbox"
	"conduit/internal/outbox/mocks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestDrainPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewInMemory()
	require.NoError(t, store.TransferStatusChanged(ctx, "0xa", models.StatusXCalled))
	require.NoError(t, store.TransferStatusChanged(ctx, "0xa", models.StatusReconciled))

	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	var published []*outbox.Event
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, events []*outbox.Event) error {
			published = append(published, events...)
			return nil
		}).AnyTimes()

	w := outbox.NewWorker(store, pub, discardLogger(), nil, 0)
	require.NoError(t, w.Drain(ctx))

	require.Len(t, published, 2)
	assert.Equal(t, "0xa", published[0].TransferID)
	assert.Equal(t, models.StatusXCalled, published[0].Status)
	assert.Equal(t, models.StatusReconciled, published[1].Status)

	// Everything marked; a second drain publishes nothing.
	published = nil
	require.NoError(t, w.Drain(ctx))
	assert.Empty(t, published)
}

func TestDrainLeavesEventsOnPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewInMemory()
	require.NoError(t, store.TransferStatusChanged(ctx, "0xa", models.StatusXCalled))

	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	w := outbox.NewWorker(store, pub, discardLogger(), nil, 0)
	require.Error(t, w.Drain(ctx))

	// Still pending for the next tick.
	pending, err := store.ListUnpublished(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDrainStopsCallingBrokenPublisher(t *testing.T) {
	ctx := context.Background()
	store := outbox.NewInMemory()
	require.NoError(t, store.TransferStatusChanged(ctx, "0xa", models.StatusXCalled))

	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	// The circuit opens after five consecutive failures; later drains must not
	// touch the publisher at all.
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).Times(5)

	w := outbox.NewWorker(store, pub, discardLogger(), nil, 0)
	for i := 0; i < 5; i++ {
		require.Error(t, w.Drain(ctx))
	}
	require.NoError(t, w.Drain(ctx), "open circuit skips the drain")

	pending, err := store.ListUnpublished(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDrainIdlesOnEmptyOutbox(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	w := outbox.NewWorker(outbox.NewInMemory(), pub, discardLogger(), nil, 0)
	require.NoError(t, w.Drain(context.Background()))
}
