package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus()
	var seen []string
	bus.Subscribe(NameInvoicePaid, "first", func(ctx context.Context, evt Event) error {
		seen = append(seen, "first")
		return nil
	})
	bus.Subscribe(NameInvoicePaid, "second", func(ctx context.Context, evt Event) error {
		paid := evt.(InvoicePaid)
		seen = append(seen, paid.InvoiceNumber)
		return nil
	})
	bus.Subscribe(NamePaymentRecorded, "other", func(ctx context.Context, evt Event) error {
		seen = append(seen, "other")
		return nil
	})

	err := bus.Publish(context.Background(), InvoicePaid{Meta: NewMeta("finance"), InvoiceNumber: "INV/2026.10/0001"})
	require.NoError(t, err)
	require.Equal(t, []string{"first", "INV/2026.10/0001"}, seen)
}

func TestBusStopsOnFailure(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	called := false
	bus.Subscribe(NameGoodsReceived, "failing", func(ctx context.Context, evt Event) error { return boom })
	bus.Subscribe(NameGoodsReceived, "later", func(ctx context.Context, evt Event) error {
		called = true
		return nil
	})
	err := bus.Publish(context.Background(), GoodsReceived{})
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "failing")
	require.False(t, called)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *Bus
	require.NoError(t, bus.Publish(context.Background(), InvoicePaid{}))
}

func TestRecorderFiltersByName(t *testing.T) {
	rec := &Recorder{}
	_ = rec.Publish(context.Background(), InvoicePaid{})
	_ = rec.Publish(context.Background(), GoodsReceived{})
	require.Len(t, rec.Named(NameInvoicePaid), 1)
	require.Len(t, rec.Events, 2)
}
