package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcherContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var seen []string

	d.Subscribe(EventCertificateIssued, func(context.Context, Event) error {
		seen = append(seen, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventCertificateIssued, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventLiveMatchFlagged, func(context.Context, Event) error {
		seen = append(seen, "unrelated")
		return nil
	})

	err := d.Publish(context.Background(), New(EventCertificateIssued, "u1", CertificateIssuedPayload{Quarter: "Q1-2025"}))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second:u1"}, seen)
}

func TestSubscribeAll(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	count := map[EventType]int{}
	SubscribeAll(d, func(_ context.Context, e Event) error {
		count[e.Type]++
		return nil
	})
	for _, et := range AllEventTypes {
		require.NoError(t, d.Publish(context.Background(), New(et, "u", nil)))
	}
	assert.Len(t, count, len(AllEventTypes))
}

func TestNilKafkaSinkIsInert(t *testing.T) {
	sink, err := NewKafkaSink(context.Background(), nil, "topic", zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, sink)
	assert.NoError(t, sink.Handle(context.Background(), New(EventDocumentVerified, "u", nil)))
	sink.Register(NewInMemoryDispatcher(nil))
	sink.Close()
}
