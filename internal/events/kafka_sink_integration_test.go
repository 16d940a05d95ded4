//go:build integration

package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"

	"github.com/Jlndre/Capstone-eLife/internal/events"
	"github.com/Jlndre/Capstone-eLife/pkg/testutil/containers"
)

func TestKafkaSinkProducesEvents(t *testing.T) {
	broker := containers.NewRedpandaBroker(t)
	ctx := context.Background()

	sink, err := events.NewKafkaSink(ctx, []string{broker}, "elife.test", zap.NewNop())
	require.NoError(t, err)
	defer sink.Close()

	d := events.NewInMemoryDispatcher(zap.NewNop())
	sink.Register(d)
	require.NoError(t, d.Publish(ctx, events.New(events.EventCertificateIssued, "user-9", events.CertificateIssuedPayload{Quarter: "Q2-2025"})))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("elife.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(pollCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.NotEmpty(t, records)
	assert.Equal(t, "user-9", string(records[0].Key))

	var got events.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, events.EventCertificateIssued, got.Type)
}
