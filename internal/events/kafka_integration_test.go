//go:build integration

package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
	"probata/pkg/testutil/containers"
)

func TestKafkaSinkRoundTrip(t *testing.T) {
	redpanda := containers.NewRedpandaContainer(t)
	redpanda.CreateTopic(t, DefaultTopic)

	sink, err := NewKafkaSink(redpanda.Brokers, DefaultTopic)
	require.NoError(t, err)
	defer sink.Close()

	appID := id.NewApplicationID()
	now := time.Now().UTC().Truncate(time.Millisecond)
	batch := []models.Event{
		{
			Name:          models.EventApplicationCreated,
			ApplicationID: appID,
			Version:       1,
			OccurredAt:    now,
		},
		{
			Name:          models.EventApplicationFiled,
			ApplicationID: appID,
			Version:       7,
			OccurredAt:    now,
			Payload:       map[string]any{"court_case_number": "HC/SUCC/2026/114"},
		},
	}
	require.NoError(t, sink.Write(context.Background(), batch))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(DefaultTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var envelopes []Envelope
	for len(envelopes) < len(batch) {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, fetches.Err())
		fetches.EachRecord(func(record *kgo.Record) {
			assert.Equal(t, appID.String(), string(record.Key))
			var env Envelope
			require.NoError(t, json.Unmarshal(record.Value, &env))
			envelopes = append(envelopes, env)
		})
	}

	require.Len(t, envelopes, 2)
	assert.Equal(t, string(models.EventApplicationCreated), envelopes[0].Name)
	assert.Equal(t, int64(1), envelopes[0].Version)
	assert.Equal(t, string(models.EventApplicationFiled), envelopes[1].Name)
	assert.Equal(t, "HC/SUCC/2026/114", envelopes[1].Payload["court_case_number"])
	assert.Equal(t, appID, envelopes[1].ApplicationID)
}

func TestKafkaSinkThroughAsyncPublisher(t *testing.T) {
	redpanda := containers.NewRedpandaContainer(t)
	redpanda.CreateTopic(t, DefaultTopic)

	sink, err := NewKafkaSink(redpanda.Brokers, DefaultTopic)
	require.NoError(t, err)

	pub := NewPublisher(sink, WithAsyncBuffer(8))
	require.NoError(t, pub.Publish(context.Background(), []models.Event{{
		Name:          models.EventApplicationGranted,
		ApplicationID: id.NewApplicationID(),
		Version:       9,
		OccurredAt:    time.Now().UTC(),
	}}))
	require.NoError(t, pub.Close())

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Brokers...),
		kgo.ConsumeTopics(DefaultTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var env Envelope
	require.NoError(t, json.Unmarshal(records[0].Value, &env))
	assert.Equal(t, string(models.EventApplicationGranted), env.Name)
}
