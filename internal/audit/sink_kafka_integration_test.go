//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"agentgate/internal/audit"
	"agentgate/pkg/testutil/containers"
)

type KafkaSinkSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSinkSuite) newSink(topic string) *audit.KafkaSink {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink, err := audit.NewKafkaSink(context.Background(), []string{s.redpanda.Broker}, topic, logger)
	s.Require().NoError(err)
	s.T().Cleanup(sink.Close)
	return sink
}

func (s *KafkaSinkSuite) consume(topic string, want int) []*kgo.Record {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer client.Close()

	deadline := time.Now().Add(15 * time.Second)
	var records []*kgo.Record
	for len(records) < want && time.Now().Before(deadline) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		fetches := client.PollFetches(ctx)
		cancel()
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	s.Require().Len(records, want, "expected %d audit records on %s", want, topic)
	return records
}

func (s *KafkaSinkSuite) TestAppendRoundTrip() {
	sink := s.newSink("audit.roundtrip")

	event := audit.Event{
		Timestamp:      time.Now().UTC().Truncate(time.Millisecond),
		Action:         audit.ActionSessionCreated,
		UserID:         "user-1",
		OrganizationID: "org-1",
		IPAddress:      "203.0.113.9",
		Metadata:       map[string]string{"user_agent": "integration-test"},
	}
	s.Require().NoError(sink.Append(context.Background(), event))

	records := s.consume("audit.roundtrip", 1)
	s.Equal("user-1", string(records[0].Key), "events are keyed by user for per-user ordering")

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(event.Action, got.Action)
	s.Equal(event.OrganizationID, got.OrganizationID)
	s.Equal(event.Metadata, got.Metadata)
}

func (s *KafkaSinkSuite) TestPerUserOrdering() {
	sink := s.newSink("audit.ordering")
	ctx := context.Background()

	actions := []audit.Action{
		audit.ActionSessionCreated,
		audit.ActionSessionRefreshed,
		audit.ActionSessionDestroyed,
	}
	for _, action := range actions {
		s.Require().NoError(sink.Append(ctx, audit.Event{
			Timestamp: time.Now().UTC(),
			Action:    action,
			UserID:    "user-1",
		}))
	}

	records := s.consume("audit.ordering", len(actions))
	for i, record := range records {
		var got audit.Event
		s.Require().NoError(json.Unmarshal(record.Value, &got))
		s.Equal(actions[i], got.Action)
	}
}

func (s *KafkaSinkSuite) TestPublisherDrainsThroughKafka() {
	sink := s.newSink("audit.publisher")
	pub := audit.NewPublisher(sink, audit.WithAsyncBuffer(16))

	s.Require().NoError(pub.Emit(context.Background(), audit.Event{
		Timestamp: time.Now().UTC(),
		Action:    audit.ActionDeviceAuthorized,
		UserID:    "user-2",
	}))
	pub.Close()

	records := s.consume("audit.publisher", 1)
	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(audit.ActionDeviceAuthorized, got.Action)
}

func (s *KafkaSinkSuite) TestExistingTopicIsNotAnError() {
	s.newSink("audit.reuse")
	// A second sink on the same topic hits TOPIC_ALREADY_EXISTS internally.
	s.newSink("audit.reuse")
}
