//go:build integration

package kafka_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"studentreg/internal/platform/config"
	platformkafka "studentreg/internal/platform/kafka"
	audit "studentreg/pkg/platform/audit"
	"studentreg/pkg/platform/audit/store/kafka"
	"studentreg/pkg/testutil/containers"
)

type KafkaAuditSuite struct {
	suite.Suite
	broker string
	client *kgo.Client
}

func TestKafkaAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaAuditSuite))
}

func (s *KafkaAuditSuite) SetupSuite() {
	s.broker = containers.GetManager().GetRedpanda(s.T()).Broker
	client, err := platformkafka.NewClient(context.Background(), config.KafkaConfig{
		Brokers:     []string{s.broker},
		Topic:       "audit-it",
		EnsureTopic: true,
	})
	s.Require().NoError(err)
	s.client = client
}

func (s *KafkaAuditSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *KafkaAuditSuite) TestAppendIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := kafka.New(s.client, "audit-it")
	ev := audit.Event{Subject: "form-42", Action: audit.ActionRegistrationRejected, Reason: "Email already registered"}.Normalize(time.Now().UTC())
	s.Require().NoError(store.Append(ctx, ev))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.broker),
		kgo.ConsumeTopics("audit-it"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got audit.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("form-42", got.Subject)
	s.Equal("Email already registered", got.Reason)
}
