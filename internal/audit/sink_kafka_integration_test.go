//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"nucleo/internal/audit"
	"nucleo/internal/entity"
	"nucleo/pkg/testutil/containers"
)

const kafkaTestTopic = "nucleo.audit.test"

type KafkaSinkSuite struct {
	suite.Suite

	ctx      context.Context
	redpanda *containers.RedpandaContainer
	sink     *audit.KafkaSink
}

func TestKafkaSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSinkSuite))
}

func (s *KafkaSinkSuite) SetupSuite() {
	s.ctx = context.Background()
	s.redpanda = containers.NewRedpandaContainer(s.T())

	admin, err := kgo.NewClient(kgo.SeedBrokers(s.redpanda.Broker))
	s.Require().NoError(err)
	defer admin.Close()

	_, err = kadm.NewClient(admin).CreateTopic(s.ctx, 1, 1, nil, kafkaTestTopic)
	s.Require().NoError(err)

	s.sink, err = audit.NewKafkaSink([]string{s.redpanda.Broker}, kafkaTestTopic)
	s.Require().NoError(err)
}

func (s *KafkaSinkSuite) TearDownSuite() {
	if s.sink != nil {
		s.sink.Close()
	}
}

func (s *KafkaSinkSuite) TestCreatePublishesKeyedRecord() {
	err := s.sink.Create(s.ctx, audit.Record{
		UserID:     "user-1",
		Action:     audit.ActionDelete,
		EntityType: entity.TypeSupplier,
		EntityID:   "sup-1",
		OldValues:  map[string]any{"name": "Vandelay"},
		CreatedAt:  time.Now().UTC(),
	})
	s.Require().NoError(err)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Broker),
		kgo.ConsumeTopics(kafkaTestTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	s.Require().NoError(fetches.Err())

	records := fetches.Records()
	s.Require().NotEmpty(records)
	s.Equal("supplier:sup-1", string(records[0].Key))

	var rec audit.Record
	s.Require().NoError(json.Unmarshal(records[0].Value, &rec))
	s.Equal(audit.ActionDelete, rec.Action)
	s.Equal("Vandelay", rec.OldValues["name"])
}
