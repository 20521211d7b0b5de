package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"slotbook/internal/platform/logger"
)

type BusSuite struct {
	suite.Suite
	bus *Bus
}

func (s *BusSuite) SetupTest() {
	s.bus = New(logger.Discard())
}

func (s *BusSuite) TestPublishDeliversToAllGroups() {
	type payload struct {
		Value string `json:"value"`
	}

	var groupA, groupB []payload
	s.Require().NoError(s.bus.Subscribe("thing.happened", "group-a", func(_ context.Context, raw []byte) error {
		var p payload
		s.Require().NoError(json.Unmarshal(raw, &p))
		groupA = append(groupA, p)
		return nil
	}))
	s.Require().NoError(s.bus.Subscribe("thing.happened", "group-b", func(_ context.Context, raw []byte) error {
		var p payload
		s.Require().NoError(json.Unmarshal(raw, &p))
		groupB = append(groupB, p)
		return nil
	}))

	s.Require().NoError(s.bus.Publish(context.Background(), "thing.happened", payload{Value: "first"}))

	s.Require().Len(groupA, 1)
	s.Require().Len(groupB, 1)
	s.Equal("first", groupA[0].Value)
	s.Equal("first", groupB[0].Value)
}

func (s *BusSuite) TestPublishWithoutSubscribersIsSilent() {
	s.NoError(s.bus.Publish(context.Background(), "nobody.listens", map[string]int{"n": 1}))
}

func (s *BusSuite) TestFailingHandlerIsRedelivered() {
	attempts := 0
	s.Require().NoError(s.bus.Subscribe("thing.happened", "flaky", func(_ context.Context, _ []byte) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient store failure")
		}
		return nil
	}))

	s.Require().NoError(s.bus.Publish(context.Background(), "thing.happened", struct{}{}))
	s.Equal(2, attempts)
}

func (s *BusSuite) TestMessageDroppedAfterMaxAttempts() {
	bus := New(logger.Discard(), WithMaxAttempts(4))

	attempts := 0
	s.Require().NoError(bus.Subscribe("thing.happened", "broken", func(_ context.Context, _ []byte) error {
		attempts++
		return errors.New("permanently down")
	}))

	// Publish succeeds even though delivery is eventually given up on; the
	// at-least-once contract never surfaces handler failures to the producer.
	s.Require().NoError(bus.Publish(context.Background(), "thing.happened", struct{}{}))
	s.Equal(4, attempts)
}

func (s *BusSuite) TestDuplicateGroupSubscriptionRejected() {
	handler := func(_ context.Context, _ []byte) error { return nil }

	s.Require().NoError(s.bus.Subscribe("thing.happened", "group-a", handler))
	s.Error(s.bus.Subscribe("thing.happened", "group-a", handler))
	s.NoError(s.bus.Subscribe("other.thing", "group-a", handler))
}

func (s *BusSuite) TestUnmarshalablePayloadFailsPublish() {
	s.Error(s.bus.Publish(context.Background(), "thing.happened", make(chan int)))
}

func TestBusSuite(t *testing.T) {
	suite.Run(t, new(BusSuite))
}
