package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"slotbook/internal/eventbus"
	"slotbook/internal/platform/logger"
	"slotbook/internal/platform/metrics"
	profilemodels "slotbook/internal/profile/models"
	"slotbook/internal/profile/service"
	"slotbook/internal/profile/store"
)

type recordingBus struct {
	published []eventbus.SpecialistCreated
	failWith  error
}

func (b *recordingBus) Publish(_ context.Context, event string, payload any) error {
	if b.failWith != nil {
		return b.failWith
	}
	if event == eventbus.EventSpecialistCreated {
		b.published = append(b.published, payload.(eventbus.SpecialistCreated))
	}
	return nil
}

func (b *recordingBus) Subscribe(string, string, eventbus.Handler) error { return nil }

// failingStore simulates a store outage on every call.
type failingStore struct {
	service.Store
}

func (failingStore) FindByUserID(context.Context, int64) (*profilemodels.SpecialistProfile, error) {
	return nil, errors.New("store unavailable")
}

type ProvisionerSuite struct {
	suite.Suite
	store       *store.InMemoryProfileStore
	bus         *recordingBus
	provisioner *Provisioner
}

func (s *ProvisionerSuite) SetupTest() {
	s.store = store.NewMemory()
	s.bus = &recordingBus{}
	s.provisioner = NewProvisioner(s.store, s.bus, logger.Discard(), metrics.NewWith(prometheus.NewRegistry()))
}

func (s *ProvisionerSuite) deliver(event eventbus.UserRegistered) error {
	raw, err := json.Marshal(event)
	s.Require().NoError(err)
	return s.provisioner.Handle(context.Background(), raw)
}

func (s *ProvisionerSuite) TestSpecialistGetsProfileAndEvent() {
	err := s.deliver(eventbus.UserRegistered{UserID: 7, Email: "spec@example.com", Role: "Specialist"})
	s.Require().NoError(err)

	profile, findErr := s.store.FindByUserID(context.Background(), 7)
	s.Require().NoError(findErr)
	s.Equal([]string{}, profile.Skills)
	s.Nil(profile.Profession)

	s.Require().Len(s.bus.published, 1)
	s.Equal(profile.ID, s.bus.published[0].SpecialistID)
	s.Equal(int64(7), s.bus.published[0].UserID)
}

func (s *ProvisionerSuite) TestClientRoleIsIgnored() {
	err := s.deliver(eventbus.UserRegistered{UserID: 7, Email: "c@example.com", Role: "Client"})
	s.Require().NoError(err)

	_, findErr := s.store.FindByUserID(context.Background(), 7)
	s.Error(findErr)
	s.Empty(s.bus.published)
}

func (s *ProvisionerSuite) TestRedeliveryCreatesNoDuplicate() {
	event := eventbus.UserRegistered{UserID: 7, Email: "spec@example.com", Role: "Specialist"}

	s.Require().NoError(s.deliver(event))
	s.Require().NoError(s.deliver(event))
	s.Require().NoError(s.deliver(event))

	profiles, err := s.store.List(context.Background())
	s.Require().NoError(err)
	s.Require().Len(profiles, 1)

	// Every delivery re-emits SpecialistCreated with the same IDs; downstream
	// is idempotent, so duplicates are harmless and the chain never stalls.
	s.Require().Len(s.bus.published, 3)
	for _, published := range s.bus.published {
		s.Equal(profiles[0].ID, published.SpecialistID)
	}
}

func (s *ProvisionerSuite) TestMalformedPayloadIsAcked() {
	err := s.provisioner.Handle(context.Background(), []byte(`{"userId": "not-a-number"`))
	s.NoError(err)
	s.Empty(s.bus.published)
}

func (s *ProvisionerSuite) TestStoreOutageLeavesMessageUnacked() {
	provisioner := NewProvisioner(failingStore{Store: s.store}, s.bus, logger.Discard(), metrics.NewWith(prometheus.NewRegistry()))

	raw, err := json.Marshal(eventbus.UserRegistered{UserID: 7, Role: "Specialist"})
	s.Require().NoError(err)
	s.Error(provisioner.Handle(context.Background(), raw))
}

func (s *ProvisionerSuite) TestPublishFailureLeavesMessageUnacked() {
	s.bus.failWith = errors.New("broker unreachable")

	err := s.deliver(eventbus.UserRegistered{UserID: 7, Role: "Specialist"})
	s.Require().Error(err)

	// The profile exists; the retry path re-finds it and re-emits.
	profile, findErr := s.store.FindByUserID(context.Background(), 7)
	s.Require().NoError(findErr)

	s.bus.failWith = nil
	s.Require().NoError(s.deliver(eventbus.UserRegistered{UserID: 7, Role: "Specialist"}))
	s.Require().Len(s.bus.published, 1)
	s.Equal(profile.ID, s.bus.published[0].SpecialistID)
}

func TestProvisionerSuite(t *testing.T) {
	suite.Run(t, new(ProvisionerSuite))
}
