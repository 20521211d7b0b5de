// Package consumer provisions specialist profiles from UserRegistered events.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"slotbook/internal/account/models"
	"slotbook/internal/eventbus"
	"slotbook/internal/platform/metrics"
	profilemodels "slotbook/internal/profile/models"
	"slotbook/internal/profile/service"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
)

// Provisioner handles UserRegistered deliveries. It is safe under redelivery:
// the profile's userID is the idempotency key, and SpecialistCreated is
// re-emitted on duplicates so a crash between create and publish cannot
// strand the chain.
type Provisioner struct {
	store   service.Store
	bus     eventbus.Bus
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProvisioner(store service.Store, bus eventbus.Bus, logger *slog.Logger, m *metrics.Metrics) *Provisioner {
	return &Provisioner{store: store, bus: bus, logger: logger, metrics: m}
}

// Register subscribes the provisioner on its consumer group.
func (p *Provisioner) Register(bus eventbus.Bus) error {
	return bus.Subscribe(eventbus.EventUserRegistered, eventbus.GroupProfileProvisioning, p.Handle)
}

// Handle processes one UserRegistered delivery. Returning an error leaves the
// message unacknowledged; only transient storage/broker failures do that.
func (p *Provisioner) Handle(ctx context.Context, payload []byte) error {
	var event eventbus.UserRegistered
	if err := json.Unmarshal(payload, &event); err != nil {
		// Malformed payloads can never succeed; ack and move on.
		p.logger.ErrorContext(ctx, "discarding malformed UserRegistered payload", "error", err)
		return nil
	}
	p.metrics.EventsConsumed.WithLabelValues(eventbus.EventUserRegistered, eventbus.GroupProfileProvisioning).Inc()

	if event.Role != string(models.RoleSpecialist) {
		return nil
	}

	profile, err := p.store.FindByUserID(ctx, event.UserID)
	switch {
	case err == nil:
		// Redelivery after a previous create. The downstream consumer is
		// idempotent, so re-emitting is safe and guarantees chain completeness.
		return p.emitCreated(ctx, profile.ID, event.UserID)
	case dErrors.Is(err, sentinel.ErrNotFound):
		// First delivery; fall through to create.
	default:
		return err
	}

	profile = &profilemodels.SpecialistProfile{
		UserID: event.UserID,
		Skills: []string{},
	}
	if err := p.store.Create(ctx, profile); err != nil {
		if dErrors.Is(err, sentinel.ErrConflict) {
			// Lost a race with a concurrent redelivery; the other writer's
			// row is the one true profile.
			existing, findErr := p.store.FindByUserID(ctx, event.UserID)
			if findErr != nil {
				return findErr
			}
			return p.emitCreated(ctx, existing.ID, event.UserID)
		}
		return err
	}

	p.logger.InfoContext(ctx, "specialist profile provisioned",
		"user_id", event.UserID,
		"specialist_id", profile.ID,
	)
	return p.emitCreated(ctx, profile.ID, event.UserID)
}

func (p *Provisioner) emitCreated(ctx context.Context, specialistID, userID int64) error {
	event := eventbus.SpecialistCreated{SpecialistID: specialistID, UserID: userID}
	if err := p.bus.Publish(ctx, eventbus.EventSpecialistCreated, event); err != nil {
		// Not acknowledging forces redelivery, which retries this publish.
		return err
	}
	p.metrics.EventsPublished.WithLabelValues(eventbus.EventSpecialistCreated).Inc()
	return nil
}
