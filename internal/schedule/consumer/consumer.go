// Package consumer provisions empty schedules from SpecialistCreated events.
// The chain terminates here by design: slot activity is driven by direct
// specialist requests, not further choreography.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"slotbook/internal/eventbus"
	"slotbook/internal/platform/metrics"
	"slotbook/internal/schedule/models"
	"slotbook/internal/schedule/service"
	dErrors "slotbook/pkg/domain-errors"
	"slotbook/pkg/platform/sentinel"
)

// Provisioner handles SpecialistCreated deliveries. The schedule's
// specialistID is the idempotency key; redelivery is a safe no-op.
type Provisioner struct {
	store   service.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProvisioner(store service.Store, logger *slog.Logger, m *metrics.Metrics) *Provisioner {
	return &Provisioner{store: store, logger: logger, metrics: m}
}

// Register subscribes the provisioner on its consumer group.
func (p *Provisioner) Register(bus eventbus.Bus) error {
	return bus.Subscribe(eventbus.EventSpecialistCreated, eventbus.GroupScheduleProvisioning, p.Handle)
}

// Handle processes one SpecialistCreated delivery.
func (p *Provisioner) Handle(ctx context.Context, payload []byte) error {
	var event eventbus.SpecialistCreated
	if err := json.Unmarshal(payload, &event); err != nil {
		p.logger.ErrorContext(ctx, "discarding malformed SpecialistCreated payload", "error", err)
		return nil
	}
	p.metrics.EventsConsumed.WithLabelValues(eventbus.EventSpecialistCreated, eventbus.GroupScheduleProvisioning).Inc()

	if _, err := p.store.FindBySpecialistID(ctx, event.SpecialistID); err == nil {
		return nil
	} else if !dErrors.Is(err, sentinel.ErrNotFound) {
		return err
	}

	schedule := &models.Schedule{
		SpecialistID: event.SpecialistID,
		UserID:       event.UserID,
		OfferedSlots: []time.Time{},
	}
	if err := p.store.CreateSchedule(ctx, schedule); err != nil {
		if dErrors.Is(err, sentinel.ErrConflict) {
			// Concurrent redelivery already created it.
			return nil
		}
		return err
	}

	p.logger.InfoContext(ctx, "schedule provisioned",
		"specialist_id", event.SpecialistID,
		"user_id", event.UserID,
	)
	return nil
}
