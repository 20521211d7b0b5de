// Package memory provides an in-process Bus for tests and standalone dev.
// It mimics the broker's at-least-once contract: a failing handler is
// retried up to maxAttempts before the message is dropped with a log line
// (dead-lettering is a real broker's concern).
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"slotbook/internal/eventbus"
)

const defaultMaxAttempts = 3

// Bus delivers published events inline on the caller's goroutine, which keeps
// provisioning-chain tests deterministic without sleeps or polling.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]eventbus.Handler // event -> group -> handler

	maxAttempts int
	logger      *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithMaxAttempts overrides the redelivery bound.
func WithMaxAttempts(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// New constructs an empty in-memory bus.
func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		handlers:    make(map[string]map[string]eventbus.Handler),
		maxAttempts: defaultMaxAttempts,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bus) Subscribe(event, group string, handler eventbus.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	groups, ok := b.handlers[event]
	if !ok {
		groups = make(map[string]eventbus.Handler)
		b.handlers[event] = groups
	}
	if _, exists := groups[group]; exists {
		return fmt.Errorf("group %q already subscribed to %q", group, event)
	}
	groups[group] = handler
	return nil
}

func (b *Bus) Publish(ctx context.Context, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	b.mu.RLock()
	groups := make(map[string]eventbus.Handler, len(b.handlers[event]))
	for group, handler := range b.handlers[event] {
		groups[group] = handler
	}
	b.mu.RUnlock()

	for group, handler := range groups {
		b.deliver(ctx, event, group, handler, raw)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, event, group string, handler eventbus.Handler, raw []byte) {
	var err error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		if err = handler(ctx, raw); err == nil {
			return
		}
		b.logger.WarnContext(ctx, "handler failed, redelivering",
			"event", event,
			"group", group,
			"attempt", attempt,
			"error", err,
		)
	}
	b.logger.ErrorContext(ctx, "message dropped after max attempts",
		"event", event,
		"group", group,
		"attempts", b.maxAttempts,
		"error", err,
	)
}
