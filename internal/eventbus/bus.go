// Package eventbus defines the publish/subscribe contract the provisioning
// chain rides on. Delivery is at-least-once: a handler that returns an error
// is redelivered, so every handler must be idempotent (lookup-before-create
// on its natural key, never "first time we've seen this").
package eventbus

import "context"

// Handler processes one delivered message. Returning a non-nil error means
// the message is not acknowledged and will be redelivered. Handlers that hit
// a non-retryable condition must log and return nil so the message is acked.
type Handler func(ctx context.Context, payload []byte) error

// Bus is the injected broker capability. Implementations: memory (tests/dev)
// and kafka (franz-go). Never a singleton baked into business logic.
type Bus interface {
	// Publish marshals payload as JSON and durably hands it to the broker.
	// Fire-and-forget from the caller's perspective; no ordering guarantee
	// across event names.
	Publish(ctx context.Context, event string, payload any) error

	// Subscribe registers handler for event under the named consumer group.
	// Each group receives every published message at least once.
	Subscribe(event, group string, handler Handler) error
}

// Runner is implemented by buses that need a background consume loop
// (the kafka bus). The memory bus delivers inline and does not implement it.
type Runner interface {
	Run(ctx context.Context) error
}
