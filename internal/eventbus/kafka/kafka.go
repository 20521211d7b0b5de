// Package kafka implements the Bus contract on franz-go. One producer client
// publishes; each Subscribe call gets its own consumer-group client so groups
// progress independently. Offsets are committed only for records whose
// handler returned nil, which is what gives consumers at-least-once delivery.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"slotbook/internal/eventbus"
	"slotbook/pkg/platform/sentinel"
)

// Config captures broker connection settings.
type Config struct {
	Brokers  []string
	ClientID string
}

// Bus is the kafka-backed event bus. Construct with New, register handlers
// with Subscribe, then call Run to start the consume loops.
type Bus struct {
	cfg      Config
	producer *kgo.Client
	logger   *slog.Logger

	mu        sync.Mutex
	consumers []*groupConsumer
	running   bool
}

type groupConsumer struct {
	client  *kgo.Client
	event   string
	group   string
	handler eventbus.Handler
}

// New connects a producer and ensures every event topic exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Bus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}
	if cfg.ClientID != "" {
		opts = append(opts, kgo.ClientID(cfg.ClientID))
	}

	producer, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka client init: %w", err)
	}

	if err := ensureTopics(ctx, producer, eventbus.Topics()); err != nil {
		producer.Close()
		return nil, err
	}

	return &Bus{cfg: cfg, producer: producer, logger: logger}, nil
}

func ensureTopics(ctx context.Context, client *kgo.Client, topics []string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, res := range resp.Sorted() {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Publish marshals payload and produces it synchronously so the caller knows
// whether the broker accepted the record.
func (b *Bus) Publish(ctx context.Context, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	rec := &kgo.Record{Topic: event, Value: raw}
	if err := b.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w: %w", event, sentinel.ErrUnavailable, err)
	}
	return nil
}

// Subscribe registers a consumer group for event. Must be called before Run.
func (b *Bus) Subscribe(event, group string, handler eventbus.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return fmt.Errorf("subscribe after Run is not supported")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(b.cfg.Brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(event),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return fmt.Errorf("consumer client for %s/%s: %w", event, group, err)
	}

	b.consumers = append(b.consumers, &groupConsumer{
		client:  client,
		event:   event,
		group:   group,
		handler: handler,
	})
	return nil
}

// Run drives all registered consumers until ctx is cancelled.
func (b *Bus) Run(ctx context.Context) error {
	b.mu.Lock()
	b.running = true
	consumers := b.consumers
	b.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		c := c
		g.Go(func() error {
			return b.consume(ctx, c)
		})
	}
	return g.Wait()
}

func (b *Bus) consume(ctx context.Context, c *groupConsumer) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			b.logger.ErrorContext(ctx, "fetch error",
				"topic", topic,
				"partition", partition,
				"group", c.group,
				"error", err,
			)
		})

		var acked []*kgo.Record
		fetches.EachPartition(func(p kgo.FetchTopicPartition) {
			for _, rec := range p.Records {
				if err := c.handler(ctx, rec.Value); err != nil {
					// Stop at the first failure so its offset (and everything
					// after it in this partition) is redelivered.
					b.logger.WarnContext(ctx, "handler failed, leaving message uncommitted",
						"event", c.event,
						"group", c.group,
						"offset", rec.Offset,
						"error", err,
					)
					return
				}
				acked = append(acked, rec)
			}
		})

		if len(acked) > 0 {
			if err := c.client.CommitRecords(ctx, acked...); err != nil {
				b.logger.ErrorContext(ctx, "commit failed",
					"event", c.event,
					"group", c.group,
					"error", err,
				)
			}
		}
	}
}

// Close releases the producer and all consumer clients.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.producer.Close()
	for _, c := range b.consumers {
		c.client.Close()
	}
}
