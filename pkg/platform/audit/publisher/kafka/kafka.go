// Package kafka streams audit events to a Kafka topic. It is wired as an
// additional sink next to the durable store, so downstream consumers
// (compliance archive, fraud monitoring) receive events in near real time.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"facelive/pkg/platform/audit"
)

// Publisher produces audit events to one topic, keyed by session ID so a
// session's events stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// New connects to the brokers and ensures the topic exists.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic %q: %w", topic, err)
	}

	return &Publisher{client: client, topic: topic, logger: logger}, nil
}

// Append produces one event synchronously. Audit writes are on the
// decision path, so a broker failure surfaces to the caller instead of
// being dropped.
func (p *Publisher) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.SessionID.String()),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.ErrorContext(ctx, "audit event produce failed",
			"topic", p.topic,
			"action", event.Action,
			"session_id", event.SessionID,
			"error", err,
		)
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying client.
func (p *Publisher) Close() {
	p.client.Close()
}
