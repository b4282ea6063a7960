// Package worker holds the background loops: the outbox publisher and the
// orphaned-ticket sweeper.
package worker

import (
	"context"
	"time"

	"github.com/redis/rueidis"
	"github.com/sirupsen/logrus"

	"github.com/eventpass/eventpass/internal/model"
	"github.com/eventpass/eventpass/internal/repository"
)

// StreamAppender publishes a domain event to the downstream stream.
type StreamAppender interface {
	Append(ctx context.Context, event model.OutboxEvent) error
}

type redisStream struct {
	client rueidis.Client
	key    string
}

// NewRedisStream returns a StreamAppender backed by a Redis stream.
func NewRedisStream(client rueidis.Client, key string) StreamAppender {
	return &redisStream{client: client, key: key}
}

func (s *redisStream) Append(ctx context.Context, event model.OutboxEvent) error {
	cmd := s.client.B().Xadd().Key(s.key).Id("*").
		FieldValue().
		FieldValue("event_type", event.EventType).
		FieldValue("aggregate_id", event.AggregateID).
		FieldValue("payload", string(event.Payload)).
		Build()
	return s.client.Do(ctx, cmd).Error()
}

// Publisher drains unpublished outbox rows into the event stream. Rows that
// fail to publish stay unpublished and are retried on the next tick.
type Publisher struct {
	outbox    repository.OutboxRepository
	stream    StreamAppender
	interval  time.Duration
	batchSize int
	log       *logrus.Logger
}

// NewPublisher constructs the outbox publisher.
func NewPublisher(outbox repository.OutboxRepository, stream StreamAppender, interval time.Duration, batchSize int, log *logrus.Logger) *Publisher {
	return &Publisher{
		outbox:    outbox,
		stream:    stream,
		interval:  interval,
		batchSize: batchSize,
		log:       log,
	}
}

// Run polls until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.WithField("interval", p.interval.String()).Info("outbox publisher started")

	for {
		select {
		case <-ctx.Done():
			p.log.Info("outbox publisher stopped")
			return
		case <-ticker.C:
			p.publishBatch(ctx)
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context) {
	events, err := p.outbox.GetUnpublished(ctx, p.batchSize)
	if err != nil {
		p.log.WithError(err).Error("fetch unpublished events failed")
		return
	}

	for _, event := range events {
		if err := p.stream.Append(ctx, event); err != nil {
			p.log.WithError(err).WithField("event_id", event.ID).Warn("publish event failed")
			continue
		}
		if err := p.outbox.MarkPublished(ctx, event.ID); err != nil {
			p.log.WithError(err).WithField("event_id", event.ID).Error("mark published failed")
			continue
		}
		p.log.WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.EventType,
		}).Debug("event published")
	}
}
