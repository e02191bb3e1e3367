package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kwabenaosei/dukapos-backend/pkg/config"
	"github.com/kwabenaosei/dukapos-backend/pkg/db/models"
	"github.com/kwabenaosei/dukapos-backend/pkg/logger"
	"github.com/kwabenaosei/dukapos-backend/pkg/metrics"
)

// MessageSink abstracts the broker so the dispatch loop can be tested
// without Pub/Sub.
type MessageSink interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// Publisher drains unpublished outbox rows to the receipts topic.
type Publisher struct {
	repo        *Repository
	sink        MessageSink
	topic       string
	logg        *logger.Logger
	metrics     *metrics.PublisherMetrics
	batchSize   int
	maxAttempts int
}

func NewPublisher(repo *Repository, sink MessageSink, cfg config.OutboxConfig, topic string, logg *logger.Logger, pm *metrics.PublisherMetrics) *Publisher {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 50
	}
	return &Publisher{
		repo:        repo,
		sink:        sink,
		topic:       topic,
		logg:        logg,
		metrics:     pm,
		batchSize:   batch,
		maxAttempts: cfg.MaxAttempts,
	}
}

// RunOnce publishes one batch and returns how many rows were published.
func (p *Publisher) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	rows, err := p.repo.FetchUnpublished(p.batchSize, p.maxAttempts)
	if err != nil {
		return 0, fmt.Errorf("fetching unpublished events: %w", err)
	}

	published := 0
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		if err := p.publishRow(ctx, row); err != nil {
			p.metrics.IncFailure(p.topic)
			if p.logg != nil {
				logCtx := p.logg.WithFields(ctx, map[string]any{
					"event_id":   row.ID.String(),
					"event_type": row.EventType,
				})
				p.logg.Error(logCtx, "publishing outbox event", err)
			}
			if markErr := p.repo.MarkFailed(row.ID, err); markErr != nil {
				return published, fmt.Errorf("marking event failed: %w", markErr)
			}
			continue
		}
		if err := p.repo.MarkPublished(row.ID); err != nil {
			return published, fmt.Errorf("marking event published: %w", err)
		}
		p.metrics.IncSuccess(p.topic)
		published++
	}

	p.metrics.ObserveBatch(p.topic, time.Since(start))
	return published, nil
}

// Run polls until the context is canceled.
func (p *Publisher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if p.logg != nil {
					p.logg.Error(ctx, "outbox publish batch", err)
				}
			}
		}
	}
}

func (p *Publisher) publishRow(ctx context.Context, row models.OutboxEvent) error {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &envelope); err != nil {
		return fmt.Errorf("decoding envelope: %w", err)
	}

	attributes := map[string]string{
		"eventType":     string(row.EventType),
		"aggregateType": string(row.AggregateType),
		"aggregateId":   row.AggregateID,
		"businessId":    row.BusinessID.String(),
		"eventId":       envelope.EventID,
	}
	return p.sink.Publish(ctx, row.Payload, attributes)
}
