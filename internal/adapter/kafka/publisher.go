// Package kafka publishes assessment events for downstream consumers.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/config"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

// Publisher produces assessment events to a Kafka topic. It implements
// orchestrator.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the assessments topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes one assessment keyed by its spatial key, so events
// for the same cell land in order on one partition and the payload
// never carries raw coordinates.
func (p *Publisher) Publish(ctx context.Context, assessment domain.Assessment) error {
	msg, err := serializeToMessage(assessment)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an Assessment into a Kafka message.
func serializeToMessage(assessment domain.Assessment) (kafkago.Message, error) {
	data, err := json.Marshal(assessment)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(assessment.SpatialKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(assessment.Source)},
			{Key: "freshness", Value: []byte(assessment.Freshness)},
			{Key: "resolved_at", Value: []byte(assessment.ResolvedAt.Format(time.RFC3339))},
		},
	}, nil
}
