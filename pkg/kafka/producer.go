package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/aster/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	requiredAcks := kafka.RequiredAcks(cfg.RequiredAcks)

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           requiredAcks,
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ObjectEvent represents an event about a celestial object
type ObjectEvent struct {
	EventType  string          `json:"event_type"` // object.created, object.merged, record.pending, pending.approved, pending.rejected
	ObjectID   string          `json:"object_id"`
	Survey     string          `json:"survey,omitempty"`
	SourceID   string          `json:"source_id,omitempty"`
	Surveys    []string        `json:"surveys,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Separation float64         `json:"separation_arcsec,omitempty"`
	Version    int             `json:"version,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// PublishObjectEvent publishes an object event to Kafka
func (p *Producer) PublishObjectEvent(ctx context.Context, event *ObjectEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishObjectEvent")
	defer span.End()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.ObjectID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "survey", Value: []byte(event.Survey)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish object event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"event_type": event.EventType,
		"object_id":  event.ObjectID,
		"survey":     event.Survey,
	}).Debug("Published object event")

	return nil
}

// PublishObjectEvents publishes multiple object events in a batch
func (p *Producer) PublishObjectEvents(ctx context.Context, events []*ObjectEvent) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishObjectEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = time.Now().UTC()
		}

		data, err := json.Marshal(event)
		if err != nil {
			return err
		}

		msgs = append(msgs, kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.ObjectID),
			Value: data,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(event.EventType)},
				{Key: "survey", Value: []byte(event.Survey)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish object events")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"count": len(msgs),
	}).Debug("Published object events")

	return nil
}

// Health returns the producer health status
func (p *Producer) Health() bool {
	return p.writer != nil
}
