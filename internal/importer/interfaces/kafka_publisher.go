package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"entsoe-bridge/internal/importer/application"
	"entsoe-bridge/internal/observability/metrics"
)

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// importCompletedMessage is the JSON payload of an import completed event.
type importCompletedMessage struct {
	Type       string    `json:"type"`
	Kind       string    `json:"kind"`
	Country    string    `json:"country"`
	From       time.Time `json:"from"`
	Until      time.Time `json:"until"`
	Status     string    `json:"status"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Sensors    []string  `json:"sensors"`
	OccurredAt time.Time `json:"occurred_at"`
}

// KafkaPublisher writes import completed events to a Kafka topic, keyed by country.
type KafkaPublisher struct {
	writer MessageWriter
}

// NewKafkaWriter creates a Kafka writer for the topic.
func NewKafkaWriter(brokers []string, topic string) (*kafka.Writer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka publisher: no brokers")
	}
	if topic == "" {
		return nil, errors.New("kafka publisher: empty topic")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}, nil
}

// NewKafkaPublisher constructs a publisher over writer.
func NewKafkaPublisher(writer MessageWriter) (*KafkaPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka publisher: nil writer")
	}
	return &KafkaPublisher{writer: writer}, nil
}

// PublishImportCompleted writes the event.
func (p *KafkaPublisher) PublishImportCompleted(ctx context.Context, event application.ImportCompleted) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka publisher: nil publisher")
	}
	payload, err := json.Marshal(importCompletedMessage{
		Type:       "import_completed",
		Kind:       string(event.Kind),
		Country:    event.Country,
		From:       event.From.UTC(),
		Until:      event.Until.UTC(),
		Status:     string(event.Status),
		Inserted:   event.Inserted,
		Skipped:    event.Skipped,
		Sensors:    event.Sensors,
		OccurredAt: event.OccurredAt.UTC(),
	})
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Country + "/" + string(event.Kind)),
		Value: payload,
		Time:  event.OccurredAt,
	})
	if err != nil {
		metrics.IncEventPublished("kafka", metrics.ResultError)
		return err
	}
	metrics.IncEventPublished("kafka", metrics.ResultSuccess)
	return nil
}

// Close closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
