package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/event-geo-hierarchy/internal/config"
	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// Writer produces located events to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes located events in a single
// WriteMessages call. Messages are keyed by event id so updates for one
// event stay ordered on one partition.
func (w *Writer) LoadBatch(ctx context.Context, events []domain.LocatedEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeToMessage(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d located events: %w", len(msgs), err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a LocatedEvent into a Kafka message.
func serializeToMessage(event domain.LocatedEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize located event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.EventID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "country_code", Value: []byte(event.Location.CountryCode)},
			{Key: "term_count", Value: []byte(strconv.Itoa(len(event.TermIDs)))},
			{Key: "processed_at", Value: []byte(event.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
