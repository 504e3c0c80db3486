package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/epi-series-etl/internal/config"
	"github.com/couchcryptid/epi-series-etl/internal/domain"
)

// Writer produces messages to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic. Messages
// are partitioned by key so every row of a country lands on one partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &countryBalancer{},
		RequiredAcks:           kafkago.RequireAll,
		BatchSize:              cfg.BatchSize,
		AllowAutoTopicCreation: false,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes rows to the sink topic in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, rows []domain.Row) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeToMessage(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d rows to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("rows published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Row into a Kafka message keyed "<geoID>|<date>".
func serializeToMessage(row domain.Row) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row %s: %w", row.Key(), err)
	}
	return kafkago.Message{
		Key:   []byte(row.Key()),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "geo_id", Value: []byte(row.GeoID)},
			{Key: "date", Value: []byte(row.Date.Format(domain.DateLayout))},
		},
	}, nil
}

// countryBalancer hashes only the geoID part of the key, keeping a country's
// rows ordered on one partition.
type countryBalancer struct {
	hash kafkago.Hash
}

func (b *countryBalancer) Balance(msg kafkago.Message, partitions ...int) int {
	geoID := msg.Key
	for i, c := range msg.Key {
		if c == '|' {
			geoID = msg.Key[:i]
			break
		}
	}
	msg.Key = geoID
	return b.hash.Balance(msg, partitions...)
}
