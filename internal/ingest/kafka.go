package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"wilbur-realtime/internal/config"
)

// Notifier is the slice of the registry the ingest bridge needs.
type Notifier interface {
	Notify(channel, event string, payload json.RawMessage)
}

// envelope is the record the CRUD layer publishes after a mutation commits.
type envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// KafkaConsumer bridges notify envelopes from the platform's Kafka topic
// into the local subscriber registry. Delivery stays best effort end to end:
// a malformed or unroutable record is logged and skipped, never retried.
type KafkaConsumer struct {
	reader   *kafka.Reader
	notifier Notifier
}

func NewKafkaConsumer(cfg config.KafkaConfig, notifier Notifier) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    cfg.Topic,
			MinBytes: 1,
			MaxBytes: 1 << 20,
		}),
		notifier: notifier,
	}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (c *KafkaConsumer) Run(ctx context.Context) {
	slog.Info("kafka notify consumer starting", "topic", c.reader.Config().Topic)

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				slog.Info("kafka notify consumer stopping")
				return
			}
			slog.Error("kafka read failed", "error", err)
			continue
		}

		if err := c.handle(msg.Value); err != nil {
			slog.Warn("dropping notify record", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *KafkaConsumer) handle(value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if env.Channel == "" || env.Event == "" {
		return errors.New("envelope missing channel or event")
	}
	c.notifier.Notify(env.Channel, env.Event, env.Payload)
	return nil
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
