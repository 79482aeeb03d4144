// Package events publishes photo lifecycle events to Kafka and processes
// them in the background.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"photokiosk/internal/models"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   topic,
	})
}

type Producer struct {
	w   MessageWriter
	log zerolog.Logger
}

func NewProducer(w MessageWriter, log zerolog.Logger) *Producer {
	return &Producer{w: w, log: log}
}

// Emit writes ev as JSON keyed by photo id, so events for one photo stay
// on one partition.
func (p *Producer) Emit(ctx context.Context, ev models.PhotoEvent) error {
	const op = "events.Emit"

	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := kafka.Message{Key: []byte(ev.PhotoID.String()), Value: value}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug().Str("event", string(ev.Type)).Str("photo", ev.PhotoID.String()).Msg("event published")
	return nil
}

func (p *Producer) Close() error {
	return p.w.Close()
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Emit(context.Context, models.PhotoEvent) error { return nil }
