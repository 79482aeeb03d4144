package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"photokiosk/internal/models"
)

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Handler interface {
	Handle(ctx context.Context, ev models.PhotoEvent) error
}

func NewKafkaReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{broker},
		Topic:   topic,
		GroupID: groupID,
	})
}

type Consumer struct {
	r   MessageReader
	h   Handler
	log zerolog.Logger
}

func NewConsumer(r MessageReader, h Handler, log zerolog.Logger) *Consumer {
	return &Consumer{r: r, h: h, log: log}
}

// Run reads events until ctx is cancelled or the reader is closed. A bad
// message or a failing handler is logged and skipped.
func (c *Consumer) Run(ctx context.Context) {
	defer c.r.Close()

	for {
		msg, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			c.log.Error().Err(err).Msg("error reading message")
			continue
		}

		var ev models.PhotoEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Warn().Err(err).Int64("offset", msg.Offset).Msg("skipping malformed event")
			continue
		}
		if err := c.h.Handle(ctx, ev); err != nil {
			c.log.Error().Err(err).Str("photo", ev.PhotoID.String()).Msg("error processing event")
		}
	}
}
