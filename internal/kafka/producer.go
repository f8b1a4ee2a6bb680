package kafka

import (
	"context"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"orderconsumer/internal/interfaces"
	"time"
)

// A Producer writes records to any topic through one kafka.Writer
type Producer struct {
	writer *kafka.Writer
	logger *zerolog.Logger
}

// NewProducer creates a synchronous producer, writeTimeout bounds the broker acknowledgement
func NewProducer(brokers []string, writeTimeout time.Duration, logger *zerolog.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            1,
		BatchSize:              1,
		WriteTimeout:           writeTimeout,
		ReadTimeout:            writeTimeout,
		AllowAutoTopicCreation: false,
		Async:                  false,
	}

	return &Producer{writer: writer, logger: logger}
}

// Publish writes msg and waits for the acknowledgement
func (p *Producer) Publish(ctx context.Context, msg interfaces.OutboundMessage) error {
	headers := make([]kafka.Header, 0, len(msg.Headers))
	for key, value := range msg.Headers {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}

	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
		Time:    msg.Time,
	})
	if err != nil {
		return fmt.Errorf("write message to %s: %w", msg.Topic, err)
	}

	p.logger.Debug().
		Str("topic", msg.Topic).
		Str("key", string(msg.Key)).
		Int("size", len(msg.Value)).
		Msg("Message published")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
