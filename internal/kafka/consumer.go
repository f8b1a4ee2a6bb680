package kafka

import (
	"context"
	"errors"
	"fmt"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"io"
	"orderconsumer/internal/config"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/metrics"
	"orderconsumer/internal/models"
	"orderconsumer/internal/routing"
	"sync"
	"time"
)

// A Handler routes one decoded delivery
type Handler func(ctx context.Context, d *models.Delivery) error

// messageReader is the part of kafka.Reader the consumer uses
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// A Consumer reads one topic in a consumer group and hands every message to a Handler
type Consumer struct {
	reader          messageReader
	newReader       func() messageReader
	topic           string
	groupID         string
	mu              sync.RWMutex
	running         bool
	paused          bool
	resume          chan struct{}
	stop            chan struct{}
	done            chan struct{}
	handler         Handler
	codec           interfaces.Codec
	logger          *zerolog.Logger
	circuitBreaker  *gobreaker.CircuitBreaker
	deadLetterQueue interfaces.DeadLetterQueue
}

// NewConsumer creates a consumer of topic in the group derived from the configured namespace
func NewConsumer(
	cfg config.Config, topic string, handler Handler, codec interfaces.Codec,
	deadLetterQueue interfaces.DeadLetterQueue, logger *zerolog.Logger,
) *Consumer {
	groupID := cfg.Kafka.GroupID(topic)
	cb := gobreaker.NewCircuitBreaker(
		gobreaker.Settings{
			Name:        groupID,
			MaxRequests: uint32(cfg.CircuitBreaker.HalfOpenMaxCalls),
			Interval:    cfg.CircuitBreaker.Timeout,
			Timeout:     cfg.CircuitBreaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(cfg.CircuitBreaker.MaxFailers)
			},
		},
	)

	c := &Consumer{
		topic:           topic,
		groupID:         groupID,
		handler:         handler,
		codec:           codec,
		logger:          logger,
		circuitBreaker:  cb,
		deadLetterQueue: deadLetterQueue,
	}
	brokers := cfg.Kafka.BrokerList()
	c.newReader = func() messageReader {
		return kafka.NewReader(
			kafka.ReaderConfig{
				Brokers:     brokers,
				Topic:       topic,
				GroupID:     groupID,
				StartOffset: kafka.FirstOffset,
				MinBytes:    1,
				MaxBytes:    10e6,
				MaxWait:     time.Second,
				ErrorLogger: kafka.LoggerFunc(
					func(msg string, args ...interface{}) {
						c.logger.Error().
							Str("kafka_error", fmt.Sprintf(msg, args...)).
							Str("group_id", groupID).
							Msg("kafka reader error")
					},
				),
			},
		)
	}
	return c
}

func (c *Consumer) GroupID() string {
	return c.groupID
}

func (c *Consumer) Topic() string {
	return c.topic
}

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("consumer %s is already running", c.groupID)
	}

	c.reader = c.newReader()
	c.running = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})

	c.logger.Info().
		Str("topic", c.topic).
		Str("group_id", c.groupID).
		Msg("Kafka consumer started")

	go c.consume(ctx, c.reader, c.stop, c.done)

	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}

	c.running = false
	close(c.stop)
	reader, done := c.reader, c.done
	c.reader = nil
	c.mu.Unlock()

	if err := reader.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Error closing Kafka reader")
		return fmt.Errorf("failed to close Kafka reader: %w", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Pause stops fetching after the message in flight until Resume is called
func (c *Consumer) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return
	}
	c.paused = true
	c.resume = make(chan struct{})
	metrics.ConsumerPaused.WithLabelValues(c.groupID).Set(1)
	c.logger.Warn().Str("group_id", c.groupID).Str("topic", c.topic).Msg("Kafka consumer paused")
}

func (c *Consumer) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		return
	}
	c.paused = false
	close(c.resume)
	metrics.ConsumerPaused.WithLabelValues(c.groupID).Set(0)
	c.logger.Info().Str("group_id", c.groupID).Str("topic", c.topic).Msg("Kafka consumer resumed")
}

func (c *Consumer) Paused() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.paused
}

// waitResumed blocks while the consumer is paused, false means the loop must exit
func (c *Consumer) waitResumed(ctx context.Context, stop <-chan struct{}) bool {
	c.mu.RLock()
	paused, resume := c.paused, c.resume
	c.mu.RUnlock()

	if !paused {
		return true
	}
	select {
	case <-resume:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (c *Consumer) consume(ctx context.Context, reader messageReader, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		if !c.waitResumed(ctx, stop) {
			return
		}

		message, err := c.fetch(ctx, reader)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || isClosed(stop) {
				return
			}
			c.logger.Error().Err(err).Str("group_id", c.groupID).Msg("Failed to fetch Kafka message")
			continue
		}
		metrics.MessagesConsumed.WithLabelValues(message.Topic).Inc()

		if !c.processMessage(ctx, message) {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		commitErr := retry.Do(
			func() error {
				return reader.CommitMessages(ctx, message)
			},
			retry.Attempts(5),
			retry.Delay(500*time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
			retry.Context(ctx),
		)

		if commitErr != nil {
			c.logger.Error().
				Err(commitErr).
				Str("topic", message.Topic).
				Int("partition", message.Partition).
				Int64("offset", message.Offset).
				Msg("Failed to commit message after retries")
		}
	}
}

// fetch reads the next message through the circuit breaker, backing off while the broker fails
func (c *Consumer) fetch(ctx context.Context, reader messageReader) (kafka.Message, error) {
	var message kafka.Message

	err := retry.Do(
		func() error {
			result, err := c.circuitBreaker.Execute(
				func() (any, error) {
					return reader.FetchMessage(ctx)
				},
			)
			if err != nil {
				return err
			}
			message = result.(kafka.Message)
			return nil
		},
		retry.Attempts(3),
		retry.Delay(1*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(30*time.Second),
		retry.RetryIf(
			func(err error) bool {
				return !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled)
			},
		),
		retry.OnRetry(
			func(n uint, err error) {
				c.logger.Warn().
					Err(err).
					Uint("attempt", n+1).
					Str("group_id", c.groupID).
					Msg("Retrying Kafka fetch")
			},
		),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)

	return message, err
}

// processMessage decodes and routes message, it reports whether the message may be committed
func (c *Consumer) processMessage(ctx context.Context, message kafka.Message) bool {
	start := time.Now()

	order, err := c.codec.Decode(message.Value)
	if err != nil {
		reason := "deserialization_error"
		if !models.IsSerialization(err) {
			reason = "decode_failure"
		}
		c.logger.Error().
			Err(err).
			Str("topic", message.Topic).
			Int("partition", message.Partition).
			Int64("offset", message.Offset).
			Str("reason", reason).
			Msg("Failed to decode item ordered message")

		dlqErr := c.deadLetterQueue.Send(interfaces.DeadLetter{
			Topic:     message.Topic,
			Partition: message.Partition,
			Offset:    message.Offset,
			Payload:   message.Value,
			Reason:    reason,
			Err:       err,
		})
		if dlqErr != nil {
			c.logger.Error().Err(dlqErr).Msg("Failed to send undecodable message to dead letter queue")
		}
		metrics.DeadLetters.WithLabelValues(message.Topic, reason).Inc()
		return true
	}

	delivery := &models.Delivery{
		Topic:     message.Topic,
		Partition: message.Partition,
		Offset:    message.Offset,
		Key:       string(message.Key),
		Order:     order,
	}

	err = c.handler(ctx, delivery)
	switch {
	case err == nil:
		c.logger.Debug().
			Str("order_reference", delivery.LogicalID()).
			Str("topic", message.Topic).
			Int64("offset", message.Offset).
			Dur("duration", time.Since(start)).
			Msg("Message handled")
		return true
	case errors.Is(err, routing.ErrBeyondRecoveryOffset):
		return false
	case ctx.Err() != nil:
		return false
	default:
		c.logger.Error().
			Err(err).
			Str("order_reference", delivery.LogicalID()).
			Str("topic", message.Topic).
			Int64("offset", message.Offset).
			Dur("duration", time.Since(start)).
			Msg("Failed to handle message")
		return true
	}
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
