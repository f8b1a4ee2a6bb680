package routing

import (
	"context"
	"errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/metrics"
	"orderconsumer/internal/models"
	"os"
	"time"
)

// DefaultPublishTimeout bounds a single republish
const DefaultPublishTimeout = 3 * time.Second

// A Gateway encodes messages and publishes them to a next tier topic
type Gateway struct {
	publisher   interfaces.Publisher
	codec       interfaces.Codec
	deadLetters interfaces.DeadLetterQueue
	routingKey  string
	timeout     time.Duration
	logger      *zerolog.Logger
	now         func() time.Time
}

// NewGateway creates a Gateway stamping every record with routingKey
func NewGateway(
	publisher interfaces.Publisher, codec interfaces.Codec, deadLetters interfaces.DeadLetterQueue,
	routingKey string, timeout time.Duration, logger *zerolog.Logger,
) *Gateway {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}

	return &Gateway{
		publisher:   publisher,
		codec:       codec,
		deadLetters: deadLetters,
		routingKey:  routingKey,
		timeout:     timeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Republish publishes the delivered order to target once.
// Failures are logged and dead-lettered, only a cancelled ctx is returned unchanged.
func (g *Gateway) Republish(ctx context.Context, d *models.Delivery, target string) error {
	id := d.LogicalID()

	payload, err := g.codec.Encode(d.Order)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("order_reference", id).
			Str("current_topic", d.Topic).
			Str("next_topic", target).
			Msg("Failed to serialize message for republish")
		metrics.RepublishErrors.WithLabelValues(target, "serialization").Inc()
		g.deadLetter(d, nil, "serialization_error", err)
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	err = g.publisher.Publish(publishCtx, interfaces.OutboundMessage{
		Topic: target,
		Key:   []byte(g.routingKey),
		Value: payload,
		Headers: map[string]string{
			"message-id":   uuid.NewString(),
			"origin-topic": d.Topic,
		},
		Time: g.now(),
	})
	if err == nil {
		metrics.Republished.WithLabelValues(d.Topic, target).Inc()
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		g.logger.Warn().
			Err(err).
			Str("order_reference", id).
			Str("next_topic", target).
			Msg("Republish interrupted")
		return ctxErr
	}

	errorType := "transport"
	if errors.Is(err, context.DeadlineExceeded) {
		errorType = "timeout"
	}
	metrics.RepublishErrors.WithLabelValues(target, errorType).Inc()

	transportErr := &models.TransportError{Topic: target, Err: err}
	g.logger.Error().
		Err(transportErr).
		Str("order_reference", id).
		Str("current_topic", d.Topic).
		Str("next_topic", target).
		Dur("timeout", g.timeout).
		Msg("Failed to republish message")
	g.deadLetter(d, payload, "republish_failed", transportErr)

	return transportErr
}

func (g *Gateway) deadLetter(d *models.Delivery, payload []byte, reason string, cause error) {
	metrics.DeadLetters.WithLabelValues(d.Topic, reason).Inc()
	if g.deadLetters == nil {
		return
	}
	dlqErr := g.deadLetters.Send(interfaces.DeadLetter{
		OrderRef:  d.LogicalID(),
		Topic:     d.Topic,
		Partition: d.Partition,
		Offset:    d.Offset,
		Payload:   payload,
		Reason:    reason,
		Err:       cause,
	})
	if dlqErr != nil {
		g.logger.Error().Err(dlqErr).Msg("Failed to record dead letter")
	}
}
