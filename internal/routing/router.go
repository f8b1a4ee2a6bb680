package routing

import (
	"context"
	"errors"
	"github.com/rs/zerolog"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/ledger"
	"orderconsumer/internal/metrics"
	"orderconsumer/internal/models"
	"os"
)

// ErrBeyondRecoveryOffset is returned for an error tier message outside the recovery window.
// The message must stay uncommitted.
var ErrBeyondRecoveryOffset = errors.New("offset is beyond the error recovery offset")

// A Router runs the processor on each delivery and moves failed messages along the topic chain
type Router struct {
	chain       TopicChain
	processor   interfaces.ItemProcessor
	ledger      *ledger.Ledger
	gateway     *Gateway
	gate        *RecoveryGate
	deadLetters interfaces.DeadLetterQueue
	logger      *zerolog.Logger
}

// NewRouter creates a Router, gate may be nil when no error tier consumer runs
func NewRouter(
	chain TopicChain, processor interfaces.ItemProcessor, l *ledger.Ledger, gateway *Gateway,
	gate *RecoveryGate, deadLetters interfaces.DeadLetterQueue, logger *zerolog.Logger,
) *Router {
	if logger == nil {
		lg := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &lg
	}

	return &Router{
		chain:       chain,
		processor:   processor,
		ledger:      l,
		gateway:     gateway,
		gate:        gate,
		deadLetters: deadLetters,
		logger:      logger,
	}
}

// OnMainMessage handles a delivery from the main topic
func (r *Router) OnMainMessage(ctx context.Context, d *models.Delivery) error {
	return r.route(ctx, TierMain, d)
}

// OnRetryMessage handles a delivery from the retry topic
func (r *Router) OnRetryMessage(ctx context.Context, d *models.Delivery) error {
	return r.route(ctx, TierRetry, d)
}

// OnErrorMessage handles a delivery from the error topic if its offset is inside the recovery window
func (r *Router) OnErrorMessage(ctx context.Context, d *models.Delivery) error {
	if r.gate != nil && !r.gate.Admit(d.Offset) {
		return ErrBeyondRecoveryOffset
	}
	return r.route(ctx, TierError, d)
}

// Handler returns the entry point of tier
func (r *Router) Handler(tier Tier) func(context.Context, *models.Delivery) error {
	switch tier {
	case TierMain:
		return r.OnMainMessage
	case TierRetry:
		return r.OnRetryMessage
	default:
		return r.OnErrorMessage
	}
}

// route processes d until it succeeds, fails terminally or escalates.
// It returns nil on every terminal outcome and only propagates cancellation.
func (r *Router) route(ctx context.Context, tier Tier, d *models.Delivery) error {
	id := d.LogicalID()
	next := tier.Next()
	logger := r.logger.With().
		Str("order_reference", id).
		Str("current_topic", d.Topic).
		Str("next_topic", r.chain.Topic(next)).
		Int("partition", d.Partition).
		Int64("offset", d.Offset).
		Logger()

	if d.Order == nil || id == "" {
		err := models.NewPermanentError("message has no logical id", nil)
		logger.Error().Err(err).Msg("Non-recoverable failure, dropping message")
		r.deadLetter(d, "missing_logical_id", err)
		return nil
	}

	key := ledger.Key{Tier: string(tier), ID: id}
	maxAttempts := r.ledger.Max()

	for attempt := 1; ; attempt++ {
		err := r.processor.Process(ctx, d.Order)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}

		outcome := Classify(err)
		metrics.ProcessingOutcomes.WithLabelValues(string(tier), outcome.String()).Inc()

		switch outcome {
		case Success:
			r.ledger.Reset(key)
			r.observeLedger()
			logger.Info().Int("retry_attempt", attempt).Msg("Item ordered processed")
			return nil

		case Duplicate:
			logger.Warn().Err(err).Msg("Duplicate item ordered, dropping message")
			return nil

		case Permanent:
			reason := "permanent_failure"
			if !models.IsPermanent(err) {
				reason = "unclassified_failure"
			}
			logger.Error().Err(err).Str("reason", reason).Msg("Non-recoverable failure, dropping message")
			r.deadLetter(d, reason, err)
			return nil
		}

		// retryable
		if tier == TierMain {
			logger.Warn().Err(err).Msg("Retryable failure on main topic, republishing")
			return r.escalate(ctx, logger, d, next)
		}

		n := r.ledger.RecordFailure(key)
		r.observeLedger()
		if n >= maxAttempts || attempt >= maxAttempts {
			logger.Warn().
				Err(err).
				Int("retry_attempt", n).
				Msg("Retry attempts exhausted, republishing")
			escalateErr := r.escalate(ctx, logger, d, next)
			r.ledger.Reset(key)
			r.observeLedger()
			return escalateErr
		}

		logger.Warn().
			Err(err).
			Int("retry_attempt", n).
			Int("max_attempts", maxAttempts).
			Msg("Recoverable failure, reprocessing message")
	}
}

// escalate republishes d to tier next, a failed republish is already logged by the gateway
func (r *Router) escalate(ctx context.Context, logger zerolog.Logger, d *models.Delivery, next Tier) error {
	err := r.gateway.Republish(ctx, d, r.chain.Topic(next))
	if err == nil {
		logger.Info().Msg("Message republished")
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (r *Router) deadLetter(d *models.Delivery, reason string, cause error) {
	metrics.DeadLetters.WithLabelValues(d.Topic, reason).Inc()
	if r.deadLetters == nil {
		return
	}

	var payload []byte
	if d.Order != nil {
		if encoded, err := r.gateway.codec.Encode(d.Order); err == nil {
			payload = encoded
		}
	}

	dlqErr := r.deadLetters.Send(interfaces.DeadLetter{
		OrderRef:  d.LogicalID(),
		Topic:     d.Topic,
		Partition: d.Partition,
		Offset:    d.Offset,
		Payload:   payload,
		Reason:    reason,
		Err:       cause,
	})
	if dlqErr != nil {
		r.logger.Error().Err(dlqErr).Msg("Failed to record dead letter")
	}
}

func (r *Router) observeLedger() {
	metrics.LedgerEntries.Set(float64(r.ledger.Len()))
}
