// Package service implements the processing of a single item ordered event
package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"orderconsumer/internal/config"
	"orderconsumer/internal/interfaces"
	"orderconsumer/internal/models"
	"orderconsumer/internal/routing"
	"os"
	"time"
)

const processTimeout = 30 * time.Second

// An ItemProcessor forwards ordered items to the order API as missing image delivery requests
type ItemProcessor struct {
	api    interfaces.OrderAPI
	lookup interfaces.LookupStore
	cfg    config.LookupConfig
	path   string
	logger *zerolog.Logger
}

// NewItemProcessor creates a processor posting to path, lookup may be nil to skip entity ids
func NewItemProcessor(
	api interfaces.OrderAPI, lookup interfaces.LookupStore, cfg config.LookupConfig, path string,
	logger *zerolog.Logger,
) *ItemProcessor {
	if logger == nil {
		l := zerolog.New(os.Stdout).With().Timestamp().Logger()
		logger = &l
	}
	return &ItemProcessor{api: api, lookup: lookup, cfg: cfg, path: path, logger: logger}
}

// Process sends one ordered item downstream and classifies the result as a typed error
func (s *ItemProcessor) Process(ctx context.Context, order *models.ItemOrdered) error {
	start := time.Now()

	if order == nil {
		return models.NewPermanentError("order cannot be nil", nil)
	}
	if err := order.Validate(); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_reference", order.LogicalID()).
			Msg("Item ordered validation failed")
		return models.NewPermanentError("validation failed", err)
	}

	processCtx, cancel := context.WithTimeout(ctx, processTimeout)
	defer cancel()

	request := models.NewMissingImageDeliveryRequest(order)
	entityID, err := s.entityID(processCtx, order.PaymentReference)
	if err != nil {
		return err
	}
	request.EntityID = entityID

	status, body, err := s.api.Create(processCtx, s.path, request)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		reason := "order api unreachable"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "order api circuit open"
		}
		s.logger.Warn().
			Err(err).
			Str("order_reference", order.LogicalID()).
			Dur("duration", duration).
			Msg("Order API request failed")
		return models.NewRetryableError(reason, err)
	}

	switch routing.ClassifyStatus(status) {
	case routing.Success:
		s.logger.Info().
			Str("order_reference", order.LogicalID()).
			Str("item_id", order.Item.ID).
			Int("status", status).
			Dur("duration", duration).
			Msg("Missing image delivery created")
		return nil
	case routing.Duplicate:
		return &models.DuplicateError{ID: order.Item.ID, Err: statusErr(status, body)}
	case routing.Permanent:
		return models.NewPermanentError(fmt.Sprintf("order api rejected item %s", order.Item.ID), statusErr(status, body))
	default:
		return models.NewRetryableError(fmt.Sprintf("order api failed for item %s", order.Item.ID), statusErr(status, body))
	}
}

// entityID resolves the entity id of a payment, absent ids are left empty
func (s *ItemProcessor) entityID(ctx context.Context, paymentReference string) (string, error) {
	if s.lookup == nil || paymentReference == "" {
		return "", nil
	}

	value, found, err := s.lookup.Lookup(ctx, s.cfg.Collection, paymentReference, s.cfg.Field)
	if err != nil {
		return "", models.NewRetryableError("entity id lookup failed", err)
	}
	if !found {
		s.logger.Debug().
			Str("payment_reference", paymentReference).
			Msg("No entity id for payment reference")
		return "", nil
	}
	return value, nil
}

func statusErr(status int, body []byte) error {
	const maxBody = 256
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return fmt.Errorf("status %d: %s", status, body)
}
