// Package inventory consumes order events to keep read-side state current: cached orders
// and reports are invalidated and the low-stock set follows the reported stock levels.
package inventory

import (
	"context"
	"encoding/json"
	"time"

	kafkax "github.com/ariefcatur/factory-orders/internal/kafka"
	"github.com/ariefcatur/factory-orders/internal/metrics"
	"github.com/ariefcatur/factory-orders/internal/orders"
	"github.com/ariefcatur/factory-orders/internal/redisx"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
)

// Cache is satisfied by *redisx.Cache.
type Cache interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	InvalidateReports(ctx context.Context) error
	SetLowStock(ctx context.Context, product string, low bool) error
}

type Service struct {
	cache     Cache
	threshold int
	name      string
}

func NewService(cache Cache, threshold int, name string) *Service {
	return &Service{cache: cache, threshold: threshold, name: name}
}

// HandleOrderEvent is the consumer handler for the order events topic.
func (s *Service) HandleOrderEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// A broken message never becomes readable; commit it.
		log.Ctx(ctx).Error().Err(err).Int64("offset", m.Offset).Msg("drop undecodable event")
		metrics.EventsHandled.WithLabelValues("unknown", "dropped").Inc()
		return nil
	}
	if env.EventType == "" {
		env.EventType = kafkax.Header(m, "x-event-type")
	}
	logger := log.Ctx(ctx).With().Str("event_id", env.EventID).Str("event_type", env.EventType).
		Str("order_id", env.CorrelationID).Logger()

	switch env.EventType {
	case orders.EventOrderPlaced, orders.EventOrderUpdated, orders.EventOrderDeleted:
	default:
		metrics.EventsHandled.WithLabelValues(env.EventType, "ignored").Inc()
		return nil
	}

	dkey := redisx.DedupKey(s.name, env.EventID)
	first, err := s.cache.MarkOnce(ctx, dkey, redisx.TTLDedup)
	if err != nil {
		return err
	}
	if !first {
		logger.Debug().Msg("duplicate event")
		metrics.EventsHandled.WithLabelValues(env.EventType, "duplicate").Inc()
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		// Unmark so the consumer's retry is processed.
		if derr := s.cache.Delete(ctx, dkey); derr != nil {
			logger.Warn().Err(derr).Msg("unmark event")
		}
		metrics.EventsHandled.WithLabelValues(env.EventType, "failed").Inc()
		return err
	}
	logger.Debug().Msg("event applied")
	metrics.EventsHandled.WithLabelValues(env.EventType, "applied").Inc()
	return nil
}

func (s *Service) apply(ctx context.Context, env orders.Envelope) error {
	p, err := kafkax.UnwrapPayload[orders.OrderEventPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, redisx.OrderKey(p.OrderID)); err != nil {
		return errors.Wrap(err, "invalidate order")
	}
	if err := s.cache.InvalidateReports(ctx); err != nil {
		return errors.Wrap(err, "invalidate reports")
	}
	for _, lvl := range p.Stock {
		low := lvl.Remaining < s.threshold
		if err := s.cache.SetLowStock(ctx, lvl.ProductID, low); err != nil {
			return errors.Wrapf(err, "low stock %s", lvl.ProductID)
		}
		if low {
			log.Ctx(ctx).Warn().Str("product_id", lvl.ProductID).Int("remaining", lvl.Remaining).Msg("product stock low")
		}
	}
	return nil
}
