package orders

import (
	"context"
	"time"

	"github.com/ariefcatur/factory-orders/internal/apperr"
	"github.com/ariefcatur/factory-orders/internal/auth"
	"github.com/ariefcatur/factory-orders/internal/catalog"
	"github.com/ariefcatur/factory-orders/internal/docstore"
	kafkax "github.com/ariefcatur/factory-orders/internal/kafka"
	"github.com/ariefcatur/factory-orders/internal/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/ariefcatur/factory-orders/internal/orders")

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	store  docstore.Store
	events Publisher
	source string
	now    func() time.Time
}

func NewService(store docstore.Store, events Publisher, source string) *Service {
	return &Service{store: store, events: events, source: source, now: time.Now}
}

// Place reserves stock for every line item and persists the order in one transaction.
// A missing client or product, a foreign client, or any shortfall leaves stock untouched.
func (s *Service) Place(ctx context.Context, actor auth.Actor, in PlaceInput) (Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Place", trace.WithAttributes(
		attribute.String("client.id", in.Client),
		attribute.Int("order.items", len(in.Items)),
	))
	defer span.End()

	if in.Status == "" {
		in.Status = StatusPending
	}
	if err := s.validatePlace(in); err != nil {
		return Order{}, s.reject(ctx, span, "place", err)
	}

	var (
		ord    Order
		levels []StockLevel
	)
	err := s.store.Tx(ctx, func(tx docstore.Store) error {
		client, err := docstore.Get[catalog.Client](ctx, tx, docstore.Clients, in.Client)
		if err != nil {
			return err
		}
		if err := catalog.CheckOwner(client, actor); err != nil {
			return err
		}
		if levels, err = reserve(ctx, tx, in.Items); err != nil {
			return err
		}
		ord = Order{
			ID:      uuid.NewString(),
			Items:   in.Items,
			Total:   in.Total,
			Client:  client.ID,
			Seller:  actor.ID,
			Status:  in.Status,
			Created: s.now().UTC(),
		}
		return tx.Insert(ctx, docstore.Orders, ord.ID, ord)
	})
	if err != nil {
		return Order{}, s.reject(ctx, span, "place", err)
	}

	metrics.OrdersPlaced.Inc()
	metrics.StockReserved.Add(float64(units(ord.Items)))
	span.SetAttributes(attribute.String("order.id", ord.ID))
	log.Ctx(ctx).Info().Str("order_id", ord.ID).Str("client_id", ord.Client).Str("seller", ord.Seller).
		Int("items", len(ord.Items)).Msg("order placed")
	s.publish(ctx, EventOrderPlaced, ord, levels)
	return ord, nil
}

// Update re-checks ownership and applies the set fields. Replacing the line items first
// returns the old quantities to stock, then reserves the new ones; a shortfall rolls
// back both.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateInput) (Order, error) {
	ctx, span := tracer.Start(ctx, "orders.Update", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if in.Items != nil {
		if err := validateItems(in.Items); err != nil {
			return Order{}, s.reject(ctx, span, "update", err)
		}
	}
	if in.Status != nil && !in.Status.Valid() {
		return Order{}, s.reject(ctx, span, "update", apperr.Invalid("unknown order status %q", *in.Status))
	}

	var (
		ord    Order
		levels []StockLevel
	)
	err := s.store.Tx(ctx, func(tx docstore.Store) error {
		var err error
		if ord, err = docstore.Get[Order](ctx, tx, docstore.Orders, id); err != nil {
			return err
		}
		client, err := docstore.Get[catalog.Client](ctx, tx, docstore.Clients, ord.Client)
		if err != nil {
			return err
		}
		if err := catalog.CheckOwner(client, actor); err != nil {
			return err
		}
		if in.Client != nil && *in.Client != ord.Client {
			next, err := docstore.Get[catalog.Client](ctx, tx, docstore.Clients, *in.Client)
			if err != nil {
				return err
			}
			if err := catalog.CheckOwner(next, actor); err != nil {
				return err
			}
			ord.Client = next.ID
		}
		if in.Items != nil {
			if ord.Status != StatusPending {
				return apperr.Invalid("line items of a %s order cannot change", ord.Status)
			}
			released, err := release(ctx, tx, ord.Items)
			if err != nil {
				return err
			}
			reserved, err := reserve(ctx, tx, in.Items)
			if err != nil {
				return err
			}
			levels = mergeLevels(released, reserved)
			ord.Items = in.Items
		}
		if in.Status != nil {
			if !CanTransition(ord.Status, *in.Status) {
				return apperr.Invalid("order cannot move from %s to %s", ord.Status, *in.Status)
			}
			ord.Status = *in.Status
		}
		if in.Total != nil {
			ord.Total = *in.Total
		}
		return tx.UpdateByID(ctx, docstore.Orders, id, ord)
	})
	if err != nil {
		return Order{}, s.reject(ctx, span, "update", err)
	}

	log.Ctx(ctx).Info().Str("order_id", ord.ID).Str("status", string(ord.Status)).
		Bool("items_replaced", in.Items != nil).Msg("order updated")
	s.publish(ctx, EventOrderUpdated, ord, levels)
	return ord, nil
}

// Delete removes an order placed by the actor. Reserved stock is not returned.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	ctx, span := tracer.Start(ctx, "orders.Delete", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	ord, err := s.Get(ctx, actor, id)
	if err != nil {
		return s.reject(ctx, span, "delete", err)
	}
	if err := s.store.DeleteByID(ctx, docstore.Orders, id); err != nil {
		return s.reject(ctx, span, "delete", err)
	}
	log.Ctx(ctx).Info().Str("order_id", id).Msg("order deleted")
	s.publish(ctx, EventOrderDeleted, ord, nil)
	return nil
}

// Get returns an order placed by the actor.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id string) (Order, error) {
	ord, err := docstore.Get[Order](ctx, s.store, docstore.Orders, id)
	if err != nil {
		return Order{}, err
	}
	if ord.Seller != actor.ID {
		return Order{}, apperr.Forbidden("order %s belongs to another seller", id)
	}
	return ord, nil
}

func (s *Service) List(ctx context.Context) ([]Order, error) {
	return docstore.List[Order](ctx, s.store, docstore.Orders, nil)
}

func (s *Service) ListMine(ctx context.Context, actor auth.Actor) ([]Order, error) {
	return docstore.List[Order](ctx, s.store, docstore.Orders, docstore.Filter{"seller": actor.ID})
}

func (s *Service) ListByStatus(ctx context.Context, actor auth.Actor, status Status) ([]Order, error) {
	if !status.Valid() {
		return nil, apperr.Invalid("unknown order status %q", status)
	}
	return docstore.List[Order](ctx, s.store, docstore.Orders, docstore.Filter{"seller": actor.ID, "status": status})
}

func (s *Service) validatePlace(in PlaceInput) error {
	if in.Client == "" {
		return apperr.Invalid("client is required")
	}
	if !in.Status.Valid() {
		return apperr.Invalid("unknown order status %q", in.Status)
	}
	if in.Total.IsNegative() {
		return apperr.Invalid("order total must not be negative")
	}
	return validateItems(in.Items)
}

func (s *Service) reject(ctx context.Context, span trace.Span, op string, err error) error {
	reason := rejectReason(err)
	metrics.OrdersRejected.WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)

	ev := log.Ctx(ctx).Info()
	if reason == "error" {
		ev = log.Ctx(ctx).Error()
	}
	ev.Err(err).Str("op", op).Str("reason", reason).Msg("order rejected")
	return err
}

func (s *Service) publish(ctx context.Context, eventType string, ord Order, levels []StockLevel) {
	if s.events == nil {
		return
	}
	payload := OrderEventPayload{
		OrderID:  ord.ID,
		ClientID: ord.Client,
		SellerID: ord.Seller,
		Status:   ord.Status,
		Items:    ord.Items,
		Total:    ord.Total,
		Stock:    levels,
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    s.now().UTC(),
		Producer:      s.source,
		TraceID:       trace.SpanContextFromContext(ctx).TraceID().String(),
		CorrelationID: ord.ID,
		Payload:       kafkax.MustMarshal(payload),
	}
	s.events.Publish(PartitionKey(ord.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

func units(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
