package order

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/online-nursery/internal/domain/product"
)

const (
	defaultCompensationTimeout = 5 * time.Second
	defaultReservationTimeout  = 5 * time.Second
)

// Options configures optional Service behaviour and collaborators.
type Options struct {
	// RequirePaymentMethod rejects requests without a payment method.
	RequirePaymentMethod bool
	// CompensationTimeout bounds the reversal of applied reservations.
	CompensationTimeout time.Duration
	// ReservationTimeout bounds each conditional decrement. Decrements run
	// detached from the caller's cancellation.
	ReservationTimeout time.Duration
	Recorder           CompensationRecorder
	Events             EventPublisher
	TracerProvider     trace.TracerProvider
	MeterProvider      metric.MeterProvider
	Now                func() time.Time
}

// Service places orders: it validates the cart, reserves stock with one
// conditional decrement per line and appends the order to the log. A
// rejected order has every applied decrement reversed before returning.
type Service struct {
	inventory InventoryStore
	orders    OrderLog
	recorder  CompensationRecorder
	events    EventPublisher

	requirePaymentMethod bool
	compensationTimeout  time.Duration
	reservationTimeout   time.Duration
	now                  func() time.Time

	tracer               trace.Tracer
	placed               metric.Int64Counter
	rejected             metric.Int64Counter
	compensationFailures metric.Int64Counter
}

// NewService creates an order Service.
func NewService(inventory InventoryStore, orders OrderLog, opts Options) (*Service, error) {
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}
	if opts.CompensationTimeout <= 0 {
		opts.CompensationTimeout = defaultCompensationTimeout
	}
	if opts.ReservationTimeout <= 0 {
		opts.ReservationTimeout = defaultReservationTimeout
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Events == nil {
		opts.Events = nopEvents{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	meter := opts.MeterProvider.Meter("github.com/xenking/online-nursery/internal/domain/order")
	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders accepted and appended to the order log"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.placed counter")
	}
	rejected, err := meter.Int64Counter("orders.rejected",
		metric.WithDescription("Orders rejected for unresolved cart items"))
	if err != nil {
		return nil, errors.Wrap(err, "orders.rejected counter")
	}
	compFailures, err := meter.Int64Counter("inventory.compensation.failures",
		metric.WithDescription("Compensating stock increments that failed"))
	if err != nil {
		return nil, errors.Wrap(err, "inventory.compensation.failures counter")
	}

	return &Service{
		inventory:            inventory,
		orders:               orders,
		recorder:             opts.Recorder,
		events:               opts.Events,
		requirePaymentMethod: opts.RequirePaymentMethod,
		compensationTimeout:  opts.CompensationTimeout,
		reservationTimeout:   opts.ReservationTimeout,
		now:                  opts.Now,
		tracer:               opts.TracerProvider.Tracer("github.com/xenking/online-nursery/internal/domain/order"),
		placed:               placed,
		rejected:             rejected,
		compensationFailures: compFailures,
	}, nil
}

// PlaceOrder validates the request, reserves stock for every cart item and
// stores the order.
//
// Errors: *ValidationError (matches ErrInvalidOrderRequest), *OutOfStockError
// when any item is unknown or short, ErrPersistence when the order log append
// fails. Other errors are store failures.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.items", len(req.CartItems))))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	if err := s.validate(req); err != nil {
		return nil, err
	}

	applied, unresolved, err := s.reserve(ctx, req.CartItems)
	if err != nil {
		s.compensate(ctx, applied, CauseStoreError)
		return nil, err
	}
	if len(unresolved) > 0 {
		s.compensate(ctx, applied, CauseOutOfStock)
		s.rejected.Add(ctx, 1)
		return nil, &OutOfStockError{Items: unresolved}
	}

	o := &Order{
		Name:          req.Name,
		Phone:         req.Phone,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		CartItems:     slices.Clone(req.CartItems),
		Status:        StatusPending,
		CreatedAt:     s.now().UTC(),
	}
	stored, err := s.orders.Append(ctx, o)
	if err != nil {
		s.compensate(ctx, applied, CausePersistence)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.placed.Add(ctx, 1)

	if err := s.events.OrderPlaced(ctx, stored); err != nil {
		zctx.From(ctx).Warn("Publish order placed event",
			zap.String("order_id", stored.ID),
			zap.Error(err),
		)
	}

	return stored, nil
}

func (s *Service) validate(req PlaceOrderRequest) error {
	switch {
	case blank(req.Name):
		return &ValidationError{Field: "name", Reason: "is required"}
	case blank(req.Phone):
		return &ValidationError{Field: "phone", Reason: "is required"}
	case blank(req.Address):
		return &ValidationError{Field: "address", Reason: "is required"}
	case s.requirePaymentMethod && blank(req.PaymentMethod):
		return &ValidationError{Field: "paymentMethod", Reason: "is required"}
	case len(req.CartItems) == 0:
		return &ValidationError{Field: "cartItems", Reason: "must not be empty"}
	}
	for i, item := range req.CartItems {
		if blank(item.ID) {
			return &ValidationError{Field: fmt.Sprintf("cartItems[%d].id", i), Reason: "is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Field: fmt.Sprintf("cartItems[%d].quantity", i), Reason: "must be positive"}
		}
	}
	return nil
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// reserve decrements stock line by line. After the first unresolved item no
// further decrements are applied; the remaining items are only read so the
// rejection lists every item that cannot be served.
func (s *Service) reserve(ctx context.Context, items []CartItem) (applied []CartItem, unresolved []UnresolvedItem, _ error) {
	ctx, span := s.tracer.Start(ctx, "order.reserve")
	defer span.End()

	for _, item := range items {
		if len(unresolved) > 0 {
			u, err := s.probe(ctx, item)
			if err != nil {
				return applied, unresolved, err
			}
			if u != nil {
				unresolved = append(unresolved, *u)
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return applied, unresolved, errors.Wrap(err, "reserve")
		}
		_, err := s.decrement(ctx, item)
		var short *InsufficientStockError
		switch {
		case err == nil:
			applied = append(applied, item)
		case errors.Is(err, product.ErrNotFound):
			unresolved = append(unresolved, notFound(item))
		case errors.As(err, &short):
			unresolved = append(unresolved, insufficient(item, short.Available))
		default:
			return applied, unresolved, errors.Wrapf(err, "reserve product %s", item.ID)
		}
	}
	return applied, unresolved, nil
}

// decrement applies one conditional decrement. A committed decrement must
// reach applied so it can be reversed, so the call ignores the caller's
// cancellation and is bounded by the reservation timeout instead.
func (s *Service) decrement(ctx context.Context, item CartItem) (int, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.reservationTimeout)
	defer cancel()
	return s.inventory.ConditionalDecrement(ctx, item.ID, item.Quantity)
}

func (s *Service) probe(ctx context.Context, item CartItem) (*UnresolvedItem, error) {
	p, err := s.inventory.Get(ctx, item.ID)
	switch {
	case errors.Is(err, product.ErrNotFound):
		u := notFound(item)
		return &u, nil
	case err != nil:
		return nil, errors.Wrapf(err, "check product %s", item.ID)
	case p.Quantity < item.Quantity:
		u := insufficient(item, p.Quantity)
		return &u, nil
	}
	return nil, nil
}

func notFound(item CartItem) UnresolvedItem {
	return UnresolvedItem{ID: item.ID, Quantity: item.Quantity, Reason: ReasonProductNotFound}
}

func insufficient(item CartItem, available int) UnresolvedItem {
	u := UnresolvedItem{ID: item.ID, Quantity: item.Quantity, Reason: ReasonInsufficientStock}
	if available >= 0 {
		u.AvailableQuantity = &available
	}
	return u
}

// compensate returns applied reservations to stock. It runs detached from
// the caller's cancellation. Failed increments are logged and recorded.
func (s *Service) compensate(ctx context.Context, applied []CartItem, cause CompensationCause) {
	if len(applied) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "order.compensate", trace.WithAttributes(
		attribute.String("compensation.cause", string(cause)),
		attribute.Int("compensation.items", len(applied)),
	))
	defer span.End()

	lg := zctx.From(ctx)
	for i := len(applied) - 1; i >= 0; i-- {
		item := applied[i]
		err := s.inventory.Increment(ctx, item.ID, item.Quantity)
		if err == nil {
			continue
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "compensation failed")
		s.compensationFailures.Add(ctx, 1)
		lg.Error("Compensating stock increment failed",
			zap.String("product_id", item.ID),
			zap.Int("quantity", item.Quantity),
			zap.String("cause", string(cause)),
			zap.Error(err),
		)

		f := CompensationFailure{
			ProductID:  item.ID,
			Quantity:   item.Quantity,
			Cause:      cause,
			Error:      err.Error(),
			OccurredAt: s.now().UTC(),
		}
		if rerr := s.recorder.RecordCompensationFailure(ctx, f); rerr != nil {
			lg.Error("Record compensation failure",
				zap.String("product_id", item.ID),
				zap.Int("quantity", item.Quantity),
				zap.Error(rerr),
			)
		}
	}
}

type nopRecorder struct{}

func (nopRecorder) RecordCompensationFailure(context.Context, CompensationFailure) error { return nil }

type nopEvents struct{}

func (nopEvents) OrderPlaced(context.Context, *Order) error { return nil }
