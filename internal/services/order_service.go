package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/repositories"
)

const (
	eventOrderCreated   = "order.created"
	eventOrderRejected  = "order.rejected"
	eventOrderConfirmed = "order.confirmed"
	eventOrderCanceled  = "order.canceled"

	orderNumberCounterPrefix = "orders"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid arguments.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderEmptyItems indicates creation was requested without any line.
	ErrOrderEmptyItems = errors.New("order: item list is empty")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates the order cannot transition from its current status.
	ErrOrderInvalidState = errors.New("order: state invalid")
	// ErrOrderNotPaid indicates confirmation was requested with an outstanding balance.
	ErrOrderNotPaid = errors.New("order: balance outstanding")
	// ErrOrderRejected indicates the order failed a business validation and was stored as REJECTED.
	ErrOrderRejected = errors.New("order: rejected")
	// ErrStockInsufficient indicates a product cannot cover the requested quantity.
	ErrStockInsufficient = errors.New("order: insufficient stock")
	// ErrProductUnavailable indicates a referenced product is missing or withdrawn.
	ErrProductUnavailable = errors.New("order: product unavailable")
)

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Clients     repositories.ClientRepository
	Products    repositories.ProductRepository
	PromoCodes  repositories.PromoCodeRepository
	Counters    repositories.CounterRepository
	Events      OrderEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders   repositories.OrderRepository
	clients  repositories.ClientRepository
	products repositories.ProductRepository
	promos   repositories.PromoCodeRepository
	counters repositories.CounterRepository
	events   OrderEventPublisher
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Clients == nil {
		return nil, errors.New("order service: client repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.PromoCodes == nil {
		return nil, errors.New("order service: promo code repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:   deps.Orders,
		clients:  deps.Clients,
		products: deps.Products,
		promos:   deps.PromoCodes,
		counters: deps.Counters,
		events:   deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if err := validateCreateOrderInput(cmd); err != nil {
		return domain.Order{}, err
	}

	client, err := s.clients.FindByID(ctx, strings.TrimSpace(cmd.ClientID))
	if err != nil {
		if isRepositoryNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: client %s not found", ErrOrderInvalidInput, cmd.ClientID)
		}
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.now()
	promoCode := strings.ToUpper(strings.TrimSpace(cmd.PromoCode))

	items, rejection, err := s.resolveOrderLines(ctx, cmd.Lines)
	if err != nil {
		return domain.Order{}, err
	}
	// Promo problems fail the call outright; only product and stock failures
	// persist the order as REJECTED.
	if rejection == nil && promoCode != "" {
		if err := s.checkPromoCode(ctx, promoCode); err != nil {
			return domain.Order{}, err
		}
	}

	if rejection != nil {
		rejected := domain.Order{
			ID:              ensureOrderID(s.newID()),
			ClientID:        client.ID,
			Status:          domain.OrderStatusRejected,
			Items:           items,
			PromoCode:       promoCode,
			RejectionReason: rejection.reason,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.orders.Insert(ctx, rejected); err != nil {
			return domain.Order{}, s.mapRepositoryError(err)
		}
		s.logEventFailure(ctx, s.emitOrderEvent(ctx, eventOrderRejected, rejected, cmd.ActorID, rejection.reason))
		return rejected, fmt.Errorf("%w: %s", rejection.sentinel, rejection.reason)
	}

	number, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	pricing := domain.PriceOrder(items, client.Tier, promoCode != "")
	order := domain.Order{
		ID:              ensureOrderID(s.newID()),
		Number:          number,
		ClientID:        client.ID,
		Status:          domain.OrderStatusPending,
		Items:           items,
		PromoCode:       promoCode,
		Subtotal:        pricing.Subtotal,
		LoyaltyDiscount: pricing.LoyaltyDiscount,
		PromoDiscount:   pricing.PromoDiscount,
		TotalHT:         pricing.TotalHT,
		TaxAmount:       pricing.TaxAmount,
		TotalTTC:        pricing.TotalTTC,
		RemainingAmount: pricing.TotalTTC,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.logEventFailure(ctx, s.emitOrderEvent(ctx, eventOrderCreated, order, cmd.ActorID, ""))

	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) (domain.CursorPage[domain.Order], error) {
	req := repositories.OrderListFilter{
		ClientID: strings.TrimSpace(filter.ClientID),
		Status:   filter.Status,
		DateRange: domain.RangeQuery[time.Time]{
			From: filter.From,
			To:   filter.To,
		},
		Pagination: filter.Pagination,
	}
	page, err := s.orders.List(ctx, req)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) ConfirmOrder(ctx context.Context, cmd ConfirmOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	result, err := s.orders.Confirm(ctx, repositories.OrderConfirmRequest{
		OrderID: orderID,
		ActorID: strings.TrimSpace(cmd.ActorID),
		Now:     s.now(),
	})
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order_confirmed", map[string]any{
		"orderId":  result.Order.ID,
		"clientId": result.Client.ID,
		"tier":     string(result.Client.Tier),
	})
	s.logEventFailure(ctx, s.emitOrderEvent(ctx, eventOrderConfirmed, result.Order, cmd.ActorID, ""))

	return result.Order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.Cancel(ctx, repositories.OrderCancelRequest{
		OrderID: orderID,
		ActorID: strings.TrimSpace(cmd.ActorID),
		Reason:  strings.TrimSpace(cmd.Reason),
		Now:     s.now(),
	})
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.logEventFailure(ctx, s.emitOrderEvent(ctx, eventOrderCanceled, order, cmd.ActorID, order.CancelReason))

	return order, nil
}

type orderRejection struct {
	sentinel error
	reason   string
}

// resolveOrderLines loads the referenced products and prices each line. A
// business failure (missing or withdrawn product, insufficient stock) does not
// abort creation: it is reported as a rejection so the order can be stored as
// REJECTED.
func (s *orderService) resolveOrderLines(ctx context.Context, lines []OrderLineInput) ([]domain.OrderItem, *orderRejection, error) {
	items := make([]domain.OrderItem, 0, len(lines))
	requested := make(map[string]int)

	for _, line := range lines {
		productID := strings.TrimSpace(line.ProductID)
		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if isRepositoryNotFound(err) {
				return nil, &orderRejection{sentinel: ErrProductUnavailable, reason: fmt.Sprintf("product %s not found", productID)}, nil
			}
			return nil, nil, s.mapRepositoryError(err)
		}
		if product.Deleted {
			return nil, &orderRejection{sentinel: ErrProductUnavailable, reason: fmt.Sprintf("product %s is no longer sold", productID)}, nil
		}

		requested[productID] += line.Quantity
		if product.Stock < requested[productID] {
			return nil, &orderRejection{sentinel: ErrStockInsufficient, reason: fmt.Sprintf("insufficient stock for product %s", productID)}, nil
		}

		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.UnitPrice,
			Quantity:    line.Quantity,
			LineTotal:   domain.PriceLine(product.UnitPrice, line.Quantity),
		})
	}

	return items, nil, nil
}

func (s *orderService) checkPromoCode(ctx context.Context, code string) error {
	if !domain.ValidPromoCode(code) {
		return fmt.Errorf("%w: promo code %s is malformed", ErrPromoInvalidCode, code)
	}
	promo, err := s.promos.FindByCode(ctx, code)
	if err != nil {
		if isRepositoryNotFound(err) {
			return fmt.Errorf("%w: promo code %s not found", ErrPromoNotFound, code)
		}
		return s.mapRepositoryError(err)
	}
	if promo.Used {
		return fmt.Errorf("%w: promo code %s already used", ErrPromoAlreadyUsed, code)
	}
	return nil
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	year := now.Year()
	seq, err := s.counters.Next(ctx, fmt.Sprintf("%s-%d", orderNumberCounterPrefix, year), 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SO-%d-%06d", year, seq), nil
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func validateCreateOrderInput(cmd CreateOrderCommand) error {
	if strings.TrimSpace(cmd.ClientID) == "" {
		return fmt.Errorf("%w: client id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrOrderEmptyItems)
	}
	for _, line := range cmd.Lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: line product id is required", ErrOrderInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for %s must be positive", ErrOrderInvalidInput, line.ProductID)
		}
	}
	return nil
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		switch orderErr.Code {
		case repositories.OrderErrorNotFound:
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderErr.Message)
		case repositories.OrderErrorInvalidState:
			return fmt.Errorf("%w: %s", ErrOrderInvalidState, orderErr.Message)
		case repositories.OrderErrorUnpaidBalance:
			return fmt.Errorf("%w: %s", ErrOrderNotPaid, orderErr.Message)
		case repositories.OrderErrorInsufficientStock:
			return fmt.Errorf("%w: %s", ErrStockInsufficient, orderErr.Message)
		case repositories.OrderErrorProductUnavailable:
			return fmt.Errorf("%w: %s", ErrProductUnavailable, orderErr.Message)
		case repositories.OrderErrorClientNotFound:
			return fmt.Errorf("%w: %s", ErrClientNotFound, orderErr.Message)
		case repositories.OrderErrorPromoNotFound:
			return fmt.Errorf("%w: %s", ErrPromoNotFound, orderErr.Message)
		case repositories.OrderErrorPromoUsed:
			return fmt.Errorf("%w: %s", ErrPromoAlreadyUsed, orderErr.Message)
		}
	}

	if isRepositoryNotFound(err) {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, err.Error())
	}

	return err
}

func (s *orderService) emitOrderEvent(ctx context.Context, eventType string, order domain.Order, actorID, reason string) error {
	if s.events == nil {
		return nil
	}

	occurredAt := order.UpdatedAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	event := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.Number,
		ClientID:    order.ClientID,
		Status:      string(order.Status),
		TotalTTC:    order.TotalTTC.StringFixed(2),
		Remaining:   order.RemainingAmount.StringFixed(2),
		Reason:      strings.TrimSpace(reason),
		ActorID:     strings.TrimSpace(actorID),
		OccurredAt:  occurredAt,
	}
	return s.events.PublishOrderEvent(ctx, event)
}

func (s *orderService) logEventFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if s.logger != nil {
		s.logger(ctx, "order_event_publish_failed", map[string]any{"error": err.Error()})
	}
}

func ensureOrderID(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		trimmed = ulid.Make().String()
	}
	if strings.HasPrefix(trimmed, "ord_") {
		return trimmed
	}
	return "ord_" + trimmed
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}

func isRepositoryConflict(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsConflict()
	}
	return false
}
