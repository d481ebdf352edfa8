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
	eventPaymentRecorded  = "payment.recorded"
	eventPaymentCollected = "payment.collected"
)

var (
	// ErrPaymentInvalidInput signals the caller provided invalid arguments.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentNotFound indicates the payment could not be located.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrPaymentCashLimit indicates a cash payment exceeds the legal ceiling.
	ErrPaymentCashLimit = errors.New("payment: cash ceiling exceeded")
	// ErrPaymentExceedsRemaining indicates the amount is larger than the order's balance.
	ErrPaymentExceedsRemaining = errors.New("payment: amount exceeds remaining balance")
)

// PaymentServiceDeps bundles the collaborators required to construct a payment service.
type PaymentServiceDeps struct {
	Orders      repositories.OrderRepository
	Payments    repositories.PaymentRepository
	Events      PaymentEventPublisher
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	orders   repositories.OrderRepository
	payments repositories.PaymentRepository
	events   PaymentEventPublisher
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("payment service: order repository is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payment service: payment repository is required")
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

	return &paymentService{
		orders:   deps.Orders,
		payments: deps.Payments,
		events:   deps.Events,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *paymentService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (domain.Payment, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Payment{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}
	if !cmd.Amount.IsPositive() {
		return domain.Payment{}, fmt.Errorf("%w: amount must be positive", ErrPaymentInvalidInput)
	}
	method, err := normalizePaymentMethod(cmd.Method)
	if err != nil {
		return domain.Payment{}, err
	}

	amount := domain.RoundMoney(cmd.Amount)
	// The cash ceiling applies before any balance check.
	if method == domain.PaymentMethodCash && amount.GreaterThan(domain.CashPaymentCeiling) {
		return domain.Payment{}, fmt.Errorf("%w: %s exceeds %s", ErrPaymentCashLimit, amount.StringFixed(2), domain.CashPaymentCeiling.StringFixed(2))
	}

	paymentStatus := domain.PaymentStatusPending
	if cmd.Collected {
		paymentStatus = domain.PaymentStatusCollected
	}

	result, err := s.orders.RecordPayment(ctx, repositories.PaymentRecordRequest{
		OrderID: orderID,
		Payment: domain.Payment{
			ID:        ensurePaymentID(s.newID()),
			Amount:    amount,
			Method:    method,
			Status:    paymentStatus,
			Reference: strings.TrimSpace(cmd.Reference),
			BankName:  strings.TrimSpace(cmd.BankName),
			DueDate:   normalizeDueDate(cmd.DueDate),
		},
		Now: s.now(),
	})
	if err != nil {
		return domain.Payment{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "payment_recorded", map[string]any{
		"paymentId": result.Payment.ID,
		"orderId":   orderID,
		"number":    result.Payment.Number,
		"remaining": result.Order.RemainingAmount.StringFixed(2),
	})
	s.logEventFailure(ctx, s.emitPaymentEvent(ctx, eventPaymentRecorded, result.Payment, cmd.ActorID))

	return result.Payment, nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID string) (domain.Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.Payment{}, fmt.Errorf("%w: payment id is required", ErrPaymentInvalidInput)
	}
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, s.mapRepositoryError(err)
	}
	return payment, nil
}

func (s *paymentService) ListPayments(ctx context.Context, filter PaymentFilter) (domain.CursorPage[domain.Payment], error) {
	page, err := s.payments.List(ctx, repositories.PaymentListFilter{
		OrderID:    strings.TrimSpace(filter.OrderID),
		Status:     filter.Status,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.Payment]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *paymentService) UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (domain.Payment, error) {
	paymentID := strings.TrimSpace(cmd.PaymentID)
	if paymentID == "" {
		return domain.Payment{}, fmt.Errorf("%w: payment id is required", ErrPaymentInvalidInput)
	}
	switch cmd.Status {
	case domain.PaymentStatusPending, domain.PaymentStatusCollected, domain.PaymentStatusRejected:
	default:
		return domain.Payment{}, fmt.Errorf("%w: unknown status %q", ErrPaymentInvalidInput, cmd.Status)
	}

	payment, err := s.payments.UpdateStatus(ctx, repositories.PaymentStatusUpdate{
		PaymentID: paymentID,
		Status:    cmd.Status,
		Now:       s.now(),
	})
	if err != nil {
		return domain.Payment{}, s.mapRepositoryError(err)
	}

	if payment.Status == domain.PaymentStatusCollected {
		s.logEventFailure(ctx, s.emitPaymentEvent(ctx, eventPaymentCollected, payment, cmd.ActorID))
	}

	return payment, nil
}

func (s *paymentService) now() time.Time {
	return s.clock()
}

func (s *paymentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		switch orderErr.Code {
		case repositories.OrderErrorNotFound:
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderErr.Message)
		case repositories.OrderErrorOverpayment:
			return fmt.Errorf("%w: %s", ErrPaymentExceedsRemaining, orderErr.Message)
		case repositories.OrderErrorPaymentNotFound:
			return fmt.Errorf("%w: %s", ErrPaymentNotFound, orderErr.Message)
		}
	}

	if isRepositoryNotFound(err) {
		return fmt.Errorf("%w: %s", ErrPaymentNotFound, err.Error())
	}

	return err
}

func (s *paymentService) emitPaymentEvent(ctx context.Context, eventType string, payment domain.Payment, actorID string) error {
	if s.events == nil {
		return nil
	}

	occurredAt := payment.UpdatedAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	return s.events.PublishPaymentEvent(ctx, PaymentEvent{
		Type:       eventType,
		PaymentID:  payment.ID,
		OrderID:    payment.OrderID,
		Number:     payment.Number,
		Amount:     payment.Amount.StringFixed(2),
		Method:     string(payment.Method),
		Status:     string(payment.Status),
		ActorID:    strings.TrimSpace(actorID),
		OccurredAt: occurredAt,
	})
}

func (s *paymentService) logEventFailure(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if s.logger != nil {
		s.logger(ctx, "payment_event_publish_failed", map[string]any{"error": err.Error()})
	}
}

func normalizePaymentMethod(method domain.PaymentMethod) (domain.PaymentMethod, error) {
	normalized := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(string(method))))
	switch normalized {
	case domain.PaymentMethodCash, domain.PaymentMethodCheque, domain.PaymentMethodTransfer, domain.PaymentMethodCard:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", ErrPaymentInvalidInput, method)
	}
}

func normalizeDueDate(due *time.Time) *time.Time {
	if due == nil {
		return nil
	}
	utc := due.UTC()
	return &utc
}

func ensurePaymentID(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		trimmed = ulid.Make().String()
	}
	if strings.HasPrefix(trimmed, "pay_") {
		return trimmed
	}
	return "pay_" + trimmed
}
