package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/repositories"
)

func newPaymentServiceForTest(t *testing.T, deps PaymentServiceDeps) PaymentService {
	t.Helper()
	if deps.Orders == nil {
		deps.Orders = &stubOrderRepo{}
	}
	if deps.Payments == nil {
		deps.Payments = &stubPaymentRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time {
			return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
		}
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "TESTID" }
	}
	svc, err := NewPaymentService(deps)
	if err != nil {
		t.Fatalf("new payment service: %v", err)
	}
	return svc
}

func TestPaymentServiceCashCeilingCheckedBeforeBalance(t *testing.T) {
	recorded := false
	orders := &stubOrderRepo{
		recordPaymentFn: func(context.Context, repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
			recorded = true
			return repositories.PaymentRecordResult{}, repositories.NewOrderError(repositories.OrderErrorOverpayment, "exceeds remaining", nil)
		},
	}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Orders: orders})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID: "ord_1",
		Amount:  decimal.RequireFromString("20000.01"),
		Method:  domain.PaymentMethodCash,
	})
	if !errors.Is(err, ErrPaymentCashLimit) {
		t.Fatalf("expected ErrPaymentCashLimit, got %v", err)
	}
	if recorded {
		t.Fatal("ledger must not be touched when the cash ceiling rejects the payment")
	}
}

func TestPaymentServiceCashCeilingAllowsExactLimit(t *testing.T) {
	orders := &stubOrderRepo{
		recordPaymentFn: func(_ context.Context, req repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
			payment := req.Payment
			payment.Number = 1
			return repositories.PaymentRecordResult{Payment: payment, Order: domain.Order{ID: req.OrderID}}, nil
		},
	}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Orders: orders})

	payment, err := svc.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID: "ord_1",
		Amount:  decimal.RequireFromString("20000.00"),
		Method:  domain.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if got := payment.Amount.StringFixed(2); got != "20000.00" {
		t.Fatalf("amount = %s, want 20000.00", got)
	}
}

func TestPaymentServiceRecordPaymentAssignsIDAndEmitsEvent(t *testing.T) {
	orders := &stubOrderRepo{
		recordPaymentFn: func(_ context.Context, req repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
			if !strings.HasPrefix(req.Payment.ID, "pay_") {
				t.Fatalf("payment id %s should carry the pay_ prefix", req.Payment.ID)
			}
			if req.Payment.Status != domain.PaymentStatusPending {
				t.Fatalf("expected PENDING status, got %s", req.Payment.Status)
			}
			payment := req.Payment
			payment.OrderID = req.OrderID
			payment.Number = 3
			payment.CreatedAt = req.Now
			payment.UpdatedAt = req.Now
			return repositories.PaymentRecordResult{
				Payment: payment,
				Order:   domain.Order{ID: req.OrderID, RemainingAmount: decimal.RequireFromString("80.00")},
			}, nil
		},
	}
	events := &capturePaymentEvents{}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Orders: orders, Events: events})

	payment, err := svc.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID:   "ord_1",
		Amount:    decimal.RequireFromString("100.00"),
		Method:    domain.PaymentMethodTransfer,
		Reference: "VIR-2025-8871",
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if payment.Number != 3 {
		t.Fatalf("payment number = %d, want 3", payment.Number)
	}
	if len(events.events) != 1 || events.events[0].Type != eventPaymentRecorded {
		t.Fatalf("expected one payment.recorded event, got %+v", events.events)
	}
}

func TestPaymentServiceRecordPaymentMapsOverpayment(t *testing.T) {
	orders := &stubOrderRepo{
		recordPaymentFn: func(context.Context, repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
			return repositories.PaymentRecordResult{}, repositories.NewOrderError(repositories.OrderErrorOverpayment, "payment 500.00 exceeds remaining 80.00", nil)
		},
	}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Orders: orders})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID: "ord_1",
		Amount:  decimal.RequireFromString("500.00"),
		Method:  domain.PaymentMethodCard,
	})
	if !errors.Is(err, ErrPaymentExceedsRemaining) {
		t.Fatalf("expected ErrPaymentExceedsRemaining, got %v", err)
	}
}

func TestPaymentServiceRecordPaymentRejectsUnknownMethod(t *testing.T) {
	svc := newPaymentServiceForTest(t, PaymentServiceDeps{})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID: "ord_1",
		Amount:  decimal.RequireFromString("10.00"),
		Method:  "BARTER",
	})
	if !errors.Is(err, ErrPaymentInvalidInput) {
		t.Fatalf("expected ErrPaymentInvalidInput, got %v", err)
	}
}

func TestPaymentServiceUpdateStatusEmitsCollectedEvent(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	payments := &stubPaymentRepo{
		updateStatusFn: func(_ context.Context, req repositories.PaymentStatusUpdate) (domain.Payment, error) {
			if req.Status != domain.PaymentStatusCollected {
				t.Fatalf("unexpected status %s", req.Status)
			}
			return domain.Payment{
				ID:          req.PaymentID,
				OrderID:     "ord_1",
				Status:      domain.PaymentStatusCollected,
				CollectedAt: &now,
				UpdatedAt:   now,
			}, nil
		},
	}
	events := &capturePaymentEvents{}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Payments: payments, Events: events})

	payment, err := svc.UpdatePaymentStatus(context.Background(), UpdatePaymentStatusCommand{
		PaymentID: "pay_1",
		Status:    domain.PaymentStatusCollected,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if payment.CollectedAt == nil {
		t.Fatal("collectedAt should be set")
	}
	if len(events.events) != 1 || events.events[0].Type != eventPaymentCollected {
		t.Fatalf("expected one payment.collected event, got %+v", events.events)
	}
}

func TestPaymentServiceUpdateStatusAcceptsRejected(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	payments := &stubPaymentRepo{
		updateStatusFn: func(_ context.Context, req repositories.PaymentStatusUpdate) (domain.Payment, error) {
			if req.Status != domain.PaymentStatusRejected {
				t.Fatalf("unexpected status %s", req.Status)
			}
			return domain.Payment{
				ID:        req.PaymentID,
				OrderID:   "ord_1",
				Amount:    decimal.RequireFromString("300.00"),
				Status:    domain.PaymentStatusRejected,
				UpdatedAt: now,
			}, nil
		},
	}
	recorded := false
	orders := &stubOrderRepo{
		recordPaymentFn: func(context.Context, repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
			recorded = true
			return repositories.PaymentRecordResult{}, errors.New("unexpected")
		},
	}
	events := &capturePaymentEvents{}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Orders: orders, Payments: payments, Events: events})

	payment, err := svc.UpdatePaymentStatus(context.Background(), UpdatePaymentStatusCommand{
		PaymentID: "pay_1",
		Status:    domain.PaymentStatusRejected,
	})
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if payment.Status != domain.PaymentStatusRejected {
		t.Fatalf("expected REJECTED, got %s", payment.Status)
	}
	// Rejecting a payment never touches the order's remaining balance.
	if recorded {
		t.Fatal("rejection must not write to the order ledger")
	}
	if len(events.events) != 0 {
		t.Fatalf("no event expected for rejection, got %+v", events.events)
	}
}

func TestPaymentServiceRecordPaymentCarriesChequeDetails(t *testing.T) {
	due := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	var captured repositories.PaymentRecordRequest
	orders := &stubOrderRepo{
		recordPaymentFn: func(_ context.Context, req repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
			captured = req
			payment := req.Payment
			payment.Number = 1
			return repositories.PaymentRecordResult{Payment: payment, Order: domain.Order{ID: req.OrderID}}, nil
		},
	}

	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Orders: orders})

	payment, err := svc.RecordPayment(context.Background(), RecordPaymentCommand{
		OrderID:   "ord_1",
		Amount:    decimal.RequireFromString("450.00"),
		Method:    domain.PaymentMethodCheque,
		Reference: "CHQ-123",
		BankName:  "  Banque Populaire  ",
		DueDate:   &due,
	})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if captured.Payment.BankName != "Banque Populaire" {
		t.Fatalf("bank name should be trimmed, got %q", captured.Payment.BankName)
	}
	if captured.Payment.DueDate == nil || !captured.Payment.DueDate.Equal(due) {
		t.Fatalf("due date should reach the ledger, got %v", captured.Payment.DueDate)
	}
	if payment.BankName != "Banque Populaire" {
		t.Fatalf("returned payment should carry the bank name, got %q", payment.BankName)
	}
}

func TestPaymentServiceUpdateStatusUnknownPayment(t *testing.T) {
	payments := &stubPaymentRepo{
		updateStatusFn: func(context.Context, repositories.PaymentStatusUpdate) (domain.Payment, error) {
			return domain.Payment{}, repositories.NewOrderError(repositories.OrderErrorPaymentNotFound, "payment pay_x not found", nil)
		},
	}
	svc := newPaymentServiceForTest(t, PaymentServiceDeps{Payments: payments})

	_, err := svc.UpdatePaymentStatus(context.Background(), UpdatePaymentStatusCommand{
		PaymentID: "pay_x",
		Status:    domain.PaymentStatusCollected,
	})
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}
