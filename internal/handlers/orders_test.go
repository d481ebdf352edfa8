package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/services"
)

func newOrderRouter(orders services.OrderService, payments services.PaymentService) http.Handler {
	h := NewOrderHandlers(orders, payments)
	return NewRouter(WithOrderRoutes(h.Routes))
}

func sampleOrder() domain.Order {
	created := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:       "ord_1",
		Number:   "SO-2025-000001",
		ClientID: "cli_1",
		Status:   domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{
				ProductID:   "prd_1",
				ProductName: "Desk",
				UnitPrice:   decimal.RequireFromString("250.00"),
				Quantity:    4,
				LineTotal:   decimal.RequireFromString("1000.00"),
			},
		},
		Subtotal:        decimal.RequireFromString("1000.00"),
		LoyaltyDiscount: decimal.RequireFromString("100.00"),
		PromoDiscount:   decimal.Zero,
		TotalHT:         decimal.RequireFromString("900.00"),
		TaxAmount:       decimal.RequireFromString("180.00"),
		TotalTTC:        decimal.RequireFromString("1080.00"),
		RemainingAmount: decimal.RequireFromString("1080.00"),
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func TestOrderHandlersCreateOrder(t *testing.T) {
	var captured services.CreateOrderCommand
	orders := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
			captured = cmd
			return sampleOrder(), nil
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	body := `{"client_id":"cli_1","lines":[{"product_id":"prd_1","quantity":4}],"promo_code":"PROMO-AB12"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	req.Header.Set(actorHeader, "staff-7")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ClientID != "cli_1" || captured.PromoCode != "PROMO-AB12" {
		t.Fatalf("unexpected command %#v", captured)
	}
	if captured.ActorID != "staff-7" {
		t.Fatalf("expected actor from header, got %q", captured.ActorID)
	}
	if len(captured.Lines) != 1 || captured.Lines[0].Quantity != 4 {
		t.Fatalf("unexpected lines %#v", captured.Lines)
	}

	var resp struct {
		Order orderPayload `json:"order"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Order.TotalTTC != "1080.00" {
		t.Fatalf("total_ttc = %s", resp.Order.TotalTTC)
	}
	if resp.Order.Number != "SO-2025-000001" {
		t.Fatalf("number = %s", resp.Order.Number)
	}
}

func TestOrderHandlersCreateOrderRejected(t *testing.T) {
	rejected := sampleOrder()
	rejected.Status = domain.OrderStatusRejected
	rejected.Number = ""
	rejected.RejectionReason = "insufficient stock for product prd_1"

	orders := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return rejected, fmt.Errorf("%w: insufficient stock for product prd_1", services.ErrStockInsufficient)
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	body := `{"client_id":"cli_1","lines":[{"product_id":"prd_1","quantity":400}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}

	var resp orderRejectedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Error != "order_rejected" {
		t.Fatalf("error = %s", resp.Error)
	}
	if resp.Order.Status != string(domain.OrderStatusRejected) {
		t.Fatalf("order status = %s", resp.Order.Status)
	}
	if resp.Reason == "" {
		t.Fatal("expected rejection reason")
	}
}

func TestOrderHandlersCreateOrderEmptyItems(t *testing.T) {
	orders := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: at least one line is required", services.ErrOrderEmptyItems)
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	body := `{"client_id":"cli_1","lines":[]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "order_empty_items") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestOrderHandlersGetOrderNotFound(t *testing.T) {
	router := newOrderRouter(&stubOrderService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/ord_missing", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestOrderHandlersConfirmOrderConflict(t *testing.T) {
	orders := &stubOrderService{
		confirmFn: func(context.Context, services.ConfirmOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: order is CANCELED", services.ErrOrderInvalidState)
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1:confirm", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestOrderHandlersConfirmOrderUnpaid(t *testing.T) {
	orders := &stubOrderService{
		confirmFn: func(context.Context, services.ConfirmOrderCommand) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: 80.00 outstanding", services.ErrOrderNotPaid)
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1:confirm", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}
}

func TestOrderHandlersCancelOrderPassesReason(t *testing.T) {
	var captured services.CancelOrderCommand
	canceled := sampleOrder()
	canceled.Status = domain.OrderStatusCanceled
	orders := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
			captured = cmd
			return canceled, nil
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	body := `{"reason":"customer changed their mind"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1:cancel", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" {
		t.Fatalf("order id = %s", captured.OrderID)
	}
	if captured.Reason != "customer changed their mind" {
		t.Fatalf("reason = %q", captured.Reason)
	}
}

func TestOrderHandlersCancelOrderEmptyBodyAllowed(t *testing.T) {
	orders := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
			if cmd.Reason != "" {
				t.Fatalf("expected empty reason, got %q", cmd.Reason)
			}
			return sampleOrder(), nil
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1:cancel", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestOrderHandlersRecordPayment(t *testing.T) {
	var captured services.RecordPaymentCommand
	payments := &stubPaymentService{
		recordFn: func(_ context.Context, cmd services.RecordPaymentCommand) (domain.Payment, error) {
			captured = cmd
			return domain.Payment{
				ID:      "pay_1",
				OrderID: cmd.OrderID,
				Number:  1,
				Amount:  cmd.Amount,
				Method:  cmd.Method,
				Status:  domain.PaymentStatusPending,
			}, nil
		},
	}
	router := newOrderRouter(&stubOrderService{}, payments)

	body := `{"amount":"500.00","method":"cheque","reference":"CHQ-44","bank_name":"Banque Populaire","due_date":"2025-07-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1/payments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.OrderID != "ord_1" {
		t.Fatalf("order id = %s", captured.OrderID)
	}
	if captured.Method != domain.PaymentMethodCheque {
		t.Fatalf("method should be upper-cased, got %s", captured.Method)
	}
	if !captured.Amount.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("amount = %s", captured.Amount)
	}
	if captured.BankName != "Banque Populaire" {
		t.Fatalf("bank name = %q", captured.BankName)
	}
	wantDue := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if captured.DueDate == nil || !captured.DueDate.Equal(wantDue) {
		t.Fatalf("due date = %v", captured.DueDate)
	}
}

func TestOrderHandlersRecordPaymentBadDueDate(t *testing.T) {
	router := newOrderRouter(&stubOrderService{}, &stubPaymentService{})

	body := `{"amount":"500.00","method":"cheque","due_date":"next week"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1/payments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestOrderHandlersRecordPaymentCashLimit(t *testing.T) {
	payments := &stubPaymentService{
		recordFn: func(context.Context, services.RecordPaymentCommand) (domain.Payment, error) {
			return domain.Payment{}, fmt.Errorf("%w: 20000.01", services.ErrPaymentCashLimit)
		},
	}
	router := newOrderRouter(&stubOrderService{}, payments)

	body := `{"amount":"20000.01","method":"CASH"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1/payments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rr.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp["error"] != "payment_cash_limit" {
		t.Fatalf("error = %v", resp["error"])
	}
}

func TestOrderHandlersRecordPaymentBadAmount(t *testing.T) {
	router := newOrderRouter(&stubOrderService{}, &stubPaymentService{})

	body := `{"amount":"abc","method":"CASH"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/ord_1/payments", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOrderHandlersListOrdersFilters(t *testing.T) {
	var captured services.OrderFilter
	orders := &stubOrderService{
		listFn: func(_ context.Context, filter services.OrderFilter) (domain.CursorPage[domain.Order], error) {
			captured = filter
			return domain.CursorPage[domain.Order]{
				Items:         []domain.Order{sampleOrder()},
				NextPageToken: "token-2",
			}, nil
		},
	}
	router := newOrderRouter(orders, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders?client_id=cli_1&status=PENDING,CONFIRMED&page_size=5", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ClientID != "cli_1" {
		t.Fatalf("client id = %s", captured.ClientID)
	}
	if len(captured.Status) != 2 || captured.Status[0] != domain.OrderStatusPending {
		t.Fatalf("status filter = %#v", captured.Status)
	}
	if captured.Pagination.PageSize != 5 {
		t.Fatalf("page size = %d", captured.Pagination.PageSize)
	}

	var resp listResponse[orderSummaryPayload]
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.NextPageToken != "token-2" {
		t.Fatalf("unexpected response %#v", resp)
	}
}
