package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/platform/httpx"
	"github.com/smartshop/api/internal/services"
)

const maxOrderBodySize = 64 * 1024

// OrderHandlers exposes the order lifecycle and its payment ledger endpoints.
type OrderHandlers struct {
	orders   services.OrderService
	payments services.PaymentService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(orders services.OrderService, payments services.PaymentService) *OrderHandlers {
	return &OrderHandlers{
		orders:   orders,
		payments: payments,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}:confirm", h.confirmOrder)
	r.Post("/{orderID}:cancel", h.cancelOrder)
	r.Post("/{orderID}/payments", h.recordPayment)
	r.Get("/{orderID}/payments", h.listOrderPayments)
}

type createOrderRequest struct {
	ClientID  string                   `json:"client_id"`
	Lines     []createOrderRequestLine `json:"lines"`
	PromoCode string                   `json:"promo_code"`
}

type createOrderRequestLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type recordPaymentRequest struct {
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	BankName  string `json:"bank_name"`
	DueDate   string `json:"due_date"`
	Collected bool   `json:"collected"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, actor := actorContext(r)
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	lines := make([]services.OrderLineInput, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, services.OrderLineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
		})
	}

	order, err := h.orders.CreateOrder(ctx, services.CreateOrderCommand{
		ClientID:  req.ClientID,
		Lines:     lines,
		PromoCode: req.PromoCode,
		ActorID:   actor,
	})
	if err != nil {
		if order.Status == domain.OrderStatusRejected && order.ID != "" {
			writeJSONResponse(w, http.StatusUnprocessableEntity, orderRejectedResponse{
				Error:  "order_rejected",
				Reason: order.RejectionReason,
				Order:  buildOrderPayload(order),
			})
			return
		}
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.OrderFilter{
		ClientID: strings.TrimSpace(query.Get("client_id")),
	}
	for _, raw := range query["status"] {
		for _, status := range strings.Split(raw, ",") {
			status = strings.ToUpper(strings.TrimSpace(status))
			if status != "" {
				filter.Status = append(filter.Status, domain.OrderStatus(status))
			}
		}
	}
	if raw := strings.TrimSpace(query.Get("created_after")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.From = &ts
	}
	if raw := strings.TrimSpace(query.Get("created_before")); raw != "" {
		ts, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "created_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.To = &ts
	}
	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.Pagination = pagination

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderSummaryPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderSummary(order))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[orderSummaryPayload]{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) confirmOrder(w http.ResponseWriter, r *http.Request) {
	ctx, actor := actorContext(r)
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.ConfirmOrder(ctx, services.ConfirmOrderCommand{
		OrderID: orderID,
		ActorID: actor,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, actor := actorContext(r)
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
		// cancellation reason is optional
	default:
		writeBodyError(ctx, w, err)
		return
	}

	order, err := h.orders.CancelOrder(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		Reason:  strings.TrimSpace(req.Reason),
		ActorID: actor,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	ctx, actor := actorContext(r)
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req recordPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "amount must be a decimal string", http.StatusBadRequest))
		return
	}

	var dueDate *time.Time
	if trimmed := strings.TrimSpace(req.DueDate); trimmed != "" {
		ts, err := parseTimeParam(trimmed)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "due_date "+err.Error(), http.StatusBadRequest))
			return
		}
		dueDate = &ts
	}

	payment, err := h.payments.RecordPayment(ctx, services.RecordPaymentCommand{
		OrderID:   orderID,
		Amount:    amount,
		Method:    domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.Method))),
		Reference: strings.TrimSpace(req.Reference),
		BankName:  strings.TrimSpace(req.BankName),
		DueDate:   dueDate,
		Collected: req.Collected,
		ActorID:   actor,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, paymentResponse{Payment: buildPaymentPayload(payment)})
}

func (h *OrderHandlers) listOrderPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := h.payments.ListPayments(ctx, services.PaymentFilter{
		OrderID:    orderID,
		Pagination: pagination,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}

	items := make([]paymentPayload, 0, len(page.Items))
	for _, payment := range page.Items {
		items = append(items, buildPaymentPayload(payment))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[paymentPayload]{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderRejectedResponse struct {
	Error  string       `json:"error"`
	Reason string       `json:"reason"`
	Order  orderPayload `json:"order"`
}

type orderSummaryPayload struct {
	ID        string `json:"id"`
	Number    string `json:"number,omitempty"`
	ClientID  string `json:"client_id"`
	Status    string `json:"status"`
	TotalTTC  string `json:"total_ttc"`
	Remaining string `json:"remaining_amount"`
	CreatedAt string `json:"created_at"`
}

type orderPayload struct {
	ID              string             `json:"id"`
	Number          string             `json:"number,omitempty"`
	ClientID        string             `json:"client_id"`
	Status          string             `json:"status"`
	Items           []orderItemPayload `json:"items"`
	PromoCode       string             `json:"promo_code,omitempty"`
	Subtotal        string             `json:"subtotal"`
	LoyaltyDiscount string             `json:"loyalty_discount"`
	PromoDiscount   string             `json:"promo_discount"`
	TotalHT         string             `json:"total_ht"`
	TaxAmount       string             `json:"tax_amount"`
	TotalTTC        string             `json:"total_ttc"`
	RemainingAmount string             `json:"remaining_amount"`
	PaymentCount    int                `json:"payment_count"`
	RejectionReason string             `json:"rejection_reason,omitempty"`
	CancelReason    string             `json:"cancel_reason,omitempty"`
	ConfirmedAt     string             `json:"confirmed_at,omitempty"`
	CanceledAt      string             `json:"canceled_at,omitempty"`
	CreatedAt       string             `json:"created_at"`
	UpdatedAt       string             `json:"updated_at,omitempty"`
}

type orderItemPayload struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

func buildOrderSummary(order domain.Order) orderSummaryPayload {
	return orderSummaryPayload{
		ID:        order.ID,
		Number:    order.Number,
		ClientID:  order.ClientID,
		Status:    string(order.Status),
		TotalTTC:  order.TotalTTC.StringFixed(2),
		Remaining: order.RemainingAmount.StringFixed(2),
		CreatedAt: formatTime(order.CreatedAt),
	}
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Quantity:    item.Quantity,
			LineTotal:   item.LineTotal.StringFixed(2),
		})
	}
	return orderPayload{
		ID:              order.ID,
		Number:          order.Number,
		ClientID:        order.ClientID,
		Status:          string(order.Status),
		Items:           items,
		PromoCode:       order.PromoCode,
		Subtotal:        order.Subtotal.StringFixed(2),
		LoyaltyDiscount: order.LoyaltyDiscount.StringFixed(2),
		PromoDiscount:   order.PromoDiscount.StringFixed(2),
		TotalHT:         order.TotalHT.StringFixed(2),
		TaxAmount:       order.TaxAmount.StringFixed(2),
		TotalTTC:        order.TotalTTC.StringFixed(2),
		RemainingAmount: order.RemainingAmount.StringFixed(2),
		PaymentCount:    order.PaymentCount,
		RejectionReason: order.RejectionReason,
		CancelReason:    order.CancelReason,
		ConfirmedAt:     formatTimePtr(order.ConfirmedAt),
		CanceledAt:      formatTimePtr(order.CanceledAt),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
	}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderEmptyItems):
		httpx.WriteError(ctx, w, httpx.NewError("order_empty_items", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderNotPaid):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_paid", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrStockInsufficient):
		httpx.WriteError(ctx, w, httpx.NewError("stock_insufficient", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_unavailable", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPromoInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("promo_invalid_code", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPromoNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("promo_not_found", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPromoAlreadyUsed):
		httpx.WriteError(ctx, w, httpx.NewError("promo_already_used", err.Error(), http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
