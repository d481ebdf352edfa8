package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/platform/httpx"
	"github.com/smartshop/api/internal/services"
)

const maxPaymentBodySize = 16 * 1024

// PaymentHandlers exposes ledger-wide payment endpoints.
type PaymentHandlers struct {
	payments services.PaymentService
}

// NewPaymentHandlers constructs a new PaymentHandlers instance.
func NewPaymentHandlers(payments services.PaymentService) *PaymentHandlers {
	return &PaymentHandlers{payments: payments}
}

// Routes registers the /payments endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listPayments)
	r.Get("/{paymentID}", h.getPayment)
	r.Patch("/{paymentID}/status", h.updateStatus)
}

type updatePaymentStatusRequest struct {
	Status string `json:"status"`
}

func (h *PaymentHandlers) listPayments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	query := r.URL.Query()
	filter := services.PaymentFilter{
		OrderID: strings.TrimSpace(query.Get("order_id")),
	}
	for _, raw := range query["status"] {
		for _, status := range strings.Split(raw, ",") {
			status = strings.ToUpper(strings.TrimSpace(status))
			if status != "" {
				filter.Status = append(filter.Status, domain.PaymentStatus(status))
			}
		}
	}
	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.Pagination = pagination

	page, err := h.payments.ListPayments(ctx, filter)
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

func (h *PaymentHandlers) getPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentID"))
	if paymentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment id is required", http.StatusBadRequest))
		return
	}

	payment, err := h.payments.GetPayment(ctx, paymentID)
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, paymentResponse{Payment: buildPaymentPayload(payment)})
}

func (h *PaymentHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx, actor := actorContext(r)
	if h.payments == nil {
		httpx.WriteError(ctx, w, httpx.NewError("payment_service_unavailable", "payment service unavailable", http.StatusServiceUnavailable))
		return
	}

	paymentID := strings.TrimSpace(chi.URLParam(r, "paymentID"))
	if paymentID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxPaymentBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updatePaymentStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	payment, err := h.payments.UpdatePaymentStatus(ctx, services.UpdatePaymentStatusCommand{
		PaymentID: paymentID,
		Status:    domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
		ActorID:   actor,
	})
	if err != nil {
		writePaymentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, paymentResponse{Payment: buildPaymentPayload(payment)})
}

type paymentResponse struct {
	Payment paymentPayload `json:"payment"`
}

type paymentPayload struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Number      int    `json:"number"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	Status      string `json:"status"`
	Reference   string `json:"reference,omitempty"`
	BankName    string `json:"bank_name,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	CollectedAt string `json:"collected_at,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

func buildPaymentPayload(payment domain.Payment) paymentPayload {
	return paymentPayload{
		ID:          payment.ID,
		OrderID:     payment.OrderID,
		Number:      payment.Number,
		Amount:      payment.Amount.StringFixed(2),
		Method:      string(payment.Method),
		Status:      string(payment.Status),
		Reference:   payment.Reference,
		BankName:    payment.BankName,
		DueDate:     formatTimePtr(payment.DueDate),
		CollectedAt: formatTimePtr(payment.CollectedAt),
		CreatedAt:   formatTime(payment.CreatedAt),
		UpdatedAt:   formatTime(payment.UpdatedAt),
	}
}

func writePaymentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPaymentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPaymentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("payment_not_found", "payment not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPaymentCashLimit):
		httpx.WriteError(ctx, w, httpx.NewError("payment_cash_limit", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrPaymentExceedsRemaining):
		httpx.WriteError(ctx, w, httpx.NewError("payment_exceeds_remaining", err.Error(), http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("payment_error", "failed to process payment request", http.StatusInternalServerError))
	}
}
