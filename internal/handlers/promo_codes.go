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

const maxPromoBodySize = 4 * 1024

// PromoCodeHandlers exposes promo code administration endpoints.
type PromoCodeHandlers struct {
	promoCodes services.PromoCodeService
}

// NewPromoCodeHandlers constructs a new PromoCodeHandlers instance.
func NewPromoCodeHandlers(promoCodes services.PromoCodeService) *PromoCodeHandlers {
	return &PromoCodeHandlers{promoCodes: promoCodes}
}

// Routes registers the /promo-codes endpoints.
func (h *PromoCodeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createPromoCode)
	r.Get("/", h.listPromoCodes)
	r.Get("/{code}", h.getPromoCode)
}

type createPromoCodeRequest struct {
	Code string `json:"code"`
}

func (h *PromoCodeHandlers) createPromoCode(w http.ResponseWriter, r *http.Request) {
	ctx, _ := actorContext(r)
	if h.promoCodes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promo_service_unavailable", "promo code service unavailable", http.StatusServiceUnavailable))
		return
	}

	var req createPromoCodeRequest
	body, err := readLimitedBody(r, maxPromoBodySize)
	switch {
	case err == nil:
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	case errors.Is(err, errEmptyBody):
		// an empty body requests code generation
	default:
		writeBodyError(ctx, w, err)
		return
	}

	promo, err := h.promoCodes.CreatePromoCode(ctx, services.CreatePromoCodeCommand{Code: req.Code})
	if err != nil {
		writePromoError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, promoCodeResponse{PromoCode: buildPromoCodePayload(promo)})
}

func (h *PromoCodeHandlers) listPromoCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promoCodes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promo_service_unavailable", "promo code service unavailable", http.StatusServiceUnavailable))
		return
	}

	filter := services.PromoCodeFilter{
		OnlyUnused: r.URL.Query().Get("only_unused") == "true",
	}
	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.Pagination = pagination

	page, err := h.promoCodes.ListPromoCodes(ctx, filter)
	if err != nil {
		writePromoError(ctx, w, err)
		return
	}

	items := make([]promoCodePayload, 0, len(page.Items))
	for _, promo := range page.Items {
		items = append(items, buildPromoCodePayload(promo))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[promoCodePayload]{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *PromoCodeHandlers) getPromoCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.promoCodes == nil {
		httpx.WriteError(ctx, w, httpx.NewError("promo_service_unavailable", "promo code service unavailable", http.StatusServiceUnavailable))
		return
	}

	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if code == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "code is required", http.StatusBadRequest))
		return
	}

	promo, err := h.promoCodes.GetPromoCode(ctx, code)
	if err != nil {
		writePromoError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, promoCodeResponse{PromoCode: buildPromoCodePayload(promo)})
}

type promoCodeResponse struct {
	PromoCode promoCodePayload `json:"promo_code"`
}

type promoCodePayload struct {
	Code      string `json:"code"`
	Used      bool   `json:"used"`
	UsedAt    string `json:"used_at,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func buildPromoCodePayload(promo domain.PromoCode) promoCodePayload {
	return promoCodePayload{
		Code:      promo.Code,
		Used:      promo.Used,
		UsedAt:    formatTimePtr(promo.UsedAt),
		OrderID:   promo.OrderID,
		CreatedAt: formatTime(promo.CreatedAt),
	}
}

func writePromoError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrPromoInvalidCode):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPromoNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("promo_not_found", "promo code not found", http.StatusNotFound))
	case errors.Is(err, services.ErrPromoExists):
		httpx.WriteError(ctx, w, httpx.NewError("promo_exists", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("promo_error", "failed to process promo code request", http.StatusInternalServerError))
	}
}
