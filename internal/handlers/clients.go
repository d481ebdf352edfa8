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

const maxClientBodySize = 16 * 1024

// ClientHandlers exposes customer account endpoints.
type ClientHandlers struct {
	clients services.ClientService
}

// NewClientHandlers constructs a new ClientHandlers instance.
func NewClientHandlers(clients services.ClientService) *ClientHandlers {
	return &ClientHandlers{clients: clients}
}

// Routes registers the /clients endpoints.
func (h *ClientHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.createClient)
	r.Get("/", h.listClients)
	r.Get("/{clientID}", h.getClient)
	r.Patch("/{clientID}", h.updateClient)
}

type createClientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type updateClientRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

func (h *ClientHandlers) createClient(w http.ResponseWriter, r *http.Request) {
	ctx, _ := actorContext(r)
	if h.clients == nil {
		httpx.WriteError(ctx, w, httpx.NewError("client_service_unavailable", "client service unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxClientBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req createClientRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	client, err := h.clients.CreateClient(ctx, services.CreateClientCommand{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeClientError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, clientResponse{Client: buildClientPayload(client)})
}

func (h *ClientHandlers) listClients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.clients == nil {
		httpx.WriteError(ctx, w, httpx.NewError("client_service_unavailable", "client service unavailable", http.StatusServiceUnavailable))
		return
	}

	var filter services.ClientFilter
	for _, raw := range r.URL.Query()["tier"] {
		for _, tier := range strings.Split(raw, ",") {
			tier = strings.ToUpper(strings.TrimSpace(tier))
			if tier != "" {
				filter.Tier = append(filter.Tier, domain.CustomerTier(tier))
			}
		}
	}
	pagination, err := parsePagination(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	filter.Pagination = pagination

	page, err := h.clients.ListClients(ctx, filter)
	if err != nil {
		writeClientError(ctx, w, err)
		return
	}

	items := make([]clientPayload, 0, len(page.Items))
	for _, client := range page.Items {
		items = append(items, buildClientPayload(client))
	}
	writeJSONResponse(w, http.StatusOK, listResponse[clientPayload]{
		Items:         items,
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *ClientHandlers) getClient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.clients == nil {
		httpx.WriteError(ctx, w, httpx.NewError("client_service_unavailable", "client service unavailable", http.StatusServiceUnavailable))
		return
	}

	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if clientID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "client id is required", http.StatusBadRequest))
		return
	}

	client, err := h.clients.GetClient(ctx, clientID)
	if err != nil {
		writeClientError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, clientResponse{Client: buildClientPayload(client)})
}

func (h *ClientHandlers) updateClient(w http.ResponseWriter, r *http.Request) {
	ctx, _ := actorContext(r)
	if h.clients == nil {
		httpx.WriteError(ctx, w, httpx.NewError("client_service_unavailable", "client service unavailable", http.StatusServiceUnavailable))
		return
	}

	clientID := strings.TrimSpace(chi.URLParam(r, "clientID"))
	if clientID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "client id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxClientBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}
	var req updateClientRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	client, err := h.clients.UpdateClient(ctx, services.UpdateClientCommand{
		ClientID: clientID,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		writeClientError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, clientResponse{Client: buildClientPayload(client)})
}

type clientResponse struct {
	Client clientPayload `json:"client"`
}

type clientPayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Address      string `json:"address,omitempty"`
	Tier         string `json:"tier"`
	TotalOrders  int    `json:"total_orders"`
	TotalSpent   string `json:"total_spent"`
	FirstOrderAt string `json:"first_order_at,omitempty"`
	LastOrderAt  string `json:"last_order_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

func buildClientPayload(client domain.Client) clientPayload {
	return clientPayload{
		ID:           client.ID,
		Name:         client.Name,
		Email:        client.Email,
		Phone:        client.Phone,
		Address:      client.Address,
		Tier:         string(client.Tier),
		TotalOrders:  client.TotalOrders,
		TotalSpent:   client.TotalSpent.StringFixed(2),
		FirstOrderAt: formatTimePtr(client.FirstOrderAt),
		LastOrderAt:  formatTimePtr(client.LastOrderAt),
		CreatedAt:    formatTime(client.CreatedAt),
		UpdatedAt:    formatTime(client.UpdatedAt),
	}
}

func writeClientError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrClientInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrClientNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("client_not_found", "client not found", http.StatusNotFound))
	case errors.Is(err, services.ErrClientEmailTaken):
		httpx.WriteError(ctx, w, httpx.NewError("client_email_taken", err.Error(), http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("client_error", "failed to process client request", http.StatusInternalServerError))
	}
}
