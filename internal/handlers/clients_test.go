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

func newClientRouter(clients services.ClientService) http.Handler {
	h := NewClientHandlers(clients)
	return NewRouter(WithClientRoutes(h.Routes))
}

func TestClientHandlersCreateClient(t *testing.T) {
	created := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	clients := &stubClientService{
		createFn: func(_ context.Context, cmd services.CreateClientCommand) (domain.Client, error) {
			return domain.Client{
				ID:         "cli_1",
				Name:       cmd.Name,
				Email:      "amina@example.com",
				Tier:       domain.TierBasic,
				TotalSpent: decimal.Zero,
				CreatedAt:  created,
				UpdatedAt:  created,
			}, nil
		},
	}
	router := newClientRouter(clients)

	body := `{"name":"Amina","email":"Amina@Example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp clientResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Client.Tier != string(domain.TierBasic) {
		t.Fatalf("tier = %s", resp.Client.Tier)
	}
	if resp.Client.TotalSpent != "0.00" {
		t.Fatalf("total_spent = %s", resp.Client.TotalSpent)
	}
}

func TestClientHandlersCreateClientDuplicateEmail(t *testing.T) {
	clients := &stubClientService{
		createFn: func(context.Context, services.CreateClientCommand) (domain.Client, error) {
			return domain.Client{}, fmt.Errorf("%w: amina@example.com", services.ErrClientEmailTaken)
		},
	}
	router := newClientRouter(clients)

	body := `{"name":"Amina","email":"amina@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/clients", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestClientHandlersUpdateClientPartial(t *testing.T) {
	var captured services.UpdateClientCommand
	clients := &stubClientService{
		updateFn: func(_ context.Context, cmd services.UpdateClientCommand) (domain.Client, error) {
			captured = cmd
			return domain.Client{ID: cmd.ClientID, TotalSpent: decimal.Zero}, nil
		},
	}
	router := newClientRouter(clients)

	body := `{"phone":"+33 6 12 34 56 78"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/clients/cli_1", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Phone == nil || *captured.Phone != "+33 6 12 34 56 78" {
		t.Fatalf("phone = %v", captured.Phone)
	}
	if captured.Name != nil || captured.Email != nil || captured.Address != nil {
		t.Fatal("absent fields must stay nil")
	}
}

func TestClientHandlersGetClientNotFound(t *testing.T) {
	router := newClientRouter(&stubClientService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients/cli_missing", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestClientHandlersListClientsTierFilter(t *testing.T) {
	var captured services.ClientFilter
	clients := &stubClientService{
		listFn: func(_ context.Context, filter services.ClientFilter) (domain.CursorPage[domain.Client], error) {
			captured = filter
			return domain.CursorPage[domain.Client]{}, nil
		},
	}
	router := newClientRouter(clients)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clients?tier=gold,platinum", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(captured.Tier) != 2 || captured.Tier[0] != domain.TierGold || captured.Tier[1] != domain.TierPlatinum {
		t.Fatalf("tier filter = %#v", captured.Tier)
	}
}
