package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/services"
)

func newProductRouter(products services.ProductService) http.Handler {
	h := NewProductHandlers(products)
	return NewRouter(WithProductRoutes(h.Routes))
}

func TestProductHandlersCreateProduct(t *testing.T) {
	created := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	var captured services.CreateProductCommand
	products := &stubProductService{
		createFn: func(_ context.Context, cmd services.CreateProductCommand) (domain.Product, error) {
			captured = cmd
			return domain.Product{
				ID:        "prd_1",
				Name:      cmd.Name,
				UnitPrice: cmd.UnitPrice,
				Stock:     cmd.Stock,
				CreatedAt: created,
				UpdatedAt: created,
			}, nil
		},
	}
	router := newProductRouter(products)

	body := `{"name":"Desk","category":"furniture","unit_price":"250.00","stock":40}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !captured.UnitPrice.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("unit price = %s", captured.UnitPrice)
	}

	var resp productResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("parse response: %v", err)
	}
	if resp.Product.UnitPrice != "250.00" {
		t.Fatalf("unit_price = %s", resp.Product.UnitPrice)
	}
}

func TestProductHandlersCreateProductBadPrice(t *testing.T) {
	router := newProductRouter(&stubProductService{})

	body := `{"name":"Desk","unit_price":"lots"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body))
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestProductHandlersDeleteProduct(t *testing.T) {
	var deletedID string
	products := &stubProductService{
		deleteFn: func(_ context.Context, productID string) error {
			deletedID = productID
			return nil
		},
	}
	router := newProductRouter(products)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/products/prd_1", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if deletedID != "prd_1" {
		t.Fatalf("deleted id = %s", deletedID)
	}
}

func TestProductHandlersListProductsFilters(t *testing.T) {
	var captured services.ProductFilter
	products := &stubProductService{
		listFn: func(_ context.Context, filter services.ProductFilter) (domain.CursorPage[domain.Product], error) {
			captured = filter
			return domain.CursorPage[domain.Product]{}, nil
		},
	}
	router := newProductRouter(products)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=furniture&name_prefix=De&max_unit_price=300.00&include_deleted=true", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Category != "furniture" || captured.NamePrefix != "De" {
		t.Fatalf("unexpected filter %#v", captured)
	}
	if !captured.IncludeDeleted {
		t.Fatal("include_deleted should be true")
	}
	if captured.MaxUnitPrice == nil || !captured.MaxUnitPrice.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("max unit price = %v", captured.MaxUnitPrice)
	}
}

func TestProductHandlersGetProductNotFound(t *testing.T) {
	router := newProductRouter(&stubProductService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/prd_missing", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
