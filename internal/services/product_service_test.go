package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
)

func newProductServiceForTest(t *testing.T, deps ProductServiceDeps) ProductService {
	t.Helper()
	if deps.Products == nil {
		deps.Products = &stubProductRepo{}
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time {
			return time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
		}
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "TESTID" }
	}
	svc, err := NewProductService(deps)
	if err != nil {
		t.Fatalf("new product service: %v", err)
	}
	return svc
}

func TestProductServiceCreateProductRoundsPrice(t *testing.T) {
	var inserted domain.Product
	products := &stubProductRepo{
		insertFn: func(_ context.Context, product domain.Product) error {
			inserted = product
			return nil
		},
	}
	svc := newProductServiceForTest(t, ProductServiceDeps{Products: products})

	product, err := svc.CreateProduct(context.Background(), CreateProductCommand{
		Name:      "  Standing Desk ",
		Category:  "furniture",
		UnitPrice: decimal.RequireFromString("499.995"),
		Stock:     12,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if product.ID != "prd_TESTID" {
		t.Fatalf("product id = %s", product.ID)
	}
	if product.Name != "Standing Desk" {
		t.Fatalf("name should be trimmed, got %q", product.Name)
	}
	if !inserted.UnitPrice.Equal(decimal.RequireFromString("500.00")) {
		t.Fatalf("unit price should round half up, got %s", inserted.UnitPrice)
	}
}

func TestProductServiceCreateProductValidation(t *testing.T) {
	svc := newProductServiceForTest(t, ProductServiceDeps{})

	cases := []struct {
		name string
		cmd  CreateProductCommand
	}{
		{"empty name", CreateProductCommand{UnitPrice: decimal.NewFromInt(10)}},
		{"zero price", CreateProductCommand{Name: "Lamp", UnitPrice: decimal.Zero}},
		{"negative price", CreateProductCommand{Name: "Lamp", UnitPrice: decimal.NewFromInt(-5)}},
		{"negative stock", CreateProductCommand{Name: "Lamp", UnitPrice: decimal.NewFromInt(5), Stock: -1}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateProduct(context.Background(), tc.cmd); !errors.Is(err, ErrProductInvalidInput) {
			t.Fatalf("%s: expected ErrProductInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestProductServiceUpdateProductPartialFields(t *testing.T) {
	existing := domain.Product{
		ID:        "prd_1",
		Name:      "Lamp",
		Category:  "lighting",
		UnitPrice: decimal.RequireFromString("45.00"),
		Stock:     8,
	}
	var updated domain.Product
	products := &stubProductRepo{
		findFn: func(context.Context, string) (domain.Product, error) {
			return existing, nil
		},
		updateFn: func(_ context.Context, product domain.Product) error {
			updated = product
			return nil
		},
	}
	svc := newProductServiceForTest(t, ProductServiceDeps{Products: products})

	stock := 20
	_, err := svc.UpdateProduct(context.Background(), UpdateProductCommand{
		ProductID: "prd_1",
		Stock:     &stock,
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 20 {
		t.Fatalf("stock = %d, want 20", updated.Stock)
	}
	if updated.Name != "Lamp" || updated.Category != "lighting" {
		t.Fatal("unset fields must be preserved")
	}
	if !updated.UnitPrice.Equal(existing.UnitPrice) {
		t.Fatalf("unit price changed to %s", updated.UnitPrice)
	}
}

func TestProductServiceUpdateDeletedProduct(t *testing.T) {
	products := &stubProductRepo{
		findFn: func(context.Context, string) (domain.Product, error) {
			return domain.Product{ID: "prd_1", Deleted: true}, nil
		},
	}
	svc := newProductServiceForTest(t, ProductServiceDeps{Products: products})

	name := "New name"
	_, err := svc.UpdateProduct(context.Background(), UpdateProductCommand{ProductID: "prd_1", Name: &name})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestProductServiceDeleteProductSoftDeletes(t *testing.T) {
	var deletedID string
	var deletedAt time.Time
	products := &stubProductRepo{
		softDeleteFn: func(_ context.Context, productID string, at time.Time) error {
			deletedID = productID
			deletedAt = at
			return nil
		},
	}
	svc := newProductServiceForTest(t, ProductServiceDeps{Products: products})

	if err := svc.DeleteProduct(context.Background(), "prd_1"); err != nil {
		t.Fatalf("delete product: %v", err)
	}
	if deletedID != "prd_1" {
		t.Fatalf("deleted id = %s", deletedID)
	}
	want := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	if !deletedAt.Equal(want) {
		t.Fatalf("deletedAt = %s, want %s", deletedAt, want)
	}
}

func TestProductServiceGetUnknownProduct(t *testing.T) {
	svc := newProductServiceForTest(t, ProductServiceDeps{})

	_, err := svc.GetProduct(context.Background(), "prd_missing")
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}
