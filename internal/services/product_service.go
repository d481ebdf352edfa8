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

var (
	// ErrProductInvalidInput signals the caller provided invalid arguments.
	ErrProductInvalidInput = errors.New("product: invalid input")
	// ErrProductNotFound indicates the product could not be located.
	ErrProductNotFound = errors.New("product: not found")
)

// ProductServiceDeps bundles the collaborators required to construct a product service.
type ProductServiceDeps struct {
	Products    repositories.ProductRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type productService struct {
	repo   repositories.ProductRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewProductService wires dependencies into a concrete ProductService implementation.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Products == nil {
		return nil, errors.New("product service: product repository is required")
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

	return &productService{
		repo: deps.Products,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *productService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", ErrProductInvalidInput)
	}
	if !cmd.UnitPrice.IsPositive() {
		return domain.Product{}, fmt.Errorf("%w: unit price must be positive", ErrProductInvalidInput)
	}
	if cmd.Stock < 0 {
		return domain.Product{}, fmt.Errorf("%w: stock cannot be negative", ErrProductInvalidInput)
	}

	now := s.now()
	product := domain.Product{
		ID:          ensureProductID(s.newID()),
		Name:        name,
		Description: strings.TrimSpace(cmd.Description),
		Category:    strings.TrimSpace(cmd.Category),
		UnitPrice:   domain.RoundMoney(cmd.UnitPrice),
		Stock:       cmd.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "product_created", map[string]any{"productId": product.ID})

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (domain.Product, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}
	if product.Deleted {
		return domain.Product{}, fmt.Errorf("%w: product %s is deleted", ErrProductNotFound, productID)
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return domain.Product{}, fmt.Errorf("%w: name cannot be empty", ErrProductInvalidInput)
		}
		product.Name = name
	}
	if cmd.Description != nil {
		product.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.Category != nil {
		product.Category = strings.TrimSpace(*cmd.Category)
	}
	if cmd.UnitPrice != nil {
		if !cmd.UnitPrice.IsPositive() {
			return domain.Product{}, fmt.Errorf("%w: unit price must be positive", ErrProductInvalidInput)
		}
		product.UnitPrice = domain.RoundMoney(*cmd.UnitPrice)
	}
	if cmd.Stock != nil {
		if *cmd.Stock < 0 {
			return domain.Product{}, fmt.Errorf("%w: stock cannot be negative", ErrProductInvalidInput)
		}
		product.Stock = *cmd.Stock
	}
	product.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, product); err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

// DeleteProduct withdraws the product from sale. Existing orders keep their
// captured name and price.
func (s *productService) DeleteProduct(ctx context.Context, productID string) error {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.repo.SoftDelete(ctx, productID, s.now()); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, "product_deleted", map[string]any{"productId": productID})
	return nil
}

func (s *productService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return domain.Product{}, s.mapRepositoryError(err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[domain.Product], error) {
	page, err := s.repo.List(ctx, repositories.ProductListFilter{
		Category:       strings.TrimSpace(filter.Category),
		NamePrefix:     strings.TrimSpace(filter.NamePrefix),
		IncludeDeleted: filter.IncludeDeleted,
		MaxUnitPrice:   filter.MaxUnitPrice,
		Pagination:     filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *productService) now() time.Time {
	return s.clock()
}

func (s *productService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if isRepositoryNotFound(err) {
		return fmt.Errorf("%w: %s", ErrProductNotFound, err.Error())
	}
	return err
}

func ensureProductID(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		trimmed = ulid.Make().String()
	}
	if strings.HasPrefix(trimmed, "prd_") {
		return trimmed
	}
	return "prd_" + trimmed
}
