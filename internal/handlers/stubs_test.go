package handlers

import (
	"context"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/services"
)

type stubOrderService struct {
	createFn  func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	getFn     func(ctx context.Context, orderID string) (domain.Order, error)
	listFn    func(ctx context.Context, filter services.OrderFilter) (domain.CursorPage[domain.Order], error)
	confirmFn func(ctx context.Context, cmd services.ConfirmOrderCommand) (domain.Order, error)
	cancelFn  func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderService) ConfirmOrder(ctx context.Context, cmd services.ConfirmOrderCommand) (domain.Order, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, cmd)
	}
	return domain.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return domain.Order{}, services.ErrOrderNotFound
}

type stubPaymentService struct {
	recordFn       func(ctx context.Context, cmd services.RecordPaymentCommand) (domain.Payment, error)
	getFn          func(ctx context.Context, paymentID string) (domain.Payment, error)
	listFn         func(ctx context.Context, filter services.PaymentFilter) (domain.CursorPage[domain.Payment], error)
	updateStatusFn func(ctx context.Context, cmd services.UpdatePaymentStatusCommand) (domain.Payment, error)
}

func (s *stubPaymentService) RecordPayment(ctx context.Context, cmd services.RecordPaymentCommand) (domain.Payment, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, cmd)
	}
	return domain.Payment{}, nil
}

func (s *stubPaymentService) GetPayment(ctx context.Context, paymentID string) (domain.Payment, error) {
	if s.getFn != nil {
		return s.getFn(ctx, paymentID)
	}
	return domain.Payment{}, services.ErrPaymentNotFound
}

func (s *stubPaymentService) ListPayments(ctx context.Context, filter services.PaymentFilter) (domain.CursorPage[domain.Payment], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Payment]{}, nil
}

func (s *stubPaymentService) UpdatePaymentStatus(ctx context.Context, cmd services.UpdatePaymentStatusCommand) (domain.Payment, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, cmd)
	}
	return domain.Payment{}, services.ErrPaymentNotFound
}

type stubClientService struct {
	createFn func(ctx context.Context, cmd services.CreateClientCommand) (domain.Client, error)
	updateFn func(ctx context.Context, cmd services.UpdateClientCommand) (domain.Client, error)
	getFn    func(ctx context.Context, clientID string) (domain.Client, error)
	listFn   func(ctx context.Context, filter services.ClientFilter) (domain.CursorPage[domain.Client], error)
}

func (s *stubClientService) CreateClient(ctx context.Context, cmd services.CreateClientCommand) (domain.Client, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Client{}, nil
}

func (s *stubClientService) UpdateClient(ctx context.Context, cmd services.UpdateClientCommand) (domain.Client, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Client{}, services.ErrClientNotFound
}

func (s *stubClientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	if s.getFn != nil {
		return s.getFn(ctx, clientID)
	}
	return domain.Client{}, services.ErrClientNotFound
}

func (s *stubClientService) ListClients(ctx context.Context, filter services.ClientFilter) (domain.CursorPage[domain.Client], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Client]{}, nil
}

type stubProductService struct {
	createFn func(ctx context.Context, cmd services.CreateProductCommand) (domain.Product, error)
	updateFn func(ctx context.Context, cmd services.UpdateProductCommand) (domain.Product, error)
	deleteFn func(ctx context.Context, productID string) error
	getFn    func(ctx context.Context, productID string) (domain.Product, error)
	listFn   func(ctx context.Context, filter services.ProductFilter) (domain.CursorPage[domain.Product], error)
}

func (s *stubProductService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (domain.Product, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Product{}, nil
}

func (s *stubProductService) UpdateProduct(ctx context.Context, cmd services.UpdateProductCommand) (domain.Product, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Product{}, services.ErrProductNotFound
}

func (s *stubProductService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, productID)
	}
	return nil
}

func (s *stubProductService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getFn != nil {
		return s.getFn(ctx, productID)
	}
	return domain.Product{}, services.ErrProductNotFound
}

func (s *stubProductService) ListProducts(ctx context.Context, filter services.ProductFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

type stubPromoCodeService struct {
	createFn func(ctx context.Context, cmd services.CreatePromoCodeCommand) (domain.PromoCode, error)
	getFn    func(ctx context.Context, code string) (domain.PromoCode, error)
	listFn   func(ctx context.Context, filter services.PromoCodeFilter) (domain.CursorPage[domain.PromoCode], error)
}

func (s *stubPromoCodeService) CreatePromoCode(ctx context.Context, cmd services.CreatePromoCodeCommand) (domain.PromoCode, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.PromoCode{}, nil
}

func (s *stubPromoCodeService) GetPromoCode(ctx context.Context, code string) (domain.PromoCode, error) {
	if s.getFn != nil {
		return s.getFn(ctx, code)
	}
	return domain.PromoCode{}, services.ErrPromoNotFound
}

func (s *stubPromoCodeService) ListPromoCodes(ctx context.Context, filter services.PromoCodeFilter) (domain.CursorPage[domain.PromoCode], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.PromoCode]{}, nil
}
