package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/repositories"
)

type stubRepoError struct {
	message     string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *stubRepoError) Error() string       { return e.message }
func (e *stubRepoError) IsNotFound() bool    { return e.notFound }
func (e *stubRepoError) IsConflict() bool    { return e.conflict }
func (e *stubRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr(message string) error {
	return &stubRepoError{message: message, notFound: true}
}

func conflictErr(message string) error {
	return &stubRepoError{message: message, conflict: true}
}

type stubOrderRepo struct {
	insertFn        func(ctx context.Context, order domain.Order) error
	findFn          func(ctx context.Context, orderID string) (domain.Order, error)
	listFn          func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	confirmFn       func(ctx context.Context, req repositories.OrderConfirmRequest) (repositories.OrderConfirmResult, error)
	cancelFn        func(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error)
	recordPaymentFn func(ctx context.Context, req repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error)
}

func (s *stubOrderRepo) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, order)
	}
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFn != nil {
		return s.findFn(ctx, orderID)
	}
	return domain.Order{}, notFoundErr("order not found")
}

func (s *stubOrderRepo) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepo) Confirm(ctx context.Context, req repositories.OrderConfirmRequest) (repositories.OrderConfirmResult, error) {
	if s.confirmFn != nil {
		return s.confirmFn(ctx, req)
	}
	return repositories.OrderConfirmResult{}, errors.New("not implemented")
}

func (s *stubOrderRepo) Cancel(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, req)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepo) RecordPayment(ctx context.Context, req repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
	if s.recordPaymentFn != nil {
		return s.recordPaymentFn(ctx, req)
	}
	return repositories.PaymentRecordResult{}, errors.New("not implemented")
}

type stubClientRepo struct {
	insertFn      func(ctx context.Context, client domain.Client) error
	updateFn      func(ctx context.Context, client domain.Client) error
	findFn        func(ctx context.Context, clientID string) (domain.Client, error)
	findByEmailFn func(ctx context.Context, email string) (domain.Client, error)
	listFn        func(ctx context.Context, filter repositories.ClientListFilter) (domain.CursorPage[domain.Client], error)
}

func (s *stubClientRepo) Insert(ctx context.Context, client domain.Client) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, client)
	}
	return nil
}

func (s *stubClientRepo) Update(ctx context.Context, client domain.Client) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, client)
	}
	return nil
}

func (s *stubClientRepo) FindByID(ctx context.Context, clientID string) (domain.Client, error) {
	if s.findFn != nil {
		return s.findFn(ctx, clientID)
	}
	return domain.Client{}, notFoundErr("client not found")
}

func (s *stubClientRepo) FindByEmail(ctx context.Context, email string) (domain.Client, error) {
	if s.findByEmailFn != nil {
		return s.findByEmailFn(ctx, email)
	}
	return domain.Client{}, notFoundErr("client not found")
}

func (s *stubClientRepo) List(ctx context.Context, filter repositories.ClientListFilter) (domain.CursorPage[domain.Client], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Client]{}, nil
}

type stubProductRepo struct {
	insertFn     func(ctx context.Context, product domain.Product) error
	updateFn     func(ctx context.Context, product domain.Product) error
	softDeleteFn func(ctx context.Context, productID string, deletedAt time.Time) error
	findFn       func(ctx context.Context, productID string) (domain.Product, error)
	listFn       func(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error)
}

func (s *stubProductRepo) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, product)
	}
	return nil
}

func (s *stubProductRepo) Update(ctx context.Context, product domain.Product) error {
	if s.updateFn != nil {
		return s.updateFn(ctx, product)
	}
	return nil
}

func (s *stubProductRepo) SoftDelete(ctx context.Context, productID string, deletedAt time.Time) error {
	if s.softDeleteFn != nil {
		return s.softDeleteFn(ctx, productID, deletedAt)
	}
	return nil
}

func (s *stubProductRepo) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFn != nil {
		return s.findFn(ctx, productID)
	}
	return domain.Product{}, notFoundErr("product not found")
}

func (s *stubProductRepo) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

type stubPromoRepo struct {
	insertFn func(ctx context.Context, promo domain.PromoCode) error
	findFn   func(ctx context.Context, code string) (domain.PromoCode, error)
	listFn   func(ctx context.Context, filter repositories.PromoCodeListFilter) (domain.CursorPage[domain.PromoCode], error)
}

func (s *stubPromoRepo) Insert(ctx context.Context, promo domain.PromoCode) error {
	if s.insertFn != nil {
		return s.insertFn(ctx, promo)
	}
	return nil
}

func (s *stubPromoRepo) FindByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	if s.findFn != nil {
		return s.findFn(ctx, code)
	}
	return domain.PromoCode{}, notFoundErr("promo code not found")
}

func (s *stubPromoRepo) List(ctx context.Context, filter repositories.PromoCodeListFilter) (domain.CursorPage[domain.PromoCode], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.PromoCode]{}, nil
}

type stubPaymentRepo struct {
	findFn         func(ctx context.Context, paymentID string) (domain.Payment, error)
	listFn         func(ctx context.Context, filter repositories.PaymentListFilter) (domain.CursorPage[domain.Payment], error)
	updateStatusFn func(ctx context.Context, req repositories.PaymentStatusUpdate) (domain.Payment, error)
}

func (s *stubPaymentRepo) FindByID(ctx context.Context, paymentID string) (domain.Payment, error) {
	if s.findFn != nil {
		return s.findFn(ctx, paymentID)
	}
	return domain.Payment{}, notFoundErr("payment not found")
}

func (s *stubPaymentRepo) List(ctx context.Context, filter repositories.PaymentListFilter) (domain.CursorPage[domain.Payment], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.Payment]{}, nil
}

func (s *stubPaymentRepo) UpdateStatus(ctx context.Context, req repositories.PaymentStatusUpdate) (domain.Payment, error) {
	if s.updateStatusFn != nil {
		return s.updateStatusFn(ctx, req)
	}
	return domain.Payment{}, errors.New("not implemented")
}

type stubCounterRepo struct {
	nextFn func(ctx context.Context, counterID string, step int64) (int64, error)
}

func (s *stubCounterRepo) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 1, nil
}

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

type capturePaymentEvents struct {
	events []PaymentEvent
}

func (c *capturePaymentEvents) PublishPaymentEvent(_ context.Context, event PaymentEvent) error {
	c.events = append(c.events, event)
	return nil
}
