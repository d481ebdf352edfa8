package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Clients() ClientRepository
	Products() ProductRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	PromoCodes() PromoCodeRepository
	Counters() CounterRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ClientRepository persists client accounts and their purchase statistics.
type ClientRepository interface {
	Insert(ctx context.Context, client domain.Client) error
	Update(ctx context.Context, client domain.Client) error
	FindByID(ctx context.Context, clientID string) (domain.Client, error)
	FindByEmail(ctx context.Context, email string) (domain.Client, error)
	List(ctx context.Context, filter ClientListFilter) (domain.CursorPage[domain.Client], error)
}

// ProductRepository persists catalog products including soft delete state.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	SoftDelete(ctx context.Context, productID string, deletedAt time.Time) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
}

// OrderRepository owns order documents and the composite transactional
// operations that mutate orders together with their side effects.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// Confirm atomically transitions a fully paid PENDING order to CONFIRMED,
	// decrements product stock, consumes the promo code, and refreshes the
	// client's purchase statistics and tier.
	Confirm(ctx context.Context, req OrderConfirmRequest) (OrderConfirmResult, error)
	// Cancel transitions a PENDING order to CANCELED.
	Cancel(ctx context.Context, req OrderCancelRequest) (domain.Order, error)
	// RecordPayment appends a ledger entry and decrements the order's
	// remaining balance in one transaction.
	RecordPayment(ctx context.Context, req PaymentRecordRequest) (PaymentRecordResult, error)
}

// PaymentRepository reads ledger entries and mutates their collection status.
type PaymentRepository interface {
	FindByID(ctx context.Context, paymentID string) (domain.Payment, error)
	List(ctx context.Context, filter PaymentListFilter) (domain.CursorPage[domain.Payment], error)
	UpdateStatus(ctx context.Context, req PaymentStatusUpdate) (domain.Payment, error)
}

// PromoCodeRepository persists single-use promo codes keyed by the code itself.
type PromoCodeRepository interface {
	Insert(ctx context.Context, promo domain.PromoCode) error
	FindByCode(ctx context.Context, code string) (domain.PromoCode, error)
	List(ctx context.Context, filter PromoCodeListFilter) (domain.CursorPage[domain.PromoCode], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// OrderConfirmRequest carries the inputs for the confirmation transaction.
type OrderConfirmRequest struct {
	OrderID string
	ActorID string
	Now     time.Time
}

// OrderConfirmResult returns the confirmed order alongside the updated client.
type OrderConfirmResult struct {
	Order  domain.Order
	Client domain.Client
}

// OrderCancelRequest carries the inputs for the cancellation transaction.
type OrderCancelRequest struct {
	OrderID string
	ActorID string
	Reason  string
	Now     time.Time
}

// PaymentRecordRequest appends a payment to an order's ledger. The payment
// number is assigned inside the transaction.
type PaymentRecordRequest struct {
	OrderID string
	Payment domain.Payment
	Now     time.Time
}

// PaymentRecordResult returns the stored payment and the updated order.
type PaymentRecordResult struct {
	Payment domain.Payment
	Order   domain.Order
}

// PaymentStatusUpdate mutates the collection status of a ledger entry.
type PaymentStatusUpdate struct {
	PaymentID string
	Status    domain.PaymentStatus
	Now       time.Time
}

// Filter DTOs shared across repositories ------------------------------------

type ClientListFilter struct {
	Tier       []domain.CustomerTier
	Pagination domain.Pagination
}

type ProductListFilter struct {
	Category       string
	NamePrefix     string
	IncludeDeleted bool
	MaxUnitPrice   *decimal.Decimal
	Pagination     domain.Pagination
}

type OrderListFilter struct {
	ClientID   string
	Status     []domain.OrderStatus
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}

type PaymentListFilter struct {
	OrderID    string
	Status     []domain.PaymentStatus
	Pagination domain.Pagination
}

type PromoCodeListFilter struct {
	OnlyUnused bool
	Pagination domain.Pagination
}
