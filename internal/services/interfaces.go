package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
)

// OrderService centralizes order creation, lifecycle transitions, and lookups.
type OrderService interface {
	// CreateOrder prices and persists a new order. When a business rule
	// rejects the order, the rejected order is persisted and returned
	// together with the rejection error.
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) (domain.CursorPage[domain.Order], error)
	ConfirmOrder(ctx context.Context, cmd ConfirmOrderCommand) (domain.Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (domain.Order, error)
}

// PaymentService manages the payment ledger attached to orders.
type PaymentService interface {
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (domain.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (domain.Payment, error)
	ListPayments(ctx context.Context, filter PaymentFilter) (domain.CursorPage[domain.Payment], error)
	UpdatePaymentStatus(ctx context.Context, cmd UpdatePaymentStatusCommand) (domain.Payment, error)
}

// ClientService manages customer accounts and exposes their loyalty state.
type ClientService interface {
	CreateClient(ctx context.Context, cmd CreateClientCommand) (domain.Client, error)
	UpdateClient(ctx context.Context, cmd UpdateClientCommand) (domain.Client, error)
	GetClient(ctx context.Context, clientID string) (domain.Client, error)
	ListClients(ctx context.Context, filter ClientFilter) (domain.CursorPage[domain.Client], error)
}

// ProductService manages the sellable catalog including soft deletion.
type ProductService interface {
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (domain.Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (domain.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) (domain.CursorPage[domain.Product], error)
}

// PromoCodeService manages single-use promotional codes.
type PromoCodeService interface {
	CreatePromoCode(ctx context.Context, cmd CreatePromoCodeCommand) (domain.PromoCode, error)
	GetPromoCode(ctx context.Context, code string) (domain.PromoCode, error)
	ListPromoCodes(ctx context.Context, filter PromoCodeFilter) (domain.CursorPage[domain.PromoCode], error)
}

// OrderEventPublisher accepts order lifecycle notifications for downstream processing.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// PaymentEventPublisher accepts payment ledger notifications for downstream processing.
type PaymentEventPublisher interface {
	PublishPaymentEvent(ctx context.Context, event PaymentEvent) error
}

// OrderEvent describes an order lifecycle change.
type OrderEvent struct {
	Type        string         `json:"type"`
	OrderID     string         `json:"orderId"`
	OrderNumber string         `json:"orderNumber,omitempty"`
	ClientID    string         `json:"clientId"`
	Status      string         `json:"status"`
	TotalTTC    string         `json:"totalTtc,omitempty"`
	Remaining   string         `json:"remaining,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	ActorID     string         `json:"actorId,omitempty"`
	OccurredAt  time.Time      `json:"occurredAt"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PaymentEvent describes a payment ledger change.
type PaymentEvent struct {
	Type       string    `json:"type"`
	PaymentID  string    `json:"paymentId"`
	OrderID    string    `json:"orderId"`
	Number     int       `json:"number"`
	Amount     string    `json:"amount"`
	Method     string    `json:"method"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actorId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// OrderLineInput is one requested product line at order creation.
type OrderLineInput struct {
	ProductID string
	Quantity  int
}

// CreateOrderCommand carries the inputs for order creation.
type CreateOrderCommand struct {
	ClientID  string
	Lines     []OrderLineInput
	PromoCode string
	ActorID   string
}

// ConfirmOrderCommand requests confirmation of a fully paid order.
type ConfirmOrderCommand struct {
	OrderID string
	ActorID string
}

// CancelOrderCommand requests cancellation of a pending order.
type CancelOrderCommand struct {
	OrderID string
	Reason  string
	ActorID string
}

// RecordPaymentCommand appends a payment to an order's ledger. BankName and
// DueDate are optional details for deferred instruments such as cheques.
type RecordPaymentCommand struct {
	OrderID   string
	Amount    decimal.Decimal
	Method    domain.PaymentMethod
	Reference string
	BankName  string
	DueDate   *time.Time
	Collected bool
	ActorID   string
}

// UpdatePaymentStatusCommand mutates the collection status of a payment.
type UpdatePaymentStatusCommand struct {
	PaymentID string
	Status    domain.PaymentStatus
	ActorID   string
}

// CreateClientCommand carries the inputs for client registration.
type CreateClientCommand struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateClientCommand mutates client contact details. Nil fields are left unchanged.
type UpdateClientCommand struct {
	ClientID string
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
}

// CreateProductCommand carries the inputs for catalog registration.
type CreateProductCommand struct {
	Name        string
	Description string
	Category    string
	UnitPrice   decimal.Decimal
	Stock       int
}

// UpdateProductCommand mutates catalog details. Nil fields are left unchanged.
type UpdateProductCommand struct {
	ProductID   string
	Name        *string
	Description *string
	Category    *string
	UnitPrice   *decimal.Decimal
	Stock       *int
}

// CreatePromoCodeCommand registers a promo code. An empty code requests generation.
type CreatePromoCodeCommand struct {
	Code string
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	ClientID   string
	Status     []domain.OrderStatus
	From       *time.Time
	To         *time.Time
	Pagination domain.Pagination
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	OrderID    string
	Status     []domain.PaymentStatus
	Pagination domain.Pagination
}

// ClientFilter narrows client listings.
type ClientFilter struct {
	Tier       []domain.CustomerTier
	Pagination domain.Pagination
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	Category       string
	NamePrefix     string
	IncludeDeleted bool
	MaxUnitPrice   *decimal.Decimal
	Pagination     domain.Pagination
}

// PromoCodeFilter narrows promo code listings.
type PromoCodeFilter struct {
	OnlyUnused bool
	Pagination domain.Pagination
}
