package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// CustomerTier classifies clients by purchase history for loyalty pricing.
type CustomerTier string

const (
	// TierBasic is the entry tier assigned to new clients.
	TierBasic CustomerTier = "BASIC"
	// TierSilver unlocks the first loyalty discount level.
	TierSilver CustomerTier = "SILVER"
	// TierGold unlocks the mid loyalty discount level.
	TierGold CustomerTier = "GOLD"
	// TierPlatinum unlocks the highest loyalty discount level.
	TierPlatinum CustomerTier = "PLATINUM"
)

// Client represents a customer account with aggregated purchase statistics.
type Client struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Address      string
	Tier         CustomerTier
	TotalOrders  int
	TotalSpent   decimal.Decimal
	FirstOrderAt *time.Time
	LastOrderAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Product is a sellable catalog entry with a tracked stock level.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	UnitPrice   decimal.Decimal
	Stock       int
	Deleted     bool
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	// OrderStatusPending indicates the order accepts payments and awaits confirmation.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusConfirmed indicates the order was fully paid and its side effects applied.
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	// OrderStatusCanceled indicates the order was canceled before confirmation.
	OrderStatusCanceled OrderStatus = "CANCELED"
	// OrderStatusRejected indicates creation failed a business validation.
	OrderStatusRejected OrderStatus = "REJECTED"
)

// OrderItem is a priced line captured at order creation time.
type OrderItem struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
}

// Order aggregates items, pricing results, and the payment ledger summary.
type Order struct {
	ID              string
	Number          string
	ClientID        string
	Status          OrderStatus
	Items           []OrderItem
	PromoCode       string
	Subtotal        decimal.Decimal
	LoyaltyDiscount decimal.Decimal
	PromoDiscount   decimal.Decimal
	TotalHT         decimal.Decimal
	TaxAmount       decimal.Decimal
	TotalTTC        decimal.Decimal
	RemainingAmount decimal.Decimal
	PaymentCount    int
	RejectionReason string
	CancelReason    string
	ConfirmedAt     *time.Time
	CanceledAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// PaymentMethod enumerates accepted payment instruments.
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCheque   PaymentMethod = "CHEQUE"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCard     PaymentMethod = "CARD"
)

// PaymentStatus enumerates the collection states of a recorded payment.
type PaymentStatus string

const (
	// PaymentStatusPending indicates the payment is recorded but not yet collected.
	PaymentStatusPending PaymentStatus = "PENDING"
	// PaymentStatusCollected indicates the funds were received.
	PaymentStatusCollected PaymentStatus = "COLLECTED"
	// PaymentStatusRejected indicates collection failed, e.g. a bounced cheque.
	// The order's remaining balance is not restored.
	PaymentStatusRejected PaymentStatus = "REJECTED"
)

// Payment is one entry of an order's payment ledger.
type Payment struct {
	ID          string
	OrderID     string
	Number      int
	Amount      decimal.Decimal
	Method      PaymentMethod
	Status      PaymentStatus
	Reference   string
	BankName    string
	DueDate     *time.Time
	CollectedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PromoCode is a single-use discount voucher identified by its code.
type PromoCode struct {
	Code      string
	Used      bool
	UsedAt    *time.Time
	OrderID   string
	CreatedAt time.Time
}
