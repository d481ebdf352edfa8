package repositories

import "fmt"

// OrderErrorCode enumerates repository error causes for order and payment
// ledger operations.
type OrderErrorCode string

const (
	// OrderErrorUnknown represents an unspecified failure.
	OrderErrorUnknown OrderErrorCode = "order_unknown"
	// OrderErrorNotFound indicates the order document is missing.
	OrderErrorNotFound OrderErrorCode = "order_not_found"
	// OrderErrorInvalidState indicates the order status forbids the operation.
	OrderErrorInvalidState OrderErrorCode = "order_invalid_state"
	// OrderErrorUnpaidBalance indicates confirmation was attempted with money still owed.
	OrderErrorUnpaidBalance OrderErrorCode = "order_unpaid_balance"
	// OrderErrorInsufficientStock indicates a product cannot cover an ordered quantity.
	OrderErrorInsufficientStock OrderErrorCode = "order_insufficient_stock"
	// OrderErrorProductUnavailable indicates an ordered product is missing or deleted.
	OrderErrorProductUnavailable OrderErrorCode = "order_product_unavailable"
	// OrderErrorClientNotFound indicates the order references a missing client.
	OrderErrorClientNotFound OrderErrorCode = "order_client_not_found"
	// OrderErrorPromoNotFound indicates the attached promo code does not exist.
	OrderErrorPromoNotFound OrderErrorCode = "order_promo_not_found"
	// OrderErrorPromoUsed indicates the attached promo code was already consumed.
	OrderErrorPromoUsed OrderErrorCode = "order_promo_used"
	// OrderErrorOverpayment indicates a payment exceeds the remaining balance.
	OrderErrorOverpayment OrderErrorCode = "order_overpayment"
	// OrderErrorPaymentNotFound indicates the ledger entry is missing.
	OrderErrorPaymentNotFound OrderErrorCode = "order_payment_not_found"
)

// OrderError wraps order-specific failures with machine readable codes.
type OrderError struct {
	Op      string
	Code    OrderErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *OrderError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *OrderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOrderError constructs a typed order error.
func NewOrderError(code OrderErrorCode, message string, err error) *OrderError {
	if message == "" {
		message = string(code)
	}
	return &OrderError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}
