package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/smartshop/api/internal/domain"
	pfirestore "github.com/smartshop/api/internal/platform/firestore"
	"github.com/smartshop/api/internal/repositories"
)

const ordersCollection = "orders"

type orderItemDocument struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	UnitPrice   string `firestore:"unitPrice"`
	Quantity    int    `firestore:"qty"`
	LineTotal   string `firestore:"lineTotal"`
}

type orderDocument struct {
	Number          string              `firestore:"number"`
	ClientID        string              `firestore:"clientId"`
	Status          string              `firestore:"status"`
	Items           []orderItemDocument `firestore:"items"`
	PromoCode       string              `firestore:"promoCode,omitempty"`
	Subtotal        string              `firestore:"subtotal"`
	LoyaltyDiscount string              `firestore:"loyaltyDiscount"`
	PromoDiscount   string              `firestore:"promoDiscount"`
	TotalHT         string              `firestore:"totalHt"`
	TaxAmount       string              `firestore:"taxAmount"`
	TotalTTC        string              `firestore:"totalTtc"`
	RemainingAmount string              `firestore:"remainingAmount"`
	PaymentCount    int                 `firestore:"paymentCount"`
	RejectionReason string              `firestore:"rejectionReason,omitempty"`
	CancelReason    string              `firestore:"cancelReason,omitempty"`
	ConfirmedAt     *time.Time          `firestore:"confirmedAt,omitempty"`
	CanceledAt      *time.Time          `firestore:"canceledAt,omitempty"`
	CreatedAt       time.Time           `firestore:"createdAt"`
	UpdatedAt       time.Time           `firestore:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			ProductID:   strings.TrimSpace(item.ProductID),
			ProductName: strings.TrimSpace(item.ProductName),
			UnitPrice:   encodeAmount(item.UnitPrice),
			Quantity:    item.Quantity,
			LineTotal:   encodeAmount(item.LineTotal),
		}
	}
	return orderDocument{
		Number:          strings.TrimSpace(order.Number),
		ClientID:        strings.TrimSpace(order.ClientID),
		Status:          string(order.Status),
		Items:           items,
		PromoCode:       strings.TrimSpace(order.PromoCode),
		Subtotal:        encodeAmount(order.Subtotal),
		LoyaltyDiscount: encodeAmount(order.LoyaltyDiscount),
		PromoDiscount:   encodeAmount(order.PromoDiscount),
		TotalHT:         encodeAmount(order.TotalHT),
		TaxAmount:       encodeAmount(order.TaxAmount),
		TotalTTC:        encodeAmount(order.TotalTTC),
		RemainingAmount: encodeAmount(order.RemainingAmount),
		PaymentCount:    order.PaymentCount,
		RejectionReason: strings.TrimSpace(order.RejectionReason),
		CancelReason:    strings.TrimSpace(order.CancelReason),
		ConfirmedAt:     order.ConfirmedAt,
		CanceledAt:      order.CanceledAt,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) (domain.Order, error) {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		unitPrice, err := decodeAmount(item.UnitPrice, "order.item.unitPrice")
		if err != nil {
			return domain.Order{}, err
		}
		lineTotal, err := decodeAmount(item.LineTotal, "order.item.lineTotal")
		if err != nil {
			return domain.Order{}, err
		}
		items[i] = domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   unitPrice,
			Quantity:    item.Quantity,
			LineTotal:   lineTotal,
		}
	}

	amounts := make(map[string]string, 7)
	amounts["order.subtotal"] = d.Subtotal
	amounts["order.loyaltyDiscount"] = d.LoyaltyDiscount
	amounts["order.promoDiscount"] = d.PromoDiscount
	amounts["order.totalHt"] = d.TotalHT
	amounts["order.taxAmount"] = d.TaxAmount
	amounts["order.totalTtc"] = d.TotalTTC
	amounts["order.remainingAmount"] = d.RemainingAmount

	decoded := make(map[string]domain.Amount, len(amounts))
	for field, raw := range amounts {
		value, err := decodeAmount(raw, field)
		if err != nil {
			return domain.Order{}, err
		}
		decoded[field] = value
	}

	return domain.Order{
		ID:              id,
		Number:          d.Number,
		ClientID:        d.ClientID,
		Status:          domain.OrderStatus(d.Status),
		Items:           items,
		PromoCode:       d.PromoCode,
		Subtotal:        decoded["order.subtotal"],
		LoyaltyDiscount: decoded["order.loyaltyDiscount"],
		PromoDiscount:   decoded["order.promoDiscount"],
		TotalHT:         decoded["order.totalHt"],
		TaxAmount:       decoded["order.taxAmount"],
		TotalTTC:        decoded["order.totalTtc"],
		RemainingAmount: decoded["order.remainingAmount"],
		PaymentCount:    d.PaymentCount,
		RejectionReason: d.RejectionReason,
		CancelReason:    d.CancelReason,
		ConfirmedAt:     d.ConfirmedAt,
		CanceledAt:      d.CanceledAt,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

// OrderRepository implements repositories.OrderRepository backed by Firestore.
// Confirmation, cancellation, and payment recording run as transactions so the
// order, its products, the promo code, and the client stay consistent.
type OrderRepository struct {
	provider *pfirestore.Provider
	orders   *pfirestore.BaseRepository[orderDocument]
	clients  *pfirestore.BaseRepository[clientDocument]
	products *pfirestore.BaseRepository[productDocument]
	payments *pfirestore.BaseRepository[paymentDocument]
	promos   *pfirestore.BaseRepository[promoDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		provider: provider,
		orders:   pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		clients:  pfirestore.NewBaseRepository[clientDocument](provider, clientsCollection, nil, nil),
		products: pfirestore.NewBaseRepository[productDocument](provider, productsCollection, nil, nil),
		payments: pfirestore.NewBaseRepository[paymentDocument](provider, paymentsCollection, nil, nil),
		promos:   pfirestore.NewBaseRepository[promoDocument](provider, promoCodesCollection, nil, nil),
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.orders == nil {
		return errors.New("order repository not initialised")
	}
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order insert: id is required")
	}

	ref, err := r.orders.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.orders == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.orders.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

// Confirm transitions a fully paid PENDING order to CONFIRMED. All reads run
// before any write per Firestore transaction rules: the order, the client,
// every referenced product, and the promo code are loaded and validated first,
// then stock decrements, promo consumption, client statistics, and the order
// status are written together.
func (r *OrderRepository) Confirm(ctx context.Context, req repositories.OrderConfirmRequest) (repositories.OrderConfirmResult, error) {
	if r == nil || r.provider == nil {
		return repositories.OrderConfirmResult{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return repositories.OrderConfirmResult{}, errors.New("order confirm: order id is required")
	}

	now := req.Now.UTC()
	var result repositories.OrderConfirmResult

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		orderSnap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		var orderDoc orderDocument
		if err := orderSnap.DataTo(&orderDoc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
		if orderDoc.Status != string(domain.OrderStatusPending) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s is %s, not PENDING", orderID, orderDoc.Status), nil)
		}
		remaining, err := decodeAmount(orderDoc.RemainingAmount, "order.remainingAmount")
		if err != nil {
			return err
		}
		if !domain.IsMoneyZero(remaining) {
			return repositories.NewOrderError(repositories.OrderErrorUnpaidBalance, fmt.Sprintf("order %s has %s remaining", orderID, orderDoc.RemainingAmount), nil)
		}

		clientRef, err := r.clients.DocumentRef(ctx, orderDoc.ClientID)
		if err != nil {
			return err
		}
		clientSnap, err := tx.Get(clientRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorClientNotFound, fmt.Sprintf("client %s not found", orderDoc.ClientID), err)
			}
			return err
		}
		var clientDoc clientDocument
		if err := clientSnap.DataTo(&clientDoc); err != nil {
			return fmt.Errorf("decode client %s: %w", orderDoc.ClientID, err)
		}

		// The same product can appear on several lines.
		quantities := make(map[string]int)
		productOrder := make([]string, 0, len(orderDoc.Items))
		for _, item := range orderDoc.Items {
			productID := strings.TrimSpace(item.ProductID)
			if _, seen := quantities[productID]; !seen {
				productOrder = append(productOrder, productID)
			}
			quantities[productID] += item.Quantity
		}

		productRefs := make(map[string]*firestore.DocumentRef, len(productOrder))
		productDocs := make(map[string]productDocument, len(productOrder))
		for _, productID := range productOrder {
			productRef, err := r.products.DocumentRef(ctx, productID)
			if err != nil {
				return err
			}
			snap, err := tx.Get(productRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewOrderError(repositories.OrderErrorProductUnavailable, fmt.Sprintf("product %s not found", productID), err)
				}
				return err
			}
			var productDoc productDocument
			if err := snap.DataTo(&productDoc); err != nil {
				return fmt.Errorf("decode product %s: %w", productID, err)
			}
			if productDoc.Deleted {
				return repositories.NewOrderError(repositories.OrderErrorProductUnavailable, fmt.Sprintf("product %s is no longer sold", productID), nil)
			}
			if productDoc.Stock < quantities[productID] {
				return repositories.NewOrderError(repositories.OrderErrorInsufficientStock, fmt.Sprintf("insufficient stock for product %s", productID), nil)
			}
			productRefs[productID] = productRef
			productDocs[productID] = productDoc
		}

		var promoRef *firestore.DocumentRef
		var promoDoc promoDocument
		if orderDoc.PromoCode != "" {
			promoRef, err = r.promos.DocumentRef(ctx, orderDoc.PromoCode)
			if err != nil {
				return err
			}
			snap, err := tx.Get(promoRef)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return repositories.NewOrderError(repositories.OrderErrorPromoNotFound, fmt.Sprintf("promo code %s not found", orderDoc.PromoCode), err)
				}
				return err
			}
			if err := snap.DataTo(&promoDoc); err != nil {
				return fmt.Errorf("decode promo code %s: %w", orderDoc.PromoCode, err)
			}
			if promoDoc.Used {
				return repositories.NewOrderError(repositories.OrderErrorPromoUsed, fmt.Sprintf("promo code %s already used", orderDoc.PromoCode), nil)
			}
		}

		// All reads done, apply the writes.
		for _, productID := range productOrder {
			productDoc := productDocs[productID]
			productDoc.Stock -= quantities[productID]
			productDoc.UpdatedAt = now
			if err := tx.Set(productRefs[productID], productDoc); err != nil {
				return err
			}
		}

		if promoRef != nil {
			promoDoc.Used = true
			promoDoc.UsedAt = &now
			promoDoc.OrderID = orderID
			if err := tx.Set(promoRef, promoDoc); err != nil {
				return err
			}
		}

		totalSpent, err := decodeAmount(clientDoc.TotalSpent, "client.totalSpent")
		if err != nil {
			return err
		}
		totalTTC, err := decodeAmount(orderDoc.TotalTTC, "order.totalTtc")
		if err != nil {
			return err
		}
		clientDoc.TotalOrders++
		totalSpent = domain.RoundMoney(totalSpent.Add(totalTTC))
		clientDoc.TotalSpent = encodeAmount(totalSpent)
		clientDoc.Tier = string(domain.TierFor(clientDoc.TotalOrders, totalSpent))
		if clientDoc.FirstOrderAt == nil {
			clientDoc.FirstOrderAt = &now
		}
		clientDoc.LastOrderAt = &now
		clientDoc.UpdatedAt = now
		if err := tx.Set(clientRef, clientDoc); err != nil {
			return err
		}

		orderDoc.Status = string(domain.OrderStatusConfirmed)
		orderDoc.ConfirmedAt = &now
		orderDoc.UpdatedAt = now
		if err := tx.Set(orderRef, orderDoc); err != nil {
			return err
		}

		confirmedOrder, err := orderDoc.toDomain(orderID)
		if err != nil {
			return err
		}
		updatedClient, err := clientDoc.toDomain(orderDoc.ClientID)
		if err != nil {
			return err
		}
		result = repositories.OrderConfirmResult{Order: confirmedOrder, Client: updatedClient}
		return nil
	})
	if err != nil {
		return repositories.OrderConfirmResult{}, wrapOrderError("orders.confirm", err)
	}
	return result, nil
}

// Cancel transitions a PENDING order to CANCELED.
func (r *OrderRepository) Cancel(ctx context.Context, req repositories.OrderCancelRequest) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order cancel: order id is required")
	}

	now := req.Now.UTC()
	var canceled domain.Order

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		var orderDoc orderDocument
		if err := snap.DataTo(&orderDoc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}
		if orderDoc.Status != string(domain.OrderStatusPending) {
			return repositories.NewOrderError(repositories.OrderErrorInvalidState, fmt.Sprintf("order %s is %s, not PENDING", orderID, orderDoc.Status), nil)
		}

		orderDoc.Status = string(domain.OrderStatusCanceled)
		orderDoc.CanceledAt = &now
		orderDoc.CancelReason = strings.TrimSpace(req.Reason)
		orderDoc.UpdatedAt = now
		if err := tx.Set(orderRef, orderDoc); err != nil {
			return err
		}

		canceled, err = orderDoc.toDomain(orderID)
		return err
	})
	if err != nil {
		return domain.Order{}, wrapOrderError("orders.cancel", err)
	}
	return canceled, nil
}

// RecordPayment appends a ledger entry and decrements the remaining balance in
// one transaction. The payment number is derived from the order's payment
// count so the sequence stays dense even under concurrent writers.
func (r *OrderRepository) RecordPayment(ctx context.Context, req repositories.PaymentRecordRequest) (repositories.PaymentRecordResult, error) {
	if r == nil || r.provider == nil {
		return repositories.PaymentRecordResult{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return repositories.PaymentRecordResult{}, errors.New("order record payment: order id is required")
	}
	if strings.TrimSpace(req.Payment.ID) == "" {
		return repositories.PaymentRecordResult{}, errors.New("order record payment: payment id is required")
	}

	now := req.Now.UTC()
	var result repositories.PaymentRecordResult

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		orderRef, err := r.orders.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		orderSnap, err := tx.Get(orderRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorNotFound, fmt.Sprintf("order %s not found", orderID), err)
			}
			return err
		}
		var orderDoc orderDocument
		if err := orderSnap.DataTo(&orderDoc); err != nil {
			return fmt.Errorf("decode order %s: %w", orderID, err)
		}

		remaining, err := decodeAmount(orderDoc.RemainingAmount, "order.remainingAmount")
		if err != nil {
			return err
		}
		amount := domain.RoundMoney(req.Payment.Amount)
		if amount.GreaterThan(remaining) {
			return repositories.NewOrderError(repositories.OrderErrorOverpayment, fmt.Sprintf("payment %s exceeds remaining %s on order %s", encodeAmount(amount), orderDoc.RemainingAmount, orderID), nil)
		}

		payRef, err := r.payments.DocumentRef(ctx, req.Payment.ID)
		if err != nil {
			return err
		}

		payment := req.Payment
		payment.OrderID = orderID
		payment.Number = orderDoc.PaymentCount + 1
		payment.Amount = amount
		if payment.Status == "" {
			payment.Status = domain.PaymentStatusPending
		}
		if payment.Status == domain.PaymentStatusCollected && payment.CollectedAt == nil {
			payment.CollectedAt = &now
		}
		payment.CreatedAt = now
		payment.UpdatedAt = now

		payDoc := newPaymentDocument(payment)
		if err := tx.Create(payRef, payDoc); err != nil {
			return err
		}

		orderDoc.RemainingAmount = encodeAmount(domain.RoundMoney(remaining.Sub(amount)))
		orderDoc.PaymentCount = payment.Number
		orderDoc.UpdatedAt = now
		if err := tx.Set(orderRef, orderDoc); err != nil {
			return err
		}

		updatedOrder, err := orderDoc.toDomain(orderID)
		if err != nil {
			return err
		}
		storedPayment, err := payDoc.toDomain(req.Payment.ID)
		if err != nil {
			return err
		}
		result = repositories.PaymentRecordResult{Payment: storedPayment, Order: updatedOrder}
		return nil
	})
	if err != nil {
		return repositories.PaymentRecordResult{}, wrapOrderError("orders.recordPayment", err)
	}
	return result, nil
}

type orderPageToken struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	pageSize := normalizePageSize(filter.Pagination.PageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}

	query := client.Collection(ordersCollection).Query
	if clientID := strings.TrimSpace(filter.ClientID); clientID != "" {
		query = query.Where("clientId", "==", clientID)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		query = query.Where("status", "in", statuses)
	}
	if filter.DateRange.From != nil {
		query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
	}
	if filter.DateRange.To != nil {
		query = query.Where("createdAt", "<=", filter.DateRange.To.UTC())
	}
	query = query.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var decoded orderPageToken
		if err := decodePageToken(token, &decoded); err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var orders []domain.Order
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("decode order %s: %w", snap.Ref.ID, err)
		}
		entity, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		orders = append(orders, entity)
	}

	hasMore := len(orders) > pageSize
	if hasMore {
		orders = orders[:pageSize]
	}
	var nextToken string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		encoded, err := encodePageToken(orderPageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Order]{Items: orders, NextPageToken: nextToken}, nil
}

func wrapOrderError(op string, err error) error {
	if err == nil {
		return nil
	}
	var orderErr *repositories.OrderError
	if errors.As(err, &orderErr) {
		if orderErr.Op == "" {
			orderErr.Op = op
		}
		return orderErr
	}
	return pfirestore.WrapError(op, err)
}
