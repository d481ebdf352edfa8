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

const paymentsCollection = "payments"

type paymentDocument struct {
	OrderID     string     `firestore:"orderId"`
	Number      int        `firestore:"number"`
	Amount      string     `firestore:"amount"`
	Method      string     `firestore:"method"`
	Status      string     `firestore:"status"`
	Reference   string     `firestore:"reference,omitempty"`
	BankName    string     `firestore:"bankName,omitempty"`
	DueDate     *time.Time `firestore:"dueDate,omitempty"`
	CollectedAt *time.Time `firestore:"collectedAt,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
}

func newPaymentDocument(payment domain.Payment) paymentDocument {
	return paymentDocument{
		OrderID:     strings.TrimSpace(payment.OrderID),
		Number:      payment.Number,
		Amount:      encodeAmount(payment.Amount),
		Method:      string(payment.Method),
		Status:      string(payment.Status),
		Reference:   strings.TrimSpace(payment.Reference),
		BankName:    strings.TrimSpace(payment.BankName),
		DueDate:     payment.DueDate,
		CollectedAt: payment.CollectedAt,
		CreatedAt:   payment.CreatedAt.UTC(),
		UpdatedAt:   payment.UpdatedAt.UTC(),
	}
}

func (d paymentDocument) toDomain(id string) (domain.Payment, error) {
	amount, err := decodeAmount(d.Amount, "payment.amount")
	if err != nil {
		return domain.Payment{}, err
	}
	return domain.Payment{
		ID:          id,
		OrderID:     d.OrderID,
		Number:      d.Number,
		Amount:      amount,
		Method:      domain.PaymentMethod(d.Method),
		Status:      domain.PaymentStatus(d.Status),
		Reference:   d.Reference,
		BankName:    d.BankName,
		DueDate:     d.DueDate,
		CollectedAt: d.CollectedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

// PaymentRepository implements repositories.PaymentRepository backed by Firestore.
type PaymentRepository struct {
	provider *pfirestore.Provider
	payments *pfirestore.BaseRepository[paymentDocument]
}

// NewPaymentRepository constructs a Firestore-backed payment repository.
func NewPaymentRepository(provider *pfirestore.Provider) (*PaymentRepository, error) {
	if provider == nil {
		return nil, errors.New("payment repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[paymentDocument](provider, paymentsCollection, nil, nil)
	return &PaymentRepository{provider: provider, payments: base}, nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, paymentID string) (domain.Payment, error) {
	if r == nil || r.payments == nil {
		return domain.Payment{}, errors.New("payment repository not initialised")
	}
	doc, err := r.payments.Get(ctx, paymentID)
	if err != nil {
		return domain.Payment{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

type paymentPageToken struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func (r *PaymentRepository) List(ctx context.Context, filter repositories.PaymentListFilter) (domain.CursorPage[domain.Payment], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Payment]{}, errors.New("payment repository not initialised")
	}

	pageSize := normalizePageSize(filter.Pagination.PageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Payment]{}, pfirestore.WrapError("payments.list", err)
	}

	query := client.Collection(paymentsCollection).Query
	if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
		query = query.Where("orderId", "==", orderID)
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			statuses[i] = string(s)
		}
		query = query.Where("status", "in", statuses)
	}
	query = query.OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var decoded paymentPageToken
		if err := decodePageToken(token, &decoded); err != nil {
			return domain.CursorPage[domain.Payment]{}, pfirestore.WrapError("payments.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var payments []domain.Payment
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Payment]{}, pfirestore.WrapError("payments.list", err)
		}
		var doc paymentDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Payment]{}, fmt.Errorf("decode payment %s: %w", snap.Ref.ID, err)
		}
		entity, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return domain.CursorPage[domain.Payment]{}, err
		}
		payments = append(payments, entity)
	}

	hasMore := len(payments) > pageSize
	if hasMore {
		payments = payments[:pageSize]
	}
	var nextToken string
	if hasMore && len(payments) > 0 {
		last := payments[len(payments)-1]
		encoded, err := encodePageToken(paymentPageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Payment]{}, pfirestore.WrapError("payments.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Payment]{Items: payments, NextPageToken: nextToken}, nil
}

// UpdateStatus mutates the collection status of a ledger entry. The collection
// timestamp is written once, on the first transition to COLLECTED.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, req repositories.PaymentStatusUpdate) (domain.Payment, error) {
	if r == nil || r.provider == nil {
		return domain.Payment{}, errors.New("payment repository not initialised")
	}
	paymentID := strings.TrimSpace(req.PaymentID)
	if paymentID == "" {
		return domain.Payment{}, errors.New("payment update status: payment id is required")
	}

	now := req.Now.UTC()
	var updated domain.Payment

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.payments.DocumentRef(ctx, paymentID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return repositories.NewOrderError(repositories.OrderErrorPaymentNotFound, fmt.Sprintf("payment %s not found", paymentID), err)
			}
			return err
		}
		var doc paymentDocument
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("decode payment %s: %w", paymentID, err)
		}

		doc.Status = string(req.Status)
		if req.Status == domain.PaymentStatusCollected && doc.CollectedAt == nil {
			doc.CollectedAt = &now
		}
		doc.UpdatedAt = now

		if err := tx.Set(ref, doc); err != nil {
			return err
		}
		updated, err = doc.toDomain(paymentID)
		return err
	})
	if err != nil {
		return domain.Payment{}, wrapOrderError("payments.updateStatus", err)
	}
	return updated, nil
}
