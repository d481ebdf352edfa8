package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	domain "github.com/smartshop/api/internal/domain"
	pfirestore "github.com/smartshop/api/internal/platform/firestore"
	"github.com/smartshop/api/internal/repositories"
)

const promoCodesCollection = "promoCodes"

type promoDocument struct {
	Used      bool       `firestore:"used"`
	UsedAt    *time.Time `firestore:"usedAt,omitempty"`
	OrderID   string     `firestore:"orderId,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt"`
}

func newPromoDocument(promo domain.PromoCode) promoDocument {
	return promoDocument{
		Used:      promo.Used,
		UsedAt:    promo.UsedAt,
		OrderID:   strings.TrimSpace(promo.OrderID),
		CreatedAt: promo.CreatedAt.UTC(),
	}
}

func (d promoDocument) toDomain(code string) domain.PromoCode {
	return domain.PromoCode{
		Code:      code,
		Used:      d.Used,
		UsedAt:    d.UsedAt,
		OrderID:   d.OrderID,
		CreatedAt: d.CreatedAt,
	}
}

// PromoCodeRepository implements repositories.PromoCodeRepository keyed by the code itself.
type PromoCodeRepository struct {
	provider *pfirestore.Provider
	promos   *pfirestore.BaseRepository[promoDocument]
}

// NewPromoCodeRepository constructs a Firestore-backed promo code repository.
func NewPromoCodeRepository(provider *pfirestore.Provider) (*PromoCodeRepository, error) {
	if provider == nil {
		return nil, errors.New("promo code repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[promoDocument](provider, promoCodesCollection, nil, nil)
	return &PromoCodeRepository{provider: provider, promos: base}, nil
}

func (r *PromoCodeRepository) Insert(ctx context.Context, promo domain.PromoCode) error {
	if r == nil || r.promos == nil {
		return errors.New("promo code repository not initialised")
	}
	code := strings.TrimSpace(promo.Code)
	if code == "" {
		return errors.New("promo insert: code is required")
	}

	ref, err := r.promos.DocumentRef(ctx, code)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newPromoDocument(promo)); err != nil {
		return pfirestore.WrapError("promoCodes.insert", err)
	}
	return nil
}

func (r *PromoCodeRepository) FindByCode(ctx context.Context, code string) (domain.PromoCode, error) {
	if r == nil || r.promos == nil {
		return domain.PromoCode{}, errors.New("promo code repository not initialised")
	}
	doc, err := r.promos.Get(ctx, strings.TrimSpace(code))
	if err != nil {
		return domain.PromoCode{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

type promoPageToken struct {
	CreatedAt time.Time `json:"createdAt"`
	Code      string    `json:"code"`
}

func (r *PromoCodeRepository) List(ctx context.Context, filter repositories.PromoCodeListFilter) (domain.CursorPage[domain.PromoCode], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.PromoCode]{}, errors.New("promo code repository not initialised")
	}

	pageSize := normalizePageSize(filter.Pagination.PageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.PromoCode]{}, pfirestore.WrapError("promoCodes.list", err)
	}

	query := client.Collection(promoCodesCollection).Query
	if filter.OnlyUnused {
		query = query.Where("used", "==", false)
	}
	query = query.OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var decoded promoPageToken
		if err := decodePageToken(token, &decoded); err != nil {
			return domain.CursorPage[domain.PromoCode]{}, pfirestore.WrapError("promoCodes.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.Code)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var promos []domain.PromoCode
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.PromoCode]{}, pfirestore.WrapError("promoCodes.list", err)
		}
		var doc promoDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.PromoCode]{}, fmt.Errorf("decode promo code %s: %w", snap.Ref.ID, err)
		}
		promos = append(promos, doc.toDomain(snap.Ref.ID))
	}

	hasMore := len(promos) > pageSize
	if hasMore {
		promos = promos[:pageSize]
	}
	var nextToken string
	if hasMore && len(promos) > 0 {
		last := promos[len(promos)-1]
		encoded, err := encodePageToken(promoPageToken{CreatedAt: last.CreatedAt, Code: last.Code})
		if err != nil {
			return domain.CursorPage[domain.PromoCode]{}, pfirestore.WrapError("promoCodes.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.PromoCode]{Items: promos, NextPageToken: nextToken}, nil
}
