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
	// ErrPromoInvalidCode signals the code does not match the accepted format.
	ErrPromoInvalidCode = errors.New("promo: malformed code")
	// ErrPromoNotFound indicates the code is not registered.
	ErrPromoNotFound = errors.New("promo: not found")
	// ErrPromoAlreadyUsed indicates the single-use code was consumed.
	ErrPromoAlreadyUsed = errors.New("promo: already used")
	// ErrPromoExists indicates the code is already registered.
	ErrPromoExists = errors.New("promo: code already exists")
)

// PromoCodeServiceDeps bundles the collaborators required to construct a promo code service.
type PromoCodeServiceDeps struct {
	PromoCodes  repositories.PromoCodeRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type promoCodeService struct {
	repo   repositories.PromoCodeRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewPromoCodeService wires dependencies into a concrete PromoCodeService implementation.
func NewPromoCodeService(deps PromoCodeServiceDeps) (PromoCodeService, error) {
	if deps.PromoCodes == nil {
		return nil, errors.New("promo code service: promo code repository is required")
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

	return &promoCodeService{
		repo: deps.PromoCodes,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *promoCodeService) CreatePromoCode(ctx context.Context, cmd CreatePromoCodeCommand) (domain.PromoCode, error) {
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" {
		code = s.generateCode()
	}
	if !domain.ValidPromoCode(code) {
		return domain.PromoCode{}, fmt.Errorf("%w: %s", ErrPromoInvalidCode, code)
	}

	promo := domain.PromoCode{
		Code:      code,
		CreatedAt: s.now(),
	}

	if err := s.repo.Insert(ctx, promo); err != nil {
		if isRepositoryConflict(err) {
			return domain.PromoCode{}, fmt.Errorf("%w: %s", ErrPromoExists, code)
		}
		return domain.PromoCode{}, err
	}

	s.logger(ctx, "promo_code_created", map[string]any{"code": code})

	return promo, nil
}

func (s *promoCodeService) GetPromoCode(ctx context.Context, code string) (domain.PromoCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !domain.ValidPromoCode(code) {
		return domain.PromoCode{}, fmt.Errorf("%w: %s", ErrPromoInvalidCode, code)
	}
	promo, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if isRepositoryNotFound(err) {
			return domain.PromoCode{}, fmt.Errorf("%w: %s", ErrPromoNotFound, code)
		}
		return domain.PromoCode{}, err
	}
	return promo, nil
}

func (s *promoCodeService) ListPromoCodes(ctx context.Context, filter PromoCodeFilter) (domain.CursorPage[domain.PromoCode], error) {
	page, err := s.repo.List(ctx, repositories.PromoCodeListFilter{
		OnlyUnused: filter.OnlyUnused,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.PromoCode]{}, err
	}
	return page, nil
}

func (s *promoCodeService) now() time.Time {
	return s.clock()
}

// generateCode derives the four-character suffix from the tail of a fresh
// identifier. ULIDs use Crockford base32, a subset of the accepted alphabet.
func (s *promoCodeService) generateCode() string {
	id := strings.ToUpper(strings.TrimSpace(s.newID()))
	if len(id) < 4 {
		id = ulid.Make().String()
	}
	return "PROMO-" + id[len(id)-4:]
}
