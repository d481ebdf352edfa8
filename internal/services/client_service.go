package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	domain "github.com/smartshop/api/internal/domain"
	"github.com/smartshop/api/internal/repositories"
)

var (
	// ErrClientInvalidInput signals the caller provided invalid arguments.
	ErrClientInvalidInput = errors.New("client: invalid input")
	// ErrClientNotFound indicates the client could not be located.
	ErrClientNotFound = errors.New("client: not found")
	// ErrClientEmailTaken indicates another client already uses the email.
	ErrClientEmailTaken = errors.New("client: email already registered")
)

// ClientServiceDeps bundles the collaborators required to construct a client service.
type ClientServiceDeps struct {
	Clients     repositories.ClientRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type clientService struct {
	repo   repositories.ClientRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewClientService wires dependencies into a concrete ClientService implementation.
func NewClientService(deps ClientServiceDeps) (ClientService, error) {
	if deps.Clients == nil {
		return nil, errors.New("client service: client repository is required")
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

	return &clientService{
		repo: deps.Clients,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *clientService) CreateClient(ctx context.Context, cmd CreateClientCommand) (domain.Client, error) {
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return domain.Client{}, fmt.Errorf("%w: name is required", ErrClientInvalidInput)
	}
	email, err := normalizeEmail(cmd.Email)
	if err != nil {
		return domain.Client{}, err
	}

	// Uniqueness is checked up front; the racing window between check and
	// insert is accepted for this dataset size.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return domain.Client{}, fmt.Errorf("%w: %s", ErrClientEmailTaken, email)
	} else if !isClientMissing(err) {
		return domain.Client{}, s.mapRepositoryError(err)
	}

	now := s.now()
	client := domain.Client{
		ID:         ensureClientID(s.newID()),
		Name:       name,
		Email:      email,
		Phone:      strings.TrimSpace(cmd.Phone),
		Address:    strings.TrimSpace(cmd.Address),
		Tier:       domain.TierBasic,
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, client); err != nil {
		return domain.Client{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "client_created", map[string]any{"clientId": client.ID})

	return client, nil
}

func (s *clientService) UpdateClient(ctx context.Context, cmd UpdateClientCommand) (domain.Client, error) {
	clientID := strings.TrimSpace(cmd.ClientID)
	if clientID == "" {
		return domain.Client{}, fmt.Errorf("%w: client id is required", ErrClientInvalidInput)
	}

	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return domain.Client{}, s.mapRepositoryError(err)
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return domain.Client{}, fmt.Errorf("%w: name cannot be empty", ErrClientInvalidInput)
		}
		client.Name = name
	}
	if cmd.Email != nil {
		email, err := normalizeEmail(*cmd.Email)
		if err != nil {
			return domain.Client{}, err
		}
		if email != client.Email {
			if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing.ID != client.ID {
				return domain.Client{}, fmt.Errorf("%w: %s", ErrClientEmailTaken, email)
			} else if err != nil && !isClientMissing(err) {
				return domain.Client{}, s.mapRepositoryError(err)
			}
			client.Email = email
		}
	}
	if cmd.Phone != nil {
		client.Phone = strings.TrimSpace(*cmd.Phone)
	}
	if cmd.Address != nil {
		client.Address = strings.TrimSpace(*cmd.Address)
	}
	client.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, client); err != nil {
		return domain.Client{}, s.mapRepositoryError(err)
	}
	return client, nil
}

func (s *clientService) GetClient(ctx context.Context, clientID string) (domain.Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.Client{}, fmt.Errorf("%w: client id is required", ErrClientInvalidInput)
	}
	client, err := s.repo.FindByID(ctx, clientID)
	if err != nil {
		return domain.Client{}, s.mapRepositoryError(err)
	}
	return client, nil
}

func (s *clientService) ListClients(ctx context.Context, filter ClientFilter) (domain.CursorPage[domain.Client], error) {
	page, err := s.repo.List(ctx, repositories.ClientListFilter{
		Tier:       filter.Tier,
		Pagination: filter.Pagination,
	})
	if err != nil {
		return domain.CursorPage[domain.Client]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *clientService) now() time.Time {
	return s.clock()
}

func (s *clientService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if isClientMissing(err) {
		return fmt.Errorf("%w: %s", ErrClientNotFound, err.Error())
	}
	if isRepositoryConflict(err) {
		return fmt.Errorf("%w: %s", ErrClientEmailTaken, err.Error())
	}
	return err
}

func isClientMissing(err error) bool {
	if isRepositoryNotFound(err) {
		return true
	}
	var orderErr *repositories.OrderError
	return errors.As(err, &orderErr) && orderErr.Code == repositories.OrderErrorClientNotFound
}

func normalizeEmail(email string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(normalized, "@")
	if at <= 0 || at == len(normalized)-1 || !strings.Contains(normalized[at+1:], ".") {
		return "", fmt.Errorf("%w: email %q is malformed", ErrClientInvalidInput, email)
	}
	return normalized, nil
}

func ensureClientID(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		trimmed = ulid.Make().String()
	}
	if strings.HasPrefix(trimmed, "cli_") {
		return trimmed
	}
	return "cli_" + trimmed
}
