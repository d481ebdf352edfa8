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

const clientsCollection = "clients"

type clientDocument struct {
	Name         string     `firestore:"name"`
	Email        string     `firestore:"email"`
	Phone        string     `firestore:"phone,omitempty"`
	Address      string     `firestore:"address,omitempty"`
	Tier         string     `firestore:"tier"`
	TotalOrders  int        `firestore:"totalOrders"`
	TotalSpent   string     `firestore:"totalSpent"`
	FirstOrderAt *time.Time `firestore:"firstOrderAt,omitempty"`
	LastOrderAt  *time.Time `firestore:"lastOrderAt,omitempty"`
	CreatedAt    time.Time  `firestore:"createdAt"`
	UpdatedAt    time.Time  `firestore:"updatedAt"`
}

func newClientDocument(client domain.Client) clientDocument {
	return clientDocument{
		Name:         strings.TrimSpace(client.Name),
		Email:        strings.ToLower(strings.TrimSpace(client.Email)),
		Phone:        strings.TrimSpace(client.Phone),
		Address:      strings.TrimSpace(client.Address),
		Tier:         string(client.Tier),
		TotalOrders:  client.TotalOrders,
		TotalSpent:   encodeAmount(client.TotalSpent),
		FirstOrderAt: client.FirstOrderAt,
		LastOrderAt:  client.LastOrderAt,
		CreatedAt:    client.CreatedAt.UTC(),
		UpdatedAt:    client.UpdatedAt.UTC(),
	}
}

func (d clientDocument) toDomain(id string) (domain.Client, error) {
	totalSpent, err := decodeAmount(d.TotalSpent, "client.totalSpent")
	if err != nil {
		return domain.Client{}, err
	}
	return domain.Client{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		Phone:        d.Phone,
		Address:      d.Address,
		Tier:         domain.CustomerTier(d.Tier),
		TotalOrders:  d.TotalOrders,
		TotalSpent:   totalSpent,
		FirstOrderAt: d.FirstOrderAt,
		LastOrderAt:  d.LastOrderAt,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

// ClientRepository implements repositories.ClientRepository backed by Firestore.
type ClientRepository struct {
	provider *pfirestore.Provider
	clients  *pfirestore.BaseRepository[clientDocument]
}

// NewClientRepository constructs a Firestore-backed client repository.
func NewClientRepository(provider *pfirestore.Provider) (*ClientRepository, error) {
	if provider == nil {
		return nil, errors.New("client repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[clientDocument](provider, clientsCollection, nil, nil)
	return &ClientRepository{provider: provider, clients: base}, nil
}

func (r *ClientRepository) Insert(ctx context.Context, client domain.Client) error {
	if r == nil || r.clients == nil {
		return errors.New("client repository not initialised")
	}
	if strings.TrimSpace(client.ID) == "" {
		return errors.New("client insert: id is required")
	}

	ref, err := r.clients.DocumentRef(ctx, client.ID)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, newClientDocument(client)); err != nil {
		return pfirestore.WrapError("clients.insert", err)
	}
	return nil
}

func (r *ClientRepository) Update(ctx context.Context, client domain.Client) error {
	if r == nil || r.clients == nil {
		return errors.New("client repository not initialised")
	}
	if strings.TrimSpace(client.ID) == "" {
		return errors.New("client update: id is required")
	}
	if _, err := r.clients.Set(ctx, client.ID, newClientDocument(client)); err != nil {
		return err
	}
	return nil
}

func (r *ClientRepository) FindByID(ctx context.Context, clientID string) (domain.Client, error) {
	if r == nil || r.clients == nil {
		return domain.Client{}, errors.New("client repository not initialised")
	}
	doc, err := r.clients.Get(ctx, clientID)
	if err != nil {
		return domain.Client{}, err
	}
	return doc.Data.toDomain(doc.ID)
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (domain.Client, error) {
	if r == nil || r.clients == nil {
		return domain.Client{}, errors.New("client repository not initialised")
	}
	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return domain.Client{}, errors.New("client find by email: email is required")
	}

	docs, err := r.clients.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("email", "==", normalized).Limit(1)
	})
	if err != nil {
		return domain.Client{}, err
	}
	if len(docs) == 0 {
		return domain.Client{}, repositories.NewOrderError(repositories.OrderErrorClientNotFound, fmt.Sprintf("client with email %s not found", normalized), nil)
	}
	return docs[0].Data.toDomain(docs[0].ID)
}

type clientPageToken struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
}

func (r *ClientRepository) List(ctx context.Context, filter repositories.ClientListFilter) (domain.CursorPage[domain.Client], error) {
	if r == nil || r.provider == nil {
		return domain.CursorPage[domain.Client]{}, errors.New("client repository not initialised")
	}

	pageSize := normalizePageSize(filter.Pagination.PageSize)

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.CursorPage[domain.Client]{}, pfirestore.WrapError("clients.list", err)
	}

	query := client.Collection(clientsCollection).Query
	if len(filter.Tier) > 0 {
		tiers := make([]string, len(filter.Tier))
		for i, tier := range filter.Tier {
			tiers[i] = string(tier)
		}
		query = query.Where("tier", "in", tiers)
	}
	query = query.OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize + 1)

	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		var decoded clientPageToken
		if err := decodePageToken(token, &decoded); err != nil {
			return domain.CursorPage[domain.Client]{}, pfirestore.WrapError("clients.list", err)
		}
		query = query.StartAfter(decoded.CreatedAt, decoded.ID)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var clients []domain.Client
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return domain.CursorPage[domain.Client]{}, pfirestore.WrapError("clients.list", err)
		}
		var doc clientDocument
		if err := snap.DataTo(&doc); err != nil {
			return domain.CursorPage[domain.Client]{}, fmt.Errorf("decode client %s: %w", snap.Ref.ID, err)
		}
		entity, err := doc.toDomain(snap.Ref.ID)
		if err != nil {
			return domain.CursorPage[domain.Client]{}, err
		}
		clients = append(clients, entity)
	}

	hasMore := len(clients) > pageSize
	if hasMore {
		clients = clients[:pageSize]
	}
	var nextToken string
	if hasMore && len(clients) > 0 {
		last := clients[len(clients)-1]
		encoded, err := encodePageToken(clientPageToken{CreatedAt: last.CreatedAt, ID: last.ID})
		if err != nil {
			return domain.CursorPage[domain.Client]{}, pfirestore.WrapError("clients.list", err)
		}
		nextToken = encoded
	}

	return domain.CursorPage[domain.Client]{Items: clients, NextPageToken: nextToken}, nil
}

func normalizePageSize(size int) int {
	if size <= 0 {
		return 50
	}
	if size > 200 {
		return 200
	}
	return size
}
