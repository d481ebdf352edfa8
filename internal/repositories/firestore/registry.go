package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/smartshop/api/internal/platform/firestore"
	"github.com/smartshop/api/internal/repositories"
)

// Registry bundles the Firestore-backed repository implementations behind the
// repositories.Registry interface used for dependency injection.
type Registry struct {
	provider *pfirestore.Provider

	clients  *ClientRepository
	products *ProductRepository
	orders   *OrderRepository
	payments *PaymentRepository
	promos   *PromoCodeRepository
	counters *CounterRepository
}

// NewRegistry wires every repository against the shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	clients, err := NewClientRepository(provider)
	if err != nil {
		return nil, err
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	payments, err := NewPaymentRepository(provider)
	if err != nil {
		return nil, err
	}
	promos, err := NewPromoCodeRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		clients:  clients,
		products: products,
		orders:   orders,
		payments: payments,
		promos:   promos,
		counters: counters,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Clients() repositories.ClientRepository       { return r.clients }
func (r *Registry) Products() repositories.ProductRepository     { return r.products }
func (r *Registry) Orders() repositories.OrderRepository         { return r.orders }
func (r *Registry) Payments() repositories.PaymentRepository     { return r.payments }
func (r *Registry) PromoCodes() repositories.PromoCodeRepository { return r.promos }
func (r *Registry) Counters() repositories.CounterRepository     { return r.counters }
