package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/smartshop/api/internal/platform/config"
	"github.com/smartshop/api/internal/platform/observability"
	"github.com/smartshop/api/internal/platform/requestctx"
	"github.com/smartshop/api/internal/repositories"
	"github.com/smartshop/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders     services.OrderService
	Payments   services.PaymentService
	Clients    services.ClientService
	Products   services.ProductService
	PromoCodes services.PromoCodeService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises the container before service construction.
type Option func(*containerConfig)

type containerConfig struct {
	logger        *zap.Logger
	orderEvents   services.OrderEventPublisher
	paymentEvents services.PaymentEventPublisher
}

// WithLogger sets the base logger used when no request-scoped logger is present.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *containerConfig) {
		cfg.logger = logger
	}
}

// WithOrderEventPublisher routes order lifecycle events to the given publisher.
func WithOrderEventPublisher(pub services.OrderEventPublisher) Option {
	return func(cfg *containerConfig) {
		cfg.orderEvents = pub
	}
}

// WithPaymentEventPublisher routes payment ledger events to the given publisher.
func WithPaymentEventPublisher(pub services.PaymentEventPublisher) Option {
	return func(cfg *containerConfig) {
		cfg.paymentEvents = pub
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	var ccfg containerConfig
	for _, opt := range opts {
		opt(&ccfg)
	}
	if ccfg.logger == nil {
		ccfg.logger = zap.NewNop()
	}

	svc, err := buildServices(reg, ccfg)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(reg repositories.Registry, ccfg containerConfig) (Services, error) {
	var svc Services

	logFn := eventLogger(ccfg.logger)

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Clients:    reg.Clients(),
		Products:   reg.Products(),
		PromoCodes: reg.PromoCodes(),
		Counters:   reg.Counters(),
		Events:     ccfg.orderEvents,
		Clock:      time.Now,
		Logger:     logFn,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	paymentSvc, err := services.NewPaymentService(services.PaymentServiceDeps{
		Orders:   reg.Orders(),
		Payments: reg.Payments(),
		Events:   ccfg.paymentEvents,
		Clock:    time.Now,
		Logger:   logFn,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build payment service: %w", err)
	}
	svc.Payments = paymentSvc

	clientSvc, err := services.NewClientService(services.ClientServiceDeps{
		Clients: reg.Clients(),
		Clock:   time.Now,
		Logger:  logFn,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build client service: %w", err)
	}
	svc.Clients = clientSvc

	productSvc, err := services.NewProductService(services.ProductServiceDeps{
		Products: reg.Products(),
		Clock:    time.Now,
		Logger:   logFn,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build product service: %w", err)
	}
	svc.Products = productSvc

	promoSvc, err := services.NewPromoCodeService(services.PromoCodeServiceDeps{
		PromoCodes: reg.PromoCodes(),
		Clock:      time.Now,
		Logger:     logFn,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build promo code service: %w", err)
	}
	svc.PromoCodes = promoSvc

	return svc, nil
}

// eventLogger adapts the zap logger to the service layer's logging contract,
// preferring the request-scoped logger when one is on the context.
func eventLogger(base *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := observability.FromContext(ctx)
		if logger == requestctx.NoopLogger() {
			logger = base
		}
		if logger == nil {
			return
		}
		zfields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zfields = append(zfields, zap.Any(key, value))
		}
		logger.Info(event, zfields...)
	}
}
