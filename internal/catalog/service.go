package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/market-v/storefront/internal/cache"
	"github.com/market-v/storefront/internal/observability"
)

const (
	keyPrefix          = "catalog:"
	snapshotKey        = keyPrefix + "all"
	defaultSearchLimit = 50
)

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	Search(ctx context.Context, q string, limit int) ([]Product, error)
	ListAll(ctx context.Context) ([]Product, error)
	List(ctx context.Context, f Filter) (*Page, error)
}

// Service fronts a Store with a cached full-catalog snapshot.
type Service struct {
	store       Store
	cache       cache.Client
	ttl         time.Duration
	searchLimit int
	logger      *observability.Logger
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	SnapshotTTL time.Duration
	SearchLimit int
}

// NewService creates a catalog service. cache may be nil.
func NewService(store Store, c cache.Client, cfg ServiceConfig, logger *observability.Logger) *Service {
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		store:       store,
		cache:       c,
		ttl:         cfg.SnapshotTTL,
		searchLimit: cfg.SearchLimit,
		logger:      logger.WithComponent("catalog"),
	}
}

// Search runs a free-text query. Results share the snapshot TTL and are
// dropped with it.
func (s *Service) Search(ctx context.Context, q string) ([]Product, error) {
	key := keyPrefix + "search:" + strings.ToLower(strings.TrimSpace(q))
	if s.cache != nil && s.ttl > 0 {
		var cached []Product
		err := cache.GetJSON(ctx, s.cache, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("Search cache read failed")
		}
	}

	products, err := s.store.Search(ctx, q, s.searchLimit)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.cache, key, products, s.ttl); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("Search cache write failed")
		}
	}
	return products, nil
}

// ListAll returns the full catalog, served from cache when possible.
func (s *Service) ListAll(ctx context.Context) ([]Product, error) {
	if s.cache != nil && s.ttl > 0 {
		var cached []Product
		err := cache.GetJSON(ctx, s.cache, snapshotKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("Catalog snapshot cache read failed")
		}
	}

	products, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := cache.SetJSON(ctx, s.cache, snapshotKey, products, s.ttl); err != nil {
			s.logger.Warn().Err(err).Msg("Catalog snapshot cache write failed")
		}
	}
	return products, nil
}

// GetByID returns one product.
func (s *Service) GetByID(ctx context.Context, id string) (*Product, error) {
	return s.store.GetByID(ctx, id)
}

// List returns a filtered page.
func (s *Service) List(ctx context.Context, f Filter) (*Page, error) {
	return s.store.List(ctx, f)
}

// Create stores a product and drops every cached catalog read.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := s.store.Create(ctx, p); err != nil {
		return err
	}
	s.Invalidate(ctx)
	return nil
}

// Invalidate drops the cached snapshot and cached searches.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPrefix(ctx, keyPrefix); err != nil {
		s.logger.Warn().Err(err).Msg("Catalog cache invalidation failed")
	}
}
