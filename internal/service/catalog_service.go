package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hanuri-school/registration-api/internal/models"
	appErrors "github.com/hanuri-school/registration-api/pkg/errors"
)

type offeringRepository interface {
	List(ctx context.Context, filter models.OfferingFilter) ([]models.ClassOffering, error)
	FindByID(ctx context.Context, id string) (*models.ClassOffering, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CatalogService serves the class offering list. During a registration burst
// every polling client hits this list, so it is cached in Redis for a short
// TTL and invalidated whenever an enrollment changes a seat count.
type CatalogService struct {
	repo    offeringRepository
	cache   catalogCache
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(repo offeringRepository, cache catalogCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *CatalogService {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{repo: repo, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

func catalogKey(filter models.OfferingFilter) string {
	return fmt.Sprintf("catalog:offerings:%d:%d", filter.Year, filter.Term)
}

// List returns the offerings for a term, preferring the cache. Cache failures
// fall through to the database rather than failing the request.
func (s *CatalogService) List(ctx context.Context, filter models.OfferingFilter) ([]models.ClassOffering, error) {
	if filter.Year == 0 || filter.Term == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year and term are required")
	}

	key := catalogKey(filter)
	if s.cache != nil {
		var cached []models.ClassOffering
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached, nil
		}
		s.metrics.RecordCacheLookup(false)
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("catalog cache get failed", zap.String("key", key), zap.Error(err))
		}
	}

	offerings, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, offerings, s.ttl); err != nil {
			s.logger.Warn("catalog cache set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return offerings, nil
}

// Find returns a single offering.
func (s *CatalogService) Find(ctx context.Context, id string) (*models.ClassOffering, error) {
	offering, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class offering not found")
	}
	return offering, nil
}

// Invalidate drops the cached list for a term after a seat count changes.
func (s *CatalogService) Invalidate(ctx context.Context, year, term int) {
	if s.cache == nil {
		return
	}
	key := catalogKey(models.OfferingFilter{Year: year, Term: term})
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.String("key", key), zap.Error(err))
	}
}
