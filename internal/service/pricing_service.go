package service

import (
	"context"
	"time"

	"pawnshop-service/internal/models"
	"pawnshop-service/internal/pricing"
	"pawnshop-service/internal/util"

	"go.uber.org/zap"
)

// PricingReport is a pricing result with its derived range
type PricingReport struct {
	Query    string               `json:"query"`
	Category models.Category      `json:"category,omitempty"`
	Result   models.PricingResult `json:"result"`
	Range    *models.PriceRange   `json:"range,omitempty"`
}

// PricingService fronts a pricing provider with an optional cache
type PricingService struct {
	provider PricingProvider
	cache    PricingCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewPricingService creates a new pricing service. cache may be nil.
func NewPricingService(provider PricingProvider, cache PricingCache, ttl time.Duration) *PricingService {
	return &PricingService{
		provider: provider,
		cache:    cache,
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// Price returns comparable sales for query, served from the cache when fresh
func (s *PricingService) Price(ctx context.Context, query string, category models.Category) (models.PricingResult, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.Price")
	defer span.End()

	if s.cache != nil {
		cached, ok, err := s.cache.GetPricing(ctx, query, category)
		switch {
		case err != nil:
			util.PricingCacheTotal.WithLabelValues("error").Inc()
			s.logger.Warn("Pricing cache read failed", zap.String("query", query), zap.Error(err))
		case ok:
			util.PricingCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			util.PricingCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	result, err := s.fetch(ctx, query, category)
	if err != nil {
		util.RecordError(span, err)
		return models.PricingResult{}, err
	}
	return result, nil
}

// Refresh prices query from the provider without reading the cache and
// stores the fresh result for later lookups.
func (s *PricingService) Refresh(ctx context.Context, query string, category models.Category) (models.PricingResult, error) {
	ctx, span := util.StartSpan(ctx, "PricingService.Refresh")
	defer span.End()

	result, err := s.fetch(ctx, query, category)
	if err != nil {
		util.RecordError(span, err)
		return models.PricingResult{}, err
	}
	return result, nil
}

// Live returns a PricingProvider that always refreshes
func (s *PricingService) Live() PricingProvider {
	return livePricing{s}
}

type livePricing struct {
	s *PricingService
}

func (l livePricing) Price(ctx context.Context, query string, category models.Category) (models.PricingResult, error) {
	return l.s.Refresh(ctx, query, category)
}

func (s *PricingService) fetch(ctx context.Context, query string, category models.Category) (models.PricingResult, error) {
	result, err := s.provider.Price(ctx, query, category)
	if err != nil {
		return models.PricingResult{}, err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetPricing(ctx, query, category, result, s.ttl); err != nil {
			s.logger.Warn("Pricing cache write failed", zap.String("query", query), zap.Error(err))
		}
	}
	return result, nil
}

// Report prices query and adds the price range
func (s *PricingService) Report(ctx context.Context, query string, category models.Category) (*PricingReport, error) {
	result, err := s.Price(ctx, query, category)
	if err != nil {
		return nil, err
	}
	return &PricingReport{
		Query:    query,
		Category: category,
		Result:   result,
		Range:    pricing.Range(result.Sales),
	}, nil
}

// Trend prices query and builds its weekly trend
func (s *PricingService) Trend(ctx context.Context, query string, category models.Category) (models.PriceTrend, error) {
	result, err := s.Price(ctx, query, category)
	if err != nil {
		return models.PriceTrend{}, err
	}
	return pricing.Trend(result), nil
}
