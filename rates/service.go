package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/almatkai/woolet-sub001/metrics"
)

// Service is a Provider that serves pairs from the cache and falls back to
// the upstream Source on a miss.
type Service struct {
	source  Source
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Collector
	log     logrus.FieldLogger
}

func NewService(source Source, cache Cache, ttl time.Duration, m *metrics.Collector, log logrus.FieldLogger) *Service {
	return &Service{source: source, cache: cache, ttl: ttl, metrics: m, log: log}
}

func cacheKey(base, quote string) string {
	return fmt.Sprintf("rates:%s:%s", base, quote)
}

func (s *Service) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	if base == quote {
		return decimal.NewFromInt(1), nil
	}

	key := cacheKey(base, quote)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Rate cache read failed")
	} else if ok {
		if rate, err := decimal.NewFromString(raw); err == nil {
			s.metrics.RateCacheHit()
			return rate, nil
		}
		s.log.WithField("key", key).Warn("Discarding malformed cached rate")
	}
	s.metrics.RateCacheMiss()

	table, err := s.source.Table(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("could not fetch exchange rates: %w", err)
	}
	rate, err := table.Cross(base, quote)
	if err != nil {
		return decimal.Zero, err
	}
	if err := s.cache.Set(ctx, key, rate.String(), s.ttl); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("Rate cache write failed")
	}
	return rate, nil
}

// Warm fetches one table and stores every ordered pair of currencies.
func (s *Service) Warm(ctx context.Context, currencies []string) error {
	table, err := s.source.Table(ctx)
	if err != nil {
		return fmt.Errorf("could not fetch exchange rates: %w", err)
	}
	stored := 0
	for _, base := range currencies {
		for _, quote := range currencies {
			if base == quote {
				continue
			}
			rate, err := table.Cross(base, quote)
			if err != nil {
				s.log.WithError(err).Debugf("Skipping pair %s/%s", base, quote)
				continue
			}
			if err := s.cache.Set(ctx, cacheKey(base, quote), rate.String(), s.ttl); err != nil {
				return fmt.Errorf("could not cache %s/%s: %w", base, quote, err)
			}
			stored++
		}
	}
	s.log.WithField("pairs", stored).Info("Exchange-rate cache warmed")
	return nil
}

// StartRefresher warms the cache on the given cron schedule. Stop the
// returned cron to end refreshing.
func (s *Service) StartRefresher(schedule string, currencies []string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Warm(ctx, currencies); err != nil {
			s.log.WithError(err).Error("Scheduled rate refresh failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}
