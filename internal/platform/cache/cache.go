// Package cache provides the computation cache shared by the naming services.
// Values are immutable once stored; population is deduplicated per key.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSize bounds the number of cached computations.
	DefaultSize = 10000
	// DefaultTTL expires entries so dataset reloads eventually show through.
	DefaultTTL = time.Hour

	metricNamespace = "github.com/hanko-field/naming/internal/platform/cache"
)

// Store is a bounded, expiring computation cache safe for concurrent use.
type Store struct {
	entries *expirable.LRU[string, any]
	group   singleflight.Group
	logger  *zap.Logger

	hits           metric.Int64Counter
	misses         metric.Int64Counter
	metricsEnabled bool
}

type storeConfig struct {
	size   int
	ttl    time.Duration
	logger *zap.Logger
	meter  metric.Meter
}

// Option customises Store construction.
type Option func(*storeConfig)

// WithSize overrides the maximum number of entries. Non-positive values keep the default.
func WithSize(size int) Option {
	return func(cfg *storeConfig) {
		if size > 0 {
			cfg.size = size
		}
	}
}

// WithTTL overrides the entry lifetime. Zero disables expiry; negative values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(cfg *storeConfig) {
		if ttl >= 0 {
			cfg.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for diagnostic output.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *storeConfig) {
		cfg.logger = logger
	}
}

// WithMeter injects a custom OpenTelemetry meter.
func WithMeter(m metric.Meter) Option {
	return func(cfg *storeConfig) {
		cfg.meter = m
	}
}

// New constructs a Store. It is created once per process and injected into services.
func New(opts ...Option) *Store {
	cfg := storeConfig{
		size:   DefaultSize,
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	meter := cfg.meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}

	hits, hitErr := meter.Int64Counter(
		"naming.cache.hits",
		metric.WithDescription("Count of computation cache hits"),
	)
	if hitErr != nil {
		cfg.logger.Warn("cache: unable to register hit metric", zap.Error(hitErr))
	}
	misses, missErr := meter.Int64Counter(
		"naming.cache.misses",
		metric.WithDescription("Count of computation cache misses"),
	)
	if missErr != nil {
		cfg.logger.Warn("cache: unable to register miss metric", zap.Error(missErr))
	}

	return &Store{
		entries:        expirable.NewLRU[string, any](cfg.size, nil, cfg.ttl),
		logger:         cfg.logger,
		hits:           hits,
		misses:         misses,
		metricsEnabled: hitErr == nil && missErr == nil,
	}
}

// Get returns the cached value for key.
func (s *Store) Get(ctx context.Context, key string) (any, bool) {
	if s == nil {
		return nil, false
	}
	value, ok := s.entries.Get(key)
	s.record(ctx, key, ok)
	return value, ok
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(key string, value any) {
	if s == nil {
		return
	}
	s.entries.Add(key, value)
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return s.entries.Len()
}

// Purge drops every entry.
func (s *Store) Purge() {
	if s == nil {
		return
	}
	s.entries.Purge()
}

// GetOrCompute returns the cached T for key or computes, stores and returns it.
// Concurrent callers for the same key share a single computation. Errors are never cached.
// A nil store computes directly.
func GetOrCompute[T any](ctx context.Context, s *Store, key string, compute func() (T, error)) (T, error) {
	if s == nil {
		return compute()
	}
	if cached, ok := s.Get(ctx, key); ok {
		if typed, ok := cached.(T); ok {
			return typed, nil
		}
		s.logger.Warn("cache: dropping entry of unexpected type",
			zap.String("key", key),
			zap.String("type", fmt.Sprintf("%T", cached)),
		)
		s.entries.Remove(key)
	}

	value, err, _ := s.group.Do(key, func() (any, error) {
		if cached, ok := s.entries.Get(key); ok {
			if typed, ok := cached.(T); ok {
				return typed, nil
			}
		}
		computed, err := compute()
		if err != nil {
			return nil, err
		}
		s.entries.Add(key, computed)
		return computed, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: shared result for %q has type %T", key, value)
	}
	return typed, nil
}

func (s *Store) record(ctx context.Context, key string, hit bool) {
	if !s.metricsEnabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("namespace", namespaceOf(key)))
	if hit {
		s.hits.Add(ctx, 1, attrs)
		return
	}
	s.misses.Add(ctx, 1, attrs)
}

func namespaceOf(key string) string {
	if idx := strings.IndexByte(key, ':'); idx > 0 {
		return key[:idx]
	}
	return "unknown"
}
