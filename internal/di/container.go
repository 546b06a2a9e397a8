// Package di assembles the naming service from configuration.
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/hanko-field/naming/internal/dataset"
	"github.com/hanko-field/naming/internal/platform/auth"
	"github.com/hanko-field/naming/internal/platform/cache"
	"github.com/hanko-field/naming/internal/platform/config"
	pfirestore "github.com/hanko-field/naming/internal/platform/firestore"
	"github.com/hanko-field/naming/internal/platform/idempotency"
	"github.com/hanko-field/naming/internal/platform/jobs"
	"github.com/hanko-field/naming/internal/platform/observability"
	platformstorage "github.com/hanko-field/naming/internal/platform/storage"
	"github.com/hanko-field/naming/internal/repositories"
	firestoreRepo "github.com/hanko-field/naming/internal/repositories/firestore"
	"github.com/hanko-field/naming/internal/repositories/memory"
	"github.com/hanko-field/naming/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Generator  services.NameGenerationService
	Calculator services.NamingCalculator
	Catalog    services.CharacterCatalogService
	System     services.SystemService
}

// Container wires the dataset, repositories, services and cloud clients for runtime use.
type Container struct {
	Config     config.Config
	Characters *memory.CharacterRepository
	Cache      *cache.Store
	Source     dataset.Source
	Replays    idempotency.Store
	Services   Services

	logger    *zap.Logger
	clock     func() time.Time
	firestore *pfirestore.Provider
	reload    sync.Mutex
	closers   []func(context.Context) error
}

// Option customises container construction.
type Option func(*options)

type options struct {
	logger    *zap.Logger
	build     services.BuildInfo
	clock     func() time.Time
	source    dataset.Source
	publisher services.GenerationPublisher
}

// WithLogger sets the base logger. Components receive named children.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuildInfo sets the metadata reported by the health endpoints.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *options) {
		o.build = build
	}
}

// WithClock overrides the clock handed to services.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithDatasetSource replaces the source selected by Naming.CharacterSource.
func WithDatasetSource(source dataset.Source) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithPublisher replaces the Pub/Sub publisher selected by PubSub.GenerationTopic.
func WithPublisher(publisher services.GenerationPublisher) Option {
	return func(o *options) {
		o.publisher = publisher
	}
}

// NewContainer loads the reference dataset and constructs every service.
// Close must be called to release cloud clients even when construction fails part way.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (*Container, error) {
	o := options{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	c := &Container{Config: cfg, logger: o.logger, clock: o.clock}
	var checks []repositories.DependencyCheck

	source := o.source
	if source == nil {
		built, sourceChecks, err := c.buildDatasetSource(ctx, cfg)
		if err != nil {
			return c, err
		}
		source = built
		checks = append(checks, sourceChecks...)
	}
	c.Source = source

	ds, err := c.loadDataset(ctx, source)
	if err != nil {
		return c, err
	}
	characters, err := memory.NewCharacterRepository(ds)
	if err != nil {
		return c, fmt.Errorf("build character repository: %w", err)
	}
	c.Characters = characters
	checks = append([]repositories.DependencyCheck{repositories.CharacterStoreCheck(characters)}, checks...)

	c.Cache = cache.New(
		cache.WithSize(cfg.Naming.CacheSize),
		cache.WithTTL(cfg.Naming.CacheTTL),
		cache.WithLogger(o.logger.Named("cache")),
	)
	calculator := services.NewNamingCalculator(c.Cache)

	publisher := o.publisher
	if publisher == nil && cfg.PubSub.GenerationTopic != "" {
		pubsubPublisher, err := c.buildPublisher(ctx, cfg)
		if err != nil {
			return c, err
		}
		publisher = pubsubPublisher
		checks = append(checks, repositories.DependencyCheck{
			Name:  "pubsub",
			Check: pubsubPublisher.Check,
		})
	}

	generator, err := services.NewNameGenerationService(services.NameGenerationServiceDeps{
		Characters: characters,
		Calculator: calculator,
		Cache:      c.Cache,
		Publisher:  publisher,
		Clock:      o.clock,
		Logger:     observability.EventLogger(o.logger.Named("naming")),
		Weights: services.ScoreWeights{
			Bazi:     cfg.Naming.Weights.Bazi,
			Wuge:     cfg.Naming.Weights.Wuge,
			Phonetic: cfg.Naming.Weights.Phonetic,
			Meaning:  cfg.Naming.Weights.Meaning,
		},
		DefaultResults:       cfg.Naming.DefaultResults,
		MaxResults:           cfg.Naming.MaxResults,
		PairSampleCap:        cfg.Naming.PairSampleCap,
		WidenedPairSampleCap: cfg.Naming.WidenedPairSampleCap,
	})
	if err != nil {
		return c, fmt.Errorf("build name generation service: %w", err)
	}

	catalog, err := services.NewCharacterCatalogService(services.CharacterCatalogServiceDeps{
		Characters: characters,
		Logger:     observability.EventLogger(o.logger.Named("catalog")),
	})
	if err != nil {
		return c, fmt.Errorf("build character catalog service: %w", err)
	}

	replays, replayChecks, err := c.buildReplayStore(cfg)
	if err != nil {
		return c, err
	}
	c.Replays = replays
	checks = append(checks, replayChecks...)

	healthRepo, err := repositories.NewDependencyHealthRepository(checks, repositories.WithDependencyClock(o.clock))
	if err != nil {
		return c, fmt.Errorf("build health repository: %w", err)
	}
	build := o.build
	if build.Environment == "" {
		build.Environment = cfg.Environment
	}
	system, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: healthRepo,
		Dataset:          characters,
		Clock:            o.clock,
		Build:            build,
	})
	if err != nil {
		return c, fmt.Errorf("build system service: %w", err)
	}

	c.Services = Services{
		Generator:  generator,
		Calculator: calculator,
		Catalog:    catalog,
		System:     system,
	}
	return c, nil
}

// ReloadDataset re-reads the source and swaps the served snapshot. Cached scores are purged
// because meaning scores depend on character metadata. A failed load keeps the current snapshot.
func (c *Container) ReloadDataset(ctx context.Context) error {
	if c == nil || c.Characters == nil || c.Source == nil {
		return errors.New("container: dataset not initialised")
	}
	c.reload.Lock()
	defer c.reload.Unlock()

	ds, err := c.Source.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload dataset from %s: %w", c.Source.Name(), err)
	}
	previous := c.Characters.Version()
	if err := c.Characters.Replace(ds); err != nil {
		return fmt.Errorf("reload dataset from %s: %w", c.Source.Name(), err)
	}
	// Cached scores embed character metadata, which may change under an unchanged version.
	purged := c.Cache.Len()
	c.Cache.Purge()
	c.logger.Info("dataset reloaded",
		zap.String("source", c.Source.Name()),
		zap.String("previous_version", previous),
		zap.String("version", ds.Version),
		zap.Int("purged", purged),
		zap.Int("characters", len(ds.Characters)),
	)
	return nil
}

// RunDatasetReloader reloads the dataset every interval until ctx is done.
func (c *Container) RunDatasetReloader(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			err := c.ReloadDataset(runCtx)
			cancel()
			if err != nil {
				c.logger.Error("dataset reload failed", zap.Bool("transient", pfirestore.IsUnavailable(err)), zap.Error(err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// DatasetVersion reports the version of the snapshot currently served.
func (c *Container) DatasetVersion() string {
	return c.Characters.Version()
}

// DatasetSource names the configured dataset source.
func (c *Container) DatasetSource() string {
	if c.Source == nil {
		return ""
	}
	return c.Source.Name()
}

// PurgeCache drops every cached computation and returns how many entries were removed.
func (c *Container) PurgeCache() int {
	purged := c.Cache.Len()
	c.Cache.Purge()
	c.logger.Info("computation cache purged", zap.Int("entries", purged))
	return purged
}

// OperatorMiddleware verifies Google-signed OIDC tokens for the /internal routes.
// It returns nil when no audience is configured, in which case the routes stay unmounted.
func (c *Container) OperatorMiddleware() func(http.Handler) http.Handler {
	oidc := c.Config.Security.OIDC
	if strings.TrimSpace(oidc.Audience) == "" {
		return nil
	}
	logger := c.logger.Named("auth")
	keys := auth.NewJWKSCache(oidc.JWKSURL, auth.WithJWKSLogger(logger))
	validator := auth.NewOIDCValidator(keys, auth.WithOIDCLogger(logger))
	return validator.RequireOIDC(oidc.Audience, oidc.Issuers)
}

// ReplayMiddleware returns the idempotency middleware for generation requests, or nil when replays are off.
func (c *Container) ReplayMiddleware() func(http.Handler) http.Handler {
	if c == nil || c.Replays == nil {
		return nil
	}
	return idempotency.Middleware(c.Replays,
		idempotency.WithHeader(c.Config.Idempotency.Header),
		idempotency.WithTTL(c.Config.Idempotency.TTL),
		idempotency.WithLogger(c.logger.Named("idempotency")),
		idempotency.WithClock(c.clock),
	)
}

// RunReplayCleanup deletes expired replay records every Idempotency.CleanupInterval until ctx is done.
func (c *Container) RunReplayCleanup(ctx context.Context) {
	interval := c.Config.Idempotency.CleanupInterval
	if c.Replays == nil || interval <= 0 {
		return
	}
	logger := c.logger.Named("idempotency")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := c.Replays.CleanupExpired(runCtx, c.clock().UTC(), c.Config.Idempotency.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases cloud clients in reverse construction order.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) loadDataset(ctx context.Context, source dataset.Source) (dataset.Dataset, error) {
	ds, err := source.Load(ctx)
	if err == nil {
		c.logger.Info("dataset loaded",
			zap.String("source", source.Name()),
			zap.String("version", ds.Version),
			zap.Int("characters", len(ds.Characters)),
			zap.Int("surnames", len(ds.Surnames)),
		)
		return ds, nil
	}
	if _, embedded := source.(dataset.EmbeddedSource); embedded || !c.Config.Naming.FallbackToEmbedded {
		return dataset.Dataset{}, fmt.Errorf("load dataset from %s: %w", source.Name(), err)
	}
	c.logger.Warn("dataset source failed; serving embedded dataset",
		zap.String("source", source.Name()),
		zap.Bool("transient", pfirestore.IsUnavailable(err)),
		zap.Error(err),
	)
	ds, embeddedErr := dataset.Embedded()
	if embeddedErr != nil {
		return dataset.Dataset{}, fmt.Errorf("load embedded dataset: %w", embeddedErr)
	}
	return ds, nil
}

func (c *Container) buildDatasetSource(ctx context.Context, cfg config.Config) (dataset.Source, []repositories.DependencyCheck, error) {
	switch cfg.Naming.CharacterSource {
	case config.SourceEmbedded, "":
		return dataset.EmbeddedSource{}, nil, nil
	case config.SourceFile:
		return dataset.FileSource{Path: cfg.Naming.DatasetPath}, nil, nil
	case config.SourceStorage:
		client, err := cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("initialise storage client: %w", err)
		}
		c.closers = append(c.closers, func(context.Context) error { return client.Close() })
		reader, err := platformstorage.NewObjectReader(client)
		if err != nil {
			return nil, nil, fmt.Errorf("initialise storage reader: %w", err)
		}
		bucket, object := cfg.Storage.DatasetBucket, cfg.Storage.DatasetObject
		check := repositories.DependencyCheck{
			Name: "storage",
			Check: func(ctx context.Context) error {
				_, err := client.Bucket(bucket).Object(object).Attrs(ctx)
				return err
			},
		}
		return dataset.ObjectSource{Reader: reader, Bucket: bucket, Object: object}, []repositories.DependencyCheck{check}, nil
	case config.SourceFirestore:
		provider := c.firestoreProvider(cfg)
		repo, err := firestoreRepo.NewCharacterRepository(provider, cfg.Firestore)
		if err != nil {
			return nil, nil, fmt.Errorf("initialise firestore character repository: %w", err)
		}
		collection := cfg.Firestore.CharactersCollection
		check := repositories.DependencyCheck{
			Name:  "firestore",
			Check: func(ctx context.Context) error { return provider.Ping(ctx, collection) },
		}
		return repo, []repositories.DependencyCheck{check}, nil
	default:
		return nil, nil, fmt.Errorf("unknown character source %q", cfg.Naming.CharacterSource)
	}
}

// firestoreProvider lazily creates the provider shared by the character source and the replay store.
func (c *Container) firestoreProvider(cfg config.Config) *pfirestore.Provider {
	if c.firestore == nil {
		c.firestore = pfirestore.NewProvider(cfg.Firestore)
		c.closers = append(c.closers, c.firestore.Close)
	}
	return c.firestore
}

func (c *Container) buildReplayStore(cfg config.Config) (idempotency.Store, []repositories.DependencyCheck, error) {
	switch cfg.Idempotency.Backend {
	case config.ReplayOff:
		return nil, nil, nil
	case config.ReplayFirestore:
		provider := c.firestoreProvider(cfg)
		store, err := idempotency.NewFirestoreStore(provider, idempotency.WithCollection(cfg.Idempotency.Collection))
		if err != nil {
			return nil, nil, fmt.Errorf("initialise replay store: %w", err)
		}
		check := repositories.DependencyCheck{
			Name:  "replays",
			Check: func(ctx context.Context) error { return provider.Ping(ctx, store.Collection()) },
		}
		return store, []repositories.DependencyCheck{check}, nil
	case config.ReplayMemory, "":
		return idempotency.NewMemoryStore(cfg.Idempotency.Capacity), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown idempotency backend %q", cfg.Idempotency.Backend)
	}
}

func (c *Container) buildPublisher(ctx context.Context, cfg config.Config) (*jobs.PubSubGenerationPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("initialise pubsub client: %w", err)
	}
	c.closers = append(c.closers, func(context.Context) error { return client.Close() })

	attrs := map[string]string{"environment": cfg.Environment}
	for key, value := range cfg.PubSub.Attributes {
		attrs[key] = value
	}
	publisher, err := jobs.NewPubSubGenerationPublisher(client.Topic(cfg.PubSub.GenerationTopic), jobs.WithStaticAttributes(attrs))
	if err != nil {
		return nil, fmt.Errorf("initialise generation publisher: %w", err)
	}
	c.closers = append(c.closers, func(context.Context) error {
		publisher.Stop()
		return nil
	})
	return publisher, nil
}
