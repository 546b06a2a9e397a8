package di

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hanko-field/naming/internal/dataset"
	domain "github.com/hanko-field/naming/internal/domain"
	"github.com/hanko-field/naming/internal/platform/config"
	"github.com/hanko-field/naming/internal/platform/idempotency"
	"github.com/hanko-field/naming/internal/services"
)

type swappableSource struct {
	mu  sync.Mutex
	ds  dataset.Dataset
	err error
}

func (s *swappableSource) Name() string { return "test" }

func (s *swappableSource) Load(context.Context) (dataset.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ds, s.err
}

func (s *swappableSource) set(ds dataset.Dataset, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ds, s.err = ds, err
}

type capturingPublisher struct {
	mu        sync.Mutex
	summaries []services.GenerationSummary
}

func (p *capturingPublisher) PublishGeneration(_ context.Context, summary services.GenerationSummary) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.summaries = append(p.summaries, summary)
	return "msg-1", nil
}

func loadTestConfig(t *testing.T, env map[string]string) config.Config {
	t.Helper()
	cfg, err := config.Load(context.Background(), config.WithEnvMap(env), config.WithoutSystemEnv(), config.WithEnvFile(""))
	require.NoError(t, err)
	return cfg
}

func TestNewContainerServesEmbeddedDataset(t *testing.T) {
	ctx := context.Background()
	cfg := loadTestConfig(t, map[string]string{})
	publisher := &capturingPublisher{}

	c, err := NewContainer(ctx, cfg,
		WithLogger(zaptest.NewLogger(t)),
		WithPublisher(publisher),
		WithBuildInfo(services.BuildInfo{Version: "1.2.3"}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, c.Close(context.Background())) })

	embedded, err := dataset.Embedded()
	require.NoError(t, err)
	require.Equal(t, embedded.Version, c.Characters.Version())
	require.Equal(t, "embedded", c.Source.Name())

	result, err := c.Services.Generator.Generate(ctx, services.NameGenerationCommand{Surname: "李", MaxResults: 5})
	require.NoError(t, err)
	require.Len(t, result.Candidates, 5)
	require.Len(t, publisher.summaries, 1)
	require.Equal(t, result.RunID, publisher.summaries[0].RunID)

	strokes, err := c.Services.Catalog.StrokeCounts(ctx, "李")
	require.NoError(t, err)
	require.Equal(t, []int{7}, strokes)

	report, err := c.Services.System.HealthReport(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, report.Status)
	require.Equal(t, embedded.Version, report.Dataset)
	require.Equal(t, "1.2.3", report.Version)
	require.Equal(t, "local", report.Environment)
	require.Contains(t, report.Checks, "characters")
}

func TestNewContainerFallsBackToEmbedded(t *testing.T) {
	ctx := context.Background()
	source := &swappableSource{err: errors.New("bucket missing")}

	c, err := NewContainer(ctx, loadTestConfig(t, map[string]string{}), WithDatasetSource(source))
	require.NoError(t, err)
	require.NotZero(t, c.Characters.Len())

	strict := loadTestConfig(t, map[string]string{"NAMING_DATASET_FALLBACK": "false"})
	_, err = NewContainer(ctx, strict, WithDatasetSource(source))
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket missing")
}

func TestContainerReloadDataset(t *testing.T) {
	ctx := context.Background()
	embedded, err := dataset.Embedded()
	require.NoError(t, err)

	source := &swappableSource{ds: embedded}
	c, err := NewContainer(ctx, loadTestConfig(t, map[string]string{}), WithDatasetSource(source))
	require.NoError(t, err)

	_, err = c.Services.Calculator.Wuge(ctx, []int{7}, []int{8, 12})
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache.Len())

	trimmed := embedded
	trimmed.Version = "trimmed"
	trimmed.Characters = embedded.Characters[:10]
	source.set(trimmed, nil)

	require.NoError(t, c.ReloadDataset(ctx))
	require.Equal(t, "trimmed", c.Characters.Version())
	require.Equal(t, 10, c.Characters.Len())
	require.Zero(t, c.Cache.Len())

	source.set(dataset.Dataset{}, errors.New("unavailable"))
	require.Error(t, c.ReloadDataset(ctx))
	require.Equal(t, "trimmed", c.Characters.Version())
}

func TestContainerReloadDatasetPurgesUnderSameVersion(t *testing.T) {
	ctx := context.Background()
	embedded, err := dataset.Embedded()
	require.NoError(t, err)

	source := &swappableSource{ds: embedded}
	c, err := NewContainer(ctx, loadTestConfig(t, map[string]string{}), WithDatasetSource(source))
	require.NoError(t, err)

	_, err = c.Services.Calculator.Wuge(ctx, []int{7}, []int{8, 12})
	require.NoError(t, err)
	require.Equal(t, 1, c.Cache.Len())

	edited := embedded
	edited.Characters = append([]domain.Character(nil), embedded.Characters...)
	edited.Characters[0].Meaning = "edited in place"
	source.set(edited, nil)

	require.NoError(t, c.ReloadDataset(ctx))
	require.Equal(t, embedded.Version, c.Characters.Version())
	require.Zero(t, c.Cache.Len())
}

func TestRunDatasetReloaderStopsWithContext(t *testing.T) {
	embedded, err := dataset.Embedded()
	require.NoError(t, err)
	c, err := NewContainer(context.Background(), loadTestConfig(t, map[string]string{}), WithDatasetSource(&swappableSource{ds: embedded}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.RunDatasetReloader(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reloader did not stop")
	}

	c.RunDatasetReloader(context.Background(), 0)
}

func TestNewContainerRejectsUnknownSource(t *testing.T) {
	cfg := loadTestConfig(t, map[string]string{})
	cfg.Naming.CharacterSource = "ftp"

	_, err := NewContainer(context.Background(), cfg)
	require.Error(t, err)
}

func TestContainerReplayStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c, err := NewContainer(context.Background(), loadTestConfig(t, map[string]string{}), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.IsType(t, &idempotency.MemoryStore{}, c.Replays)
	require.NotNil(t, c.ReplayMiddleware())

	ctx := context.Background()
	_, err = c.Replays.Reserve(ctx, "key", "fp", now.Add(-time.Hour), time.Minute)
	require.NoError(t, err)
	removed, err := c.Replays.CleanupExpired(ctx, now, 10)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	off, err := NewContainer(context.Background(), loadTestConfig(t, map[string]string{"NAMING_IDEMPOTENCY_BACKEND": "off"}))
	require.NoError(t, err)
	require.Nil(t, off.Replays)
	require.Nil(t, off.ReplayMiddleware())
	off.RunReplayCleanup(context.Background())
}

func TestContainerOperatorActions(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(ctx, loadTestConfig(t, map[string]string{}))
	require.NoError(t, err)

	require.Equal(t, "embedded", c.DatasetSource())
	require.Equal(t, c.Characters.Version(), c.DatasetVersion())
	require.Nil(t, c.OperatorMiddleware())

	_, err = c.Services.Calculator.Wuge(ctx, []int{7}, []int{8, 12})
	require.NoError(t, err)
	require.Equal(t, 1, c.PurgeCache())
	require.Zero(t, c.Cache.Len())

	secured, err := NewContainer(ctx, loadTestConfig(t, map[string]string{
		"NAMING_SECURITY_OIDC_AUDIENCE": "https://naming.example.com",
	}))
	require.NoError(t, err)
	require.NotNil(t, secured.OperatorMiddleware())
}
