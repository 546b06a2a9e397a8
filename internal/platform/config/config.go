package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile           = ".env"
	defaultPort              = "8080"
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultEnvironment       = "local"
	defaultCharacterSource   = SourceEmbedded
	defaultCacheSize         = 10000
	defaultCacheTTL          = time.Hour
	defaultResults           = 20
	defaultMaxResults        = 50
	defaultPairSampleCap     = 400
	defaultWidenedSampleCap  = 2000
	defaultScoreWeight       = 0.25
	defaultGeneratePerMinute = 60
	defaultCharactersColl    = "characters"
	defaultSurnamesColl      = "surnames"
	defaultReplayColl        = "naming_replays"
	defaultReplayHeader      = "Idempotency-Key"
	defaultReplayTTL         = 10 * time.Minute
	defaultReplayCapacity    = 4096
	defaultReplayCleanup     = 5 * time.Minute
	defaultReplayBatchSize   = 200
	defaultOIDCJWKSURL       = "https://www.googleapis.com/oauth2/v3/certs"
)

var defaultOIDCIssuers = []string{"https://accounts.google.com", "https://cloud.google.com/iap"}

// Character dataset sources understood by the naming service.
const (
	SourceEmbedded  = "embedded"
	SourceFile      = "file"
	SourceStorage   = "gcs"
	SourceFirestore = "firestore"
)

// Replay stores for idempotent generation requests.
const (
	ReplayOff       = "off"
	ReplayMemory    = "memory"
	ReplayFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Environment string
	Server      ServerConfig
	Firestore   FirestoreConfig
	Storage     StorageConfig
	PubSub      PubSubConfig
	Naming      NamingConfig
	RateLimits  RateLimitConfig
	Idempotency IdempotencyConfig
	Security    SecurityConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirestoreConfig stores database parameters.
type FirestoreConfig struct {
	ProjectID            string
	EmulatorHost         string
	CharactersCollection string
	SurnamesCollection   string
}

// StorageConfig locates the dataset object in Cloud Storage.
type StorageConfig struct {
	DatasetBucket string
	DatasetObject string
}

// PubSubConfig configures the generation summary topic. An empty topic disables publishing.
// Attributes are attached to every published message.
type PubSubConfig struct {
	ProjectID       string
	GenerationTopic string
	Attributes      map[string]string
}

// NamingConfig tunes the generator, its cache and the reference dataset.
// FallbackToEmbedded serves the embedded dataset when the configured source fails at startup;
// a positive ReloadInterval re-reads a non-embedded source periodically.
type NamingConfig struct {
	CharacterSource      string
	DatasetPath          string
	FallbackToEmbedded   bool
	ReloadInterval       time.Duration
	CacheSize            int
	CacheTTL             time.Duration
	DefaultResults       int
	MaxResults           int
	PairSampleCap        int
	WidenedPairSampleCap int
	Weights              ScoreWeights
}

// IdempotencyConfig controls replay of generation responses keyed by the Idempotency-Key header.
// Capacity bounds the memory store; Collection names the Firestore store.
type IdempotencyConfig struct {
	Backend          string
	Header           string
	TTL              time.Duration
	Capacity         int
	Collection       string
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// SecurityConfig guards the operator routes under /internal.
type SecurityConfig struct {
	OIDC OIDCConfig
}

// OIDCConfig controls Google-signed token verification. The operator routes are only
// mounted when Audience is set.
type OIDCConfig struct {
	JWKSURL  string
	Audience string
	Issuers  []string
}

// ScoreWeights are the relative weights of the four score axes.
type ScoreWeights struct {
	Bazi     float64
	Wuge     float64
	Phonetic float64
	Meaning  float64
}

// Sum returns the total of all weights.
func (w ScoreWeights) Sum() float64 {
	return w.Bazi + w.Wuge + w.Phonetic + w.Meaning
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	GeneratePerMinute int
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides
// and environment variables (dotenv < OS env < explicit env map).
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}

	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Environment: strings.ToLower(stringWithDefault(lookup, "NAMING_ENVIRONMENT", defaultEnvironment)),
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "NAMING_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "NAMING_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "NAMING_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "NAMING_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firestore: FirestoreConfig{
			ProjectID:            stringWithDefault(lookup, "NAMING_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost:         stringWithDefault(lookup, "NAMING_FIRESTORE_EMULATOR_HOST", ""),
			CharactersCollection: stringWithDefault(lookup, "NAMING_FIRESTORE_CHARACTERS_COLLECTION", defaultCharactersColl),
			SurnamesCollection:   stringWithDefault(lookup, "NAMING_FIRESTORE_SURNAMES_COLLECTION", defaultSurnamesColl),
		},
		Storage: StorageConfig{
			DatasetBucket: stringWithDefault(lookup, "NAMING_STORAGE_DATASET_BUCKET", ""),
			DatasetObject: stringWithDefault(lookup, "NAMING_STORAGE_DATASET_OBJECT", "characters.yaml"),
		},
		PubSub: PubSubConfig{
			ProjectID:       stringWithDefault(lookup, "NAMING_PUBSUB_PROJECT_ID", ""),
			GenerationTopic: stringWithDefault(lookup, "NAMING_PUBSUB_GENERATION_TOPIC", ""),
			Attributes:      keyValues(csvWithDefault(lookup, "NAMING_PUBSUB_ATTRIBUTES", nil)),
		},
		Naming: NamingConfig{
			CharacterSource:      strings.ToLower(stringWithDefault(lookup, "NAMING_CHARACTER_SOURCE", defaultCharacterSource)),
			DatasetPath:          stringWithDefault(lookup, "NAMING_DATASET_PATH", ""),
			FallbackToEmbedded:   boolWithDefault(lookup, "NAMING_DATASET_FALLBACK", true),
			ReloadInterval:       durationWithDefault(lookup, "NAMING_DATASET_RELOAD_INTERVAL", 0),
			CacheSize:            intWithDefault(lookup, "NAMING_CACHE_SIZE", defaultCacheSize),
			CacheTTL:             durationWithDefault(lookup, "NAMING_CACHE_TTL", defaultCacheTTL),
			DefaultResults:       intWithDefault(lookup, "NAMING_DEFAULT_RESULTS", defaultResults),
			MaxResults:           intWithDefault(lookup, "NAMING_MAX_RESULTS", defaultMaxResults),
			PairSampleCap:        intWithDefault(lookup, "NAMING_PAIR_SAMPLE_CAP", defaultPairSampleCap),
			WidenedPairSampleCap: intWithDefault(lookup, "NAMING_WIDENED_PAIR_SAMPLE_CAP", defaultWidenedSampleCap),
			Weights: ScoreWeights{
				Bazi:     floatWithDefault(lookup, "NAMING_WEIGHT_BAZI", defaultScoreWeight),
				Wuge:     floatWithDefault(lookup, "NAMING_WEIGHT_WUGE", defaultScoreWeight),
				Phonetic: floatWithDefault(lookup, "NAMING_WEIGHT_PHONETIC", defaultScoreWeight),
				Meaning:  floatWithDefault(lookup, "NAMING_WEIGHT_MEANING", defaultScoreWeight),
			},
		},
		RateLimits: RateLimitConfig{
			GeneratePerMinute: intWithDefault(lookup, "NAMING_RATELIMIT_GENERATE_PER_MIN", defaultGeneratePerMinute),
		},
		Idempotency: IdempotencyConfig{
			Backend:          strings.ToLower(stringWithDefault(lookup, "NAMING_IDEMPOTENCY_BACKEND", ReplayMemory)),
			Header:           stringWithDefault(lookup, "NAMING_IDEMPOTENCY_HEADER", defaultReplayHeader),
			TTL:              durationWithDefault(lookup, "NAMING_IDEMPOTENCY_TTL", defaultReplayTTL),
			Capacity:         intWithDefault(lookup, "NAMING_IDEMPOTENCY_CAPACITY", defaultReplayCapacity),
			Collection:       stringWithDefault(lookup, "NAMING_IDEMPOTENCY_COLLECTION", defaultReplayColl),
			CleanupInterval:  durationWithDefault(lookup, "NAMING_IDEMPOTENCY_CLEANUP_INTERVAL", defaultReplayCleanup),
			CleanupBatchSize: intWithDefault(lookup, "NAMING_IDEMPOTENCY_CLEANUP_BATCH_SIZE", defaultReplayBatchSize),
		},
		Security: SecurityConfig{
			OIDC: OIDCConfig{
				JWKSURL:  stringWithDefault(lookup, "NAMING_SECURITY_OIDC_JWKS_URL", defaultOIDCJWKSURL),
				Audience: stringWithDefault(lookup, "NAMING_SECURITY_OIDC_AUDIENCE", ""),
				Issuers:  csvWithDefault(lookup, "NAMING_SECURITY_OIDC_ISSUERS", append([]string(nil), defaultOIDCIssuers...)),
			},
		},
	}

	// Pub/Sub and Firestore share the Google Cloud project unless set explicitly.
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.Firestore.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}

	switch cfg.Naming.CharacterSource {
	case SourceEmbedded:
	case SourceFile:
		if strings.TrimSpace(cfg.Naming.DatasetPath) == "" {
			missing = append(missing, "Naming.DatasetPath")
		}
	case SourceStorage:
		if cfg.Storage.DatasetBucket == "" {
			missing = append(missing, "Storage.DatasetBucket")
		}
		if cfg.Storage.DatasetObject == "" {
			missing = append(missing, "Storage.DatasetObject")
		}
	case SourceFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Naming.CharacterSource")
	}

	if cfg.PubSub.GenerationTopic != "" && cfg.PubSub.ProjectID == "" {
		missing = append(missing, "PubSub.ProjectID")
	}
	if cfg.Naming.ReloadInterval < 0 {
		missing = append(missing, "Naming.ReloadInterval")
	}
	if cfg.Naming.CacheSize <= 0 {
		missing = append(missing, "Naming.CacheSize")
	}
	if cfg.Naming.CacheTTL < 0 {
		missing = append(missing, "Naming.CacheTTL")
	}
	if cfg.Naming.MaxResults < 1 || cfg.Naming.MaxResults > defaultMaxResults {
		missing = append(missing, "Naming.MaxResults")
	}
	if cfg.Naming.DefaultResults < 1 || cfg.Naming.DefaultResults > cfg.Naming.MaxResults {
		missing = append(missing, "Naming.DefaultResults")
	}
	if cfg.Naming.PairSampleCap <= 0 {
		missing = append(missing, "Naming.PairSampleCap")
	}
	if cfg.Naming.WidenedPairSampleCap < cfg.Naming.PairSampleCap {
		missing = append(missing, "Naming.WidenedPairSampleCap")
	}
	weights := cfg.Naming.Weights
	if weights.Bazi < 0 || weights.Wuge < 0 || weights.Phonetic < 0 || weights.Meaning < 0 || weights.Sum() <= 0 {
		missing = append(missing, "Naming.Weights")
	}
	if cfg.RateLimits.GeneratePerMinute < 0 {
		missing = append(missing, "RateLimits.GeneratePerMinute")
	}

	switch cfg.Idempotency.Backend {
	case ReplayOff:
	case ReplayMemory:
		if cfg.Idempotency.Capacity <= 0 {
			missing = append(missing, "Idempotency.Capacity")
		}
	case ReplayFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
		if strings.TrimSpace(cfg.Idempotency.Collection) == "" {
			missing = append(missing, "Idempotency.Collection")
		}
	default:
		missing = append(missing, "Idempotency.Backend")
	}
	if cfg.Idempotency.Backend != ReplayOff {
		if strings.TrimSpace(cfg.Idempotency.Header) == "" {
			missing = append(missing, "Idempotency.Header")
		}
		if cfg.Idempotency.TTL <= 0 {
			missing = append(missing, "Idempotency.TTL")
		}
		if cfg.Idempotency.CleanupInterval < 0 {
			missing = append(missing, "Idempotency.CleanupInterval")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func floatWithDefault(lookup func(string) (string, bool), key string, fallback float64) float64 {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	value, ok := lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// keyValues turns "k=v" entries into a map. Entries without a key are dropped.
func keyValues(entries []string) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]string, len(entries))
	for _, entry := range entries {
		key, value, _ := strings.Cut(entry, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
