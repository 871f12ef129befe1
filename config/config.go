// Package config loads the moderation service configuration from a
// .env file, an optional YAML file and environment overrides, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	moderation "github.com/heibot/moderation"
)

// Screener backends.
const (
	BackendGoogleNL    = "googlenl"
	BackendHuggingFace = "huggingface"
	BackendTencent     = "tencent"
	BackendAliyun      = "aliyun"
	BackendHuawei      = "huawei"
)

// Generative backends.
const (
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

// Store drivers. The SQL drivers match store/sql dialects.
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreTiDB     = "tidb"
)

// Cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config is the full service configuration.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Screener   ProviderConfig   `yaml:"screener"`
	Judge      ProviderConfig   `yaml:"judge"`
	FactCheck  ProviderConfig   `yaml:"factcheck"` // Empty backend shares the judge's model
	Resilience ResilienceConfig `yaml:"resilience"`
	Store      StoreConfig      `yaml:"store"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// PipelineConfig holds the decision rules.
type PipelineConfig struct {
	MinTextLength                 int           `yaml:"min_text_length"`
	RemedyTopic                   string        `yaml:"remedy_topic"`
	CallTimeout                   time.Duration `yaml:"call_timeout"`
	EscalateOnScreenerUnavailable bool          `yaml:"escalate_on_screener_unavailable"`
	FactCheck                     bool          `yaml:"fact_check"`
}

// ProviderConfig selects and configures one external backend. Fields a
// backend does not use are ignored.
type ProviderConfig struct {
	Backend         string        `yaml:"backend"`
	APIKey          string        `yaml:"api_key"`
	AccessKeyID     string        `yaml:"access_key_id"`
	AccessKeySecret string        `yaml:"access_key_secret"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`

	Mode      string `yaml:"mode"`       // huggingface: sentiment or toxicity
	ProjectID string `yaml:"project_id"` // huawei
	EventType string `yaml:"event_type"` // huawei
	BizType   string `yaml:"biz_type"`   // tencent
	Service   string `yaml:"service"`    // aliyun
}

// ResilienceConfig tunes the retry, rate limit and circuit breaker
// layer around every backend.
type ResilienceConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	RateLimit       float64       `yaml:"rate_limit"`
	Burst           int           `yaml:"burst"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// StoreConfig selects where moderation records are persisted.
type StoreConfig struct {
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Migrate bool   `yaml:"migrate"`
}

// CacheConfig selects the dedup result cache.
type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// MetricsConfig toggles the Prometheus hooks.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Pipeline: PipelineConfig{
			MinTextLength:                 moderation.DefaultMinTextLength,
			RemedyTopic:                   moderation.DefaultRemedyTopic,
			CallTimeout:                   moderation.DefaultCallTimeout * time.Second,
			EscalateOnScreenerUnavailable: true,
			FactCheck:                     true,
		},
		Screener: ProviderConfig{Backend: BackendGoogleNL},
		Judge:    ProviderConfig{Backend: BackendGemini},
		Resilience: ResilienceConfig{
			MaxRetries:      2,
			RateLimit:       10,
			Burst:           5,
			BreakerFailures: 5,
			BreakerCooldown: 30 * time.Second,
		},
		Store:   StoreConfig{Driver: StoreMemory},
		Cache:   CacheConfig{Backend: CacheNone, TTL: 24 * time.Hour},
		Metrics: MetricsConfig{Enabled: true},
		Log:     LogConfig{Level: "info"},
	}
}

// Load reads envFiles (".env" when none are given; missing files are
// skipped), then the YAML file at path if path is non-empty, then
// environment overrides. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %q: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, moderation.NewValidationError(key, "not an integer: "+v))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, moderation.NewValidationError(key, "not a boolean: "+v))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, moderation.NewValidationError(key, "not a duration: "+v))
				return
			}
			*dst = d
		}
	}

	integer("MODERATION_MIN_TEXT_LENGTH", &c.Pipeline.MinTextLength)
	str("MODERATION_REMEDY_TOPIC", &c.Pipeline.RemedyTopic)
	duration("MODERATION_CALL_TIMEOUT", &c.Pipeline.CallTimeout)
	boolean("MODERATION_ESCALATE_ON_SCREENER_UNAVAILABLE", &c.Pipeline.EscalateOnScreenerUnavailable)
	boolean("MODERATION_FACT_CHECK", &c.Pipeline.FactCheck)

	str("MODERATION_SCREENER_BACKEND", &c.Screener.Backend)
	str("MODERATION_SCREENER_MODEL", &c.Screener.Model)
	str("MODERATION_SCREENER_ENDPOINT", &c.Screener.Endpoint)
	str("MODERATION_SCREENER_MODE", &c.Screener.Mode)
	str("MODERATION_JUDGE_BACKEND", &c.Judge.Backend)
	str("MODERATION_JUDGE_MODEL", &c.Judge.Model)
	str("MODERATION_JUDGE_ENDPOINT", &c.Judge.Endpoint)
	str("MODERATION_FACTCHECK_BACKEND", &c.FactCheck.Backend)
	str("MODERATION_FACTCHECK_MODEL", &c.FactCheck.Model)

	integer("MODERATION_MAX_RETRIES", &c.Resilience.MaxRetries)

	str("MODERATION_STORE_DRIVER", &c.Store.Driver)
	str("MODERATION_STORE_DSN", &c.Store.DSN)
	boolean("MODERATION_STORE_MIGRATE", &c.Store.Migrate)

	str("MODERATION_CACHE_BACKEND", &c.Cache.Backend)
	str("MODERATION_REDIS_URL", &c.Cache.RedisURL)
	duration("MODERATION_CACHE_TTL", &c.Cache.TTL)

	boolean("MODERATION_METRICS", &c.Metrics.Enabled)
	str("MODERATION_LOG_LEVEL", &c.Log.Level)

	// Vendor credentials go to whichever slot uses that vendor.
	for _, pc := range []*ProviderConfig{&c.Screener, &c.Judge, &c.FactCheck} {
		switch pc.Backend {
		case BackendGoogleNL:
			str("CLOUD_NATURAL_LANGUAGE_KEY", &pc.APIKey)
		case BackendHuggingFace:
			str("HUGGINGFACE_API_KEY", &pc.APIKey)
		case BackendGemini:
			str("GEMINI_API_KEY", &pc.APIKey)
		case BackendOllama:
			str("OLLAMA_HOST", &pc.Endpoint)
		case BackendTencent:
			str("TENCENTCLOUD_SECRET_ID", &pc.AccessKeyID)
			str("TENCENTCLOUD_SECRET_KEY", &pc.AccessKeySecret)
			str("TENCENTCLOUD_REGION", &pc.Region)
		case BackendAliyun:
			str("ALIBABA_CLOUD_ACCESS_KEY_ID", &pc.AccessKeyID)
			str("ALIBABA_CLOUD_ACCESS_KEY_SECRET", &pc.AccessKeySecret)
			str("ALIBABA_CLOUD_REGION_ID", &pc.Region)
		case BackendHuawei:
			str("HUAWEICLOUD_SDK_AK", &pc.AccessKeyID)
			str("HUAWEICLOUD_SDK_SK", &pc.AccessKeySecret)
			str("HUAWEICLOUD_PROJECT_ID", &pc.ProjectID)
			str("HUAWEICLOUD_REGION", &pc.Region)
		}
	}

	return errors.Join(errs...)
}

// Validate reports every invalid field as a ValidationError joined
// into one error.
func (c Config) Validate() error {
	var errs []error
	bad := func(field, msg string) {
		errs = append(errs, moderation.NewValidationError(field, msg))
	}

	if c.Pipeline.MinTextLength < 1 {
		bad("pipeline.min_text_length", "must be at least 1")
	}
	if strings.TrimSpace(c.Pipeline.RemedyTopic) == "" {
		bad("pipeline.remedy_topic", "required")
	}
	if c.Pipeline.CallTimeout <= 0 {
		bad("pipeline.call_timeout", "must be positive")
	}

	switch c.Screener.Backend {
	case BackendGoogleNL, BackendTencent, BackendAliyun, BackendHuawei:
	case BackendHuggingFace:
		switch c.Screener.Mode {
		case "", "sentiment", "toxicity":
		default:
			bad("screener.mode", "unknown mode "+c.Screener.Mode)
		}
	default:
		bad("screener.backend", "unknown backend "+strconv.Quote(c.Screener.Backend))
	}

	if !isGenerator(c.Judge.Backend) {
		bad("judge.backend", "unknown backend "+strconv.Quote(c.Judge.Backend))
	}
	if c.FactCheck.Backend != "" && !isGenerator(c.FactCheck.Backend) {
		bad("factcheck.backend", "unknown backend "+strconv.Quote(c.FactCheck.Backend))
	}

	if c.Resilience.MaxRetries < 0 {
		bad("resilience.max_retries", "must not be negative")
	}
	if c.Resilience.RateLimit < 0 {
		bad("resilience.rate_limit", "must not be negative")
	}

	switch c.Store.Driver {
	case "", StoreNone, StoreMemory:
	case StoreMySQL, StorePostgres, StoreTiDB:
		if c.Store.DSN == "" {
			bad("store.dsn", "required for "+c.Store.Driver)
		}
	default:
		bad("store.driver", "unknown driver "+strconv.Quote(c.Store.Driver))
	}

	switch c.Cache.Backend {
	case "", CacheNone, CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			bad("cache.redis_url", "required for redis")
		}
	default:
		bad("cache.backend", "unknown backend "+strconv.Quote(c.Cache.Backend))
	}
	if c.Cache.TTL < 0 {
		bad("cache.ttl", "must not be negative")
	}

	return errors.Join(errs...)
}

func isGenerator(backend string) bool {
	return backend == BackendGemini || backend == BackendOllama
}
