// Package bootstrap turns a config.Config into a ready moderation
// client with every backend, resilience layer, store, cache and
// metrics hook wired.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/cache"
	rediscache "github.com/heibot/moderation/cache/redis"
	"github.com/heibot/moderation/client"
	"github.com/heibot/moderation/config"
	"github.com/heibot/moderation/factcheck"
	"github.com/heibot/moderation/hooks"
	"github.com/heibot/moderation/hooks/metrics"
	"github.com/heibot/moderation/judge"
	"github.com/heibot/moderation/providers"
	"github.com/heibot/moderation/providers/aliyun"
	"github.com/heibot/moderation/providers/gemini"
	"github.com/heibot/moderation/providers/googlenl"
	"github.com/heibot/moderation/providers/huawei"
	"github.com/heibot/moderation/providers/huggingface"
	"github.com/heibot/moderation/providers/ollama"
	"github.com/heibot/moderation/providers/tencent"
	"github.com/heibot/moderation/screener"
	"github.com/heibot/moderation/store"
	"github.com/heibot/moderation/store/memory"
	sqlstore "github.com/heibot/moderation/store/sql"
	"github.com/heibot/moderation/violation"
)

// App owns the client and the resources behind it.
type App struct {
	Client *client.Client

	// Registry holds the moderation metrics; nil when metrics are off.
	Registry *prometheus.Registry

	apiLogger *providers.StandardLogger
	closers   []func() error
}

// Close releases the store, the cache connection and the provider
// call logger.
func (a *App) Close() error {
	// The call logger drains into the store, so it stops first.
	if a.apiLogger != nil {
		a.apiLogger.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLogger builds the zap logger described by cfg.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, moderation.NewValidationError("log.level", err.Error())
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

// ClassifierBackend is a screener adapter that ships its own label
// translator.
type ClassifierBackend interface {
	providers.Classifier
	Translator() violation.Translator
}

// Build wires a client from cfg. A nil logger disables logging.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	app := &App{}
	fail := func(err error) (*App, error) {
		_ = app.Close()
		return nil, err
	}

	st, err := newStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if st != nil {
		app.closers = append(app.closers, st.Close)
	}

	// SQL stores also keep the provider call log.
	lc := providers.LoggerConfig{Level: providers.LogLevelInfo, Logger: logger}
	if ls, ok := st.(providers.APILogStore); ok {
		lc.Store = ls
	}
	app.apiLogger = providers.NewStandardLogger(lc)

	rc := resilientConfig(cfg.Resilience, app.apiLogger)
	timeout := cfg.Pipeline.CallTimeout

	cls, err := NewClassifier(cfg.Screener)
	if err != nil {
		return fail(err)
	}
	scr := screener.New(providers.NewResilientClassifier(cls, rc), screener.Config{
		Timeout:    timeout,
		Translator: cls.Translator(),
		Logger:     logger,
	})

	judgeGen, err := NewGenerator(cfg.Judge)
	if err != nil {
		return fail(err)
	}
	resilientJudge := providers.NewResilientGenerator(judgeGen, rc)
	jdg := judge.New(resilientJudge, judge.Config{Timeout: timeout, Logger: logger})

	opts := client.Options{
		Screener: scr,
		Judge:    jdg,
		Logger:   logger,
		Policy: client.Policy{
			MinTextLength:                    cfg.Pipeline.MinTextLength,
			RemedyTopic:                      cfg.Pipeline.RemedyTopic,
			AutoApproveOnScreenerUnavailable: !cfg.Pipeline.EscalateOnScreenerUnavailable,
		},
	}

	if cfg.Pipeline.FactCheck {
		var fcGen providers.Generator = resilientJudge
		if cfg.FactCheck.Backend != "" {
			gen, err := NewGenerator(cfg.FactCheck)
			if err != nil {
				return fail(err)
			}
			fcGen = providers.NewResilientGenerator(gen, rc)
		}
		opts.FactChecker = factcheck.New(fcGen, factcheck.Config{Timeout: timeout, Logger: logger})
	}

	if cfg.Metrics.Enabled {
		app.Registry = prometheus.NewRegistry()
		opts.Hooks = metrics.New(app.Registry)
	} else {
		opts.Hooks = hooks.NopHooks{}
	}

	if st != nil {
		opts.Store = st
	}

	c, closeCache, err := newCache(cfg.Cache)
	if err != nil {
		return fail(err)
	}
	if c != nil {
		opts.Cache = c
	}
	if closeCache != nil {
		app.closers = append(app.closers, closeCache)
	}

	app.Client, err = client.New(opts)
	if err != nil {
		return fail(err)
	}

	logger.Info("moderation client ready",
		zap.String("screener", cls.Name()),
		zap.String("judge", judgeGen.Name()),
		zap.Bool("fact_check", opts.FactChecker != nil),
		zap.String("store", cfg.Store.Driver),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("metrics", cfg.Metrics.Enabled))

	return app, nil
}

// NewClassifier creates the screener backend named by pc.Backend.
func NewClassifier(pc config.ProviderConfig) (ClassifierBackend, error) {
	switch pc.Backend {
	case config.BackendGoogleNL:
		c := googlenl.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		return googlenl.New(c), nil
	case config.BackendHuggingFace:
		c := huggingface.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		c.Mode = huggingface.Mode(pc.Mode)
		// Empty lets the adapter pick the model for the mode.
		c.Model = pc.Model
		return huggingface.New(c), nil
	case config.BackendTencent:
		c := tencent.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		if pc.BizType != "" {
			c.BizType = pc.BizType
		}
		p, err := tencent.New(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendAliyun:
		c := aliyun.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		if pc.Service != "" {
			c.Service = pc.Service
		}
		p, err := aliyun.New(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	case config.BackendHuawei:
		c := huawei.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		c.ProjectID = pc.ProjectID
		if pc.EventType != "" {
			c.EventType = pc.EventType
		}
		p, err := huawei.New(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: screener backend %q", moderation.ErrProviderNotFound, pc.Backend)
	}
}

// NewGenerator creates the generative backend named by pc.Backend.
func NewGenerator(pc config.ProviderConfig) (providers.Generator, error) {
	switch pc.Backend {
	case config.BackendGemini:
		c := gemini.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		return gemini.New(c), nil
	case config.BackendOllama:
		c := ollama.DefaultConfig()
		c.ProviderConfig = merge(c.ProviderConfig, pc)
		p, err := ollama.New(c)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: generator backend %q", moderation.ErrProviderNotFound, pc.Backend)
	}
}

// merge overlays the non-empty fields of pc on an adapter's defaults.
func merge(def providers.ProviderConfig, pc config.ProviderConfig) providers.ProviderConfig {
	out := def
	out.APIKey = pc.APIKey
	out.AccessKeyID = pc.AccessKeyID
	out.AccessKeySecret = pc.AccessKeySecret
	if pc.Region != "" {
		out.Region = pc.Region
	}
	if pc.Endpoint != "" {
		out.Endpoint = pc.Endpoint
	}
	if pc.Model != "" {
		out.Model = pc.Model
	}
	if pc.Timeout > 0 {
		out.Timeout = pc.Timeout
	}
	return out
}

func resilientConfig(rc config.ResilienceConfig, logger providers.APILogger) providers.ResilientConfig {
	out := providers.DefaultResilientConfig()
	out.MaxRetries = rc.MaxRetries
	out.RateLimit = rc.RateLimit
	if rc.Burst > 0 {
		out.Burst = rc.Burst
	}
	if rc.BreakerFailures > 0 {
		out.BreakerFailures = rc.BreakerFailures
	}
	if rc.BreakerCooldown > 0 {
		out.BreakerCooldown = rc.BreakerCooldown
	}
	out.EnableRetry = rc.MaxRetries > 0
	out.Logger = logger
	return out
}

func newStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "", config.StoreNone:
		return nil, nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		c := sqlstore.DefaultConfig()
		c.Dialect = sqlstore.Dialect(sc.Driver)
		c.DSN = sc.DSN
		s, err := sqlstore.New(ctx, c)
		if err != nil {
			return nil, err
		}
		if sc.Migrate {
			if err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, err
			}
		}
		return s, nil
	}
}

func newCache(cc config.CacheConfig) (cache.Cache, func() error, error) {
	switch cc.Backend {
	case "", config.CacheNone:
		return nil, nil, nil
	case config.CacheMemory:
		return cache.NewMemory(cc.TTL), nil, nil
	default:
		c, rdb, err := rediscache.NewFromURL(cc.RedisURL, cc.TTL)
		if err != nil {
			return nil, nil, err
		}
		return c, rdb.Close, nil
	}
}
