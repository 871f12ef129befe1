package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	moderation "github.com/heibot/moderation"
	"github.com/heibot/moderation/utils"
)

// ResilientConfig configures the resilient provider wrappers.
type ResilientConfig struct {
	// Retry configuration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// RateLimit is the sustained calls per second allowed to the provider.
	// Zero disables rate limiting.
	RateLimit float64
	Burst     int

	// BreakerFailures is the number of consecutive failed calls that open
	// the circuit. BreakerCooldown is how long it stays open.
	BreakerFailures uint32
	BreakerCooldown time.Duration

	// Logger for API calls
	Logger APILogger

	// EnableRetry controls whether retry is enabled.
	EnableRetry bool

	// EnableLogging controls whether logging is enabled.
	EnableLogging bool

	// EnableBreaker controls whether the circuit breaker is enabled.
	EnableBreaker bool
}

// DefaultResilientConfig returns sensible defaults.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		MaxRetries:      2,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		RateLimit:       10,
		Burst:           5,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
		EnableRetry:     true,
		EnableLogging:   true,
		EnableBreaker:   true,
	}
}

// resilience is the call path shared by both wrappers:
// rate limiter, then circuit breaker, then retry policy, then logging.
type resilience struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	retry   *utils.RetryPolicy
	logger  APILogger
}

func newResilience(name string, config ResilientConfig) *resilience {
	r := &resilience{name: name}

	if config.RateLimit > 0 {
		burst := config.Burst
		if burst <= 0 {
			burst = 1
		}
		r.limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	if config.EnableBreaker {
		failures := config.BreakerFailures
		if failures == 0 {
			failures = 5
		}
		r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     config.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// Only availability failures count against the provider.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) ||
					moderation.IsMalformedResponse(err) || errors.Is(err, moderation.ErrContentBlocked) ||
					errors.Is(err, moderation.ErrMissingCredentials)
			},
		})
	}

	if config.EnableRetry {
		p := utils.DefaultRetryPolicy()
		p.Retries = config.MaxRetries
		p.BaseDelay = config.InitialDelay
		p.MaxDelay = config.MaxDelay
		r.retry = &p
	}

	switch {
	case !config.EnableLogging:
		r.logger = NopLogger{}
	case config.Logger != nil:
		r.logger = config.Logger
	default:
		r.logger = GlobalLogger
	}

	return r
}

// call runs fn through the resilience layers. Breaker rejections surface
// as ErrCircuitOpen and limiter rejections as ErrRateLimited.
func call[T any](ctx context.Context, r *resilience, operation string, inputSize int, fn func() (T, error)) (T, error) {
	timer := StartLog(r.logger, r.name, operation).WithInputSize(inputSize)

	var zero T
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			err = fmt.Errorf("%w: %v", moderation.ErrRateLimited, err)
			timer.Error(ctx, err)
			return zero, err
		}
	}

	attempts := 0
	retried := func() (T, error) {
		attempt := func() (T, error) {
			attempts++
			return fn()
		}
		if r.retry == nil {
			return attempt()
		}
		return utils.Retry(ctx, *r.retry, attempt)
	}

	var (
		out T
		err error
	)
	if r.breaker != nil {
		var v any
		v, err = r.breaker.Execute(func() (any, error) {
			return retried()
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = fmt.Errorf("%w: %s", moderation.ErrCircuitOpen, r.name)
		}
		if err == nil {
			out, _ = v.(T)
		}
	} else {
		out, err = retried()
	}

	if attempts > 1 {
		timer.WithRetryCount(attempts - 1)
	}
	if err != nil {
		timer.Error(ctx, err)
		return zero, err
	}
	timer.Success(ctx, sizeOf(out))
	return out, nil
}

func sizeOf(v any) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case CategoryScores:
		return len(t)
	default:
		return 0
	}
}

// ResilientClassifier wraps a classifier with rate limiting, circuit
// breaking, retry and logging.
type ResilientClassifier struct {
	classifier Classifier
	r          *resilience
}

// NewResilientClassifier creates a new resilient classifier wrapper.
func NewResilientClassifier(classifier Classifier, config ResilientConfig) *ResilientClassifier {
	return &ResilientClassifier{
		classifier: classifier,
		r:          newResilience(classifier.Name(), config),
	}
}

// Name returns the provider name.
func (rc *ResilientClassifier) Name() string {
	return rc.classifier.Name()
}

// Classify classifies text with the configured resilience layers.
func (rc *ResilientClassifier) Classify(ctx context.Context, text string) (Signal, error) {
	return call(ctx, rc.r, "classify", len(text), func() (Signal, error) {
		return rc.classifier.Classify(ctx, text)
	})
}

// Unwrap returns the underlying classifier.
func (rc *ResilientClassifier) Unwrap() Classifier {
	return rc.classifier
}

// ResilientGenerator wraps a generator with rate limiting, circuit
// breaking, retry and logging.
type ResilientGenerator struct {
	generator Generator
	r         *resilience
}

// NewResilientGenerator creates a new resilient generator wrapper.
func NewResilientGenerator(generator Generator, config ResilientConfig) *ResilientGenerator {
	return &ResilientGenerator{
		generator: generator,
		r:         newResilience(generator.Name(), config),
	}
}

// Name returns the provider name.
func (rg *ResilientGenerator) Name() string {
	return rg.generator.Name()
}

// Generate generates a reply with the configured resilience layers.
func (rg *ResilientGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return call(ctx, rg.r, "generate", len(prompt), func() (string, error) {
		return rg.generator.Generate(ctx, prompt)
	})
}

// Unwrap returns the underlying generator.
func (rg *ResilientGenerator) Unwrap() Generator {
	return rg.generator
}

// WrapClassifier wraps a classifier with default resilience configuration.
func WrapClassifier(classifier Classifier) *ResilientClassifier {
	return NewResilientClassifier(classifier, DefaultResilientConfig())
}

// WrapGenerator wraps a generator with default resilience configuration.
func WrapGenerator(generator Generator) *ResilientGenerator {
	return NewResilientGenerator(generator, DefaultResilientConfig())
}
