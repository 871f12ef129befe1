package providers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	moderation "github.com/heibot/moderation"
)

// APILogEntry records one outbound classifier or model call.
type APILogEntry struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	Provider     string         `json:"provider"`
	Operation    string         `json:"operation"` // classify, generate
	Duration     time.Duration  `json:"duration_ms"`
	Success      bool           `json:"success"`
	StatusCode   int            `json:"status_code,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	RetryCount   int            `json:"retry_count,omitempty"`
	InputSize    int            `json:"input_size,omitempty"` // Characters of text or prompt sent
	OutputSize   int            `json:"output_size,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// APILogger receives provider call entries.
type APILogger interface {
	Log(ctx context.Context, entry APILogEntry)
	LogAsync(ctx context.Context, entry APILogEntry)
}

// APILogStore persists provider call entries.
type APILogStore interface {
	SaveAPILog(ctx context.Context, entry APILogEntry) error
}

// LogLevel defines the logging verbosity level.
type LogLevel int

const (
	LogLevelNone  LogLevel = iota // Nothing
	LogLevelError                 // Failed calls only
	LogLevelInfo                  // Every call
	LogLevelDebug                 // Every call with sizes and extras
)

// LoggerConfig configures a StandardLogger.
type LoggerConfig struct {
	Level LogLevel

	// Logger receives the entries. Defaults to zap.NewNop().
	Logger *zap.Logger

	// Store optionally persists every entry that passes Level.
	Store APILogStore

	// AsyncBufferSize bounds queued LogAsync entries. When the queue is
	// full the entry is written inline.
	AsyncBufferSize int
}

// DefaultLoggerConfig returns the default logger configuration.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:           LogLevelInfo,
		AsyncBufferSize: 1000,
	}
}

// StandardLogger writes entries through zap and, when configured, to
// an APILogStore. LogAsync entries are written by a single background
// worker that drains the queue on Close.
type StandardLogger struct {
	config LoggerConfig
	log    *zap.Logger
	queue  chan APILogEntry
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewStandardLogger creates a logger and starts its worker.
func NewStandardLogger(config LoggerConfig) *StandardLogger {
	if config.AsyncBufferSize <= 0 {
		config.AsyncBufferSize = DefaultLoggerConfig().AsyncBufferSize
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	l := &StandardLogger{
		config: config,
		log:    log.With(zap.String("module", "providers")),
		queue:  make(chan APILogEntry, config.AsyncBufferSize),
		done:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.run()
	return l
}

// Log writes the entry before returning.
func (l *StandardLogger) Log(ctx context.Context, entry APILogEntry) {
	l.write(ctx, entry)
}

// LogAsync queues the entry. Entries logged after Close are dropped.
func (l *StandardLogger) LogAsync(ctx context.Context, entry APILogEntry) {
	select {
	case <-l.done:
		return
	default:
	}
	select {
	case l.queue <- entry:
	default:
		l.write(ctx, entry)
	}
}

// Close stops the worker after writing every queued entry. It is safe
// to call more than once.
func (l *StandardLogger) Close() {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
}

func (l *StandardLogger) run() {
	defer l.wg.Done()
	for {
		select {
		case e := <-l.queue:
			l.write(context.Background(), e)
		case <-l.done:
			for {
				select {
				case e := <-l.queue:
					l.write(context.Background(), e)
				default:
					return
				}
			}
		}
	}
}

func (l *StandardLogger) write(ctx context.Context, entry APILogEntry) {
	switch l.config.Level {
	case LogLevelNone:
		return
	case LogLevelError:
		if entry.Success {
			return
		}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	fields := []zap.Field{
		zap.String("id", entry.ID),
		zap.String("provider", entry.Provider),
		zap.String("operation", entry.Operation),
		zap.Duration("duration", entry.Duration),
		zap.Int("retries", entry.RetryCount),
	}
	if l.config.Level >= LogLevelDebug {
		fields = append(fields, zap.Int("input_size", entry.InputSize), zap.Int("output_size", entry.OutputSize))
		for k, v := range entry.Extra {
			fields = append(fields, zap.Any(k, v))
		}
	}

	if entry.Success {
		l.log.Info("provider call succeeded", fields...)
	} else {
		l.log.Warn("provider call failed", append(fields,
			zap.Int("status_code", entry.StatusCode),
			zap.String("error_code", entry.ErrorCode),
			zap.String("error", entry.ErrorMessage))...)
	}

	if l.config.Store != nil {
		if err := l.config.Store.SaveAPILog(ctx, entry); err != nil {
			l.log.Error("failed to save api log", zap.String("id", entry.ID), zap.Error(err))
		}
	}
}

// LogTimer times one provider call and emits its entry.
type LogTimer struct {
	entry  APILogEntry
	start  time.Time
	logger APILogger
}

// StartLog starts timing a call.
func StartLog(logger APILogger, provider, operation string) *LogTimer {
	now := time.Now()
	return &LogTimer{
		entry:  APILogEntry{Provider: provider, Operation: operation, Timestamp: now},
		start:  now,
		logger: logger,
	}
}

// WithInputSize records the size of the text sent to the provider.
func (t *LogTimer) WithInputSize(n int) *LogTimer {
	t.entry.InputSize = n
	return t
}

// WithRetryCount records how many retries the call needed.
func (t *LogTimer) WithRetryCount(count int) *LogTimer {
	t.entry.RetryCount = count
	return t
}

// WithExtra attaches a debug-level field.
func (t *LogTimer) WithExtra(key string, value any) *LogTimer {
	if t.entry.Extra == nil {
		t.entry.Extra = make(map[string]any)
	}
	t.entry.Extra[key] = value
	return t
}

// Success emits the entry for a successful call.
func (t *LogTimer) Success(ctx context.Context, outputSize int) {
	t.entry.Duration = time.Since(t.start)
	t.entry.Success = true
	t.entry.OutputSize = outputSize
	t.logger.LogAsync(ctx, t.entry)
}

// Error emits the entry for a failed call. Provider errors keep their
// own code and status; other errors are coded by category.
func (t *LogTimer) Error(ctx context.Context, err error) {
	t.entry.Duration = time.Since(t.start)
	t.entry.Success = false

	var pe *moderation.ProviderError
	switch {
	case errors.As(err, &pe):
		t.entry.ErrorCode = pe.Code
		t.entry.ErrorMessage = pe.Message
		t.entry.StatusCode = pe.StatusCode
	case err != nil:
		t.entry.ErrorCode = string(moderation.GetErrorCategory(err))
		t.entry.ErrorMessage = err.Error()
	}
	t.logger.LogAsync(ctx, t.entry)
}

// NopLogger discards all entries.
type NopLogger struct{}

func (NopLogger) Log(ctx context.Context, entry APILogEntry)      {}
func (NopLogger) LogAsync(ctx context.Context, entry APILogEntry) {}

// GlobalLogger is used by resilient wrappers configured without a logger.
var GlobalLogger APILogger = NopLogger{}

// SetGlobalLogger replaces GlobalLogger.
func SetGlobalLogger(logger APILogger) {
	GlobalLogger = logger
}
