package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Sink persists entries.
type Sink interface {
	Write(ctx context.Context, e Entry) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Entry) error

// Write implements Sink.
func (f SinkFunc) Write(ctx context.Context, e Entry) error { return f(ctx, e) }

// Logger is the audit recorder. A nil *Logger discards entries.
type Logger struct {
	sink    Sink
	log     *slog.Logger
	limiter *rate.Limiter
	now     func() time.Time
	onDrop  func(error)

	recorded atomic.Int64
	dropped  atomic.Int64
}

// Option configures a Logger.
type Option func(*Logger)

// WithSlog sets the logger that receives sink failure warnings.
func WithSlog(l *slog.Logger) Option {
	return func(a *Logger) {
		if l != nil {
			a.log = l
		}
	}
}

// WithWarnRate limits sink failure warnings to r per second with the given
// burst. Drops beyond the limit are still counted.
func WithWarnRate(r rate.Limit, burst int) Option {
	return func(a *Logger) {
		a.limiter = rate.NewLimiter(r, burst)
	}
}

// WithDropHook registers a callback invoked for every dropped entry.
func WithDropHook(fn func(error)) Option {
	return func(a *Logger) {
		a.onDrop = fn
	}
}

// NewLogger creates a Logger writing to sink. A nil sink discards entries.
func NewLogger(sink Sink, opts ...Option) *Logger {
	l := &Logger{
		sink:    sink,
		log:     slog.Default(),
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record writes e to the sink. Missing ID and Timestamp are filled in.
// Sink errors and panics are swallowed.
func (l *Logger) Record(ctx context.Context, e Entry) {
	if l == nil || l.sink == nil {
		return
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now().UTC()
	}

	if err := l.write(ctx, e); err != nil {
		l.dropped.Add(1)
		if l.onDrop != nil {
			l.onDrop(err)
		}
		if l.limiter.Allow() {
			l.log.WarnContext(ctx, "audit entry dropped",
				slog.String("entry_id", e.ID.String()),
				slog.String("modality", e.Modality.String()),
				slog.Int64("dropped_total", l.dropped.Load()),
				slog.Any("error", err),
			)
		}
		return
	}
	l.recorded.Add(1)
}

func (l *Logger) write(ctx context.Context, e Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit sink panic: %v", r)
		}
	}()
	return l.sink.Write(ctx, e)
}

// Recorded returns the number of entries written successfully.
func (l *Logger) Recorded() int64 {
	if l == nil {
		return 0
	}
	return l.recorded.Load()
}

// Dropped returns the number of entries lost to sink failures.
func (l *Logger) Dropped() int64 {
	if l == nil {
		return 0
	}
	return l.dropped.Load()
}
