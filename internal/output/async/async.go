package async

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crimson-sun/healthguard/internal/model"
	"github.com/crimson-sun/healthguard/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithLogger sets the logger for drops, drain timeouts and the default error callback.
func WithLogger(l *zap.Logger) Option {
	return func(a *Async) { a.logger = l }
}

// WithOnError sets the callback invoked when the inner output's Write fails.
// Default: logs a warning.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the record) when the
// buffer is full, instead of blocking. A dropped record leaves a gap that
// chain verification reports, so only use it for secondary sinks.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// Async decouples record production from delivery via a buffered channel.
// A single background goroutine drains it to the wrapped output, so records
// arrive in Write order. Errors from the inner output are passed to errFunc
// rather than propagated to the caller.
type Async struct {
	inner      output.Output
	ch         chan model.AuditRecord
	done       chan struct{}
	logger     *zap.Logger
	errFunc    func(error)
	bufSize    int
	dropOnFull bool
	closeOnce  sync.Once
}

// New wraps an output.Output in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:   inner,
		bufSize: defaultBufferSize,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.errFunc == nil {
		a.errFunc = func(err error) { a.logger.Warn("async output write error", zap.Error(err)) }
	}
	a.ch = make(chan model.AuditRecord, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write sends the record into the channel. By default, blocks if the channel
// is full (backpressure) or until ctx is done. With WithDropOnFull, returns
// nil immediately and the record is lost.
func (a *Async) Write(ctx context.Context, rec model.AuditRecord) error {
	if a.dropOnFull {
		select {
		case a.ch <- rec:
		default:
			a.logger.Warn("async output buffer full, dropping record",
				zap.String("tool", rec.ToolName), zap.Int64("index", rec.Index))
		}
		return nil
	}
	select {
	case a.ch <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close closes the channel, waits for the drain goroutine to finish
// (with a timeout), then closes the inner output.
func (a *Async) Close() error {
	var err error
	a.closeOnce.Do(func() {
		close(a.ch)
		select {
		case <-a.done:
		case <-time.After(defaultDrainTimeout):
			a.logger.Warn("async output drain timed out")
		}
		err = a.inner.Close()
	})
	return err
}

// drain reads records from the channel and writes them to the inner output.
func (a *Async) drain() {
	defer close(a.done)
	for rec := range a.ch {
		if err := a.inner.Write(context.Background(), rec); err != nil {
			a.errFunc(err)
		}
	}
}
