package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"probata/internal/filing/models"
)

const asyncWriteTimeout = 10 * time.Second

// Publisher hands event batches to a sink, synchronously by default or
// through a buffered channel when configured with WithAsyncBuffer. Async
// mode decouples command latency from broker latency; Close drains the
// buffer before returning.
type Publisher struct {
	sink   Sink
	logger *slog.Logger

	inbox chan []models.Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables background publishing with the given buffer size.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan []models.Event, size)
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Publish delivers one batch. In async mode it blocks only when the buffer
// is full.
func (p *Publisher) Publish(ctx context.Context, batch []models.Event) error {
	if len(batch) == 0 {
		return nil
	}
	if p.inbox == nil {
		return p.sink.Write(ctx, batch)
	}
	select {
	case p.inbox <- batch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for batch := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
		if err := p.sink.Write(ctx, batch); err != nil {
			p.logger.Error("event batch write failed",
				"error", err,
				"events", len(batch),
			)
		}
		cancel()
	}
}

// Close drains any buffered batches and closes the sink.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
	return p.sink.Close()
}
