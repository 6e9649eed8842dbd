// Package publisher decouples audit emission from audit persistence. In sync
// mode Emit writes through to the store; with an async buffer Emit never
// blocks the request path and a background worker drains the queue.
package publisher

import (
	"context"
	"errors"
	"sync"
	"time"

	id "probata/pkg/domain"
	"probata/pkg/platform/audit"
)

// ErrBufferFull is returned when the async queue cannot accept another
// event. Callers treat audit loss as log-worthy, not fatal.
var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store audit.Store

	inbox     chan audit.Event
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type Option func(p *Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// queue capacity. Close drains whatever is queued.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan audit.Event, size)
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Emit records one audit event. A zero timestamp is stamped with the current
// time. In async mode a full buffer returns ErrBufferFull instead of
// blocking.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// List returns the trail for one application, oldest first.
func (p *Publisher) List(ctx context.Context, applicationID id.ApplicationID) ([]audit.Event, error) {
	return p.store.ListByApplication(ctx, applicationID)
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for event := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		// Best effort in async mode.
		_ = p.store.Append(ctx, event)
		cancel()
	}
}

// Close drains the async queue and stops the worker. Safe to call multiple
// times.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
