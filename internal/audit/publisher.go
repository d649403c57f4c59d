package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"agentgate/pkg/platform/circuit"
)

// Sink receives audit events. Implementations: in-memory (tests, kafka-less
// deployments) and kafka.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher stamps and forwards events to a sink, optionally through an
// async buffer so auth paths never block on the sink. With a breaker and a
// fallback sink configured, events that fail to reach the primary land in
// the fallback instead of vanishing.
type Publisher struct {
	sink     Sink
	fallback Sink
	breaker  *circuit.Breaker
	logger   *slog.Logger

	inbox chan Event
	wg    sync.WaitGroup
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking through a buffered channel drained
// by a background goroutine. Close drains the buffer before returning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

// WithFallbackSink routes events to fallback when the primary sink fails.
// The breaker tracks primary health so the open/close transitions are logged
// once instead of per event.
func WithFallbackSink(fallback Sink, breaker *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.fallback = fallback
		p.breaker = breaker
	}
}

// WithLogger sets the logger for sink-health transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records an event, stamping the timestamp if unset. In async mode a
// full buffer drops the event rather than blocking the auth path.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.append(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
	}
	return nil
}

func (p *Publisher) append(ctx context.Context, event Event) error {
	err := p.sink.Append(ctx, event)
	if p.breaker == nil {
		return err
	}

	if err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.Warn("audit sink unhealthy, diverting to fallback", "breaker", p.breaker.Name(), "error", err)
		}
		if p.fallback != nil {
			return p.fallback.Append(ctx, event)
		}
		return err
	}

	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.Info("audit sink recovered", "breaker", p.breaker.Name())
	}
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		// Sink errors are swallowed here; the kafka sink logs internally.
		_ = p.append(context.Background(), event)
	}
}

// Close stops the async drain after flushing buffered events.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}
