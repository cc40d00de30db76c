package report2pdf

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Pool sizing bounds. Each service acquired from the pool may launch a
// browser process, so the ceiling is deliberately low.
const (
	MinPoolSize = 1
	MaxPoolSize = 8

	// cpuDivisor maps logical CPUs to pool slots.
	cpuDivisor = 2
)

var ErrPoolClosed = errors.New("service pool is closed")

// ResolvePoolSize converts a requested worker count into an effective pool
// size: non-positive means auto (CPUs/2), and the result is clamped to the
// pool bounds.
func ResolvePoolSize(requested int) int {
	size := requested
	if size <= 0 {
		size = runtime.NumCPU() / cpuDivisor
	}
	if size < MinPoolSize {
		size = MinPoolSize
	}
	if size > MaxPoolSize {
		size = MaxPoolSize
	}
	return size
}

// ServicePool bounds concurrent conversions with a fixed number of service
// slots. Services are created lazily: a slot's service is built on first
// acquire and reused afterwards.
type ServicePool struct {
	factory func() (*Service, error)
	slots   chan *Service

	mu      sync.Mutex
	created int
	size    int
	closed  bool
}

// NewServicePool creates a pool of up to size services built by factory.
func NewServicePool(size int, factory func() (*Service, error)) (*ServicePool, error) {
	if size < MinPoolSize || size > MaxPoolSize {
		return nil, fmt.Errorf("pool size %d out of range [%d, %d]", size, MinPoolSize, MaxPoolSize)
	}
	if factory == nil {
		return nil, errors.New("pool factory cannot be nil")
	}
	return &ServicePool{
		factory: factory,
		slots:   make(chan *Service, size),
		size:    size,
	}, nil
}

// Acquire returns a service from the pool, blocking until one is free or
// the context is done. An idle service is reused before a new slot is
// filled.
func (p *ServicePool) Acquire(ctx context.Context) (*Service, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	p.mu.Unlock()

	select {
	case svc := <-p.slots:
		return svc, nil
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		svc, err := p.factory()
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, fmt.Errorf("creating pooled service: %w", err)
		}
		return svc, nil
	}
	p.mu.Unlock()

	select {
	case svc := <-p.slots:
		return svc, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a service to the pool. Releasing to a closed pool closes
// the service instead. The closed check and the hand-back happen under the
// pool lock, so a release can never slip a service past a concurrent Close.
func (p *ServicePool) Release(svc *Service) {
	if svc == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		_ = svc.Close()
		return
	}
	// never blocks: slot capacity equals the maximum number of services
	// the pool will ever create
	p.slots <- svc
}

// Close shuts the pool down and closes every idle service. Services still
// checked out are closed when released.
func (p *ServicePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []error
	for {
		select {
		case svc := <-p.slots:
			if err := svc.Close(); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}
