package device

import (
	"context"
	"fmt"
	"sync"
)

// MaxResolveRetries is how many extra discovery rounds an alias lookup
// makes, each against a freshly reset cache.
const MaxResolveRetries = 3

// ResolveState tracks handle resolution for one plug.
type ResolveState int32

// Resolution states.
//
//	NotResolved ──▶ Resolving ──▶ Resolved
//	                    │
//	                    ▼
//	              ResolveFailed ──▶ (next call) Resolving
const (
	NotResolved ResolveState = iota
	Resolving
	Resolved
	ResolveFailed
)

// String implements fmt.Stringer.
func (s ResolveState) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case ResolveFailed:
		return "failed"
	default:
		return "not_resolved"
	}
}

// Discovery memoises the result of a network discovery so that every plug
// configured by alias shares one broadcast per session.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Discovery struct {
	resolver Resolver

	mu      sync.Mutex
	handles []Handle
	fetched bool
}

// NewDiscovery creates an empty discovery cache over resolver.
func NewDiscovery(resolver Resolver) *Discovery {
	return &Discovery{resolver: resolver}
}

// Handles returns the cached discovery result, broadcasting first if the
// cache is empty. Errors are not cached.
func (d *Discovery) Handles(ctx context.Context) ([]Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.fetched {
		return d.handles, nil
	}

	handles, err := d.resolver.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering devices: %w", err)
	}
	d.handles = handles
	d.fetched = true
	return handles, nil
}

// Reset drops the cached result so the next Handles call broadcasts again.
func (d *Discovery) Reset() {
	d.mu.Lock()
	d.handles = nil
	d.fetched = false
	d.mu.Unlock()
}

// handle returns the memoised handle, resolving it if needed.
// Concurrent callers wait for a single in-flight resolution.
func (p *Plug) handle(ctx context.Context) (Handle, error) {
	p.resolveMu.Lock()
	defer p.resolveMu.Unlock()

	if p.h != nil {
		return p.h, nil
	}

	p.resolution.Store(int32(Resolving))
	h, err := p.resolve(ctx)
	if err != nil {
		p.resolution.Store(int32(ResolveFailed))
		return nil, err
	}

	p.infoMu.Lock()
	p.host = h.Host()
	p.alias = h.Alias()
	p.infoMu.Unlock()

	p.h = h
	p.resolution.Store(int32(Resolved))
	p.logger.Info("discovered device", "device", p.name, "host", h.Host(), "alias", h.Alias())
	return h, nil
}

func (p *Plug) resolve(ctx context.Context) (Handle, error) {
	host, alias := p.Host(), p.Alias()

	if host != "" {
		h, err := p.resolver.Resolve(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("%w: %s at %s: %w", ErrResolveFailed, p.name, host, err)
		}
		return h, nil
	}

	for attempt := 0; attempt <= MaxResolveRetries; attempt++ {
		if attempt > 0 {
			p.discovery.Reset()
		}

		handles, err := p.discovery.Handles(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrResolveFailed, p.name, ctx.Err())
			}
			p.logger.Warn("discovering device by alias did not go well",
				"device", p.name, "alias", alias, "attempt", attempt+1, "error", err)
			continue
		}

		for _, h := range handles {
			if h.Alias() == alias {
				return h, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s from alias %q", ErrResolveFailed, p.name, alias)
}

// Resolution returns the current handle resolution state.
func (p *Plug) Resolution() ResolveState {
	return ResolveState(p.resolution.Load())
}
