package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
)

// Guard implements ports.Guard in memory.
// Safe for concurrent use. Held keys expire after their TTL so a crashed
// holder cannot wedge a step forever.
type Guard struct {
	mu    sync.Mutex
	held  map[string]holder
	now   func() time.Time
	token uint64
}

type holder struct {
	token   uint64
	expires time.Time // zero means never
}

// NewGuard creates a new in-memory guard.
func NewGuard() *Guard {
	return &Guard{
		held: make(map[string]holder),
		now:  time.Now,
	}
}

// Acquire claims key until the returned release is called or ttl elapses.
func (g *Guard) Acquire(ctx context.Context, key string, ttl time.Duration) (ports.ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if h, ok := g.held[key]; ok && (h.expires.IsZero() || now.Before(h.expires)) {
		return nil, domain.ErrStepInFlight
	}

	g.token++
	h := holder{token: g.token}
	if ttl > 0 {
		h.expires = now.Add(ttl)
	}
	g.held[key] = h

	return func(context.Context) error {
		g.mu.Lock()
		defer g.mu.Unlock()
		// Only the current holder may release; an expired holder must not
		// free a key someone else has claimed since.
		if cur, ok := g.held[key]; ok && cur.token == h.token {
			delete(g.held, key)
		}
		return nil
	}, nil
}

// Held reports whether key is currently claimed.
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	h, ok := g.held[key]
	return ok && (h.expires.IsZero() || g.now().Before(h.expires))
}
