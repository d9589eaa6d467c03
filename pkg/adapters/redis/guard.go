package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/aretw0/certwizard/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces guard keys.
const DefaultPrefix = "certwizard:"

// releaseScript deletes the key only if we still own it.
var releaseScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var seq atomic.Uint64

// Guard implements ports.Guard using Redis SET NX PX.
// Several processes driving the same endpoint share the in-flight rule through it.
type Guard struct {
	client *backend.Client
	prefix string
}

// Option configures the Guard.
type Option func(*Guard)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(g *Guard) {
		g.prefix = prefix
	}
}

// New creates a guard connected to the given address.
func New(address, password string, db int, opts ...Option) *Guard {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a guard from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Guard {
	g := &Guard{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) key(name string) string {
	return g.prefix + "inflight:" + name
}

// Acquire claims the key once; a held key yields domain.ErrStepInFlight.
func (g *Guard) Acquire(ctx context.Context, key string, ttl time.Duration) (ports.ReleaseFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lockKey := g.key(key)
	val := strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(seq.Add(1), 36)

	ok, err := g.client.SetNX(ctx, lockKey, val, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error acquiring guard: %w", err)
	}
	if !ok {
		return nil, domain.ErrStepInFlight
	}

	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, g.client, []string{lockKey}, val).Err()
	}, nil
}

// Ping checks connectivity.
func (g *Guard) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (g *Guard) Close() error {
	return g.client.Close()
}
