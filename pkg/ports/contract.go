package ports

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGuardContract runs a suite of tests to verify that a Guard implementation
// adheres to the defined interface contract.
func RunGuardContract(t *testing.T, guard Guard) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000000")

	t.Run("Acquire and Release", func(t *testing.T) {
		release, err := guard.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)
		require.NotNil(t, release)
		require.NoError(t, release(ctx))

		// Free again after release
		release, err = guard.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)
		require.NoError(t, release(ctx))
	})

	t.Run("Held Key Is Rejected", func(t *testing.T) {
		release, err := guard.Acquire(ctx, key, time.Minute)
		require.NoError(t, err)
		defer release(ctx)

		_, err = guard.Acquire(ctx, key, time.Minute)
		assert.ErrorIs(t, err, domain.ErrStepInFlight)
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		r1, err := guard.Acquire(ctx, key+"-a", time.Minute)
		require.NoError(t, err)
		defer r1(ctx)

		r2, err := guard.Acquire(ctx, key+"-b", time.Minute)
		require.NoError(t, err)
		defer r2(ctx)
	})

	t.Run("Concurrent Acquire Has One Winner", func(t *testing.T) {
		var (
			wg       sync.WaitGroup
			winners  atomic.Int32
			releases = make(chan ReleaseFunc, 16)
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := guard.Acquire(ctx, key+"-race", time.Minute)
				if err == nil {
					winners.Add(1)
					releases <- release
				}
			}()
		}
		wg.Wait()
		close(releases)
		for r := range releases {
			_ = r(ctx)
		}
		assert.Equal(t, int32(1), winners.Load())
	})

	t.Run("Canceled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := guard.Acquire(cctx, key+"-canceled", time.Minute)
		assert.Error(t, err)
	})
}
