package analysis

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipwatch/flipwatch/internal/adapters/outbound/flipapi"
)

type countingFetcher struct {
	calls atomic.Int64
	block chan struct{} // when non-nil, fetch waits on it
}

func (f *countingFetcher) FetchAnalysis(_ context.Context, itemID int) (*flipapi.ItemAnalysis, error) {
	f.calls.Add(1)
	if f.block != nil {
		<-f.block
	}
	return &flipapi.ItemAnalysis{ItemID: itemID, ItemName: "item"}, nil
}

func TestCache_SecondGetServedFromCache(t *testing.T) {
	f := &countingFetcher{}
	c := NewCache(f)

	a1, err := c.Get(context.Background(), 4151)
	require.NoError(t, err)
	a2, err := c.Get(context.Background(), 4151)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.Equal(t, int64(1), f.calls.Load())
}

func TestCache_ExpiredEntryRefetched(t *testing.T) {
	f := &countingFetcher{}
	c := NewCache(f)

	clock := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	_, err := c.Get(context.Background(), 4151)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Minute)
	assert.Nil(t, c.Lookup(4151))

	_, err = c.Get(context.Background(), 4151)
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.calls.Load())
}

func TestCache_ConcurrentGetsCoalesce(t *testing.T) {
	f := &countingFetcher{block: make(chan struct{})}
	c := NewCache(f)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), 560)
			assert.NoError(t, err)
		}()
	}

	// Give the goroutines time to pile onto the single flight.
	time.Sleep(50 * time.Millisecond)
	close(f.block)
	wg.Wait()

	assert.Equal(t, int64(1), f.calls.Load())
}

func TestCache_RetainPrunesDeparted(t *testing.T) {
	f := &countingFetcher{}
	c := NewCache(f)

	for _, id := range []int{1, 2, 3} {
		_, err := c.Get(context.Background(), id)
		require.NoError(t, err)
	}

	c.Retain([]int{2})
	assert.Equal(t, 1, c.Len())
	assert.Nil(t, c.Lookup(1))
	assert.NotNil(t, c.Lookup(2))
}
