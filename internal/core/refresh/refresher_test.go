package refresh

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipwatch/flipwatch/internal/adapters/outbound/flipapi"
	"github.com/flipwatch/flipwatch/internal/core/exchange"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   int
	cash    *int64
	list    *flipapi.RecommendationList
	err     error
	release chan struct{} // when set, Fetch blocks until closed
}

func (f *fakeSource) FetchRecommendations(ctx context.Context, cashStack *int64, style string, limit int) (*flipapi.RecommendationList, error) {
	f.mu.Lock()
	f.calls++
	f.cash = cashStack
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRefresher_PopulatesLinkStore(t *testing.T) {
	src := &fakeSource{list: &flipapi.RecommendationList{
		Recommendations: []flipapi.Recommendation{
			{ItemID: 560, RecommendedSellPrice: 92},
			{ItemID: 4151, RecommendedSellPrice: 1_500_000},
			{ItemID: 2, RecommendedSellPrice: 0}, // no usable price
		},
	}}
	links := exchange.NewLinkStore()
	r := New(src, links, "balanced", 25, 5, nil)

	r.refreshOnce(context.Background())

	require.Equal(t, 1, src.callCount())
	assert.Equal(t, 2, links.Len())
	price, ok := links.Peek(560)
	require.True(t, ok)
	assert.Equal(t, 92, price)
	_, ok = links.Peek(2)
	assert.False(t, ok)
}

func TestRefresher_PassesCashStackWhenKnown(t *testing.T) {
	src := &fakeSource{list: &flipapi.RecommendationList{}}
	r := New(src, exchange.NewLinkStore(), "balanced", 25, 5, func() int64 { return 1_250_000 })

	r.refreshOnce(context.Background())

	require.NotNil(t, src.cash)
	assert.Equal(t, int64(1_250_000), *src.cash)
}

func TestRefresher_OmitsUnknownCashStack(t *testing.T) {
	src := &fakeSource{list: &flipapi.RecommendationList{}}
	r := New(src, exchange.NewLinkStore(), "balanced", 25, 5, func() int64 { return 0 })

	r.refreshOnce(context.Background())

	assert.Nil(t, src.cash)
}

func TestRefresher_ConcurrentTriggerSkips(t *testing.T) {
	src := &fakeSource{
		list:    &flipapi.RecommendationList{},
		release: make(chan struct{}),
	}
	r := New(src, exchange.NewLinkStore(), "balanced", 25, 5, nil)

	done := make(chan struct{})
	go func() {
		r.refreshOnce(context.Background())
		close(done)
	}()

	// Wait until the first refresh is inside the fetch, then trigger
	// again; the second call must skip without reaching the source.
	require.Eventually(t, func() bool { return src.callCount() == 1 }, time.Second, time.Millisecond)
	r.refreshOnce(context.Background())
	assert.Equal(t, 1, src.callCount())

	close(src.release)
	<-done

	r.refreshOnce(context.Background())
	assert.Equal(t, 2, src.callCount())
}

func TestRefresher_FetchErrorLeavesLinksUntouched(t *testing.T) {
	links := exchange.NewLinkStore()
	links.Set(560, 92)
	src := &fakeSource{err: context.DeadlineExceeded}
	r := New(src, links, "balanced", 25, 5, nil)

	r.refreshOnce(context.Background())

	price, ok := links.Peek(560)
	require.True(t, ok)
	assert.Equal(t, 92, price)
}

func TestRefresher_IntervalClamped(t *testing.T) {
	r := New(&fakeSource{}, exchange.NewLinkStore(), "balanced", 25, 0, nil)
	assert.Equal(t, time.Minute, r.interval)

	r = New(&fakeSource{}, exchange.NewLinkStore(), "balanced", 25, 240, nil)
	assert.Equal(t, time.Hour, r.interval)
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{list: &flipapi.RecommendationList{}}
	r := New(src, exchange.NewLinkStore(), "balanced", 25, 1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Zero(t, src.callCount())
}
