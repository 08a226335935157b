package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/flipwatch/flipwatch/internal/adapters/outbound/flipapi"
	"github.com/flipwatch/flipwatch/internal/core/exchange"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

const fetchTimeout = 30 * time.Second

// RecommendationSource is satisfied by *flipapi.Client.
type RecommendationSource interface {
	FetchRecommendations(ctx context.Context, cashStack *int64, style string, limit int) (*flipapi.RecommendationList, error)
}

// Refresher periodically pulls flip recommendations and publishes their
// sell prices into the link store, so a later buy fill can be tied back
// to the recommendation that prompted it. At most one refresh runs at a
// time; overlapping triggers (periodic tick vs cash-stack trigger) skip
// rather than queue.
type Refresher struct {
	source    RecommendationSource
	links     *exchange.LinkStore
	style     string
	limit     int
	interval  time.Duration
	cashStack func() int64 // returns 0 when unknown

	running atomic.Bool
}

// New builds a refresher. intervalMinutes is clamped to 1..60.
func New(source RecommendationSource, links *exchange.LinkStore, style string, limit, intervalMinutes int, cashStack func() int64) *Refresher {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	if intervalMinutes > 60 {
		intervalMinutes = 60
	}
	return &Refresher{
		source:    source,
		links:     links,
		style:     style,
		limit:     limit,
		interval:  time.Duration(intervalMinutes) * time.Minute,
		cashStack: cashStack,
	}
}

// Run drives the periodic refresh until ctx is cancelled. Call on its
// own goroutine.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	telemetry.Infof("refresh: recommendations every %s", r.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshOnce(ctx)
		}
	}
}

// TriggerNow requests an immediate refresh off the caller's goroutine,
// e.g. after a material cash-stack change or on login. Skipped when a
// refresh is already in flight.
func (r *Refresher) TriggerNow() {
	go r.refreshOnce(context.Background())
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		telemetry.Metrics.RefreshSkipped.Inc()
		telemetry.Debugf("refresh: already running, skipping")
		return
	}
	defer r.running.Store(false)

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	var cash *int64
	if r.cashStack != nil {
		if total := r.cashStack(); total > 0 {
			cash = &total
		}
	}

	list, err := r.source.FetchRecommendations(fetchCtx, cash, r.style, r.limit)
	if err != nil {
		telemetry.Warnf("refresh: %v", err)
		return
	}

	linked := 0
	for _, rec := range list.Recommendations {
		if rec.RecommendedSellPrice > 0 {
			r.links.Set(rec.ItemID, rec.RecommendedSellPrice)
			linked++
		}
	}

	telemetry.Metrics.RefreshRuns.Inc()
	telemetry.Infof("refresh: %d recommendations, %d links updated", len(list.Recommendations), linked)
}
