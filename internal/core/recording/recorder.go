package recording

import (
	"context"
	"sync"
	"time"

	"github.com/flipwatch/flipwatch/internal/adapters/outbound/flipapi"
	"github.com/flipwatch/flipwatch/internal/core/exchange"
	"github.com/flipwatch/flipwatch/internal/core/journal"
	"github.com/flipwatch/flipwatch/internal/events"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

const submitTimeout = 15 * time.Second

// RemoteRecorder is satisfied by *flipapi.Client.
type RemoteRecorder interface {
	RecordTransaction(ctx context.Context, req flipapi.TransactionRequest) error
}

// Recorder forwards derived transactions to the remote API without ever
// blocking the snapshot-processing goroutine. Dedup happens synchronously
// on the bus handler; the network submit runs on its own goroutine and a
// failure there is logged, never retried, since a retry could
// double-record a fill the server already accepted.
type Recorder struct {
	remote  RemoteRecorder
	journal *journal.Store // nil disables the local journal
	guard   *SubmitGuard

	wg sync.WaitGroup
}

func NewRecorder(bus *events.Bus, remote RemoteRecorder, jnl *journal.Store) *Recorder {
	r := &Recorder{
		remote:  remote,
		journal: jnl,
		guard:   NewSubmitGuard(),
	}
	bus.Subscribe(events.EventTransaction, r.onTransaction)
	bus.Subscribe(events.EventOfferCancelled, r.onSlotDone)
	bus.Subscribe(events.EventOfferCleared, r.onSlotDone)
	return r
}

func (r *Recorder) onTransaction(evt events.Event) error {
	tx, ok := evt.Payload.(exchange.Transaction)
	if !ok {
		return nil
	}

	key := r.guard.Key(tx.Slot, tx.ItemID, tx.Cumulative, tx.IsBuy)
	if r.guard.HasSeen(key) {
		telemetry.Metrics.DuplicatesSuppressed.Inc()
		telemetry.Warnf("recorder: duplicate fill suppressed (%s)", key)
		return nil
	}
	r.guard.Record(key)

	r.wg.Add(1)
	go r.submit(tx)
	return nil
}

// submit persists and forwards one fill. It runs on its own goroutine so
// neither the journal write nor the network call touches the
// snapshot-processing path.
func (r *Recorder) submit(tx exchange.Transaction) {
	defer r.wg.Done()

	if r.journal != nil {
		if err := r.journal.Insert(tx); err != nil {
			telemetry.Warnf("recorder: journal insert: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()

	err := r.remote.RecordTransaction(ctx, flipapi.TransactionRequest{
		ItemID:               tx.ItemID,
		ItemName:             tx.ItemName,
		IsBuy:                tx.IsBuy,
		Quantity:             tx.Quantity,
		PricePerItem:         tx.PricePerUnit,
		Slot:                 tx.Slot,
		RecommendedSellPrice: tx.RecommendedSellPrice,
	})
	if err != nil {
		// Transaction history is supplementary; a lost record must not
		// disturb the player or the slot state.
		telemetry.Warnf("recorder: record failed for item %d x%d: %v", tx.ItemID, tx.Quantity, err)
	}
}

func (r *Recorder) onSlotDone(evt events.Event) error {
	r.guard.ClearSlot(evt.Slot)
	return nil
}

// Wait blocks until all in-flight submissions finish. Used on shutdown
// and in tests.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
