package exchange

import (
	"time"

	"github.com/flipwatch/flipwatch/internal/events"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// Engine owns the eight-slot table and drives the per-slot transition
// function for every incoming snapshot, forwarding derived events to the
// bus. All snapshot processing happens on the feed's read goroutine, so
// the slot table needs no locking; background completions only ever touch
// the separately guarded LinkStore.
type Engine struct {
	bus   *events.Bus
	links *LinkStore
	burst BurstGuard
	slots [SlotCount]*TrackedOffer
}

func NewEngine(bus *events.Bus, links *LinkStore) *Engine {
	e := &Engine{bus: bus, links: links}
	bus.Subscribe(events.EventOfferChanged, e.onOfferChanged)
	bus.Subscribe(events.EventSessionChanged, e.onSessionChanged)
	return e
}

func (e *Engine) onSessionChanged(evt events.Event) error {
	change, ok := evt.Payload.(events.SessionChange)
	if !ok {
		return nil
	}
	if change.State.Reconnecting() {
		telemetry.Debugf("engine: session reset (%s) at tick %d", change.State, change.Tick)
		e.burst.OnSessionReset(change.Tick)
	}
	return nil
}

func (e *Engine) onOfferChanged(evt events.Event) error {
	change, ok := evt.Payload.(events.OfferChange)
	if !ok {
		return nil
	}
	e.HandleSnapshot(OfferSnapshot{
		Slot:          change.Slot,
		ItemID:        change.ItemID,
		ItemName:      change.ItemName,
		State:         ParseState(change.State),
		TotalQuantity: change.TotalQuantity,
		QuantitySold:  change.QuantitySold,
		Price:         change.Price,
		Spent:         change.Spent,
		Tick:          change.Tick,
	})
	return nil
}

// HandleSnapshot applies one snapshot to its slot and publishes whatever
// the transition derived. Snapshots for out-of-range slots are dropped.
func (e *Engine) HandleSnapshot(snap OfferSnapshot) {
	if snap.Slot < 0 || snap.Slot >= SlotCount {
		telemetry.Warnf("engine: dropping snapshot for invalid slot %d", snap.Slot)
		return
	}
	telemetry.Metrics.OffersProcessed.Inc()

	prev := e.slots[snap.Slot]
	burst := e.burst.IsBurst(snap.Tick)
	if burst && snap.State != StateEmpty {
		telemetry.Metrics.BurstSuppressed.Inc()
		telemetry.Debugf("engine: burst replay, seeding slot %d with %d sold", snap.Slot, snap.QuantitySold)
	}

	t := Apply(prev, snap, burst)
	e.slots[snap.Slot] = t.Offer
	e.publish(t, snap)
	e.updateGauges()
}

func (e *Engine) publish(t Transition, snap OfferSnapshot) {
	for _, tx := range t.Transactions {
		if tx.IsBuy {
			if price, ok := e.links.Consume(tx.ItemID); ok {
				p := price
				tx.RecommendedSellPrice = &p
			}
		}
		telemetry.Metrics.Transactions.Inc()
		telemetry.Infof("engine: %s %s x%d @ %d gp (slot %d, %d/%d)",
			side(tx.IsBuy), tx.ItemName, tx.Quantity, tx.PricePerUnit,
			tx.Slot, tx.Cumulative, snap.TotalQuantity)
		e.bus.Publish(events.Event{
			Type:      events.EventTransaction,
			Slot:      tx.Slot,
			ItemID:    tx.ItemID,
			Timestamp: time.Now(),
			Payload:   tx,
		})
	}

	if t.Cancellation != nil {
		c := t.Cancellation
		telemetry.Metrics.Cancellations.Inc()
		telemetry.Infof("engine: %s %s cancelled, %d of %d filled (slot %d)",
			side(c.IsBuy), c.ItemName, c.QuantityDone, c.TotalWanted, c.Slot)
		e.bus.Publish(events.Event{
			Type:      events.EventOfferCancelled,
			Slot:      c.Slot,
			ItemID:    c.ItemID,
			Timestamp: time.Now(),
			Payload:   *c,
		})
	}

	if t.Cleared {
		e.bus.Publish(events.Event{
			Type:      events.EventOfferCleared,
			Slot:      snap.Slot,
			ItemID:    snap.ItemID,
			Timestamp: time.Now(),
		})
	}

	if t.NewPendingBuy {
		e.bus.Publish(events.Event{
			Type:      events.EventPendingOrders,
			Slot:      snap.Slot,
			ItemID:    snap.ItemID,
			Timestamp: time.Now(),
			Payload:   e.PendingBuyOrders(),
		})
	}
}

// PendingBuyOrders returns the buy offers with zero fills, enriched with
// any outstanding recommendation link (peeked, not consumed).
func (e *Engine) PendingBuyOrders() []PendingOrder {
	var pending []PendingOrder
	for slot, offer := range e.slots {
		if offer == nil || !offer.IsBuy || offer.CumulativeFilled != 0 {
			continue
		}
		po := PendingOrder{
			ItemID:       offer.ItemID,
			ItemName:     offer.ItemName,
			Quantity:     offer.TotalQuantity,
			PricePerItem: offer.Price,
			Slot:         slot,
		}
		if price, ok := e.links.Peek(offer.ItemID); ok {
			p := price
			po.RecommendedSellPrice = &p
		}
		pending = append(pending, po)
	}
	return pending
}

// TrackedSlot exposes the tracked state of one slot, nil when untracked.
func (e *Engine) TrackedSlot(slot int) *TrackedOffer {
	if slot < 0 || slot >= SlotCount {
		return nil
	}
	return e.slots[slot]
}

func (e *Engine) updateGauges() {
	var n int64
	for _, offer := range e.slots {
		if offer != nil {
			n++
		}
	}
	telemetry.Metrics.TrackedOffers.Set(n)
}

func side(isBuy bool) string {
	if isBuy {
		return "BUY"
	}
	return "SELL"
}
