package exchange

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipwatch/flipwatch/internal/events"
)

type capture struct {
	transactions  []Transaction
	cancellations []Cancellation
	pending       [][]PendingOrder
	cleared       int
}

func newCapture(bus *events.Bus) *capture {
	c := &capture{}
	bus.Subscribe(events.EventTransaction, func(e events.Event) error {
		c.transactions = append(c.transactions, e.Payload.(Transaction))
		return nil
	})
	bus.Subscribe(events.EventOfferCancelled, func(e events.Event) error {
		c.cancellations = append(c.cancellations, e.Payload.(Cancellation))
		return nil
	})
	bus.Subscribe(events.EventPendingOrders, func(e events.Event) error {
		c.pending = append(c.pending, e.Payload.([]PendingOrder))
		return nil
	})
	bus.Subscribe(events.EventOfferCleared, func(events.Event) error {
		c.cleared++
		return nil
	})
	return c
}

func offerEvent(change events.OfferChange) events.Event {
	return events.Event{
		Type:      events.EventOfferChanged,
		Slot:      change.Slot,
		ItemID:    change.ItemID,
		Timestamp: time.Now(),
		Payload:   change,
	}
}

func buyChange(slot, sold, spent, tick int) events.OfferChange {
	return events.OfferChange{
		Slot: slot, ItemID: 100, ItemName: "Yew logs",
		State: "buying", TotalQuantity: 50,
		QuantitySold: sold, Price: 280, Spent: spent, Tick: tick,
	}
}

func TestEngine_RecommendationConsumedExactlyOnce(t *testing.T) {
	bus := events.NewBus()
	links := NewLinkStore()
	NewEngine(bus, links)
	cap := newCapture(bus)

	links.Set(100, 500)

	bus.Publish(offerEvent(buyChange(0, 0, 0, 100)))
	bus.Publish(offerEvent(buyChange(0, 10, 2800, 101)))
	bus.Publish(offerEvent(buyChange(0, 20, 5600, 102)))

	require.Len(t, cap.transactions, 2)
	require.NotNil(t, cap.transactions[0].RecommendedSellPrice)
	assert.Equal(t, 500, *cap.transactions[0].RecommendedSellPrice)
	assert.Nil(t, cap.transactions[1].RecommendedSellPrice)
	assert.Equal(t, 0, links.Len())
}

func TestEngine_SellFillNeverTouchesLinks(t *testing.T) {
	bus := events.NewBus()
	links := NewLinkStore()
	NewEngine(bus, links)
	cap := newCapture(bus)

	links.Set(100, 500)

	sell := events.OfferChange{
		Slot: 2, ItemID: 100, ItemName: "Yew logs",
		State: "selling", TotalQuantity: 30,
		QuantitySold: 30, Price: 310, Spent: 9300, Tick: 50,
	}
	bus.Publish(offerEvent(sell))

	require.Len(t, cap.transactions, 1)
	assert.Nil(t, cap.transactions[0].RecommendedSellPrice)
	assert.Equal(t, 1, links.Len())
}

func TestEngine_BurstAfterSessionReset(t *testing.T) {
	bus := events.NewBus()
	engine := NewEngine(bus, NewLinkStore())
	cap := newCapture(bus)

	bus.Publish(events.Event{
		Type:    events.EventSessionChanged,
		Payload: events.SessionChange{State: events.SessionLoggingIn, Tick: 200},
	})

	// Replayed snapshot with pre-existing fills: no transaction, but the
	// slot is seeded.
	bus.Publish(offerEvent(buyChange(1, 15, 4200, 201)))
	assert.Empty(t, cap.transactions)
	require.NotNil(t, engine.TrackedSlot(1))
	assert.Equal(t, 15, engine.TrackedSlot(1).CumulativeFilled)

	// Past the window, deltas count from the seeded value.
	bus.Publish(offerEvent(buyChange(1, 18, 5040, 210)))
	require.Len(t, cap.transactions, 1)
	assert.Equal(t, 3, cap.transactions[0].Quantity)
}

func TestEngine_LoggedInDoesNotArmBurst(t *testing.T) {
	bus := events.NewBus()
	NewEngine(bus, NewLinkStore())
	cap := newCapture(bus)

	bus.Publish(events.Event{
		Type:    events.EventSessionChanged,
		Payload: events.SessionChange{State: events.SessionLoggedIn, Tick: 500},
	})

	bus.Publish(offerEvent(buyChange(0, 5, 1400, 501)))
	require.Len(t, cap.transactions, 1)
	assert.Equal(t, 5, cap.transactions[0].Quantity)
}

func TestEngine_CancellationPublishesAndClearsSlot(t *testing.T) {
	bus := events.NewBus()
	engine := NewEngine(bus, NewLinkStore())
	cap := newCapture(bus)

	bus.Publish(offerEvent(buyChange(4, 0, 0, 100)))

	cancel := buyChange(4, 0, 0, 110)
	cancel.State = "cancelled_buy"
	bus.Publish(offerEvent(cancel))

	require.Len(t, cap.cancellations, 1)
	assert.Equal(t, 0, cap.cancellations[0].QuantityDone)
	assert.Nil(t, engine.TrackedSlot(4))
}

func TestEngine_PendingOrdersViewPeeksLink(t *testing.T) {
	bus := events.NewBus()
	links := NewLinkStore()
	engine := NewEngine(bus, links)
	cap := newCapture(bus)

	links.Set(100, 321)
	bus.Publish(offerEvent(buyChange(0, 0, 0, 100)))

	require.Len(t, cap.pending, 1)
	require.Len(t, cap.pending[0], 1)
	po := cap.pending[0][0]
	assert.Equal(t, 100, po.ItemID)
	require.NotNil(t, po.RecommendedSellPrice)
	assert.Equal(t, 321, *po.RecommendedSellPrice)

	// Peeking must not retire the link.
	assert.Equal(t, 1, links.Len())

	// A filled buy is no longer pending.
	bus.Publish(offerEvent(buyChange(0, 5, 1400, 110)))
	assert.Empty(t, engine.PendingBuyOrders())
}

func TestEngine_EmptyClearsAndIsIdempotent(t *testing.T) {
	bus := events.NewBus()
	engine := NewEngine(bus, NewLinkStore())
	cap := newCapture(bus)

	bus.Publish(offerEvent(buyChange(6, 0, 0, 100)))
	empty := events.OfferChange{Slot: 6, State: "empty", Tick: 120}
	bus.Publish(offerEvent(empty))

	assert.Nil(t, engine.TrackedSlot(6))
	assert.Equal(t, 1, cap.cleared)

	// Empty on an untracked slot: no events, no error.
	bus.Publish(offerEvent(empty))
	assert.Equal(t, 1, cap.cleared)
}

func TestEngine_InvalidSlotDropped(t *testing.T) {
	bus := events.NewBus()
	engine := NewEngine(bus, NewLinkStore())
	cap := newCapture(bus)

	bus.Publish(offerEvent(buyChange(8, 5, 1400, 100)))
	bus.Publish(offerEvent(buyChange(-1, 5, 1400, 100)))

	assert.Empty(t, cap.transactions)
	assert.Nil(t, engine.TrackedSlot(8))
}
