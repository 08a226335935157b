package cashstack

import (
	"sync/atomic"
	"time"

	"github.com/flipwatch/flipwatch/internal/events"
	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// CoinsItemID is the inventory item holding the player's liquid currency.
const CoinsItemID = 995

// Monitor derives the player's cash total from inventory snapshots and
// throttles downstream refresh triggers. Updates only arrive on the feed
// goroutine; the total is atomic so Total can be read from anywhere.
type Monitor struct {
	bus         *events.Bus
	materiality int64
	cooldown    time.Duration
	trigger     func(total int64)

	lastTotal   atomic.Int64
	lastTrigger time.Time

	now func() time.Time
}

// NewMonitor wires the monitor to inventory events. trigger fires on a
// material cash change at most once per cooldown; nil disables triggering.
func NewMonitor(bus *events.Bus, materiality int64, cooldown time.Duration, trigger func(total int64)) *Monitor {
	m := &Monitor{
		bus:         bus,
		materiality: materiality,
		cooldown:    cooldown,
		trigger:     trigger,
		now:         time.Now,
	}
	bus.Subscribe(events.EventInventoryChanged, m.onInventoryChanged)
	return m
}

func (m *Monitor) onInventoryChanged(evt events.Event) error {
	change, ok := evt.Payload.(events.InventoryChange)
	if !ok {
		return nil
	}
	m.Update(change.Items)
	return nil
}

// Update recomputes the coin total and publishes a change event when it
// moved. Returns the current total.
func (m *Monitor) Update(items []events.InventoryItem) int64 {
	var total int64
	for _, item := range items {
		if item.ID == CoinsItemID {
			total += int64(item.Quantity)
		}
	}

	prev := m.lastTotal.Load()
	if total == prev {
		return total
	}
	m.lastTotal.Store(total)
	telemetry.Debugf("cashstack: %d -> %d gp", prev, total)

	m.bus.Publish(events.Event{
		Type:      events.EventCashStackChanged,
		Slot:      -1,
		Timestamp: m.now(),
		Payload:   events.CashStackChange{Total: total, Previous: prev},
	})

	// Leaky-bucket throttle: material totals trigger at most one refresh
	// per cooldown, so incremental cash changes can't cause refresh storms.
	if m.trigger != nil && total > m.materiality {
		if now := m.now(); now.Sub(m.lastTrigger) >= m.cooldown {
			m.lastTrigger = now
			telemetry.Metrics.CashTriggers.Inc()
			m.trigger(total)
		}
	}

	return total
}

// Total returns the last observed cash total.
func (m *Monitor) Total() int64 {
	return m.lastTotal.Load()
}
