package events

import "time"

// Event is the envelope that flows through the event bus.
// Every domain event (offer snapshot, derived transaction, cash change)
// is wrapped in one.
type Event struct {
	Type      EventType
	Slot      int // -1 when the event is not slot-scoped
	ItemID    int // 0 when the event is not item-scoped
	Timestamp time.Time
	Payload   any
}

type EventType string

const (
	// Raw snapshots pushed by the game-feed bridge.
	EventOfferChanged     EventType = "offer_changed"
	EventInventoryChanged EventType = "inventory_changed"
	EventSessionChanged   EventType = "session_changed"

	// Derived by the reconciliation engine.
	EventTransaction    EventType = "transaction"
	EventOfferCancelled EventType = "offer_cancelled"
	EventOfferCleared   EventType = "offer_cleared"
	EventPendingOrders  EventType = "pending_orders"

	// Derived by the cash stack monitor.
	EventCashStackChanged EventType = "cash_stack_changed"
)
