package exchange

// SlotCount is the number of concurrent trading slots a player can hold.
const SlotCount = 8

// OfferState is the lifecycle state reported with every raw offer snapshot.
type OfferState string

const (
	StateEmpty         OfferState = "empty"
	StateBuying        OfferState = "buying"
	StateBought        OfferState = "bought"
	StateSelling       OfferState = "selling"
	StateSold          OfferState = "sold"
	StateCancelledBuy  OfferState = "cancelled_buy"
	StateCancelledSell OfferState = "cancelled_sell"
)

// ParseState maps a wire state string to an OfferState. Unknown strings
// map to StateEmpty so a malformed snapshot degrades to a slot clear
// rather than a bogus fill.
func ParseState(s string) OfferState {
	switch OfferState(s) {
	case StateBuying, StateBought, StateSelling, StateSold,
		StateCancelledBuy, StateCancelledSell, StateEmpty:
		return OfferState(s)
	default:
		return StateEmpty
	}
}

// IsBuy reports whether the state belongs to the buy side of the book.
func (s OfferState) IsBuy() bool {
	return s == StateBuying || s == StateBought || s == StateCancelledBuy
}

// IsCancelled reports whether the state is a cancellation terminal.
func (s OfferState) IsCancelled() bool {
	return s == StateCancelledBuy || s == StateCancelledSell
}

// OfferSnapshot is one raw per-slot observation pushed by the game feed.
// QuantitySold and Spent are cumulative for the current slot occupancy.
type OfferSnapshot struct {
	Slot          int
	ItemID        int
	ItemName      string
	State         OfferState
	TotalQuantity int
	QuantitySold  int
	Price         int // price per unit as offered, not as filled
	Spent         int // cumulative cash moved
	Tick          int
}

// TrackedOffer is the engine-owned record of one slot occupancy.
// ItemName is cached at creation and never re-derived mid-life.
// CumulativeFilled mirrors the last seen QuantitySold and is
// non-decreasing for a given occupancy; an apparent decrease means a new
// offer took the slot and tracking is reset, not diffed.
type TrackedOffer struct {
	ItemID           int
	ItemName         string
	IsBuy            bool
	TotalQuantity    int
	Price            int
	CumulativeFilled int
}

// Transaction is a derived fill delta, emitted at most once per delta.
type Transaction struct {
	ItemID       int    `json:"item_id"`
	ItemName     string `json:"item_name"`
	IsBuy        bool   `json:"is_buy"`
	Quantity     int    `json:"quantity"` // the delta, never cumulative
	PricePerUnit int    `json:"price_per_unit"`
	Slot         int    `json:"slot"`

	// RecommendedSellPrice is attached by the engine when a buy fill
	// consumes an outstanding recommendation link.
	RecommendedSellPrice *int `json:"recommended_sell_price,omitempty"`

	// Cumulative is the QuantitySold that produced this delta. It keys
	// the recorder's submit-once guard and is not part of the wire shape.
	Cumulative int `json:"-"`
}

// Cancellation is emitted whenever a tracked offer reaches a cancelled
// state, even when the final fill delta is zero.
type Cancellation struct {
	ItemID       int    `json:"item_id"`
	ItemName     string `json:"item_name"`
	IsBuy        bool   `json:"is_buy"`
	QuantityDone int    `json:"quantity_done"` // cumulative fills at cancel time
	TotalWanted  int    `json:"total_wanted"`
	Slot         int    `json:"slot"`
}

// PendingOrder is a read-only view of a buy offer with no fills yet.
type PendingOrder struct {
	ItemID               int    `json:"item_id"`
	ItemName             string `json:"item_name"`
	Quantity             int    `json:"quantity"`
	PricePerItem         int    `json:"price_per_item"`
	RecommendedSellPrice *int   `json:"recommended_sell_price,omitempty"`
	Slot                 int    `json:"slot"`
}
