package events

// SessionState mirrors the connection lifecycle reported by the game client.
type SessionState string

const (
	SessionLoggingIn      SessionState = "logging_in"
	SessionLoggedIn       SessionState = "logged_in"
	SessionHopping        SessionState = "hopping"
	SessionConnectionLost SessionState = "connection_lost"
)

// Reconnecting reports whether this state starts a session-reestablishment
// burst. The client replays all current offer snapshots right after one of
// these, and those replays must not be recorded as new activity.
func (s SessionState) Reconnecting() bool {
	return s == SessionLoggingIn || s == SessionHopping || s == SessionConnectionLost
}

// OfferChange is published for every raw offer snapshot the bridge pushes.
// QuantitySold and Spent are cumulative over the life of the offer; the
// engine diffs consecutive snapshots to derive fills.
type OfferChange struct {
	Slot          int    `json:"slot"`
	ItemID        int    `json:"item_id"`
	ItemName      string `json:"item_name"`
	State         string `json:"state"`
	TotalQuantity int    `json:"total_quantity"`
	QuantitySold  int    `json:"quantity_sold"`
	Price         int    `json:"price"`
	Spent         int    `json:"spent"`
	Tick          int    `json:"tick"`
}

// InventoryItem is one occupied inventory slot.
type InventoryItem struct {
	ID       int `json:"id"`
	Quantity int `json:"quantity"`
}

// InventoryChange carries a full inventory snapshot.
type InventoryChange struct {
	Tick  int             `json:"tick"`
	Items []InventoryItem `json:"items"`
}

// SessionChange signals a game session state transition. Player is the
// logged-in character name when the client knows it, empty otherwise.
type SessionChange struct {
	State  SessionState `json:"state"`
	Player string       `json:"player,omitempty"`
	Tick   int          `json:"tick"`
}

// CashStackChange is published when the summed coin total moves.
type CashStackChange struct {
	Total    int64 `json:"total"`
	Previous int64 `json:"previous"`
}
