package gamefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/flipwatch/flipwatch/internal/events"
)

// message is the wire envelope the client bridge sends. Exactly one of
// the payload fields is set, selected by Type.
type message struct {
	Type string `json:"type"`
	Tick int    `json:"tick"`

	Offer  *offerMessage          `json:"offer,omitempty"`
	Items  []events.InventoryItem `json:"items,omitempty"`
	State  string                 `json:"state,omitempty"`
	Player string                 `json:"player,omitempty"`
}

type offerMessage struct {
	Slot          int    `json:"slot"`
	ItemID        int    `json:"item_id"`
	ItemName      string `json:"item_name"`
	State         string `json:"state"`
	TotalQuantity int    `json:"total_quantity"`
	QuantitySold  int    `json:"quantity_sold"`
	Price         int    `json:"price"`
	Spent         int    `json:"spent"`
}

// ParseMessage decodes one bridge frame into a bus event.
func ParseMessage(data []byte) (events.Event, error) {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return events.Event{}, fmt.Errorf("decode feed message: %w", err)
	}

	switch msg.Type {
	case "offer":
		if msg.Offer == nil {
			return events.Event{}, fmt.Errorf("offer message without offer body")
		}
		return events.Event{
			Type:      events.EventOfferChanged,
			Slot:      msg.Offer.Slot,
			ItemID:    msg.Offer.ItemID,
			Timestamp: time.Now(),
			Payload: events.OfferChange{
				Slot:          msg.Offer.Slot,
				ItemID:        msg.Offer.ItemID,
				ItemName:      msg.Offer.ItemName,
				State:         msg.Offer.State,
				TotalQuantity: msg.Offer.TotalQuantity,
				QuantitySold:  msg.Offer.QuantitySold,
				Price:         msg.Offer.Price,
				Spent:         msg.Offer.Spent,
				Tick:          msg.Tick,
			},
		}, nil

	case "inventory":
		return events.Event{
			Type:      events.EventInventoryChanged,
			Slot:      -1,
			Timestamp: time.Now(),
			Payload: events.InventoryChange{
				Tick:  msg.Tick,
				Items: msg.Items,
			},
		}, nil

	case "session":
		state := events.SessionState(msg.State)
		switch state {
		case events.SessionLoggingIn, events.SessionLoggedIn,
			events.SessionHopping, events.SessionConnectionLost:
		default:
			return events.Event{}, fmt.Errorf("unknown session state %q", msg.State)
		}
		return events.Event{
			Type:      events.EventSessionChanged,
			Slot:      -1,
			Timestamp: time.Now(),
			Payload: events.SessionChange{
				State:  state,
				Player: msg.Player,
				Tick:   msg.Tick,
			},
		}, nil

	default:
		return events.Event{}, fmt.Errorf("unknown feed message type %q", msg.Type)
	}
}
