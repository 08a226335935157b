package flipapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/flipwatch/flipwatch/internal/telemetry"
)

// TransactionRequest is the payload for POST /transactions. Quantity is
// the fill delta, never the cumulative count.
type TransactionRequest struct {
	ItemID               int    `json:"item_id"`
	ItemName             string `json:"item_name"`
	IsBuy                bool   `json:"is_buy"`
	Quantity             int    `json:"quantity"`
	PricePerItem         int    `json:"price_per_item"`
	Slot                 int    `json:"slot"`
	RecommendedSellPrice *int   `json:"recommended_sell_price,omitempty"`
}

// RecordTransaction submits one derived transaction. The caller owns the
// at-most-once guarantee; this method never retries on its own.
func (c *Client) RecordTransaction(ctx context.Context, req TransactionRequest) error {
	if err := c.do(ctx, http.MethodPost, "/transactions", req, nil); err != nil {
		telemetry.Metrics.RecordErrors.Inc()
		return fmt.Errorf("record transaction: %w", err)
	}
	telemetry.Metrics.RecordsSubmitted.Inc()
	return nil
}

// UpdatePlayerName syncs the player's display name after login. Failures
// are non-fatal for the caller.
func (c *Client) UpdatePlayerName(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	path := "/auth/rsn?rsn=" + url.QueryEscape(name)
	if err := c.do(ctx, http.MethodPut, path, nil, nil); err != nil {
		return fmt.Errorf("update player name: %w", err)
	}
	return nil
}
