package flipapi

import (
	"context"
	"fmt"
	"net/http"
)

// Recommendation is one flip suggestion from the flip finder.
type Recommendation struct {
	ItemID               int     `json:"item_id"`
	ItemName             string  `json:"item_name"`
	Members              bool    `json:"members"`
	BuyLimit             *int    `json:"buy_limit"`
	InstantBuyPrice      int     `json:"instant_buy_price"`
	InstantSellPrice     int     `json:"instant_sell_price"`
	RecommendedBuyPrice  int     `json:"recommended_buy_price"`
	RecommendedSellPrice int     `json:"recommended_sell_price"`
	RecommendedQuantity  int     `json:"recommended_quantity"`
	Margin               int     `json:"margin"`
	ROIPercent           float64 `json:"roi_percent"`
	GETax                int     `json:"ge_tax"`
	LiquidityScore       float64 `json:"liquidity_score"`
	LiquidityRating      string  `json:"liquidity_rating"`
	VolumePerHour        float64 `json:"volume_per_hour"`
	RiskScore            float64 `json:"risk_score"`
	RiskRating           string  `json:"risk_rating"`
	EfficiencyScore      float64 `json:"efficiency_score"`
	EfficiencyRating     string  `json:"efficiency_rating"`
	QuantityAffordable   *int    `json:"quantity_affordable"`
	PotentialProfit      int     `json:"potential_profit"`
	TotalCost            int     `json:"total_cost"`
}

// RecommendationList is the flip-finder response envelope.
type RecommendationList struct {
	Recommendations []Recommendation `json:"recommendations"`
	CashStack       *int64           `json:"cash_stack,omitempty"`
	FlipStyle       string           `json:"flip_style,omitempty"`
}

// FetchRecommendations queries the flip finder. cashStack is optional;
// when set the server sizes quantities to the player's liquidity.
func (c *Client) FetchRecommendations(ctx context.Context, cashStack *int64, style string, limit int) (*RecommendationList, error) {
	path := fmt.Sprintf("/flip-finder?limit=%d&flip_style=%s", limit, style)
	if cashStack != nil {
		path += fmt.Sprintf("&cash_stack=%d", *cashStack)
	}

	var list RecommendationList
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, fmt.Errorf("fetch recommendations: %w", err)
	}
	return &list, nil
}
