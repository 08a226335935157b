package flipapi

import (
	"context"
	"fmt"
	"net/http"
)

// ItemAnalysis is the per-item market analysis served by the API.
type ItemAnalysis struct {
	ItemID   int    `json:"item_id"`
	ItemName string `json:"item_name"`
	Members  bool   `json:"members"`
	BuyLimit *int   `json:"buy_limit"`

	CurrentPrices *CurrentPrices `json:"current_prices"`
	Liquidity     *ScoreRating   `json:"liquidity"`
	Risk          *ScoreRating   `json:"risk"`
	Efficiency    *Efficiency    `json:"efficiency"`

	Historical *HistoricalData `json:"historical_data"`
}

type CurrentPrices struct {
	High        *int     `json:"high"`
	Low         *int     `json:"low"`
	GrossMargin *int     `json:"gross_margin"`
	GETax       *int     `json:"ge_tax"`
	NetMargin   *int     `json:"net_margin"`
	ROIPercent  *float64 `json:"roi_percent"`
}

type ScoreRating struct {
	Score  *float64 `json:"score"`
	Rating string   `json:"rating"`
}

type Efficiency struct {
	Score          *float64 `json:"score"`
	Rating         string   `json:"rating"`
	Recommendation string   `json:"recommendation"`
}

type HistoricalData struct {
	Timeframe  string `json:"timeframe"`
	DataPoints *int   `json:"data_points"`
	AvgPrice   *int   `json:"avg_price"`
	Volatility *int   `json:"volatility"`
}

// HasPositiveMargin reports whether the current net margin is positive.
func (a *ItemAnalysis) HasPositiveMargin() bool {
	return a.CurrentPrices != nil && a.CurrentPrices.NetMargin != nil && *a.CurrentPrices.NetMargin > 0
}

// FetchAnalysis fetches the 1h analysis for one item.
func (c *Client) FetchAnalysis(ctx context.Context, itemID int) (*ItemAnalysis, error) {
	var analysis ItemAnalysis
	path := fmt.Sprintf("/analysis/%d?timeframe=1h", itemID)
	if err := c.do(ctx, http.MethodGet, path, nil, &analysis); err != nil {
		return nil, fmt.Errorf("fetch analysis for item %d: %w", itemID, err)
	}
	return &analysis, nil
}
