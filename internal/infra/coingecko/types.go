package coingecko

import (
	"math"

	"crypto_dash/internal/domain"

	"github.com/shopspring/decimal"
)

// detailResponse is the /coins/{id} payload. Only the fields the detail view shows are decoded.
type detailResponse struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	MarketCapRank int    `json:"market_cap_rank"`
	GenesisDate   string `json:"genesis_date"`
	Image         struct {
		Thumb string `json:"thumb"`
		Small string `json:"small"`
		Large string `json:"large"`
	} `json:"image"`
	Description struct {
		EN string `json:"en"`
	} `json:"description"`
	Links      domain.CoinLinks `json:"links"`
	MarketData struct {
		CurrentPrice map[string]decimal.Decimal `json:"current_price"`
		MarketCap    map[string]decimal.Decimal `json:"market_cap"`
		TotalVolume  map[string]decimal.Decimal `json:"total_volume"`
	} `json:"market_data"`
}

func (r *detailResponse) toDomain() *domain.CoinDetail {
	image := r.Image.Large
	if image == "" {
		image = r.Image.Small
	}
	return &domain.CoinDetail{
		ID:            r.ID,
		Symbol:        r.Symbol,
		Name:          r.Name,
		Image:         image,
		MarketCapRank: r.MarketCapRank,
		GenesisDate:   r.GenesisDate,
		Description:   r.Description.EN,
		Links:         r.Links,
		CurrentPrice:  r.MarketData.CurrentPrice,
		MarketCap:     r.MarketData.MarketCap,
		TotalVolume:   r.MarketData.TotalVolume,
	}
}

// globalResponse unwraps the one-level {data: ...} envelope of /global.
type globalResponse struct {
	Data *domain.GlobalMarketStats `json:"data"`
}

// marketChartResponse is the /coins/{id}/market_chart payload.
type marketChartResponse struct {
	Prices       [][]any `json:"prices"`
	MarketCaps   [][]any `json:"market_caps"`
	TotalVolumes [][]any `json:"total_volumes"`
}

// trendingResponse is the /search/trending payload.
type trendingResponse struct {
	Coins []struct {
		Item struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Symbol        string `json:"symbol"`
			MarketCapRank int    `json:"market_cap_rank"`
			Thumb         string `json:"thumb"`
			Score         int    `json:"score"`
		} `json:"item"`
	} `json:"coins"`
}

// toFloatTuples converts loosely typed JSON tuples. Anything that is not a number
// becomes NaN so the domain conversion drops the whole tuple.
func toFloatTuples(raw [][]any) [][]float64 {
	out := make([][]float64, len(raw))
	for i, tuple := range raw {
		row := make([]float64, len(tuple))
		for j, v := range tuple {
			f, ok := v.(float64)
			if !ok {
				f = math.NaN()
			}
			row[j] = f
		}
		out[i] = row
	}
	return out
}
