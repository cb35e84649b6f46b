package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"

	"github.com/google/uuid"
)

const (
	// MaxPerPage is the largest page the markets endpoint serves.
	MaxPerPage = 250

	apiKeyHeader = "x-cg-demo-api-key"
)

// Client is a read-only CoinGecko REST client. It never retries; callers decide.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	metrics    *infra.Metrics
	logger     *slog.Logger
}

var _ domain.MarketDataProvider = (*Client)(nil)

// NewClient creates a client with default settings
func NewClient() *Client {
	return &Client{
		baseURL:   infra.DefaultCoinGeckoURL,
		userAgent: infra.DefaultUserAgent,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		metrics: infra.GlobalMetrics,
		logger:  slog.Default().With(slog.String("module", "coingecko")),
	}
}

// NewClientWithConfig creates a client from the api.coingecko config section
func NewClientWithConfig(cfg *infra.Config) *Client {
	c := NewClient()
	if cfg.API.CoinGecko.BaseURL != "" {
		c.baseURL = strings.TrimRight(cfg.API.CoinGecko.BaseURL, "/")
	}
	if cfg.API.CoinGecko.UserAgent != "" {
		c.userAgent = cfg.API.CoinGecko.UserAgent
	}
	c.apiKey = cfg.API.CoinGecko.APIKey
	if cfg.API.CoinGecko.TimeoutSec > 0 {
		c.httpClient.Timeout = cfg.HTTPTimeout()
	}
	return c
}

// WithBaseURL points the client at another server (tests, proxies).
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// WithMetrics replaces the metrics sink.
func (c *Client) WithMetrics(m *infra.Metrics) *Client {
	c.metrics = m
	return c
}

// Coins lists coins by descending market cap, in provider order.
// Rows violating the non-negative invariants are dropped.
func (c *Client) Coins(ctx context.Context, currency domain.Currency, page, perPage int) ([]domain.Coin, error) {
	const op = "coins"
	if !currency.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, domain.ErrUnsupportedCurrency, currency)
	}
	if page < 1 {
		return nil, fmt.Errorf("%s: page must be >= 1, got %d", op, page)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return nil, fmt.Errorf("%s: per_page must be within 1..%d, got %d", op, MaxPerPage, perPage)
	}

	q := url.Values{}
	q.Set("vs_currency", string(currency))
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "true")

	var raw []domain.Coin
	if err := c.get(ctx, op, "/coins/markets", q, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoData)
	}

	coins := raw[:0]
	for i := range raw {
		if err := raw[i].Validate(); err != nil {
			c.logger.Warn("Dropping invalid coin row", slog.String("id", raw[i].ID), slog.Any("error", err))
			continue
		}
		coins = append(coins, raw[i])
	}
	return coins, nil
}

// CoinDetail fetches one coin. Any non-success status means the coin is not found.
func (c *Client) CoinDetail(ctx context.Context, id string) (*domain.CoinDetail, error) {
	const op = "coin_detail"
	if id == "" {
		return nil, fmt.Errorf("%s: %w: empty id", op, domain.ErrNotFound)
	}

	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")

	var resp detailResponse
	err := c.get(ctx, op, "/coins/"+url.PathEscape(id), q, &resp)
	if err != nil {
		var netErr *domain.NetworkError
		if errors.As(err, &netErr) && netErr.StatusCode != 0 {
			return nil, domain.NewStatusError(op, netErr.StatusCode, fmt.Errorf("%w: %s", domain.ErrNotFound, id))
		}
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoData)
	}
	return resp.toDomain(), nil
}

// GlobalStats fetches aggregate market figures.
func (c *Client) GlobalStats(ctx context.Context) (*domain.GlobalMarketStats, error) {
	const op = "global"

	var resp globalResponse
	if err := c.get(ctx, op, "/global", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoData)
	}
	return resp.Data, nil
}

// OHLC fetches USD candles over the last days. Malformed candles are dropped;
// none left means ErrNoData.
func (c *Client) OHLC(ctx context.Context, id string, days int) ([]domain.Candle, error) {
	const op = "ohlc"
	if days < 1 {
		return nil, fmt.Errorf("%s: days must be >= 1, got %d", op, days)
	}

	q := url.Values{}
	q.Set("vs_currency", string(domain.CurrencyUSD))
	q.Set("days", strconv.Itoa(days))

	var raw [][]any
	if err := c.get(ctx, op, "/coins/"+url.PathEscape(id)+"/ohlc", q, &raw); err != nil {
		return nil, err
	}

	candles := domain.CandlesFromTuples(toFloatTuples(raw))
	if dropped := len(raw) - len(candles); dropped > 0 {
		c.logger.Debug("Dropped malformed candles", slog.String("id", id), slog.Int("dropped", dropped))
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoData)
	}
	return candles, nil
}

// MarketChart fetches the price, market cap and volume series.
func (c *Client) MarketChart(ctx context.Context, id string, currency domain.Currency, days int) (*domain.MarketChart, error) {
	const op = "market_chart"
	if !currency.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", op, domain.ErrUnsupportedCurrency, currency)
	}
	if days < 1 {
		return nil, fmt.Errorf("%s: days must be >= 1, got %d", op, days)
	}

	q := url.Values{}
	q.Set("vs_currency", string(currency))
	q.Set("days", strconv.Itoa(days))

	var resp marketChartResponse
	if err := c.get(ctx, op, "/coins/"+url.PathEscape(id)+"/market_chart", q, &resp); err != nil {
		return nil, err
	}

	chart := &domain.MarketChart{
		Prices:       domain.PointsFromPairs(toFloatTuples(resp.Prices)),
		MarketCaps:   domain.PointsFromPairs(toFloatTuples(resp.MarketCaps)),
		TotalVolumes: domain.PointsFromPairs(toFloatTuples(resp.TotalVolumes)),
	}
	if len(chart.Prices) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoData)
	}
	return chart, nil
}

// Trending fetches the provider's trending coins.
func (c *Client) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	const op = "trending"

	var resp trendingResponse
	if err := c.get(ctx, op, "/search/trending", nil, &resp); err != nil {
		return nil, err
	}

	coins := make([]domain.TrendingCoin, 0, len(resp.Coins))
	for _, entry := range resp.Coins {
		if entry.Item.ID == "" {
			continue
		}
		coins = append(coins, domain.TrendingCoin{
			ID:            entry.Item.ID,
			Name:          entry.Item.Name,
			Symbol:        entry.Item.Symbol,
			MarketCapRank: entry.Item.MarketCapRank,
			Thumb:         entry.Item.Thumb,
			Score:         entry.Item.Score,
		})
	}
	if len(coins) == 0 {
		return nil, fmt.Errorf("%s: %w", op, domain.ErrNoData)
	}
	return coins, nil
}

// get performs one GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.NewFatalNetworkError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	reqID := uuid.NewString()
	c.logger.Debug("Request", slog.String("op", op), slog.String("request_id", reqID), slog.String("path", path))

	c.metrics.IncrementRequests()
	defer c.metrics.DecrementRequests()
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordRequest(time.Since(start), true)
		return classify(ctx, op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordRequest(time.Since(start), true)
		c.logger.Debug("Non-success status",
			slog.String("op", op),
			slog.String("request_id", reqID),
			slog.Int("status", resp.StatusCode),
		)
		return domain.NewStatusError(op, resp.StatusCode, fmt.Errorf("%w: %s", domain.ErrUnexpectedStatus, resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordRequest(time.Since(start), true)
		return classify(ctx, op, err)
	}
	c.metrics.RecordRequest(time.Since(start), false)

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrNoData, err)
	}
	return nil
}

// classify separates deliberate cancellation from genuine transport failures.
func classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return &domain.CancellationError{Op: op, Cause: context.Canceled}
	}
	return domain.NewNetworkError(op, err)
}
