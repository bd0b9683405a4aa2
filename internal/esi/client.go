// Package esi is a read-only client for the public EVE Swagger Interface market endpoints.
package esi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/iskwatch/internal/logger"
	"github.com/rewired-gh/iskwatch/internal/metrics"
	"github.com/rewired-gh/iskwatch/internal/models"
)

// maxPages caps pagination so a misbehaving X-Pages header cannot loop forever.
const maxPages = 50

// ErrNotFound is returned when ESI reports an unknown region or type.
var ErrNotFound = errors.New("esi: not found")

// Options configures a Client.
type Options struct {
	BaseURL           string
	Datasource        string
	UserAgent         string
	Timeout           time.Duration
	MaxRetries        int
	RetryDelayBase    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client provides access to ESI market orders.
type Client struct {
	baseURL        string
	datasource     string
	userAgent      string
	httpClient     *http.Client
	limiter        *rate.Limiter
	maxRetries     int
	retryDelayBase time.Duration
}

// MarketOrder is one order from /markets/{region_id}/orders/.
type MarketOrder struct {
	OrderID      int64           `json:"order_id"`
	TypeID       int64           `json:"type_id"`
	LocationID   int64           `json:"location_id"`
	IsBuyOrder   bool            `json:"is_buy_order"`
	Price        decimal.Decimal `json:"price"`
	VolumeRemain int64           `json:"volume_remain"`
	Issued       time.Time       `json:"issued"`
	Duration     int             `json:"duration"`
}

// NewClient creates a new ESI client.
func NewClient(opts Options) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    opts.BaseURL,
		datasource: opts.Datasource,
		userAgent:  opts.UserAgent,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter:        rate.NewLimiter(limit, burst),
		maxRetries:     opts.MaxRetries,
		retryDelayBase: opts.RetryDelayBase,
	}
}

// GetBestPrices returns the highest buy and lowest sell price for itemID in regionID.
func (c *Client) GetBestPrices(ctx context.Context, itemID, regionID int64) (models.PriceSnapshot, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderRequestDuration.WithLabelValues("market_orders").Observe(time.Since(start).Seconds())
	}()

	orders, err := c.FetchOrders(ctx, itemID, regionID)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("market_orders").Inc()
		return models.PriceSnapshot{}, err
	}
	return BestPrices(orders), nil
}

// BestPrices selects the top of book from a set of orders.
func BestPrices(orders []MarketOrder) models.PriceSnapshot {
	var bid, ask decimal.Decimal
	haveBid, haveAsk := false, false
	for _, o := range orders {
		if o.VolumeRemain <= 0 || !o.Price.IsPositive() {
			continue
		}
		if o.IsBuyOrder {
			if !haveBid || o.Price.GreaterThan(bid) {
				bid, haveBid = o.Price, true
			}
		} else {
			if !haveAsk || o.Price.LessThan(ask) {
				ask, haveAsk = o.Price, true
			}
		}
	}
	return models.PriceSnapshot{
		BestBid: bid.InexactFloat64(),
		BestAsk: ask.InexactFloat64(),
	}
}

// FetchOrders retrieves every page of buy and sell orders for itemID in regionID.
func (c *Client) FetchOrders(ctx context.Context, itemID, regionID int64) ([]MarketOrder, error) {
	if itemID <= 0 || regionID <= 0 {
		return nil, fmt.Errorf("invalid market lookup: item %d region %d", itemID, regionID)
	}

	var all []MarketOrder
	pages := 1
	for page := 1; page <= pages && page <= maxPages; page++ {
		orders, total, err := c.fetchPage(ctx, itemID, regionID, page)
		if err != nil {
			return nil, err
		}
		all = append(all, orders...)
		pages = total
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, itemID, regionID int64, page int) ([]MarketOrder, int, error) {
	u, err := url.Parse(fmt.Sprintf("%s/markets/%d/orders/", c.baseURL, regionID))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse URL: %w", err)
	}

	q := u.Query()
	q.Set("type_id", strconv.FormatInt(itemID, 10))
	q.Set("order_type", "all")
	q.Set("page", strconv.Itoa(page))
	if c.datasource != "" {
		q.Set("datasource", c.datasource)
	}
	u.RawQuery = q.Encode()

	resp, err := c.doRequest(ctx, u.String())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch orders for type %d in region %d: %w", itemID, regionID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, 0, fmt.Errorf("region %d or type %d: %w", regionID, itemID, ErrNotFound)
	case resp.StatusCode >= 400:
		return nil, 0, fmt.Errorf("esi returned status %d for region %d", resp.StatusCode, regionID)
	}

	if remain := resp.Header.Get("X-ESI-Error-Limit-Remain"); remain != "" {
		if n, err := strconv.Atoi(remain); err == nil && n < 20 {
			logger.Warn("ESI error budget low: %d errors remaining", n)
		}
	}

	var orders []MarketOrder
	if err := json.NewDecoder(resp.Body).Decode(&orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}

	total := 1
	if h := resp.Header.Get("X-Pages"); h != "" {
		if n, err := strconv.Atoi(h); err == nil && n > 0 {
			total = n
		}
	}
	return orders, total, nil
}

// doRequest performs HTTP request with retry logic
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			delay := time.Duration(i) * c.retryDelayBase
			logger.Debug("ESI request retry %d/%d after %v: %v", i, c.maxRetries-1, delay, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}

		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
