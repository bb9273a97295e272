package coingecko

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
)

// Error is the uniform failure type for provider calls: transport
// errors, non-2xx responses, and schema violations all surface as one.
// StatusCode is 0 when the call did not complete.
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider: status %d: %v", e.StatusCode, e.Err)
	}

	return fmt.Sprintf("provider: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// SimplePriceResponse maps provider asset id to a flat bag of numeric
// fields: one entry per requested currency, plus last_updated_at and
// <currency>_24h_change when requested.
type SimplePriceResponse map[string]map[string]float64

type MarketChartResponse struct {
	Prices [][]float64 `json:"prices"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SimplePrice performs a batch spot lookup for the given provider ids.
func (c *Client) SimplePrice(ctx context.Context, ids []string, vs string) (SimplePriceResponse, error) {
	query := url.Values{}
	query.Set("ids", strings.Join(ids, ","))
	query.Set("vs_currencies", vs)
	query.Set("include_last_updated_at", "true")
	query.Set("include_24hr_change", "true")

	var out SimplePriceResponse
	err := c.getJSON(ctx, "/simple/price", query, &out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// MarketChart fetches the historical series for one provider id.
// interval may be empty, in which case the provider picks the
// granularity for the requested lookback.
func (c *Client) MarketChart(ctx context.Context, id, vs, days, interval string) (*MarketChartResponse, error) {
	query := url.Values{}
	query.Set("vs_currency", vs)
	query.Set("days", days)
	if interval != "" {
		query.Set("interval", interval)
	}

	var out MarketChartResponse
	err := c.getJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", query, &out)
	if err != nil {
		return nil, err
	}

	if out.Prices == nil {
		return nil, &Error{StatusCode: http.StatusOK, Err: fmt.Errorf("response missing prices series")}
	}

	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		// Upstream error bodies are logged for diagnosis but never
		// forwarded to callers.
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		logrus.WithFields(logrus.Fields{
			"url":    endpoint,
			"status": res.StatusCode,
			"body":   string(body),
		}).Error("provider returned non-2xx status")

		return &Error{StatusCode: res.StatusCode, Err: fmt.Errorf("unexpected status %d", res.StatusCode)}
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &Error{StatusCode: res.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return nil
}
