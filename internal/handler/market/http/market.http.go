package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cryptopanel/market-api/internal/config"
	"github.com/cryptopanel/market-api/internal/constant"
	"github.com/cryptopanel/market-api/internal/entity"
	"github.com/cryptopanel/market-api/internal/infrastructure"
	"github.com/cryptopanel/market-api/internal/metrics"
	"github.com/cryptopanel/market-api/internal/provider/coingecko"
	"github.com/cryptopanel/market-api/internal/ratelimit"
	"github.com/cryptopanel/market-api/internal/service/market"
	"github.com/goccy/go-json"
	"github.com/guregu/null/v6"
	"github.com/sirupsen/logrus"
)

const maxQueryStringLength = 1024

type MarketService interface {
	GetSpotPrices(ctx context.Context, req entity.PricesRequest) (map[string]entity.PriceTicker, error)
	GetHistory(ctx context.Context, req entity.HistoryRequest) (entity.HistorySeries, error)
}

type tickerResponse struct {
	Price     float64  `json:"price"`
	TS        int64    `json:"ts"`
	Change24h *float64 `json:"change24h,omitempty"`
}

type historyPointResponse struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

type historyResponse struct {
	Symbol string                 `json:"symbol"`
	VS     string                 `json:"vs"`
	Range  string                 `json:"range"`
	Series []historyPointResponse `json:"series"`
}

type healthzResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
	Env     string `json:"env"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	RetryAfter *int64 `json:"retryAfter,omitempty"`
}

type Handler struct {
	marketService MarketService
	limiter       ratelimit.Limiter
	metrics       *metrics.Metrics
}

func NewMarketHTTPHandler(marketService MarketService, limiter ratelimit.Limiter, m *metrics.Metrics) *Handler {
	return &Handler{
		marketService: marketService,
		limiter:       limiter,
		metrics:       m,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc(constant.PricesEndpoint, h.Prices)
	mux.HandleFunc(constant.HistoryEndpoint, h.History)
	mux.HandleFunc(constant.HealthzEndpoint, h.Healthz)
}

func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "Only GET is supported", constant.ErrCodeInvalidInput)
		return
	}

	// The length guard runs before rate limiting, so an oversize query
	// never consumes window budget.
	if len(r.URL.RawQuery) > maxQueryStringLength {
		logInvalidInput(constant.PricesEndpoint, r, errors.New("query string exceeds limit"))
		writeError(w, http.StatusBadRequest, "Invalid query string length", "Query parameters must not exceed 1024 characters", constant.ErrCodeInvalidInput)
		return
	}

	rl, allowed := h.consume(r, constant.PricesRateLimitScope)
	if !allowed {
		h.respondRateLimited(w, r, constant.PricesEndpoint, rl)
		return
	}

	req, err := parsePricesRequest(r.URL.Query())
	if err != nil {
		logInvalidInput(constant.PricesEndpoint, r, err)
		writeError(w, http.StatusBadRequest, "Invalid input", err.Error(), constant.ErrCodeInvalidInput)
		return
	}

	book, err := h.marketService.GetSpotPrices(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, constant.PricesEndpoint, constant.PricesRateLimitScope, err)
		return
	}
	h.countProviderCall(constant.PricesRateLimitScope, "ok")

	payload := make(map[string]tickerResponse, len(book))
	for symbol, ticker := range book {
		payload[symbol] = tickerResponse{
			Price:     ticker.Price,
			TS:        ticker.LastUpdated,
			Change24h: ticker.Change24h,
		}
	}

	setRateLimitHeaders(w, rl)
	setCacheHeaders(w)
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed", "Only GET is supported", constant.ErrCodeInvalidInput)
		return
	}

	if len(r.URL.RawQuery) > maxQueryStringLength {
		logInvalidInput(constant.HistoryEndpoint, r, errors.New("query string exceeds limit"))
		writeError(w, http.StatusBadRequest, "Invalid query string length", "Query parameters must not exceed 1024 characters", constant.ErrCodeInvalidInput)
		return
	}

	rl, allowed := h.consume(r, constant.HistoryRateLimitScope)
	if !allowed {
		h.respondRateLimited(w, r, constant.HistoryEndpoint, rl)
		return
	}

	req, err := parseHistoryRequest(r.URL.Query())
	if err != nil {
		logInvalidInput(constant.HistoryEndpoint, r, err)
		writeError(w, http.StatusBadRequest, "Invalid input", err.Error(), constant.ErrCodeInvalidInput)
		return
	}

	series, err := h.marketService.GetHistory(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, r, constant.HistoryEndpoint, constant.HistoryRateLimitScope, err)
		return
	}
	h.countProviderCall(constant.HistoryRateLimitScope, "ok")

	points := make([]historyPointResponse, 0, len(series.Series))
	for _, point := range series.Series {
		points = append(points, historyPointResponse{T: point.T, P: point.P})
	}

	setRateLimitHeaders(w, rl)
	setCacheHeaders(w)
	writeJSON(w, http.StatusOK, historyResponse{
		Symbol: series.Symbol,
		VS:     series.VS,
		Range:  string(series.Range),
		Series: points,
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, http.StatusOK, healthzResponse{
		Status:  "ok",
		Version: config.ServiceVersion,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Env:     config.Env.Env,
	})
}

// consume charges the request against the caller's window. A limiter
// backend failure fails open: admission control degrades before
// availability does.
func (h *Handler) consume(r *http.Request, scope string) (ratelimit.Result, bool) {
	key := scope + ":" + infrastructure.ClientIP(r)

	rl, err := h.limiter.Consume(r.Context(), key)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"endpoint": r.URL.Path,
			"key":      key,
		}).WithError(err).Warn("rate limiter unavailable, allowing request")

		return ratelimit.Result{
			Allowed:   true,
			Limit:     config.Env.RateLimit.RequestsPerMinute,
			Remaining: config.Env.RateLimit.RequestsPerMinute,
			ResetAt:   time.Now().Add(config.Env.RateLimit.Window),
		}, true
	}

	return rl, rl.Allowed
}

func (h *Handler) respondRateLimited(w http.ResponseWriter, r *http.Request, endpoint string, rl ratelimit.Result) {
	if h.metrics != nil {
		h.metrics.RateLimitedTotal.WithLabelValues(endpoint).Inc()
	}

	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"code":     constant.ErrCodeRateLimitExceeded,
		"query":    r.URL.RawQuery,
		"caller":   infrastructure.ClientIP(r),
	}).Warn("rate limit exceeded")

	setRateLimitHeaders(w, rl)
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:      "Rate limit exceeded",
		Message:    fmt.Sprintf("Maximum %d requests per minute per IP", rl.Limit),
		Code:       constant.ErrCodeRateLimitExceeded,
		RetryAfter: null.IntFrom(rl.RetryAfterSeconds).Ptr(),
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, endpoint, scope string, err error) {
	var provErr *coingecko.Error

	switch {
	case errors.As(err, &provErr), errors.Is(err, market.ErrProviderData):
		h.countProviderCall(scope, "error")
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"code":     constant.ErrCodeProviderError,
			"query":    r.URL.RawQuery,
		}).WithError(err).Error("provider call failed")

		writeError(w, http.StatusBadGateway, "Provider unavailable", "Upstream data provider temporarily unavailable", constant.ErrCodeProviderError)
	default:
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"code":     constant.ErrCodeInternalError,
			"query":    r.URL.RawQuery,
		}).WithError(err).Error("unexpected handler failure")

		writeError(w, http.StatusInternalServerError, "Internal server error", "Unexpected failure while handling the request", constant.ErrCodeInternalError)
	}
}

func (h *Handler) countProviderCall(scope, outcome string) {
	if h.metrics != nil {
		h.metrics.ProviderRequestsTotal.WithLabelValues(scope, outcome).Inc()
	}
}

func logInvalidInput(endpoint string, r *http.Request, err error) {
	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"code":     constant.ErrCodeInvalidInput,
		"query":    r.URL.RawQuery,
	}).WithError(err).Warn("invalid input")
}

func setRateLimitHeaders(w http.ResponseWriter, rl ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(unixSecondsCeil(rl.ResetAt), 10))
}

func setCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", fmt.Sprintf(
		"public, s-maxage=%d, stale-while-revalidate=%d",
		config.Env.Cache.SMaxAgeSeconds,
		config.Env.Cache.StaleWhileRevalidateSeconds,
	))
}

func unixSecondsCeil(t time.Time) int64 {
	ms := t.UnixMilli()
	return (ms + 999) / 1000
}

func writeError(w http.ResponseWriter, code int, errTitle, message, errCode string) {
	writeJSON(w, code, errorResponse{
		Error:   errTitle,
		Message: message,
		Code:    errCode,
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
