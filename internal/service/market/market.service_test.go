package market

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/cryptopanel/market-api/internal/entity"
	"github.com/cryptopanel/market-api/internal/provider/coingecko"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	SimplePriceFunc func(ctx context.Context, ids []string, vs string) (coingecko.SimplePriceResponse, error)
	MarketChartFunc func(ctx context.Context, id, vs, days, interval string) (*coingecko.MarketChartResponse, error)
}

func (s *stubProvider) SimplePrice(ctx context.Context, ids []string, vs string) (coingecko.SimplePriceResponse, error) {
	return s.SimplePriceFunc(ctx, ids, vs)
}

func (s *stubProvider) MarketChart(ctx context.Context, id, vs, days, interval string) (*coingecko.MarketChartResponse, error) {
	return s.MarketChartFunc(ctx, id, vs, days, interval)
}

func TestService_GetSpotPrices(t *testing.T) {
	frozenNow := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		request      entity.PricesRequest
		providerResp coingecko.SimplePriceResponse
		providerErr  error
		expectErr    error
		verify       func(t *testing.T, book map[string]entity.PriceTicker)
	}{
		{
			name:    "converts provider seconds to milliseconds",
			request: entity.PricesRequest{Symbols: []string{"btc"}, VS: "usd"},
			providerResp: coingecko.SimplePriceResponse{
				"bitcoin": {"usd": 65000, "last_updated_at": 1700000000},
			},
			verify: func(t *testing.T, book map[string]entity.PriceTicker) {
				require.Len(t, book, 1)
				assert.Equal(t, 65000.0, book["btc"].Price)
				assert.Equal(t, int64(1700000000000), book["btc"].LastUpdated)
				assert.Nil(t, book["btc"].Change24h)
			},
		},
		{
			name:    "defaults last updated to now when provider omits it",
			request: entity.PricesRequest{Symbols: []string{"btc"}, VS: "usd"},
			providerResp: coingecko.SimplePriceResponse{
				"bitcoin": {"usd": 65000},
			},
			verify: func(t *testing.T, book map[string]entity.PriceTicker) {
				assert.Equal(t, frozenNow.UnixMilli(), book["btc"].LastUpdated)
			},
		},
		{
			name:    "passes through the 24h change when present",
			request: entity.PricesRequest{Symbols: []string{"eth"}, VS: "eur"},
			providerResp: coingecko.SimplePriceResponse{
				"ethereum": {"eur": 3100.5, "eur_24h_change": -2.25, "last_updated_at": 1700000000},
			},
			verify: func(t *testing.T, book map[string]entity.PriceTicker) {
				require.NotNil(t, book["eth"].Change24h)
				assert.Equal(t, -2.25, *book["eth"].Change24h)
			},
		},
		{
			name:    "missing currency key fails the whole batch",
			request: entity.PricesRequest{Symbols: []string{"btc", "eth"}, VS: "usd"},
			providerResp: coingecko.SimplePriceResponse{
				"bitcoin":  {"usd": 65000, "last_updated_at": 1700000000},
				"ethereum": {"eur": 3100.5},
			},
			expectErr: ErrProviderData,
		},
		{
			name:    "missing symbol entry fails the whole batch",
			request: entity.PricesRequest{Symbols: []string{"btc", "eth"}, VS: "usd"},
			providerResp: coingecko.SimplePriceResponse{
				"bitcoin": {"usd": 65000},
			},
			expectErr: ErrProviderData,
		},
		{
			name:        "provider error is returned as-is",
			request:     entity.PricesRequest{Symbols: []string{"btc"}, VS: "usd"},
			providerErr: &coingecko.Error{StatusCode: 500, Err: errors.New("unexpected status 500")},
			expectErr:   &coingecko.Error{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			provider := &stubProvider{
				SimplePriceFunc: func(ctx context.Context, ids []string, vs string) (coingecko.SimplePriceResponse, error) {
					return tc.providerResp, tc.providerErr
				},
			}

			service := NewService(provider)
			service.now = func() time.Time { return frozenNow }

			book, err := service.GetSpotPrices(context.Background(), tc.request)
			if tc.expectErr != nil {
				require.Error(t, err)
				if errors.Is(tc.expectErr, ErrProviderData) {
					assert.ErrorIs(t, err, ErrProviderData)
				}
				return
			}

			require.NoError(t, err)
			tc.verify(t, book)
		})
	}
}

func TestService_GetSpotPrices_RequestsMappedIDs(t *testing.T) {
	var gotIDs []string
	var gotVS string

	provider := &stubProvider{
		SimplePriceFunc: func(ctx context.Context, ids []string, vs string) (coingecko.SimplePriceResponse, error) {
			gotIDs = ids
			gotVS = vs
			return coingecko.SimplePriceResponse{
				"bitcoin":  {"usd": 1},
				"ethereum": {"usd": 2},
			}, nil
		},
	}

	service := NewService(provider)
	_, err := service.GetSpotPrices(context.Background(), entity.PricesRequest{Symbols: []string{"btc", "eth"}, VS: "usd"})
	require.NoError(t, err)

	assert.Equal(t, []string{"bitcoin", "ethereum"}, gotIDs)
	assert.Equal(t, "usd", gotVS)
}

func TestService_GetHistory(t *testing.T) {
	provider := &stubProvider{
		MarketChartFunc: func(ctx context.Context, id, vs, days, interval string) (*coingecko.MarketChartResponse, error) {
			assert.Equal(t, "bitcoin", id)
			assert.Equal(t, "usd", vs)
			assert.Equal(t, "1", days)
			assert.Equal(t, "hourly", interval)

			return &coingecko.MarketChartResponse{
				Prices: [][]float64{
					{200, 100.5},
					{100, 99.2},
					{math.NaN(), 5},
				},
			}, nil
		},
	}

	service := NewService(provider)
	series, err := service.GetHistory(context.Background(), entity.HistoryRequest{
		Symbol: "btc",
		VS:     "usd",
		Range:  entity.Range24h,
	})
	require.NoError(t, err)

	assert.Equal(t, "btc", series.Symbol)
	assert.Equal(t, "usd", series.VS)
	assert.Equal(t, entity.Range24h, series.Range)
	assert.Equal(t, []entity.HistoryPoint{
		{T: 100, P: 99.2},
		{T: 200, P: 100.5},
	}, series.Series)
}

func TestService_GetHistory_LongRangesUseProviderGranularity(t *testing.T) {
	for _, historyRange := range []entity.HistoryRange{entity.Range7d, entity.Range30d} {
		provider := &stubProvider{
			MarketChartFunc: func(ctx context.Context, id, vs, days, interval string) (*coingecko.MarketChartResponse, error) {
				assert.Equal(t, historyRange.Days(), days)
				assert.Empty(t, interval)
				return &coingecko.MarketChartResponse{Prices: [][]float64{}}, nil
			},
		}

		service := NewService(provider)
		series, err := service.GetHistory(context.Background(), entity.HistoryRequest{
			Symbol: "eth",
			VS:     "usd",
			Range:  historyRange,
		})
		require.NoError(t, err)
		assert.Empty(t, series.Series)
	}
}

func TestNormalizeHistory(t *testing.T) {
	testCases := []struct {
		name     string
		pairs    [][]float64
		expected []entity.HistoryPoint
	}{
		{
			name:     "sorts ascending and drops non-finite pairs",
			pairs:    [][]float64{{200, 100.5}, {100, 99.2}, {math.NaN(), 5}},
			expected: []entity.HistoryPoint{{T: 100, P: 99.2}, {T: 200, P: 100.5}},
		},
		{
			name:     "drops infinite prices",
			pairs:    [][]float64{{100, math.Inf(1)}, {200, 1}},
			expected: []entity.HistoryPoint{{T: 200, P: 1}},
		},
		{
			name:     "drops short pairs",
			pairs:    [][]float64{{100}, {200, 2}},
			expected: []entity.HistoryPoint{{T: 200, P: 2}},
		},
		{
			name:     "truncates fractional timestamps",
			pairs:    [][]float64{{100.9, 1}},
			expected: []entity.HistoryPoint{{T: 100, P: 1}},
		},
		{
			name:     "empty input yields empty output",
			pairs:    [][]float64{},
			expected: []entity.HistoryPoint{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalizeHistory(tc.pairs))
		})
	}
}
