package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cryptopanel/market-api/internal/entity"
	"github.com/cryptopanel/market-api/internal/provider/coingecko"
)

// ErrProviderData marks responses the provider returned successfully
// but that are missing data the request requires. The whole batch
// fails, there are no partial results.
var ErrProviderData = errors.New("provider data incomplete")

type PriceProvider interface {
	SimplePrice(ctx context.Context, ids []string, vs string) (coingecko.SimplePriceResponse, error)
	MarketChart(ctx context.Context, id, vs, days, interval string) (*coingecko.MarketChartResponse, error)
}

type Service struct {
	provider PriceProvider
	now      func() time.Time
}

func NewService(provider PriceProvider) *Service {
	return &Service{
		provider: provider,
		now:      time.Now,
	}
}

// GetSpotPrices fetches and normalises the current price for every
// requested symbol. Symbols must already be validated against the
// supported set.
func (s *Service) GetSpotPrices(ctx context.Context, req entity.PricesRequest) (map[string]entity.PriceTicker, error) {
	ids := make([]string, 0, len(req.Symbols))
	for _, symbol := range req.Symbols {
		id, ok := entity.ProviderID(symbol)
		if !ok {
			return nil, fmt.Errorf("unmapped symbol %q reached the provider call", symbol)
		}
		ids = append(ids, id)
	}

	raw, err := s.provider.SimplePrice(ctx, ids, req.VS)
	if err != nil {
		return nil, err
	}

	return normalizeSpotPrices(raw, req, s.now())
}

// GetHistory fetches and normalises the historical series for one
// symbol over the requested range.
func (s *Service) GetHistory(ctx context.Context, req entity.HistoryRequest) (entity.HistorySeries, error) {
	id, ok := entity.ProviderID(req.Symbol)
	if !ok {
		return entity.HistorySeries{}, fmt.Errorf("unmapped symbol %q reached the provider call", req.Symbol)
	}

	chart, err := s.provider.MarketChart(ctx, id, req.VS, req.Range.Days(), req.Range.Interval())
	if err != nil {
		return entity.HistorySeries{}, err
	}

	return entity.HistorySeries{
		Symbol: req.Symbol,
		VS:     req.VS,
		Range:  req.Range,
		Series: normalizeHistory(chart.Prices),
	}, nil
}
