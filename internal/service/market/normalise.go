package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cryptopanel/market-api/internal/entity"
	"github.com/guregu/null/v6"
)

const lastUpdatedAtField = "last_updated_at"

func normalizeSpotPrices(raw map[string]map[string]float64, req entity.PricesRequest, now time.Time) (map[string]entity.PriceTicker, error) {
	book := make(map[string]entity.PriceTicker, len(req.Symbols))

	for _, symbol := range req.Symbols {
		id, _ := entity.ProviderID(symbol)

		fields, ok := raw[id]
		if !ok {
			return nil, fmt.Errorf("%w: missing data for symbol %s", ErrProviderData, symbol)
		}

		price, ok := fields[req.VS]
		if !ok {
			return nil, fmt.Errorf("%w: missing %s price for symbol %s", ErrProviderData, req.VS, symbol)
		}

		// The provider reports last_updated_at in Unix seconds and may
		// omit it entirely.
		lastUpdated := now.UnixMilli()
		if seconds, ok := fields[lastUpdatedAtField]; ok {
			lastUpdated = int64(seconds) * 1000
		}

		ticker := entity.PriceTicker{
			Symbol:      symbol,
			Price:       price,
			Currency:    req.VS,
			LastUpdated: lastUpdated,
		}
		if change, ok := fields[req.VS+"_24h_change"]; ok {
			ticker.Change24h = null.FloatFrom(change).Ptr()
		}

		book[symbol] = ticker
	}

	return book, nil
}

// normalizeHistory drops pairs that are short or non-finite, truncates
// timestamps to whole milliseconds, and sorts ascending. The provider
// does not guarantee ordering.
func normalizeHistory(pairs [][]float64) []entity.HistoryPoint {
	points := make([]entity.HistoryPoint, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}

		t, p := pair[0], pair[1]
		if !isFinite(t) || !isFinite(p) {
			continue
		}

		points = append(points, entity.HistoryPoint{T: int64(math.Trunc(t)), P: p})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].T < points[j].T
	})

	return points
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
