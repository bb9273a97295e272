package http

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/cryptopanel/market-api/internal/entity"
)

const maxSymbolsPerRequest = 10

var (
	symbolPattern   = regexp.MustCompile(`^[a-z0-9]{3,10}$`)
	currencyPattern = regexp.MustCompile(`^[a-z]{3,5}$`)
)

func parsePricesRequest(query url.Values) (entity.PricesRequest, error) {
	symbols, err := parseSymbols(query.Get("symbols"))
	if err != nil {
		return entity.PricesRequest{}, err
	}

	vs, err := parseVsCurrency(query.Get("vs"))
	if err != nil {
		return entity.PricesRequest{}, err
	}

	return entity.PricesRequest{Symbols: symbols, VS: vs}, nil
}

func parseHistoryRequest(query url.Values) (entity.HistoryRequest, error) {
	rawSymbol := strings.TrimSpace(query.Get("symbol"))
	if rawSymbol == "" {
		return entity.HistoryRequest{}, errors.New("symbol parameter is required")
	}

	symbols, err := parseSymbols(rawSymbol)
	if err != nil {
		return entity.HistoryRequest{}, err
	}
	if len(symbols) != 1 {
		return entity.HistoryRequest{}, errors.New("provide exactly one symbol for history queries")
	}

	vs, err := parseVsCurrency(query.Get("vs"))
	if err != nil {
		return entity.HistoryRequest{}, err
	}

	rawRange := strings.TrimSpace(query.Get("range"))
	if rawRange == "" {
		rawRange = string(entity.Range24h)
	}
	historyRange, ok := entity.ParseHistoryRange(rawRange)
	if !ok {
		return entity.HistoryRequest{}, fmt.Errorf("range must be one of 24h, 7d, 30d, got %q", rawRange)
	}

	return entity.HistoryRequest{
		Symbol: symbols[0],
		VS:     vs,
		Range:  historyRange,
	}, nil
}

// parseSymbols constrains the raw comma-separated list to the supported
// vocabulary. One unmapped entry fails the whole list.
func parseSymbols(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	symbols := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := strings.ToLower(strings.TrimSpace(part))
		if symbol == "" {
			continue
		}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		symbols = append(symbols, entity.DefaultSymbols...)
	}
	if len(symbols) > maxSymbolsPerRequest {
		return nil, fmt.Errorf("a maximum of %d symbols is allowed", maxSymbolsPerRequest)
	}

	for _, symbol := range symbols {
		if !symbolPattern.MatchString(symbol) {
			return nil, fmt.Errorf("symbols must be lowercase alphanumeric (3-10 chars), got %q", symbol)
		}
		if _, ok := entity.ProviderID(symbol); !ok {
			return nil, fmt.Errorf("unsupported symbol: %s", symbol)
		}
	}

	return symbols, nil
}

func parseVsCurrency(raw string) (string, error) {
	vs := strings.ToLower(strings.TrimSpace(raw))
	if vs == "" {
		vs = "usd"
	}

	if !currencyPattern.MatchString(vs) {
		return "", errors.New("base currency must be a 3-5 letter ISO code")
	}

	return vs, nil
}
