package entity

// SymbolIDMap maps every supported ticker symbol to the upstream
// provider's asset identifier. A symbol without an entry here is
// rejected during validation, before any network call.
var SymbolIDMap = map[string]string{
	"btc": "bitcoin",
	"eth": "ethereum",
}

// DefaultSymbols is substituted when the prices endpoint receives an
// empty symbol list.
var DefaultSymbols = []string{"btc", "eth"}

func ProviderID(symbol string) (string, bool) {
	id, ok := SymbolIDMap[symbol]
	return id, ok
}

type HistoryRange string

const (
	Range24h HistoryRange = "24h"
	Range7d  HistoryRange = "7d"
	Range30d HistoryRange = "30d"
)

var daysByRange = map[HistoryRange]string{
	Range24h: "1",
	Range7d:  "7",
	Range30d: "30",
}

// intervalByRange pins an explicit hourly sampling interval for the
// shortest range. Longer ranges use the provider's default granularity.
var intervalByRange = map[HistoryRange]string{
	Range24h: "hourly",
}

func ParseHistoryRange(raw string) (HistoryRange, bool) {
	r := HistoryRange(raw)
	_, ok := daysByRange[r]
	return r, ok
}

// Days returns the provider lookback parameter for the range.
func (r HistoryRange) Days() string {
	return daysByRange[r]
}

// Interval returns the provider sampling interval for the range, or ""
// when the provider default applies.
func (r HistoryRange) Interval() string {
	return intervalByRange[r]
}

type PricesRequest struct {
	Symbols []string
	VS      string
}

type HistoryRequest struct {
	Symbol string
	VS     string
	Range  HistoryRange
}

// PriceTicker is the normalised spot price for one symbol.
// LastUpdated is in Unix milliseconds. Change24h is nil when the
// provider omits the 24-hour change field.
type PriceTicker struct {
	Symbol      string
	Price       float64
	Currency    string
	LastUpdated int64
	Change24h   *float64
}

// HistoryPoint is one normalised (timestamp, price) sample. T is in
// Unix milliseconds.
type HistoryPoint struct {
	T int64
	P float64
}

type HistorySeries struct {
	Symbol string
	VS     string
	Range  HistoryRange
	Series []HistoryPoint
}
