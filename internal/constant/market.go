package constant

// Error codes returned in the body of every failed market API response.
const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeProviderError     = "PROVIDER_ERROR"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

const (
	PricesEndpoint  = "/api/prices"
	HistoryEndpoint = "/api/history"
	HealthzEndpoint = "/healthz"
	MetricsEndpoint = "/metrics"

	// Rate-limit keys are endpoint-scoped so the two market endpoints
	// do not share a budget.
	PricesRateLimitScope  = "prices"
	HistoryRateLimitScope = "history"
)
