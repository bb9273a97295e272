package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/cryptopanel/market-api/internal/config"
	"github.com/cryptopanel/market-api/internal/constant"
	markethttp "github.com/cryptopanel/market-api/internal/handler/market/http"
	"github.com/cryptopanel/market-api/internal/infrastructure"
	"github.com/cryptopanel/market-api/internal/metrics"
	"github.com/cryptopanel/market-api/internal/provider/coingecko"
	"github.com/cryptopanel/market-api/internal/ratelimit"
	"github.com/cryptopanel/market-api/internal/service/market"
	"github.com/cryptopanel/market-api/internal/util"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func StartServer(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter, limiterCloser := newLimiter(ctx)

	providerClient := coingecko.NewClient(config.Env.Provider.BaseURL, config.Env.Provider.Timeout)
	marketService := market.NewService(providerClient)
	serviceMetrics := metrics.NewMetrics()

	marketHandler := markethttp.NewMarketHTTPHandler(marketService, limiter, serviceMetrics)

	mux := http.NewServeMux()
	marketHandler.Register(mux)
	mux.Handle(constant.MetricsEndpoint, promhttp.Handler())

	httpPort := fmt.Sprintf(":%s", config.Env.Port["http"])
	httpServer := infrastructure.NewHTTPServerWithConfig(infrastructure.HTTPServerConfig{
		Addr:            httpPort,
		ShutdownTimeout: config.Env.GracefulShutdownTimeout,
		Metrics:         serviceMetrics,
	}, mux)

	go func() {
		err := httpServer.Start()
		if err != nil {
			logrus.Error(err)
		}
	}()
	logrus.Info(fmt.Sprintf("http server started on %s", httpPort))

	wait := gracefulShutdown(ctx, config.Env.GracefulShutdownTimeout, map[string]operation{
		"http": func(ctx context.Context) error {
			return httpServer.Shutdown(ctx)
		},
		"rate limiter": func(ctx context.Context) error {
			cancel()
			return limiterCloser.Close()
		},
	})

	<-wait
}

func newLimiter(ctx context.Context) (ratelimit.Limiter, io.Closer) {
	rateLimitConfig := config.Env.RateLimit

	if rateLimitConfig.Backend == "redis" {
		client, err := infrastructure.NewRedisClient(ctx, config.Env.Redis["rate_limit"].CacheDSN)
		util.ContinueOrFatal(err)

		logrus.Info("using redis rate-limit backend")
		return ratelimit.NewRedisLimiter(client, rateLimitConfig.RequestsPerMinute, rateLimitConfig.Window), client
	}

	limiter := ratelimit.NewMemoryLimiter(rateLimitConfig.RequestsPerMinute, rateLimitConfig.Window)
	limiter.StartSweep(ctx, rateLimitConfig.SweepInterval)

	return limiter, limiter
}
