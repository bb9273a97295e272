package cmd

import (
	"github.com/cryptopanel/market-api/internal/bootstrap"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Market API gateway",
	Long: `Serves the public market endpoints:

- GET /api/prices   spot prices for a batch of symbols
- GET /api/history  historical series for one symbol
- GET /healthz      liveness payload
- GET /metrics      prometheus metrics

Every market request is validated, rate limited per caller, proxied to the
upstream price provider, and normalised into the stable response schema.`,
	Run: bootstrap.StartServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
