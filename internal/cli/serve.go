package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ppiankov/claimcheck/internal/httpapi"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the verification HTTP API",
	Long: `Serve exposes the verification pipeline over HTTP:

  POST /verify    {"text": "..."} or {"url": "..."}, optional "id"
  GET  /recent    ?limit=20
  GET  /search    ?q=...
  GET  /healthz
  GET  /metrics   Prometheus metrics

Example:
  claimcheck serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := startApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(context.Background()) }()

	var searcher httpapi.Searcher
	if a.index.Enabled() {
		searcher = a.index
	}

	handler := httpapi.NewHandler(a.pipeline, a.store, searcher, a.config.Server.MaxBodyBytes, a.logger)
	server := httpapi.NewServer(a.config.Server, handler.Routes(), a.logger)

	a.logger.Info("starting claimcheck",
		zap.String("addr", a.config.Server.Addr),
		zap.String("model", a.config.LLM.Model),
		zap.Int("sources", len(a.config.Sources)))

	return server.ListenAndServe(ctx)
}
