package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/DachengChen/askSQL/api"
	"github.com/DachengChen/askSQL/applog"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve conversation sessions over HTTP",
	Long: `The serve command exposes sessions, questions, the schema and the query
log as a JSON API. Prometheus metrics are served on /metrics.

Idle sessions expire after server.session_ttl_minutes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := openRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.Close()

		rt.Sessions.StartCleanup(time.Minute)

		addr := serveAddr
		if addr == "" {
			addr = appConfig.Server.Addr
		}
		deps := api.Dependencies{
			Logger:   applog.Logger(),
			Sessions: rt.Sessions,
			Pipeline: rt.Pipeline,
			Schemas:  rt.Schemas,
		}
		if rt.Log != nil {
			deps.QueryLog = rt.Log
		}
		pterm.Info.Printfln("listening on http://%s (provider %s)", addr, rt.Pipeline.ProviderName())
		return api.Serve(ctx, addr, api.NewHandler(deps))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}
