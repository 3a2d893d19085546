package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pharmcheck/pharmcheck/internal/results"
	"github.com/pharmcheck/pharmcheck/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and submission collector",
	Long: `Serve the question bank, stateless scoring and a submission collector over
HTTP. Point PHARMCHECK_SUBMIT_ENDPOINT of other installs at
http://<addr>/api/submissions to collect their results here.

Prometheus metrics are exposed on /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		origins, _ := cmd.Flags().GetStringSlice("allow-origin")
		debug, _ := cmd.Flags().GetBool("debug")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr == "" {
			addr = cfg.ServerAddr
		}
		logger := stderrLogger(cfg)

		b, err := loadBank(cfg)
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		srv, err := server.New(server.Options{
			Bank:         b,
			Results:      st.ResultRepo(),
			Scoring:      cfg.Scoring(),
			TopN:         cfg.TopN,
			Icons:        results.NewIconResolver(cfg.AssetsDir),
			AllowOrigins: origins,
			Registry:     reg,
			Logger:       logger,
			Debug:        debug,
		})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from PHARMCHECK_SERVER_ADDR, :8080)")
	serveCmd.Flags().StringSlice("allow-origin", nil, "CORS origin to allow; repeatable (default any)")
	serveCmd.Flags().Bool("debug", false, "Run gin in debug mode")
}
