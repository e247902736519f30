package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/logger"
	"github.com/ghostmonk/storyfeed/internal/mockapi"
	"github.com/ghostmonk/storyfeed/internal/telemetry"
)

var serveSeed bool

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bundled stories endpoint",
		Long: `Serve runs an in-process stories endpoint with the same wire contract
as the production backend: pagination, bearer-token auth on mutations,
draft visibility rules, and Prometheus metrics on /metrics. Useful for
local development and demos.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Server.Seed = serveSeed
			}

			log, err := logger.New(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			profiler, err := telemetry.StartPyroscope("api", Version)
			if err != nil {
				log.Warn("continuous profiling unavailable", logger.Error(err))
			}
			defer func() { _ = profiler.Stop() }()

			server := mockapi.NewServer(cfg.Server, log,
				mockapi.WithTelemetry(telemetry.NewProvider()),
				mockapi.WithVersion(Version))

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return server.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&serveSeed, "seed", false, "start with fixture stories")
	return cmd
}
