package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghostmonk/storyfeed/internal/client"
	"github.com/ghostmonk/storyfeed/internal/logger"
	"github.com/ghostmonk/storyfeed/internal/retry"
)

var healthWait bool

func newHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check whether the stories endpoint is up",
		Long: `Health pings the endpoint's health route. With --wait it retries with
bounded exponential backoff until the endpoint answers or the attempts
run out, which is handy right after starting serve.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(cmd)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return runHealth(ctx, d)
		},
	}

	cmd.Flags().BoolVar(&healthWait, "wait", false, "retry until the endpoint is reachable")
	return cmd
}

func runHealth(ctx context.Context, d *deps) error {
	var status *client.HealthStatus

	check := func(ctx context.Context) error {
		var err error
		status, err = d.api.Health(ctx)
		return err
	}

	if healthWait {
		cfg := retry.DefaultConfig()
		cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
			d.log.Warn("endpoint not ready",
				logger.Int("attempt", attempt),
				logger.Duration("retry_in", delay),
				logger.Error(err))
		}
		if err := retry.Do(ctx, cfg, check); err != nil {
			return err
		}
	} else if err := check(ctx); err != nil {
		return err
	}

	fmt.Printf("%s is %s (version %s)\n", status.Service, status.Status, status.Version)
	return nil
}
