package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xtree/internal/checker"
	"github.com/benz9527/xtree/observability"
	"github.com/benz9527/xtree/xlog"
)

type checkConfig struct {
	rounds          int
	ops             int
	workers         int
	seed            uint64
	keySpace        int64
	metrics         string
	metricsAddr     string
	metricsInterval time.Duration
	out             io.Writer
}

func newMetricsExporter(lc fx.Lifecycle, cfg *checkConfig, logger xlog.XLogger) (*observability.MetricsExporter, error) {
	typ, err := observability.ParseMetricsExporterType(cfg.metrics)
	if err != nil {
		return nil, err
	}
	exporter, err := observability.NewMetricsExporter(typ, cfg.out, cfg.metricsInterval)
	if err != nil {
		return nil, err
	}
	if typ != observability.MetricsNone {
		if err = observability.InitAppStats("check"); err != nil {
			return nil, multierr.Append(err, exporter.Shutdown(context.Background()))
		}
	}

	var srv *http.Server
	if typ == observability.MetricsPrometheus && len(cfg.metricsAddr) > 0 {
		srv = &http.Server{
			Addr:              cfg.metricsAddr,
			Handler:           exporter.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if srv == nil {
				return nil
			}
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Info("metrics served", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error(err, "metrics server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var err error
			if srv != nil {
				err = srv.Shutdown(ctx)
			}
			return multierr.Combine(err, exporter.Flush(ctx, cfg.out), exporter.Shutdown(ctx))
		},
	})
	return exporter, nil
}

func newChecker(
	lc fx.Lifecycle,
	cfg *checkConfig,
	logger xlog.XLogger,
	exporter *observability.MetricsExporter,
) (*checker.Checker, error) {
	opts := []checker.Option{
		checker.WithRounds(cfg.rounds),
		checker.WithOps(cfg.ops),
		checker.WithWorkers(cfg.workers),
		checker.WithSeed(cfg.seed),
		checker.WithKeySpace(cfg.keySpace),
		checker.WithLogger(logger),
	}
	if exporter.Type() != observability.MetricsNone {
		opts = append(opts, checker.WithStats())
	}
	c, err := checker.New(opts...)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(c.Release))
	return c, nil
}

func writeReport(w io.Writer, report *checker.Report) error {
	_, err := fmt.Fprintf(w, "rounds: %d\nops: %d\ninserts: %d\nremoves: %d\nmisses: %d\nclones: %d\nmax height: %d\nfailed: %v\n",
		report.Rounds,
		report.Ops,
		report.Inserts,
		report.Removes,
		report.Misses,
		report.Clones,
		report.MaxHeight,
		report.Failed,
	)
	return err
}

// runCheck starts the app, runs the checker once and stops the app.
// The exporter flushes its metrics on stop, after the report.
func runCheck(ctx context.Context, cfg *checkConfig, logger xlog.XLogger) error {
	var c *checker.Checker
	app := fx.New(
		fx.WithLogger(func() fxevent.Logger {
			return xlog.NewFxXLogger(logger)
		}),
		fx.Supply(cfg),
		fx.Provide(
			func() xlog.XLogger { return logger },
			newMetricsExporter,
			newChecker,
		),
		fx.Populate(&c),
	)
	if err := app.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return err
	}

	report, runErr := c.Run(ctx)
	if report != nil {
		runErr = multierr.Append(runErr, writeReport(cfg.out, report))
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	return multierr.Append(runErr, app.Stop(stopCtx))
}

func checkCommand(ctx *rootContext) *cobra.Command {
	cfg := &checkConfig{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "validate the trees under seeded random workloads",
		Example: `  xtree check --rounds 64 --ops 4096 --seed 7
  xtree check --metrics prometheus --metrics-addr :9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.out = cmd.OutOrStdout()
			return runCheck(cmd.Context(), cfg, ctx.logger)
		},
	}
	cmd.Flags().IntVar(&cfg.rounds, "rounds", 16, "number of independent rounds")
	cmd.Flags().IntVar(&cfg.ops, "ops", 1024, "operations per round")
	cmd.Flags().IntVar(&cfg.workers, "workers", 0, "worker pool size, 0 follows GOMAXPROCS")
	cmd.Flags().Uint64Var(&cfg.seed, "seed", 1, "seed of the first round")
	cmd.Flags().Int64Var(&cfg.keySpace, "keyspace", 512, "keys are drawn from [0, keyspace)")
	cmd.Flags().StringVar(&cfg.metrics, "metrics", "none", "metrics exporter: none, stdout or prometheus")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "serve the prometheus metrics on this address while checking")
	cmd.Flags().DurationVar(&cfg.metricsInterval, "metrics-interval", 10*time.Second, "stdout metrics export interval")
	return cmd
}
