package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/scheduler"
)

var runOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler, Telegram command polling and metrics endpoint",
	Long: `Run starts the cron jobs (cache refresh, daily report, quota journal), long-polls
Telegram for commands when a bot token is configured, and serves Prometheus
metrics when metrics.listen is set. Stops on SIGINT or SIGTERM.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "Run one refresh immediately")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info().Str("version", version).Msg("GoldSentinel starting")

	a, err := newApp(cfg, useMock)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sink notifier.Sink = notifier.NewConsoleSink(cmd.OutOrStdout(), false)
	if a.telegram != nil {
		sink = a.telegram
	}

	sched := scheduler.NewScheduler(ctx, a.collector, sink, a.recorder)
	if err := sched.RegisterAll(cfg.Schedule.RefreshCron, cfg.Schedule.ReportCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Error().Err(err).Msg("metrics endpoint")
			}
		}()
	}

	if a.telegram != nil {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if runOnStart {
		log.Info().Msg("run-on-start enabled, refreshing now")
		go sched.RunRefreshNow()
	}

	info := a.planner.Info(time.Now())
	log.Info().
		Bool("market_open", info.Open).
		Dur("suggested_interval", info.Interval).
		Str("refresh_cron", cfg.Schedule.RefreshCron).
		Msg("GoldSentinel is running, press Ctrl+C to stop")

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return nil
}
