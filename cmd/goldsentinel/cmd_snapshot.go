package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"GoldSentinel/internal/collector"
	"GoldSentinel/internal/notifier"
)

var (
	snapshotForce bool
	snapshotJSON  bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Collect one snapshot and print it",
	Long: `Snapshot fetches (or serves from the in-process cache) the spot board, price
history and macro quotes once, scores them, and prints the result.

Example usage:
  goldsentinel snapshot                 # Respect trading hours and quota
  goldsentinel snapshot --force         # Bypass the market and quota gates
  goldsentinel snapshot --json          # Machine-readable output`,
	RunE: runSnapshot,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the trading window and suggested polling interval",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		planner, err := newPlanner(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), notifier.FormatSchedule(planner.Info(time.Now())))
		return err
	},
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotForce, "force", false, "Fetch even when the market is closed or the quota is spent")
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Print JSON instead of text")
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, useMock)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.collector.Collect(cmd.Context(), snapshotForce)
	if snap == nil {
		return fmt.Errorf("collect: %w", err)
	}
	if rerr := a.recorder.RecordSnapshot(snap); rerr != nil {
		log.Warn().Err(rerr).Msg("record snapshot")
	}
	if perr := notifier.NewConsoleSink(cmd.OutOrStdout(), snapshotJSON).Publish(cmd.Context(), snap); perr != nil {
		return perr
	}
	if errors.Is(err, collector.ErrNoPrice) {
		return err
	}
	return nil
}
