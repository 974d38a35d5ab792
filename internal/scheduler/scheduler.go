package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"GoldSentinel/internal/collector"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/recorder"
)

// Collector produces snapshots and budget state. It is satisfied by
// *collector.Collector.
type Collector interface {
	Collect(ctx context.Context, force bool) (*model.Snapshot, error)
	Quota() model.QuotaStatus
	Schedule() model.ScheduleInfo
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron      *cron.Cron
	Collector Collector
	Sink      notifier.Sink
	Recorder  recorder.Recorder
	Ctx       context.Context

	mu         sync.Mutex
	lastAction model.Recommendation
	now        func() time.Time
}

// NewScheduler creates a new Scheduler. Overlapping runs of the same job
// are skipped.
func NewScheduler(ctx context.Context, col Collector, sink notifier.Sink, rec recorder.Recorder) *Scheduler {
	cronLog := log.With().Str("component", "cron").Logger()
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(&cronLog))),
		),
		Collector: col,
		Sink:      sink,
		Recorder:  rec,
		Ctx:       ctx,
		now:       time.Now,
	}
}

// RegisterAll registers the refresh, report and quota journal tasks.
func (s *Scheduler) RegisterAll(refreshCron, reportCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	// Daily just before midnight, so the counters are captured before rollover.
	if _, err := s.Cron.AddFunc("0 55 23 * * *", s.quotaTask); err != nil {
		return fmt.Errorf("register quota task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately.
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

// collect runs one collection and journals it. A snapshot without a price is
// still journaled and returned.
func (s *Scheduler) collect(ctx context.Context, force bool) (*model.Snapshot, error) {
	snap, err := s.Collector.Collect(ctx, force)
	if snap != nil {
		if rerr := s.Recorder.RecordSnapshot(snap); rerr != nil {
			log.Error().Err(rerr).Msg("record snapshot")
		}
	}
	return snap, err
}

// refreshTask keeps the caches warm and publishes only when the verdict
// action changes.
func (s *Scheduler) refreshTask() {
	log.Debug().Msg("running refresh task")
	snap, err := s.collect(s.Ctx, false)
	if err != nil {
		log.Warn().Err(err).Msg("refresh collect")
		if snap == nil || errors.Is(err, collector.ErrNoPrice) {
			return
		}
	}

	s.mu.Lock()
	prev := s.lastAction
	s.lastAction = snap.Verdict.Action
	s.mu.Unlock()

	if prev == "" || prev == snap.Verdict.Action {
		return
	}
	log.Info().Str("from", string(prev)).Str("to", string(snap.Verdict.Action)).Msg("verdict changed")
	s.publish(snap)
}

func (s *Scheduler) reportTask() {
	log.Info().Msg("running report task")
	snap, err := s.collect(s.Ctx, false)
	if err != nil && snap == nil {
		log.Error().Err(err).Msg("report collect")
		return
	}
	s.publish(snap)
}

func (s *Scheduler) quotaTask() {
	now := s.now()
	st := s.Collector.Quota()
	log.Info().
		Int("calls_today", st.CallsToday).
		Int("calls_this_month", st.CallsThisMonth).
		Int("remaining", st.Remaining).
		Str("level", st.WarningLevel).
		Msg("daily quota summary")
	s.recordQuota("daily", st)

	if now.AddDate(0, 0, 1).Month() != now.Month() {
		log.Info().
			Int("calls", st.CallsThisMonth).
			Int("limit", st.MonthlyLimit).
			Float64("used_percent", st.UsedPercent).
			Msg("monthly quota summary")
		s.recordQuota("monthly", st)
	}
}

func (s *Scheduler) recordQuota(period string, st model.QuotaStatus) {
	if err := s.Recorder.RecordQuota(&recorder.QuotaEvent{Period: period, Status: st}); err != nil {
		log.Error().Err(err).Str("period", period).Msg("record quota")
	}
}

func (s *Scheduler) publish(snap *model.Snapshot) {
	if s.Sink == nil {
		return
	}
	if err := s.Sink.Publish(s.Ctx, snap); err != nil {
		log.Error().Err(err).Msg("publish snapshot")
	}
}

const helpText = "Available commands:\n• /snapshot\n• /refresh\n• /quota\n• /schedule"

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/snapshot", "/refresh":
		snap, err := s.collect(ctx, cmd == "/refresh")
		if snap == nil {
			return fmt.Sprintf("❌ collect failed: %v", err)
		}
		return notifier.FormatSnapshot(snap)
	case "/quota":
		return notifier.FormatQuota(s.Collector.Quota())
	case "/schedule":
		return notifier.FormatSchedule(s.Collector.Schedule())
	default:
		return helpText
	}
}
