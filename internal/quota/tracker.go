package quota

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"GoldSentinel/internal/model"
)

// ErrQuotaExceeded is matched by every *QuotaError.
var ErrQuotaExceeded = errors.New("quota exceeded")

// QuotaError is a local denial of an upstream call. It is never returned by
// the upstream itself.
type QuotaError struct {
	Scope string // "daily" or "monthly"
	Used  int
	Limit float64
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s quota exceeded: used %d of %.0f", e.Scope, e.Used, e.Limit)
}

func (e *QuotaError) Is(target error) bool { return target == ErrQuotaExceeded }

// State is the call counters. It is owned by a Tracker.
type State struct {
	CallsToday     int
	CallsThisMonth int
	LastCallDate   time.Time
}

// Tracker owns the quota state and serializes every mutation.
type Tracker struct {
	mu           sync.Mutex
	state        State
	monthlyLimit int
	daysInMonth  int
	dailyBuffer  float64
}

// NewTracker creates a Tracker for the given monthly budget. daysInMonth is
// used to derive the daily budget; dailyBuffer is how far a single day may
// overrun it (1.5 allows 50% extra).
func NewTracker(monthlyLimit, daysInMonth int, dailyBuffer float64) *Tracker {
	if daysInMonth <= 0 {
		daysInMonth = 30
	}
	if dailyBuffer < 1 {
		dailyBuffer = 1
	}
	return &Tracker{
		monthlyLimit: monthlyLimit,
		daysInMonth:  daysInMonth,
		dailyBuffer:  dailyBuffer,
	}
}

// DailyBudget is monthly_limit / days_in_month.
func (t *Tracker) DailyBudget() float64 {
	return float64(t.monthlyLimit) / float64(t.daysInMonth)
}

// Allow checks whether one more call may be made at now. It neither counts
// the call nor writes the counters.
func (t *Tracker) Allow(now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, _ := t.view(now)
	return t.check(st)
}

// Reserve checks the budget and, when the call is allowed, counts it in the
// same critical section. Concurrent callers cannot overrun the caps.
func (t *Tracker) Reserve(now time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, _ := t.view(now)
	if err := t.check(st); err != nil {
		return err
	}
	t.charge(now)
	return nil
}

// Track records one upstream call, successful or not, without checking the
// budget. Forced fetches use it.
func (t *Tracker) Track(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.charge(now)
}

// Refund takes back one call charged at now that never reached the upstream.
func (t *Tracker) Refund(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, _ := t.view(now)
	if st.CallsToday > 0 {
		st.CallsToday--
	}
	if st.CallsThisMonth > 0 {
		st.CallsThisMonth--
	}
	t.state = st
	log.Debug().Int("calls_today", st.CallsToday).Msg("upstream call refunded")
}

func (t *Tracker) check(st State) error {
	dailyCap := t.DailyBudget() * t.dailyBuffer
	if float64(st.CallsToday+1) > dailyCap {
		return &QuotaError{Scope: "daily", Used: st.CallsToday, Limit: dailyCap}
	}
	if st.CallsThisMonth+1 > t.monthlyLimit {
		return &QuotaError{Scope: "monthly", Used: st.CallsThisMonth, Limit: float64(t.monthlyLimit)}
	}
	return nil
}

// charge applies the rollover and counts one call. Caller holds mu.
func (t *Tracker) charge(now time.Time) {
	st, monthReset := t.view(now)
	if monthReset {
		log.Info().Int("calls", t.state.CallsThisMonth).Msg("monthly quota counters reset")
	}
	st.CallsToday++
	st.CallsThisMonth++
	st.LastCallDate = now
	t.state = st

	log.Debug().
		Int("calls_today", st.CallsToday).
		Int("calls_this_month", st.CallsThisMonth).
		Msg("upstream call tracked")
}

// view returns the counters as they stand at now: calls_today is zero once
// the date has advanced, both counters once the month has. The stored state
// is not modified. Caller holds mu.
func (t *Tracker) view(now time.Time) (State, bool) {
	st := t.state
	last := st.LastCallDate
	if last.IsZero() {
		return st, false
	}
	ly, lm, ld := last.Date()
	ny, nm, nd := now.In(last.Location()).Date()
	if ly != ny || lm != nm {
		st.CallsThisMonth = 0
		st.CallsToday = 0
		return st, true
	}
	if ld != nd {
		st.CallsToday = 0
	}
	return st, false
}

// State returns a copy of the counters.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Status summarizes budget consumption at now.
func (t *Tracker) Status(now time.Time) model.QuotaStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, _ := t.view(now)
	s := model.QuotaStatus{
		CallsToday:     st.CallsToday,
		CallsThisMonth: st.CallsThisMonth,
		MonthlyLimit:   t.monthlyLimit,
		DailyBudget:    t.DailyBudget(),
		Remaining:      max(0, t.monthlyLimit-st.CallsThisMonth),
		LastCallDate:   st.LastCallDate,
		WarningLevel:   "safe",
	}
	if t.monthlyLimit > 0 {
		s.UsedPercent = float64(st.CallsThisMonth) / float64(t.monthlyLimit) * 100
	}
	if day := now.Day(); day > 0 {
		s.EstimatedMonthly = int(float64(st.CallsThisMonth) / float64(day) * float64(t.daysInMonth))
	}

	switch {
	case s.UsedPercent >= 90:
		s.WarningLevel = "critical"
	case s.UsedPercent >= 75:
		s.WarningLevel = "warning"
	case float64(s.EstimatedMonthly) >= float64(t.monthlyLimit)*0.9:
		s.WarningLevel = "caution"
	}
	return s
}
