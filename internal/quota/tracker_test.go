package quota

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_DailyBudgetWithBuffer(t *testing.T) {
	tr := NewTracker(600, 30, 1.5)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 30; i++ {
		require.NoErrorf(t, tr.Allow(now), "call %d should be allowed", i+1)
		tr.Track(now)
	}

	err := tr.Allow(now)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))

	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "daily", qe.Scope)
	assert.Equal(t, 30, qe.Used)
}

func TestTracker_DayRolloverResetsDailyOnly(t *testing.T) {
	tr := NewTracker(600, 30, 1.5)
	day1 := time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		tr.Track(day1)
	}
	require.Error(t, tr.Allow(day1))

	day2 := day1.Add(2 * time.Hour)
	require.NoError(t, tr.Allow(day2))
	tr.Track(day2)

	st := tr.State()
	assert.Equal(t, 1, st.CallsToday)
	assert.Equal(t, 31, st.CallsThisMonth)
}

func TestTracker_MonthRolloverResetsMonthly(t *testing.T) {
	tr := NewTracker(600, 30, 1.5)
	tr.Track(time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC))
	tr.Track(time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC))

	st := tr.State()
	assert.Equal(t, 1, st.CallsToday)
	assert.Equal(t, 1, st.CallsThisMonth)
}

func TestTracker_MonthlyLimitDenies(t *testing.T) {
	// Generous daily allowance so only the monthly cap bites.
	tr := NewTracker(10, 1, 1.5)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		tr.Track(now)
	}

	err := tr.Allow(now)
	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "monthly", qe.Scope)
}

func TestTracker_StatusWarningLevels(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		calls int
		day   int
		level string
	}{
		{"idle", 100, 0, 30, "safe"},
		{"on pace", 600, 100, 10, "safe"},
		{"burning fast", 600, 200, 10, "caution"},
		{"three quarters", 100, 76, 30, "warning"},
		{"nearly out", 100, 95, 30, "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2025, 6, tt.day, 9, 0, 0, 0, time.UTC)
			tr := NewTracker(tt.limit, 30, 100)
			for i := 0; i < tt.calls; i++ {
				tr.Track(now)
			}
			st := tr.Status(now)
			assert.Equal(t, tt.level, st.WarningLevel)
			assert.Equal(t, tt.limit-tt.calls, st.Remaining)
		})
	}
}

func TestTracker_ReserveNeverOverrunsDailyCap(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	for round := 0; round < 200; round++ {
		tr := NewTracker(600, 30, 1.5)
		for i := 0; i < 29; i++ {
			tr.Track(now)
		}

		var granted atomic.Int32
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tr.Reserve(now) == nil {
					granted.Add(1)
				}
			}()
		}
		wg.Wait()

		require.EqualValues(t, 1, granted.Load(), "round %d", round)
		require.Equal(t, 30, tr.State().CallsToday, "round %d", round)
	}
}

func TestTracker_RefundReturnsCharge(t *testing.T) {
	tr := NewTracker(600, 30, 1.5)
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tr.Reserve(now))
	tr.Refund(now)
	tr.Refund(now)

	st := tr.State()
	assert.Zero(t, st.CallsToday)
	assert.Zero(t, st.CallsThisMonth)
}

func TestTracker_ReadsDoNotWriteCounters(t *testing.T) {
	tr := NewTracker(600, 30, 1.5)
	day1 := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tr.Track(day1)
	}

	day2 := day1.AddDate(0, 0, 1)
	require.NoError(t, tr.Allow(day2))
	assert.Zero(t, tr.Status(day2).CallsToday)

	// Only a tracked call applies the rollover.
	assert.Equal(t, 5, tr.State().CallsToday)
	tr.Track(day2)
	assert.Equal(t, 1, tr.State().CallsToday)
	assert.Equal(t, 6, tr.State().CallsThisMonth)
}
