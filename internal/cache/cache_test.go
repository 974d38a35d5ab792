package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldSentinel/internal/model"
	"GoldSentinel/internal/quota"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type codedErr struct{ code int }

func (e *codedErr) Error() string { return fmt.Sprintf("code %d", e.code) }

func (e *codedErr) ErrorInfo() model.ErrorInfo {
	return model.ErrorInfo{Code: e.code, Description: "Request limit exceeded", Message: "limit"}
}

// counter returns a fetch func that yields 1, 2, 3... and the call count.
func counter() (FetchFunc[int], *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (int, error) {
		return int(n.Add(1)), nil
	}, &n
}

func TestCache_Staleness(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}
	fetch, calls := counter()
	c := New("spot", fetch, Options{Now: clock.Now})

	res, err := c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, Live, res.Status)
	assert.Equal(t, "LIVE", res.Label())

	clock.Advance(29 * time.Minute)
	res, err = c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, Cached, res.Status)
	assert.Equal(t, "Cached (29min old)", res.Label())
	assert.Equal(t, 1, res.Value)

	clock.Advance(2 * time.Minute)
	res, err = c.Get(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, Live, res.Status)
	assert.Equal(t, 2, res.Value)
	assert.EqualValues(t, 2, calls.Load())
}

func TestCache_QuotaDeniesThirtyFirstCall(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}
	tr := quota.NewTracker(600, 30, 1.5)
	fetch, calls := counter()
	c := New("history", fetch, Options{Now: clock.Now, Quota: tr, Staleness: time.Second})

	for i := 0; i < 30; i++ {
		_, err := c.Get(context.Background(), false)
		require.NoErrorf(t, err, "call %d", i+1)
		clock.Advance(2 * time.Second)
	}

	res, err := c.Get(context.Background(), false)
	require.ErrorIs(t, err, quota.ErrQuotaExceeded)
	require.NotNil(t, res)
	assert.Equal(t, Stale, res.Status)
	assert.Equal(t, 30, res.Value)
	assert.EqualValues(t, 30, calls.Load())

	// Forced fetches bypass the check but are still counted.
	res, err = c.Get(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, Live, res.Status)
	assert.Equal(t, 31, tr.State().CallsToday)
}

func TestCache_APIErrorSetsErrorInfoAndKeepsEntry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)}
	var failWith error
	c := New("spot", func(context.Context) (string, error) {
		if failWith != nil {
			return "", failWith
		}
		return "board", nil
	}, Options{Now: clock.Now})

	_, err := c.Get(context.Background(), false)
	require.NoError(t, err)

	failWith = &codedErr{code: 10007}
	clock.Advance(31 * time.Minute)
	res, err := c.Get(context.Background(), false)

	var ce *codedErr
	require.ErrorAs(t, err, &ce)
	require.NotNil(t, res)
	assert.Equal(t, Stale, res.Status)
	assert.Equal(t, "board", res.Value)
	assert.Equal(t, "Stale (31min old)", res.Label())

	info := c.LastError()
	require.NotNil(t, info)
	assert.Equal(t, 10007, info.Code)
	assert.Equal(t, "Request limit exceeded", info.Description)

	// A transport failure keeps the code and only replaces the message.
	failWith = errors.New("connection reset")
	_, err = c.Get(context.Background(), true)
	require.Error(t, err)
	info = c.LastError()
	require.NotNil(t, info)
	assert.Equal(t, 10007, info.Code)
	assert.Equal(t, "connection reset", info.Message)

	// Success clears the slot.
	failWith = nil
	_, err = c.Get(context.Background(), true)
	require.NoError(t, err)
	assert.Nil(t, c.LastError())
}

func TestCache_FailureWithoutEntryIsNoData(t *testing.T) {
	boom := errors.New("timeout")
	c := New("spot", func(context.Context) (int, error) { return 0, boom }, Options{})

	res, err := c.Get(context.Background(), false)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "No data available", res.Label())
}

func TestCache_GateBlocksUnforcedFetchWithoutCounting(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC)}
	tr := quota.NewTracker(600, 30, 1.5)
	fetch, calls := counter()
	c := New("spot", fetch, Options{
		Now:   clock.Now,
		Quota: tr,
		Gate:  func(time.Time) bool { return false },
	})

	_, err := c.Get(context.Background(), false)
	require.ErrorIs(t, err, ErrMarketClosed)
	assert.Zero(t, calls.Load())
	assert.Zero(t, tr.State().CallsToday)

	res, err := c.Get(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, Live, res.Status)
	assert.Equal(t, 1, tr.State().CallsToday)
}

func TestCache_ConcurrentGetsFetchOnce(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := New("history", func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}, Options{})

	var wg sync.WaitGroup
	results := make([]*Result[int], 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Get(context.Background(), false)
			assert.NoError(t, err)
			results[i] = res
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 42, r.Value)
	}
}

func TestCache_Peek(t *testing.T) {
	fetch, _ := counter()
	c := New("spot", fetch, Options{})

	_, ok := c.Peek()
	assert.False(t, ok)

	_, err := c.Get(context.Background(), false)
	require.NoError(t, err)
	res, ok := c.Peek()
	require.True(t, ok)
	assert.Equal(t, 1, res.Value)
}

func TestCache_OnFetchSeesEveryAttempt(t *testing.T) {
	boom := errors.New("timeout")
	fail := true
	var seen []error
	c := New("history", func(context.Context) (int, error) {
		if fail {
			return 0, boom
		}
		return 7, nil
	}, Options{
		Gate: func(time.Time) bool { return false },
		OnFetch: func(series string, _ time.Duration, err error) {
			assert.Equal(t, "history", series)
			seen = append(seen, err)
		},
	})

	// Gate denial is not an upstream attempt.
	_, err := c.Get(context.Background(), false)
	require.ErrorIs(t, err, ErrMarketClosed)
	assert.Empty(t, seen)

	_, err = c.Get(context.Background(), true)
	require.Error(t, err)
	fail = false
	_, err = c.Get(context.Background(), true)
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.ErrorIs(t, seen[0], boom)
	assert.NoError(t, seen[1])
}

func TestCache_SharedTrackerHoldsDailyCapUnderConcurrency(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	for round := 0; round < 100; round++ {
		tr := quota.NewTracker(600, 30, 1.5)
		for i := 0; i < 29; i++ {
			tr.Track(now)
		}

		var fetched atomic.Int32
		caches := make([]*Cache[int], 8)
		for i := range caches {
			caches[i] = New(fmt.Sprintf("series-%d", i), func(context.Context) (int, error) {
				fetched.Add(1)
				return 1, nil
			}, Options{Quota: tr, Now: func() time.Time { return now }})
		}

		var wg sync.WaitGroup
		for _, c := range caches {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.Get(context.Background(), false)
			}()
		}
		wg.Wait()

		require.Equal(t, 30, tr.State().CallsToday, "round %d", round)
		require.EqualValues(t, 1, fetched.Load(), "round %d", round)
	}
}

func TestCache_UnsentRequestIsRefunded(t *testing.T) {
	tr := quota.NewTracker(600, 30, 1.5)
	rejected := fmt.Errorf("bad product: %w", ErrNotSent)
	c := New("history", func(context.Context) (int, error) { return 0, rejected }, Options{Quota: tr})

	for i := 0; i < 40; i++ {
		_, err := c.Get(context.Background(), false)
		require.ErrorIs(t, err, ErrNotSent)
		require.NotErrorIs(t, err, quota.ErrQuotaExceeded)
	}
	_, err := c.Get(context.Background(), true)
	require.ErrorIs(t, err, ErrNotSent)

	assert.Zero(t, tr.State().CallsToday)
	assert.Zero(t, tr.State().CallsThisMonth)
}
