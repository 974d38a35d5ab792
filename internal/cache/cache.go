package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/quota"
)

var (
	// ErrMarketClosed is returned when the gate refuses a non-forced fetch.
	ErrMarketClosed = errors.New("market closed")
	// ErrNoData is returned when a fetch fails and nothing is cached.
	ErrNoData = errors.New("no data available")
	// ErrNotSent marks a fetch that failed before any upstream request was
	// made. Its quota charge is refunded.
	ErrNotSent = errors.New("request not sent")
)

// DefaultStaleness is how long a stored entry is served without refetching.
const DefaultStaleness = 30 * time.Minute

// Status tells where a result's payload came from.
type Status int

const (
	Live Status = iota
	Cached
	Stale
)

func (s Status) String() string {
	switch s {
	case Live:
		return "live"
	case Cached:
		return "cached"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// CodedError is an upstream application error that carries an embedded code.
type CodedError interface {
	error
	ErrorInfo() model.ErrorInfo
}

// Result is a served payload.
type Result[T any] struct {
	Value     T
	Status    Status
	FetchedAt time.Time
	Age       time.Duration
}

// Label is the human-readable source line.
func (r *Result[T]) Label() string {
	if r == nil {
		return "No data available"
	}
	switch r.Status {
	case Live:
		return "LIVE"
	case Cached:
		return fmt.Sprintf("Cached (%dmin old)", int(r.Age.Minutes()))
	default:
		return fmt.Sprintf("Stale (%dmin old)", int(r.Age.Minutes()))
	}
}

// FetchFunc performs one upstream call.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configures a Cache. Zero values select the defaults.
type Options struct {
	Staleness time.Duration
	// Quota, when set, is charged for every fetch; non-forced fetches are
	// denied once the budget is spent.
	Quota *quota.Tracker
	// Gate, when set, must return true for a non-forced fetch to proceed.
	Gate    func(now time.Time) bool
	Now     func() time.Time
	Metrics *metrics.Registry
	// OnFetch, when set, is called after every upstream attempt.
	OnFetch func(series string, took time.Duration, err error)
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Cache stores the latest payload of one logical series and decides when
// to refresh it. Get calls are serialized, so at most one fetch per series
// is in flight.
type Cache[T any] struct {
	name  string
	fetch FetchFunc[T]
	opts  Options

	mu        sync.Mutex
	entry     *entry[T]
	lastError *model.ErrorInfo
}

// New creates a cache for series name backed by fetch.
func New[T any](name string, fetch FetchFunc[T], opts Options) *Cache[T] {
	if opts.Staleness <= 0 {
		opts.Staleness = DefaultStaleness
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache[T]{name: name, fetch: fetch, opts: opts}
}

// Name returns the series name.
func (c *Cache[T]) Name() string { return c.name }

// Get serves the stored payload while it is fresh and fetches otherwise.
// force skips the freshness, gate and quota checks; the call is still
// counted. On failure the previous payload, if any, is returned as Stale
// together with the error.
func (c *Cache[T]) Get(ctx context.Context, force bool) (*Result[T], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Now()
	if !force && c.entry != nil {
		if age := now.Sub(c.entry.fetchedAt); age <= c.opts.Staleness {
			log.Debug().Str("series", c.name).Dur("age", age).Msg("serving cached entry")
			c.opts.Metrics.ObserveCache(c.name, Cached.String())
			return c.result(Cached, now), nil
		}
	}

	if !force && c.opts.Gate != nil && !c.opts.Gate(now) {
		return c.fail(now, ErrMarketClosed)
	}
	if c.opts.Quota != nil {
		if force {
			c.opts.Quota.Track(now)
		} else if err := c.opts.Quota.Reserve(now); err != nil {
			log.Warn().Err(err).Str("series", c.name).Msg("fetch denied by quota")
			return c.fail(now, err)
		}
	}
	log.Debug().Str("series", c.name).Bool("force", force).Msg("fetching from upstream")

	started := time.Now()
	v, err := c.fetch(ctx)
	if c.opts.OnFetch != nil {
		c.opts.OnFetch(c.name, time.Since(started), err)
	}
	if err != nil {
		if c.opts.Quota != nil && errors.Is(err, ErrNotSent) {
			c.opts.Quota.Refund(now)
		}
		c.recordFailure(err)
		return c.fail(now, err)
	}

	fetchedAt := c.opts.Now()
	if c.entry != nil && fetchedAt.Before(c.entry.fetchedAt) {
		fetchedAt = c.entry.fetchedAt
	}
	c.entry = &entry[T]{value: v, fetchedAt: fetchedAt}
	c.lastError = nil
	c.opts.Metrics.ObserveCache(c.name, Live.String())
	return &Result[T]{Value: v, Status: Live, FetchedAt: fetchedAt}, nil
}

// Peek returns the stored payload without fetching.
func (c *Cache[T]) Peek() (*Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return nil, false
	}
	return c.result(Cached, c.opts.Now()), true
}

// LastError returns a copy of the most recent upstream error record.
func (c *Cache[T]) LastError() *model.ErrorInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastError == nil {
		return nil
	}
	info := *c.lastError
	return &info
}

// recordFailure updates the error slot. Caller holds mu.
func (c *Cache[T]) recordFailure(err error) {
	var coded CodedError
	if errors.As(err, &coded) {
		info := coded.ErrorInfo()
		c.lastError = &info
		log.Error().Int("code", info.Code).Str("description", info.Description).
			Str("series", c.name).Msg("upstream returned an error code")
		return
	}
	if c.lastError == nil {
		c.lastError = &model.ErrorInfo{}
	}
	c.lastError.Message = err.Error()
	log.Error().Err(err).Str("series", c.name).Msg("upstream fetch failed")
}

// fail builds the failure return. Caller holds mu.
func (c *Cache[T]) fail(now time.Time, err error) (*Result[T], error) {
	if c.entry == nil {
		c.opts.Metrics.ObserveCache(c.name, "empty")
		return nil, fmt.Errorf("%s: %w: %w", c.name, ErrNoData, err)
	}
	c.opts.Metrics.ObserveCache(c.name, Stale.String())
	return c.result(Stale, now), fmt.Errorf("%s: %w", c.name, err)
}

func (c *Cache[T]) result(s Status, now time.Time) *Result[T] {
	age := now.Sub(c.entry.fetchedAt)
	if age < 0 {
		age = 0
	}
	return &Result[T]{Value: c.entry.value, Status: s, FetchedAt: c.entry.fetchedAt, Age: age}
}
