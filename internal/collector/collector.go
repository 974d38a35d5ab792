package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"GoldSentinel/internal/cache"
	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/quota"
	"GoldSentinel/internal/strategy"
)

// ErrNoPrice is returned when neither the spot board nor the history
// produced a current price.
var ErrNoPrice = errors.New("no current price available")

// Planner reports trading state and polling advice.
type Planner interface {
	Info(now time.Time) model.ScheduleInfo
}

// Sources are the upstreams a Collector reads. Macro may be nil.
type Sources struct {
	Spot   SpotSource
	Series SeriesSource
	Macro  MacroSource
}

// Options selects what a Collector fetches and how it scores it.
type Options struct {
	SpotType       string
	Product        string
	Granularity    model.Granularity
	Limit          int
	Indicators     strategy.IndicatorSet
	Weights        map[string]float64
	Instruments    []model.Instrument
	Macro          strategy.MacroOptions
	TechnicalShare float64
	Staleness      time.Duration
	// OnFetch is passed to every series cache.
	OnFetch func(series string, took time.Duration, err error)
}

// Collector orchestrates cached data fetching, indicator computation and
// fusion into a Snapshot.
type Collector struct {
	spot    *cache.Cache[*model.SpotBoard]
	history *cache.Cache[*model.PriceSeries]
	macro   *cache.Cache[[]model.Quote]

	quota   *quota.Tracker
	planner Planner
	metrics *metrics.Registry
	now     func() time.Time
	opts    Options
}

// NewCollector wires one cache per series. Spot and history calls are
// charged to tracker; spot fetches are additionally gated by the planner's
// trading window.
func NewCollector(src Sources, tracker *quota.Tracker, planner Planner, m *metrics.Registry, opts Options) *Collector {
	c := &Collector{
		quota:   tracker,
		planner: planner,
		metrics: m,
		now:     time.Now,
		opts:    opts,
	}
	gate := func(now time.Time) bool { return planner.Info(now).Open }

	c.spot = cache.New("spot", src.Spot.FetchSpot, cache.Options{
		Staleness: opts.Staleness,
		Quota:     tracker,
		Gate:      gate,
		Now:       c.clock,
		Metrics:   m,
		OnFetch:   opts.OnFetch,
	})
	c.history = cache.New("history", func(ctx context.Context) (*model.PriceSeries, error) {
		return src.Series.FetchSeries(ctx, opts.Product, opts.Granularity, opts.Limit)
	}, cache.Options{
		Staleness: opts.Staleness,
		Quota:     tracker,
		Now:       c.clock,
		Metrics:   m,
		OnFetch:   opts.OnFetch,
	})
	if src.Macro != nil && len(opts.Instruments) > 0 {
		c.macro = cache.New("macro", func(ctx context.Context) ([]model.Quote, error) {
			return src.Macro.FetchAll(ctx, opts.Instruments)
		}, cache.Options{
			Staleness: opts.Staleness,
			Now:       c.clock,
			Metrics:   m,
			OnFetch:   opts.OnFetch,
		})
	}
	return c
}

// SetClock replaces the time source, mainly for tests.
func (c *Collector) SetClock(now func() time.Time) { c.now = now }

func (c *Collector) clock() time.Time { return c.now() }

// Quota reports the call budget at the current time.
func (c *Collector) Quota() model.QuotaStatus { return c.quota.Status(c.now()) }

// Schedule reports the trading window and polling advice at the current time.
func (c *Collector) Schedule() model.ScheduleInfo { return c.planner.Info(c.now()) }

// Collect builds a snapshot. Upstream failures degrade the snapshot and are
// listed in its warnings; the error is non-nil only when no price at all
// could be produced.
func (c *Collector) Collect(ctx context.Context, force bool) (*model.Snapshot, error) {
	var (
		spotRes  *cache.Result[*model.SpotBoard]
		histRes  *cache.Result[*model.PriceSeries]
		macroRes *cache.Result[[]model.Quote]
		spotErr  error
		histErr  error
		macroErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		spotRes, spotErr = c.spot.Get(gctx, force)
		return nil
	})
	g.Go(func() error {
		histRes, histErr = c.history.Get(gctx, force)
		return nil
	})
	if c.macro != nil {
		g.Go(func() error {
			macroRes, macroErr = c.macro.Get(gctx, force)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := c.now()
	snap := &model.Snapshot{
		GeneratedAt: now,
		Source:      "No data available",
		Quota:       c.quota.Status(now),
		Schedule:    c.planner.Info(now),
	}
	warn := func(err error) {
		if err != nil {
			snap.Warnings = append(snap.Warnings, err.Error())
		}
	}

	warn(spotErr)
	if spotRes != nil {
		snap.Source = spotRes.Label()
		for _, it := range spotRes.Value.Items {
			snap.Metals = append(snap.Metals, it.Quote(spotRes.Label(), spotRes.FetchedAt))
		}
		if row, ok := spotRes.Value.Find(c.opts.SpotType); ok {
			snap.CurrentPrice = row.Price
			snap.PriceDate = spotRes.FetchedAt
		}
	}

	warn(histErr)
	var tech model.SentimentScore
	if histRes != nil {
		results := strategy.Analyze(histRes.Value, c.opts.Indicators)
		snap.Indicators = strategy.Rows(results)
		tech = strategy.FuseTechnical(results, c.opts.Weights)
		snap.Sentiment = &model.SentimentView{
			Category: tech.Category.String(),
			Icon:     tech.Icon,
			Score:    tech.WeightedAverage,
		}
		if last, ok := histRes.Value.Last(); ok && snap.CurrentPrice == 0 {
			snap.CurrentPrice = last.Close
			snap.PriceDate = last.Date
			snap.Source = fmt.Sprintf("Historical close (%s)", histRes.Label())
		}
	}

	warn(macroErr)
	if macroRes != nil {
		snap.Macro = macroRes.Value
		snap.MacroImpact = strategy.FuseMacro(macroRes.Value, c.opts.Instruments, c.opts.Macro)
	}

	snap.Verdict = strategy.Decide(tech, snap.MacroImpact, c.opts.TechnicalShare, c.opts.Macro.ActionThreshold)

	snap.LastError = c.spot.LastError()
	if snap.LastError == nil {
		snap.LastError = c.history.LastError()
	}
	if snap.LastError == nil && c.macro != nil {
		snap.LastError = c.macro.LastError()
	}

	c.publish(snap, tech)

	log.Info().
		Float64("price", snap.CurrentPrice).
		Str("source", snap.Source).
		Str("sentiment", tech.Category.String()).
		Str("verdict", string(snap.Verdict.Action)).
		Float64("confidence", snap.Verdict.Confidence).
		Int("warnings", len(snap.Warnings)).
		Msg("snapshot collected")

	if snap.CurrentPrice == 0 {
		return snap, ErrNoPrice
	}
	return snap, nil
}

func (c *Collector) publish(snap *model.Snapshot, tech model.SentimentScore) {
	c.metrics.SetQuota(snap.Quota.CallsToday, snap.Quota.CallsThisMonth, snap.Quota.Remaining)
	c.metrics.SetMarketOpen(snap.Schedule.Open)
	c.metrics.SetScore("technical", tech.WeightedAverage)
	if snap.MacroImpact != nil {
		c.metrics.SetScore("macro", snap.MacroImpact.Score)
	}
	c.metrics.SetScore("verdict", snap.Verdict.Score)
}
