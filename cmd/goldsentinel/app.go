package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"GoldSentinel/internal/collector"
	"GoldSentinel/internal/config"
	"GoldSentinel/internal/metrics"
	"GoldSentinel/internal/model"
	"GoldSentinel/internal/notifier"
	"GoldSentinel/internal/quota"
	"GoldSentinel/internal/recorder"
	"GoldSentinel/internal/scheduler"
	"GoldSentinel/internal/strategy"
)

// app holds the wired components shared by every command.
type app struct {
	cfg       *config.Config
	collector *collector.Collector
	planner   scheduler.Planner
	metrics   *metrics.Registry
	recorder  recorder.Recorder
	telegram  *notifier.TelegramNotifier
}

func newPlanner(cfg *config.Config) (scheduler.Planner, error) {
	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return scheduler.Planner{}, fmt.Errorf("load timezone: %w", err)
	}
	closeDay, _ := config.ParseWeekday(cfg.Market.CloseDay)
	openDay, _ := config.ParseWeekday(cfg.Market.OpenDay)
	return scheduler.Planner{
		Window: scheduler.Window{
			Location:  loc,
			CloseDay:  closeDay,
			CloseHour: cfg.Market.CloseHour,
			OpenDay:   openDay,
			OpenHour:  cfg.Market.OpenHour,
		},
		MonthlyLimit:        cfg.Quota.MonthlyLimit,
		TradingDaysPerMonth: cfg.Market.TradingDaysPerMonth,
		TradingHoursPerDay:  cfg.Market.TradingHoursPerDay,
		DaysInMonth:         cfg.Quota.DaysInMonth,
	}, nil
}

func newSources(cfg *config.Config, m *metrics.Registry, mock bool) collector.Sources {
	if mock {
		src := &collector.MockSource{Price: 2350, Quotes: mockQuotes(cfg.Macro.Instruments)}
		log.Info().Msg("data source: mock")
		return collector.Sources{Spot: src, Series: src, Macro: src}
	}

	httpClient := collector.NewHTTPClient(cfg.Proxy, cfg.Timeout())
	tanshu := collector.NewTanshuClient(cfg.API.Key,
		collector.WithSpotURL(cfg.API.SpotURL),
		collector.WithHistoryURL(cfg.API.HistoryURL),
		collector.WithHTTPClient(httpClient),
		collector.WithMetrics(m),
	)
	src := collector.Sources{Spot: tanshu, Series: tanshu}
	if cfg.Macro.Enabled {
		src.Macro = collector.NewCNBCScraper(cfg.Macro.Instruments,
			collector.WithCNBCBaseURL(cfg.Macro.BaseURL),
			collector.WithCNBCHTTPClient(collector.NewHTTPClient(cfg.Proxy, 0)),
			collector.WithRateLimit(cfg.Macro.RequestsPerSec),
			collector.WithConcurrency(cfg.Macro.Concurrency),
			collector.WithCNBCMetrics(m),
		)
	}
	log.Info().Str("spot", tanshu.Name()).Bool("macro", src.Macro != nil).Msg("data sources ready")
	return src
}

// mockQuotes gives each instrument a small deterministic move.
func mockQuotes(instruments []model.Instrument) map[string]model.Quote {
	out := make(map[string]model.Quote, len(instruments))
	for i, in := range instruments {
		pct := 0.2 * float64(i%3-1)
		out[in.Key] = model.Quote{Symbol: in.Symbol, Name: in.Name, Price: 100, ChangePercent: &pct, Source: "mock"}
	}
	return out
}

func newRecorder(path string) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newApp(cfg *config.Config, mock bool) (*app, error) {
	planner, err := newPlanner(cfg)
	if err != nil {
		return nil, err
	}
	granularity, _ := model.ParseGranularity(cfg.History.Granularity)

	a := &app{
		cfg:      cfg,
		planner:  planner,
		metrics:  metrics.New(),
		recorder: newRecorder(cfg.Database.SQLitePath),
	}
	if cfg.Telegram.BotToken != "" {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	pairs := make([]strategy.Pair, 0, len(cfg.Indicators.Crossovers))
	for _, x := range cfg.Indicators.Crossovers {
		pairs = append(pairs, strategy.Pair{Fast: x.Fast, Slow: x.Slow})
	}

	var instruments []model.Instrument
	if cfg.Macro.Enabled {
		instruments = cfg.Macro.Instruments
	}

	tracker := quota.NewTracker(cfg.Quota.MonthlyLimit, cfg.Quota.DaysInMonth, cfg.Quota.DailyBuffer)
	a.collector = collector.NewCollector(newSources(cfg, a.metrics, mock), tracker, planner, a.metrics, collector.Options{
		SpotType:    cfg.API.SpotType,
		Product:     cfg.History.Product,
		Granularity: granularity,
		Limit:       cfg.History.Limit,
		Indicators: strategy.IndicatorSet{
			MAPeriods:  cfg.Indicators.MAPeriods,
			Crossovers: pairs,
			CCIPeriod:  cfg.Indicators.CCIPeriod,
		},
		Weights:     cfg.Weights,
		Instruments: instruments,
		Macro: strategy.MacroOptions{
			SignificantMove: cfg.Macro.SignificantMove,
			ActionThreshold: cfg.Macro.ActionThreshold,
		},
		TechnicalShare: cfg.Macro.TechnicalShare,
		Staleness:      cfg.Staleness(),
		OnFetch:        recorder.FetchHook(a.recorder),
	})
	return a, nil
}

func (a *app) Close() {
	if err := a.recorder.Close(); err != nil {
		log.Warn().Err(err).Msg("close recorder")
	}
}
