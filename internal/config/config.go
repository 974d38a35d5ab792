package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"GoldSentinel/internal/model"
)

// Instrument is configured under macro.instruments.
type Instrument = model.Instrument

// Crossover is a fast/slow moving-average pair.
type Crossover struct {
	Fast int `yaml:"fast"`
	Slow int `yaml:"slow"`
}

// Config holds all application configuration.
type Config struct {
	API struct {
		SpotURL    string `yaml:"spot_url"`
		HistoryURL string `yaml:"history_url"`
		Key        string `yaml:"key"`
		TimeoutSec int    `yaml:"timeout_sec"`
		// SpotType is the board row treated as the primary price.
		SpotType string `yaml:"spot_type"`
	} `yaml:"api"`
	Quota struct {
		MonthlyLimit int     `yaml:"monthly_limit"`
		DaysInMonth  int     `yaml:"days_in_month"`
		DailyBuffer  float64 `yaml:"daily_buffer"`
	} `yaml:"quota"`
	Cache struct {
		StalenessMinutes int `yaml:"staleness_minutes"`
	} `yaml:"cache"`
	Market struct {
		Timezone            string  `yaml:"timezone"`
		CloseDay            string  `yaml:"close_day"`
		CloseHour           int     `yaml:"close_hour"`
		OpenDay             string  `yaml:"open_day"`
		OpenHour            int     `yaml:"open_hour"`
		TradingDaysPerMonth float64 `yaml:"trading_days_per_month"`
		TradingHoursPerDay  float64 `yaml:"trading_hours_per_day"`
	} `yaml:"market"`
	History struct {
		Product     string `yaml:"product"`
		Granularity string `yaml:"granularity"`
		Limit       int    `yaml:"limit"`
	} `yaml:"history"`
	Indicators struct {
		MAPeriods  []int       `yaml:"ma_periods"`
		Crossovers []Crossover `yaml:"crossovers"`
		CCIPeriod  int         `yaml:"cci_period"`
	} `yaml:"indicators"`
	Weights map[string]float64 `yaml:"weights"`
	Macro   struct {
		Enabled         bool         `yaml:"enabled"`
		BaseURL         string       `yaml:"base_url"`
		Instruments     []Instrument `yaml:"instruments"`
		SignificantMove float64      `yaml:"significant_move"`
		ActionThreshold float64      `yaml:"action_threshold"`
		TechnicalShare  float64      `yaml:"technical_share"`
		RequestsPerSec  float64      `yaml:"requests_per_sec"`
		Concurrency     int          `yaml:"concurrency"`
	} `yaml:"macro"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		ReportCron  string `yaml:"report_cron"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Metrics struct {
		Listen string `yaml:"listen"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// DefaultWeights is the technical fusion weight table.
// MA20-MA40 carries the most weight as the primary trend signal.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		"CCI-20":    15,
		"MA5":       2,
		"MA20":      8,
		"MA40":      10,
		"MA60":      10,
		"MA5-MA10":  8,
		"MA10-MA20": 12,
		"MA20-MA40": 20,
		"MA20-MA60": 18,
		"MA40-MA60": 5,
	}
}

// DefaultInstruments are the macro instruments tracked against gold.
func DefaultInstruments() []Instrument {
	return []Instrument{
		{Key: ".DXY", Symbol: "DXY", Name: "US Dollar Index", Impact: "inverse", Weight: 0.25},
		{Key: "US10Y", Symbol: "US10Y", Name: "10-Year Treasury Yield", Impact: "inverse", Weight: 0.20, YieldLike: true},
		{Key: "US10YTIP", Symbol: "TIPS", Name: "10-Year TIPS Yield", Impact: "inverse", Weight: 0.22, YieldLike: true},
		{Key: "VIX", Symbol: "VIX", Name: "Volatility Index", Impact: "positive", Weight: 0.18},
		{Key: "GLD", Symbol: "GLD", Name: "Gold ETF", Impact: "positive", Weight: 0.15},
	}
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.Macro.Enabled = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TANSHU_API_KEY"); v != "" {
		cfg.API.Key = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("MONTHLY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quota.MonthlyLimit = n
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := os.Getenv("MACRO_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			cfg.Macro.Enabled = true
		case "0", "false", "no":
			cfg.Macro.Enabled = false
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.SpotURL == "" {
		cfg.API.SpotURL = "https://api.tanshuapi.com/api/gold/v1/london"
	}
	if cfg.API.HistoryURL == "" {
		cfg.API.HistoryURL = "https://api.tanshuapi.com/api/precious_metals_history/v1/kline_data"
	}
	if cfg.API.TimeoutSec == 0 {
		cfg.API.TimeoutSec = 10
	}
	if cfg.API.SpotType == "" {
		cfg.API.SpotType = "伦敦金"
	}
	if cfg.Quota.MonthlyLimit == 0 {
		cfg.Quota.MonthlyLimit = 600
	}
	if cfg.Quota.DaysInMonth == 0 {
		cfg.Quota.DaysInMonth = 30
	}
	if cfg.Quota.DailyBuffer == 0 {
		cfg.Quota.DailyBuffer = 1.5
	}
	if cfg.Cache.StalenessMinutes == 0 {
		cfg.Cache.StalenessMinutes = 30
	}
	if cfg.Market.Timezone == "" {
		cfg.Market.Timezone = "Europe/London"
	}
	if cfg.Market.CloseDay == "" {
		cfg.Market.CloseDay = "friday"
		cfg.Market.CloseHour = 22
	}
	if cfg.Market.OpenDay == "" {
		cfg.Market.OpenDay = "sunday"
		cfg.Market.OpenHour = 22
	}
	if cfg.Market.TradingDaysPerMonth == 0 {
		cfg.Market.TradingDaysPerMonth = 22
	}
	if cfg.Market.TradingHoursPerDay == 0 {
		cfg.Market.TradingHoursPerDay = 24
	}
	if cfg.History.Product == "" {
		cfg.History.Product = "XAU"
	}
	if cfg.History.Granularity == "" {
		cfg.History.Granularity = "daily"
	}
	if cfg.History.Limit == 0 {
		cfg.History.Limit = 80
	}
	if len(cfg.Indicators.MAPeriods) == 0 {
		cfg.Indicators.MAPeriods = []int{5, 20, 40, 60}
	}
	if len(cfg.Indicators.Crossovers) == 0 {
		cfg.Indicators.Crossovers = []Crossover{{5, 10}, {10, 20}, {20, 40}, {20, 60}, {40, 60}}
	}
	if cfg.Indicators.CCIPeriod == 0 {
		cfg.Indicators.CCIPeriod = 20
	}
	if len(cfg.Weights) == 0 {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Macro.BaseURL == "" {
		cfg.Macro.BaseURL = "https://www.cnbc.com/quotes/"
	}
	if len(cfg.Macro.Instruments) == 0 {
		cfg.Macro.Instruments = DefaultInstruments()
	}
	if cfg.Macro.SignificantMove == 0 {
		cfg.Macro.SignificantMove = 0.5
	}
	if cfg.Macro.ActionThreshold == 0 {
		cfg.Macro.ActionThreshold = 0.3
	}
	if cfg.Macro.TechnicalShare == 0 {
		cfg.Macro.TechnicalShare = 0.5
	}
	if cfg.Macro.RequestsPerSec == 0 {
		cfg.Macro.RequestsPerSec = 1
	}
	if cfg.Macro.Concurrency == 0 {
		cfg.Macro.Concurrency = 2
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 0 */2 * * *"
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 0 8 * * 1-5"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.Quota.MonthlyLimit <= 0 {
		return fmt.Errorf("quota.monthly_limit must be positive")
	}
	if c.Quota.DaysInMonth <= 0 || c.Quota.DaysInMonth > 31 {
		return fmt.Errorf("quota.days_in_month must be between 1 and 31")
	}
	if c.Quota.DailyBuffer < 1 {
		return fmt.Errorf("quota.daily_buffer must be at least 1")
	}
	if c.Cache.StalenessMinutes < 0 {
		return fmt.Errorf("cache.staleness_minutes must not be negative")
	}
	if _, err := time.LoadLocation(c.Market.Timezone); err != nil {
		return fmt.Errorf("market.timezone: %w", err)
	}
	if _, ok := ParseWeekday(c.Market.CloseDay); !ok {
		return fmt.Errorf("market.close_day %q is not a weekday", c.Market.CloseDay)
	}
	if _, ok := ParseWeekday(c.Market.OpenDay); !ok {
		return fmt.Errorf("market.open_day %q is not a weekday", c.Market.OpenDay)
	}
	if c.Market.CloseHour < 0 || c.Market.CloseHour > 23 || c.Market.OpenHour < 0 || c.Market.OpenHour > 23 {
		return fmt.Errorf("market hours must be between 0 and 23")
	}
	if c.Market.TradingDaysPerMonth <= 0 || c.Market.TradingHoursPerDay <= 0 {
		return fmt.Errorf("market trading days and hours must be positive")
	}
	if c.History.Limit < 1 || c.History.Limit > 1000 {
		return fmt.Errorf("history.limit must be between 1 and 1000")
	}
	if _, ok := model.HistoryProducts[c.History.Product]; !ok {
		return fmt.Errorf("history.product %q is not a known product code", c.History.Product)
	}
	if _, ok := model.ParseGranularity(c.History.Granularity); !ok {
		return fmt.Errorf("history.granularity %q is not daily, weekly or monthly", c.History.Granularity)
	}
	for _, p := range c.Indicators.MAPeriods {
		if p <= 0 {
			return fmt.Errorf("indicators.ma_periods must be positive, got %d", p)
		}
	}
	for _, x := range c.Indicators.Crossovers {
		if x.Fast <= 0 || x.Slow <= x.Fast {
			return fmt.Errorf("indicators.crossovers: invalid pair %d/%d", x.Fast, x.Slow)
		}
	}
	if c.Indicators.CCIPeriod <= 0 {
		return fmt.Errorf("indicators.cci_period must be positive")
	}
	for name, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("weights.%s must not be negative", name)
		}
	}
	for _, in := range c.Macro.Instruments {
		if in.Key == "" || in.Symbol == "" {
			return fmt.Errorf("macro instrument needs key and symbol")
		}
		if in.Impact != model.ImpactInverse && in.Impact != model.ImpactPositive {
			return fmt.Errorf("macro instrument %s: impact must be inverse or positive", in.Key)
		}
		if in.Weight < 0 {
			return fmt.Errorf("macro instrument %s: weight must not be negative", in.Key)
		}
	}
	if c.Macro.TechnicalShare < 0 || c.Macro.TechnicalShare > 1 {
		return fmt.Errorf("macro.technical_share must be between 0 and 1")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// Staleness returns the cache staleness threshold.
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.Cache.StalenessMinutes) * time.Minute
}

// Timeout returns the upstream request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// ParseWeekday accepts English weekday names, case-insensitive.
func ParseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, true
		}
	}
	return 0, false
}
