package model

import "time"

// IndicatorRow is an indicator formatted for display.
type IndicatorRow struct {
	Indicator string `json:"indicator"`
	Value     string `json:"value"`
	Category  string `json:"category"`
	Icon      string `json:"icon"`
	Type      string `json:"type"`
	Extra     string `json:"extra,omitempty"`
}

// SentimentView is the overall technical sentiment for display.
type SentimentView struct {
	Category string  `json:"category"`
	Icon     string  `json:"icon"`
	Score    float64 `json:"score"`
}

// Snapshot is everything a display sink needs for one refresh.
type Snapshot struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	CurrentPrice float64        `json:"current_price"`
	PriceDate    time.Time      `json:"price_date"`
	Source       string         `json:"source"`
	Metals       []Quote        `json:"metals"`
	Macro        []Quote        `json:"macro"`
	Indicators   []IndicatorRow `json:"indicators"`
	Sentiment    *SentimentView `json:"sentiment,omitempty"`
	MacroImpact  *MacroImpact   `json:"macro_impact,omitempty"`
	Verdict      Verdict        `json:"verdict"`
	Quota        QuotaStatus    `json:"quota"`
	Schedule     ScheduleInfo   `json:"schedule"`
	LastError    *ErrorInfo     `json:"last_error"`
	Warnings     []string       `json:"warnings,omitempty"`
}
