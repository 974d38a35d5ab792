package model

import "time"

// ErrorInfo describes the most recent upstream application error.
type ErrorInfo struct {
	Code        int
	Description string
	Message     string
}

// QuotaStatus reports call budget consumption.
type QuotaStatus struct {
	CallsToday       int
	CallsThisMonth   int
	MonthlyLimit     int
	DailyBudget      float64
	Remaining        int
	UsedPercent      float64
	EstimatedMonthly int
	WarningLevel     string // safe, caution, warning, critical
	LastCallDate     time.Time
}

// ScheduleInfo is the trading-window and polling advice at one instant.
type ScheduleInfo struct {
	Open                  bool
	LocalTime             time.Time
	TradingHoursPerDay    float64
	TradingDaysRemaining  int
	RequestsPerTradingDay float64
	RequestsPerHour       float64
	Interval              time.Duration
}
