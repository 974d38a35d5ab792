package model

import "time"

// Granularity selects the bar size of a historical series.
type Granularity int

const (
	Daily   Granularity = 1
	Weekly  Granularity = 2
	Monthly Granularity = 3
)

// String returns the lower-case name of the granularity.
func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Valid reports whether g is one of the supported bar sizes.
func (g Granularity) Valid() bool {
	return g >= Daily && g <= Monthly
}

// ParseGranularity accepts either the name ("daily") or the wire value ("1").
func ParseGranularity(s string) (Granularity, bool) {
	switch s {
	case "daily", "1":
		return Daily, true
	case "weekly", "2":
		return Weekly, true
	case "monthly", "3":
		return Monthly, true
	}
	return 0, false
}

// Bar is a single historical record.
type Bar struct {
	Date  time.Time
	High  float64
	Low   float64
	Close float64
}

// PriceSeries holds bars for one product in ascending chronological order.
// It is not modified after construction.
type PriceSeries struct {
	Product     string
	Granularity Granularity
	Bars        []Bar
	FetchedAt   time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close prices in order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, s.Len())
	if s == nil {
		return out
	}
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high prices in order.
func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, s.Len())
	if s == nil {
		return out
	}
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low prices in order.
func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, s.Len())
	if s == nil {
		return out
	}
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Last returns the most recent bar.
func (s *PriceSeries) Last() (Bar, bool) {
	if s.Len() == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// HistoryProducts lists the product codes the history endpoint serves, with
// their English names.
var HistoryProducts = map[string]string{
	"XAU":    "International Gold",
	"XAG":    "International Silver",
	"XPT":    "International Platinum",
	"XPD":    "International Palladium",
	"HKD":    "Hong Kong Gold",
	"TWAU":   "Taiwan Gold",
	"Au9995": "Gold 9995",
	"Au9999": "Gold 9999",
	"Au100g": "100g Gold Bar",
	"PT9995": "Platinum 9995",
	"Ag9999": "Silver 9999",
	"AuT+D":  "Gold Deferred",
	"AgT+D":  "Silver Deferred",
}
