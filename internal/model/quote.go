package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Quote is the normalized snapshot of one instrument. Optional fields are nil
// when the source could not resolve them.
type Quote struct {
	Symbol        string
	Name          string
	Price         float64
	Change        *float64
	ChangePercent *float64
	DayHigh       *float64
	DayLow        *float64
	PrevClose     *float64
	Timestamp     time.Time
	Source        string
}

// MetalQuote is one row of the precious-metals spot board.
type MetalQuote struct {
	Type          string
	Name          string
	Price         float64
	ChangeAmount  string
	ChangePercent string
	Open          string
	High          string
	Low           string
	PrevClose     string
	UpdateTime    string
}

// Quote converts the spot row into the common quote shape.
func (m MetalQuote) Quote(source string, at time.Time) Quote {
	q := Quote{
		Symbol:    m.Type,
		Name:      m.Name,
		Price:     m.Price,
		Timestamp: at,
		Source:    source,
	}
	q.Change = ParseNumber(m.ChangeAmount)
	q.ChangePercent = ParsePercent(m.ChangePercent)
	q.DayHigh = ParseNumber(m.High)
	q.DayLow = ParseNumber(m.Low)
	q.PrevClose = ParseNumber(m.PrevClose)
	return q
}

// SpotBoard is the decoded spot quotes document.
type SpotBoard struct {
	Items     []MetalQuote
	FetchedAt time.Time
}

// Find returns the row with the given type.
func (b *SpotBoard) Find(typ string) (MetalQuote, bool) {
	if b == nil {
		return MetalQuote{}, false
	}
	for _, it := range b.Items {
		if it.Type == typ {
			return it, true
		}
	}
	return MetalQuote{}, false
}

// ParsePercent parses strings such as "+0.45%", "-1.2" or "0.3 %".
// It returns nil for anything it cannot read.
func ParsePercent(s string) *float64 {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	return ParseNumber(s)
}

// ParseNumber parses a possibly signed, comma-grouped, currency-prefixed number.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(",", "", "$", "", "£", "", "+", "").Replace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// FormatPercent renders an optional percentage for display.
func FormatPercent(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", *p)
}
