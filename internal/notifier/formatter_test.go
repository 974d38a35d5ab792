package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"GoldSentinel/internal/model"
)

func sampleSnapshot() *model.Snapshot {
	pct := 0.45
	return &model.Snapshot{
		GeneratedAt:  time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC),
		CurrentPrice: 2345.67,
		Source:       "LIVE",
		Metals:       []model.Quote{{Symbol: "1051", Name: "Gold", Price: 2345.67, ChangePercent: &pct}},
		Indicators: []model.IndicatorRow{
			{Indicator: "MA5", Value: "$2300.00", Category: "Buy", Icon: "🟢", Extra: "+1.98%"},
		},
		Sentiment:   &model.SentimentView{Category: "Buy", Icon: "🟢", Score: 0.8},
		MacroImpact: &model.MacroImpact{Score: -0.07, Recommendation: model.RecommendHold, Signals: []string{"DXY: -0.50% - bullish for gold"}},
		Verdict:     model.Verdict{Action: model.RecommendBuy, Score: 0.55, Confidence: 40, Basis: "technical 70% / macro 30%"},
		Schedule:    model.ScheduleInfo{Open: true},
		Quota:       model.QuotaStatus{CallsToday: 3, CallsThisMonth: 40, MonthlyLimit: 600, WarningLevel: "safe"},
		LastError:   &model.ErrorInfo{Code: 10007, Description: "Request limit exceeded"},
		Warnings:    []string{"macro: <timeout>"},
	}
}

func TestFormatSnapshot_HTML(t *testing.T) {
	msg := FormatSnapshot(sampleSnapshot())

	assert.Contains(t, msg, "<b>GoldSentinel</b>")
	assert.Contains(t, msg, "Gold: $2345.67")
	assert.Contains(t, msg, "Market: OPEN")
	assert.Contains(t, msg, "Gold: 2345.67 (+0.45%)")
	assert.Contains(t, msg, "🟢 MA5: $2300.00 [Buy] +1.98%")
	assert.Contains(t, msg, "BUY (score +0.55, confidence 40%)")
	assert.Contains(t, msg, "DXY: -0.50% - bullish for gold")
	assert.Contains(t, msg, "10007 Request limit exceeded")
	assert.Contains(t, msg, "3 today, 40/600 this month")
	// Free text is escaped for Telegram HTML.
	assert.Contains(t, msg, "macro: &lt;timeout&gt;")
}

func TestFormatText_Plain(t *testing.T) {
	msg := FormatText(sampleSnapshot())

	assert.NotContains(t, msg, "<b>")
	assert.Contains(t, msg, "macro: <timeout>")
}

func TestFormatSnapshot_NoPrice(t *testing.T) {
	msg := FormatText(&model.Snapshot{LastError: &model.ErrorInfo{Message: "dial tcp: timeout"}})

	assert.Contains(t, msg, "no price available")
	assert.Contains(t, msg, "Market: CLOSED")
	assert.Contains(t, msg, "Last API error: dial tcp: timeout")
	assert.Equal(t, "No data available\n", FormatText(nil))
}

func TestFormatQuotaAndSchedule(t *testing.T) {
	q := FormatQuota(model.QuotaStatus{CallsToday: 5, DailyBudget: 20, CallsThisMonth: 480, MonthlyLimit: 600, UsedPercent: 80, Remaining: 120, WarningLevel: "warning"})
	assert.Contains(t, q, "480 / 600 (80.0%)")
	assert.Contains(t, q, "Remaining: 120")
	assert.Contains(t, q, "🟠 warning")

	s := FormatSchedule(model.ScheduleInfo{
		LocalTime:             time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC),
		TradingDaysRemaining:  14,
		RequestsPerTradingDay: 27.27,
		RequestsPerHour:       1.14,
		Interval:              52*time.Minute + 48*time.Second,
	})
	assert.Contains(t, s, "Market: closed (Sat 12:00 UTC)")
	assert.Contains(t, s, "Suggested interval: 53m0s")
}
