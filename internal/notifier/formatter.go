package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"GoldSentinel/internal/model"
)

// style decorates headings and escapes free text for one output format.
type style struct {
	bold   func(string) string
	escape func(string) string
}

var (
	htmlStyle = style{
		bold:   func(s string) string { return "<b>" + s + "</b>" },
		escape: html.EscapeString,
	}
	plainStyle = style{
		bold:   func(s string) string { return s },
		escape: func(s string) string { return s },
	}
)

var warningIcons = map[string]string{
	"safe":     "🟢",
	"caution":  "🟡",
	"warning":  "🟠",
	"critical": "🔴",
}

// FormatSnapshot formats a snapshot as a Telegram HTML message.
func FormatSnapshot(snap *model.Snapshot) string {
	return formatSnapshot(snap, htmlStyle)
}

// FormatText formats a snapshot for a terminal.
func FormatText(snap *model.Snapshot) string {
	return formatSnapshot(snap, plainStyle)
}

func formatSnapshot(snap *model.Snapshot, st style) string {
	if snap == nil {
		return "No data available\n"
	}
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🪙 %s | %s\n\n", st.bold("GoldSentinel"), snap.GeneratedAt.Format("2006-01-02 15:04")))

	if snap.CurrentPrice > 0 {
		b.WriteString(fmt.Sprintf("Gold: $%.2f\n", snap.CurrentPrice))
		b.WriteString(fmt.Sprintf("Source: %s\n", st.escape(snap.Source)))
		if !snap.PriceDate.IsZero() {
			b.WriteString(fmt.Sprintf("As of: %s\n", snap.PriceDate.Format("2006-01-02 15:04")))
		}
	} else {
		b.WriteString("Gold: no price available\n")
	}
	market := "CLOSED"
	if snap.Schedule.Open {
		market = "OPEN"
	}
	b.WriteString(fmt.Sprintf("Market: %s\n", market))

	if len(snap.Metals) > 0 {
		b.WriteString("\n" + st.bold("Metals:") + "\n")
		for _, q := range snap.Metals {
			b.WriteString(fmt.Sprintf("  %s: %.2f (%s)\n", st.escape(q.Name), q.Price, model.FormatPercent(q.ChangePercent)))
		}
	}

	if len(snap.Indicators) > 0 {
		b.WriteString("\n" + st.bold("Indicators:") + "\n")
		for _, r := range snap.Indicators {
			line := fmt.Sprintf("  %s %s: %s [%s]", r.Icon, r.Indicator, r.Value, r.Category)
			if r.Extra != "" {
				line += " " + r.Extra
			}
			b.WriteString(line + "\n")
		}
	}

	if s := snap.Sentiment; s != nil {
		b.WriteString(fmt.Sprintf("\n%s %s %s (%+.2f)\n", st.bold("Technical:"), s.Icon, s.Category, s.Score))
	}

	if m := snap.MacroImpact; m != nil {
		b.WriteString(fmt.Sprintf("\n%s %+.2f → %s (%.0f%%)\n", st.bold("Macro:"), m.Score, m.Recommendation, m.Confidence))
		for _, sig := range m.Signals {
			b.WriteString("  • " + st.escape(sig) + "\n")
		}
	}

	if v := snap.Verdict; v.Action != "" {
		b.WriteString(fmt.Sprintf("\n💡 %s %s (score %+.2f, confidence %.0f%%)\n", st.bold("Verdict:"), v.Action, v.Score, v.Confidence))
		if v.Basis != "" {
			b.WriteString("   " + st.escape(v.Basis) + "\n")
		}
	}

	if len(snap.Warnings) > 0 {
		b.WriteString("\n⚠️ " + st.bold("Warnings:") + "\n")
		for _, w := range snap.Warnings {
			b.WriteString("  - " + st.escape(w) + "\n")
		}
	}
	if e := snap.LastError; e != nil {
		b.WriteString(fmt.Sprintf("\nLast API error: %s\n", st.escape(formatError(e))))
	}

	b.WriteString("\n" + quotaLine(snap.Quota) + "\n")
	return b.String()
}

func formatError(e *model.ErrorInfo) string {
	switch {
	case e.Code != 0 && e.Message != "":
		return fmt.Sprintf("%d %s (%s)", e.Code, e.Description, e.Message)
	case e.Code != 0:
		return fmt.Sprintf("%d %s", e.Code, e.Description)
	default:
		return e.Message
	}
}

func quotaLine(q model.QuotaStatus) string {
	return fmt.Sprintf("%s API: %d today, %d/%d this month",
		warningIcons[q.WarningLevel], q.CallsToday, q.CallsThisMonth, q.MonthlyLimit)
}

// FormatQuota formats call budget consumption.
func FormatQuota(q model.QuotaStatus) string {
	var b strings.Builder
	b.WriteString("📦 <b>API quota</b>\n\n")
	b.WriteString(fmt.Sprintf("Today: %d (budget %.1f)\n", q.CallsToday, q.DailyBudget))
	b.WriteString(fmt.Sprintf("This month: %d / %d (%.1f%%)\n", q.CallsThisMonth, q.MonthlyLimit, q.UsedPercent))
	b.WriteString(fmt.Sprintf("Remaining: %d\n", q.Remaining))
	b.WriteString(fmt.Sprintf("Projected: %d\n", q.EstimatedMonthly))
	b.WriteString(fmt.Sprintf("Level: %s %s\n", warningIcons[q.WarningLevel], q.WarningLevel))
	if !q.LastCallDate.IsZero() {
		b.WriteString(fmt.Sprintf("Last call: %s\n", q.LastCallDate.Format("2006-01-02 15:04")))
	}
	return b.String()
}

// FormatSchedule formats trading-window state and polling advice.
func FormatSchedule(s model.ScheduleInfo) string {
	var b strings.Builder
	b.WriteString("🕒 <b>Schedule</b>\n\n")
	state := "closed"
	if s.Open {
		state = "open"
	}
	b.WriteString(fmt.Sprintf("Market: %s (%s)\n", state, s.LocalTime.Format("Mon 15:04 MST")))
	b.WriteString(fmt.Sprintf("Trading days left: %d\n", s.TradingDaysRemaining))
	if s.Interval > 0 {
		b.WriteString(fmt.Sprintf("Requests/day: %.1f, per hour: %.2f\n", s.RequestsPerTradingDay, s.RequestsPerHour))
		b.WriteString(fmt.Sprintf("Suggested interval: %s\n", s.Interval.Round(time.Minute)))
	}
	return b.String()
}
