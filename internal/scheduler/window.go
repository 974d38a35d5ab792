package scheduler

import (
	"math"
	"time"

	"GoldSentinel/internal/model"
)

const minutesPerWeek = 7 * 24 * 60

// Window is the weekly trading window of the primary market. The market is
// closed from Close until the following Open and open otherwise.
type Window struct {
	Location  *time.Location
	CloseDay  time.Weekday
	CloseHour int
	OpenDay   time.Weekday
	OpenHour  int
}

// LondonGold is the spot gold window: closed Friday 22:00 through Sunday 22:00.
func LondonGold(loc *time.Location) Window {
	return Window{
		Location:  loc,
		CloseDay:  time.Friday,
		CloseHour: 22,
		OpenDay:   time.Sunday,
		OpenHour:  22,
	}
}

func weekMinute(d time.Weekday, hour, minute int) int {
	return int(d)*24*60 + hour*60 + minute
}

// IsOpen reports whether the market is open at t.
func (w Window) IsOpen(t time.Time) bool {
	if w.Location != nil {
		t = t.In(w.Location)
	}
	now := weekMinute(t.Weekday(), t.Hour(), t.Minute())
	closeAt := weekMinute(w.CloseDay, w.CloseHour, 0)
	openAt := weekMinute(w.OpenDay, w.OpenHour, 0)

	// Closed interval is [closeAt, openAt) on a ring of one week.
	if closeAt < openAt {
		return !(now >= closeAt && now < openAt)
	}
	return !(now >= closeAt || now < openAt)
}

// Local converts t to the window's reference timezone.
func (w Window) Local(t time.Time) time.Time {
	if w.Location == nil {
		return t
	}
	return t.In(w.Location)
}

// Planner derives polling advice from the monthly call budget.
type Planner struct {
	Window              Window
	MonthlyLimit        int
	TradingDaysPerMonth float64
	TradingHoursPerDay  float64
	DaysInMonth         int
}

// Info reports trading state and the recommended polling interval at now.
// The interval is advisory only.
func (p Planner) Info(now time.Time) model.ScheduleInfo {
	local := p.Window.Local(now)
	info := model.ScheduleInfo{
		Open:               p.Window.IsOpen(now),
		LocalTime:          local,
		TradingHoursPerDay: p.TradingHoursPerDay,
	}

	daysInMonth := p.DaysInMonth
	if daysInMonth <= 0 {
		daysInMonth = 30
	}
	// Roughly 71% of calendar days are trading days.
	remaining := math.Max(1, float64(daysInMonth-local.Day())*0.71)
	info.TradingDaysRemaining = int(remaining)

	if p.TradingDaysPerMonth <= 0 || p.TradingHoursPerDay <= 0 || p.MonthlyLimit <= 0 {
		return info
	}
	info.RequestsPerTradingDay = float64(p.MonthlyLimit) / p.TradingDaysPerMonth
	info.RequestsPerHour = info.RequestsPerTradingDay / p.TradingHoursPerDay
	minutes := 60 / info.RequestsPerHour
	info.Interval = time.Duration(minutes * float64(time.Minute)).Round(time.Second)
	return info
}
