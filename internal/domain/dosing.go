package domain

import (
	"fmt"
	"time"
)

// DayPlan is the dosing prescription for one day of the course.
type DayPlan struct {
	Doses    int           // tablets to take that day
	Interval time.Duration // time between doses
}

// Official Tabex schedule (tabex.kz):
// days 1–3 one tablet every 2 h, 4–12 every 2.5 h, 13–16 every 3 h,
// 17–20 every 5 h, 21–25 two doses 12 h apart.
var dosingTable = []struct {
	lastDay int
	plan    DayPlan
}{
	{3, DayPlan{Doses: 6, Interval: 2 * time.Hour}},
	{12, DayPlan{Doses: 5, Interval: 150 * time.Minute}},
	{16, DayPlan{Doses: 4, Interval: 3 * time.Hour}},
	{20, DayPlan{Doses: 3, Interval: 5 * time.Hour}},
	{25, DayPlan{Doses: 2, Interval: 12 * time.Hour}},
}

// Lookup returns the dosing plan for a course day. ok is false outside
// 1..CourseDays; a day past the end is the completion signal, not an
// error, and callers must treat it as such.
func Lookup(day int) (DayPlan, bool) {
	if day < 1 || day > CourseDays {
		return DayPlan{}, false
	}
	for _, row := range dosingTable {
		if day <= row.lastDay {
			return row.plan, true
		}
	}
	return DayPlan{}, false
}

// IntervalDescription renders the day's interval for UI text,
// e.g. "every 2 hours" or "every 2.5 hours".
func IntervalDescription(day int) string {
	plan, ok := Lookup(day)
	if !ok {
		return ""
	}
	return FormatInterval(plan.Interval)
}

// FormatInterval renders an inter-dose interval for UI text.
func FormatInterval(d time.Duration) string {
	h := d.Hours()
	if h == float64(int(h)) {
		if int(h) == 1 {
			return "every hour"
		}
		return fmt.Sprintf("every %d hours", int(h))
	}
	return fmt.Sprintf("every %.1f hours", h)
}
