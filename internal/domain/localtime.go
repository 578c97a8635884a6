package domain

import "time"

// DateLayout is the wire form of local calendar dates.
const DateLayout = "2006-01-02"

// Local converts a UTC instant to the user's fixed-offset local time.
// Offsets are whole hours with no DST; the host zone is never read.
func Local(now time.Time, offsetHours int) time.Time {
	return now.UTC().Add(time.Duration(offsetHours) * time.Hour)
}

// LocalDate returns the user's local calendar date for a UTC instant.
func LocalDate(now time.Time, offsetHours int) string {
	return Local(now, offsetHours).Format(DateLayout)
}

// LocalMinutes returns minutes since local midnight for a UTC instant.
func LocalMinutes(now time.Time, offsetHours int) int {
	t := Local(now, offsetHours)
	return t.Hour()*60 + t.Minute()
}

// DayOfCourse computes the 1-based course day from the stored start
// date and a UTC instant. Returns 0 when now precedes the start date.
func DayOfCourse(startDate string, now time.Time, offsetHours int) int {
	start, err := time.Parse(DateLayout, startDate)
	if err != nil {
		return 0
	}
	today, err := time.Parse(DateLayout, LocalDate(now, offsetHours))
	if err != nil {
		return 0
	}
	if today.Before(start) {
		return 0
	}
	return int(today.Sub(start)/(24*time.Hour)) + 1
}

// ClampNow guards against clock skew: an event instant that precedes
// the record's last-known instant is treated as "no time elapsed".
func ClampNow(now time.Time, last *time.Time) time.Time {
	if last != nil && now.Before(*last) {
		return *last
	}
	return now
}
