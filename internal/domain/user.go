package domain

import "time"

// CourseDays is the fixed length of the Tabex regimen.
const CourseDays = 25

// User is one participant's dosing progress and reminder schedule.
// All instants are UTC; all dates are the user's local calendar dates
// in YYYY-MM-DD form, derived from TZOffset.
type User struct {
	ChatID     int64
	StartDate  string // local date the course began, immutable once active
	TZOffset   int    // whole hours from UTC, no DST
	CurrentDay int    // 1..25 while active; monotonically non-decreasing
	TakenToday int
	LastDoseAt *time.Time // UTC, nullable
	Completed  bool       // terminal once CurrentDay exceeds CourseDays

	LastMorningDate string     // local date of the last morning message, "" if never
	LastMissedDate  string     // local date of the last 21:00 missed notice, "" if never
	NextReminderAt  *time.Time // UTC, nullable
	PostponedUntil  *time.Time // UTC, nullable; supersedes NextReminderAt when set
	LastReminderAt  *time.Time // UTC, nullable; dose reminder sent and awaiting confirmation

	CreatedAt time.Time // UTC
}

// ReminderPending reports whether a dose reminder is scheduled or has
// been sent and is still awaiting the user's confirmation.
func (u *User) ReminderPending() bool {
	return u.NextReminderAt != nil || u.PostponedUntil != nil || u.LastReminderAt != nil
}

// ClearReminders drops all reminder state for the current cycle.
func (u *User) ClearReminders() {
	u.NextReminderAt = nil
	u.PostponedUntil = nil
	u.LastReminderAt = nil
}
