package engine

import (
	"time"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
)

// Local-time boundaries of the daily cycle, minutes since midnight.
const (
	morningMinute = 8 * 60  // 08:00 morning check-in message
	cutoffMinute  = 21 * 60 // 21:00 missed-dose escalation
)

// Evaluate runs one scheduling pass over a single record. It is pure
// with respect to its inputs: given the record and now, the mutations
// and returned notifications are deterministic, and re-running with an
// unchanged record and the same now emits nothing further.
func Evaluate(u *domain.User, now time.Time) ([]Notification, bool) {
	if u.Completed {
		return nil, false
	}
	now = now.UTC()

	var out []Notification
	changed := false

	localDate := domain.LocalDate(now, u.TZOffset)
	localMin := domain.LocalMinutes(now, u.TZOffset)

	plan, ok := domain.Lookup(u.CurrentDay)
	if !ok {
		// Day past the table is the completion signal, not an error.
		u.Completed = true
		u.ClearReminders()
		return append(out, Notification{Kind: KindCourseComplete, ChatID: u.ChatID}), true
	}

	// Day rollover runs before the morning message: a quota met
	// yesterday must still advance the day when the first tick of the
	// new local day lands after 08:00 (the morning step resets
	// TakenToday and would otherwise mask the met quota).
	if u.TakenToday >= plan.Doses && cycleDate(u) != "" && localDate > cycleDate(u) {
		u.CurrentDay++
		u.TakenToday = 0
		u.LastDoseAt = nil
		u.ClearReminders()
		changed = true
		if u.CurrentDay > domain.CourseDays {
			u.Completed = true
			return append(out, Notification{Kind: KindCourseComplete, ChatID: u.ChatID}), true
		}
		plan, _ = domain.Lookup(u.CurrentDay)
	}

	// Morning message, at most once per local day, from 08:00 on.
	// The day's cycle restarts fresh pending the user's check-in.
	if localMin >= morningMinute && (u.LastMorningDate == "" || localDate > u.LastMorningDate) {
		u.LastMorningDate = localDate
		u.TakenToday = 0
		u.LastDoseAt = nil
		u.ClearReminders()
		changed = true
		out = append(out, Notification{
			Kind:     KindMorning,
			ChatID:   u.ChatID,
			Day:      u.CurrentDay,
			Doses:    plan.Doses,
			Interval: plan.Interval,
		})
	}

	// A due postponement supersedes the base reminder and fires at
	// most once; the base timestamp is left in place for the next tick.
	switch {
	case u.PostponedUntil != nil && !now.Before(*u.PostponedUntil):
		u.PostponedUntil = nil
		sent := now
		u.LastReminderAt = &sent
		changed = true
		out = append(out, Notification{Kind: KindDoseReminder, ChatID: u.ChatID, Day: u.CurrentDay})
	case u.NextReminderAt != nil && !now.Before(*u.NextReminderAt):
		u.NextReminderAt = nil
		sent := now
		u.LastReminderAt = &sent
		changed = true
		out = append(out, Notification{Kind: KindDoseReminder, ChatID: u.ChatID, Day: u.CurrentDay})
	}

	// 21:00 escalation, once per local day, independent of reminder
	// state. Suppressed when the day's quota is already met.
	if localMin >= cutoffMinute && u.TakenToday < plan.Doses && u.LastMissedDate != localDate {
		u.LastMissedDate = localDate
		changed = true
		out = append(out, Notification{
			Kind:   KindMissedDose,
			ChatID: u.ChatID,
			Day:    u.CurrentDay,
			Missed: plan.Doses - u.TakenToday,
		})
	}

	return out, changed
}

// cycleDate is the local date the current day's doses belong to.
// The morning message stamps it; before any morning message the last
// confirmed dose anchors it.
func cycleDate(u *domain.User) string {
	if u.LastMorningDate != "" {
		return u.LastMorningDate
	}
	if u.LastDoseAt != nil {
		return domain.LocalDate(*u.LastDoseAt, u.TZOffset)
	}
	return ""
}
