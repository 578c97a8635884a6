package engine

import "time"

// Kind discriminates outbound notifications produced by an evaluation
// pass. The engine decides when to notify; the gateway decides how.
type Kind int

const (
	KindMorning Kind = iota
	KindDoseReminder
	KindMissedDose
	KindCourseComplete
)

// Notification is one outbound message the gateway must deliver.
type Notification struct {
	Kind     Kind
	ChatID   int64
	Day      int           // course day the notification refers to
	Doses    int           // day's quota (morning message)
	Interval time.Duration // day's inter-dose interval (morning message)
	Missed   int           // doses short of quota (missed notice)
}

// Notifier delivers notifications to the messaging platform.
// telegram.Sender implements this.
type Notifier interface {
	MorningMessage(chatID int64, day, doses int, interval time.Duration) error
	DoseReminder(chatID int64, day int) error
	MissedDoseNotice(chatID int64, day, missed int) error
	CourseCompleteNotice(chatID int64) error
}
