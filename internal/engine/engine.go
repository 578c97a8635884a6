package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
	"github.com/aselcrombie/tabex-reminder-bot/internal/store"
)

// DefaultPostponeDelay is how long a user-requested postponement
// pushes a due reminder.
const DefaultPostponeDelay = 15 * time.Minute

// Engine owns all course-record mutations. Every mutation for a given
// chat runs under that chat's lock; state is persisted before any
// outbound notification is dispatched, so a crash in between only
// costs a duplicate-free resend opportunity, never a lost transition.
type Engine struct {
	repo     store.Repo
	notifier Notifier
	log      *zap.Logger
	locks    *userLocks
}

func New(repo store.Repo, notifier Notifier, log *zap.Logger) *Engine {
	return &Engine{
		repo:     repo,
		notifier: notifier,
		log:      log,
		locks:    newUserLocks(),
	}
}

// Tick evaluates every active record against now. Failures are
// isolated per user: a record that cannot be loaded or persisted is
// logged and retried on the next tick, the rest of the pass continues.
func (e *Engine) Tick(ctx context.Context, now time.Time) {
	users, err := e.repo.ListActive(ctx)
	if err != nil {
		e.log.Error("list active users failed", zap.Error(err))
		return
	}
	for _, u := range users {
		notes, err := e.evaluateOne(ctx, u.ChatID, now)
		if err != nil {
			e.log.Error("tick evaluation failed",
				zap.Int64("chatID", u.ChatID), zap.Error(err))
			continue
		}
		e.dispatch(notes)
	}
}

// evaluateOne applies one evaluation pass to a single record under its
// lock and persists the result. Notifications are returned for
// dispatch after the lock is released.
func (e *Engine) evaluateOne(ctx context.Context, chatID int64, now time.Time) ([]Notification, error) {
	mu := e.locks.acquire(chatID)
	defer mu.Unlock()

	u, err := e.repo.GetUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	notes, changed := Evaluate(u, now)
	if changed {
		if err := e.repo.UpsertUser(ctx, u); err != nil {
			// persist-then-send: nothing was delivered, the still-due
			// timestamps fire again on the next tick
			return nil, fmt.Errorf("persist: %w", err)
		}
	}
	return notes, nil
}

// dispatch delivers notifications outside any record lock. Send
// failures are logged only; state has already advanced, and the next
// natural trigger (morning, next reminder) recovers the conversation.
func (e *Engine) dispatch(notes []Notification) {
	for _, n := range notes {
		var err error
		switch n.Kind {
		case KindMorning:
			err = e.notifier.MorningMessage(n.ChatID, n.Day, n.Doses, n.Interval)
		case KindDoseReminder:
			err = e.notifier.DoseReminder(n.ChatID, n.Day)
		case KindMissedDose:
			err = e.notifier.MissedDoseNotice(n.ChatID, n.Day, n.Missed)
		case KindCourseComplete:
			err = e.notifier.CourseCompleteNotice(n.ChatID)
		}
		if err != nil {
			e.log.Warn("notification send failed",
				zap.Int64("chatID", n.ChatID), zap.Error(err))
		}
	}
}

// StartCourse creates the course record for a chat. An empty startDate
// means "today" in the user's zone; a backdated start seeds CurrentDay
// from the local-date difference. If a record already exists it is
// returned alongside ErrAlreadyStarted.
func (e *Engine) StartCourse(ctx context.Context, chatID int64, tzOffset int, startDate string, now time.Time) (*domain.User, error) {
	mu := e.locks.acquire(chatID)
	defer mu.Unlock()

	existing, err := e.repo.GetUser(ctx, chatID)
	if err == nil {
		return existing, ErrAlreadyStarted
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	now = now.UTC()
	if startDate == "" {
		startDate = domain.LocalDate(now, tzOffset)
	}
	day := domain.DayOfCourse(startDate, now, tzOffset)
	if day < 1 {
		day = 1
	}

	u := &domain.User{
		ChatID:     chatID,
		StartDate:  startDate,
		TZOffset:   tzOffset,
		CurrentDay: day,
		// The first-day message sent by the gateway doubles as the
		// morning check-in, so today's 08:00 pass stays quiet.
		LastMorningDate: domain.LocalDate(now, tzOffset),
		CreatedAt:       now,
	}
	if day > domain.CourseDays {
		u.Completed = true
	}
	if err := e.repo.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return u, nil
}

// ConfirmMorning acknowledges the morning check-in and schedules the
// day's first reminder. Valid only while the check-in is outstanding.
func (e *Engine) ConfirmMorning(ctx context.Context, chatID int64, now time.Time) (*domain.User, error) {
	mu := e.locks.acquire(chatID)
	defer mu.Unlock()

	u, err := e.getUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u.Completed {
		return nil, fmt.Errorf("%w: course completed", ErrInvalidTransition)
	}
	plan, ok := domain.Lookup(u.CurrentDay)
	if !ok {
		return nil, fmt.Errorf("%w: day %d past course end", ErrInvalidTransition, u.CurrentDay)
	}

	now = domain.ClampNow(now.UTC(), u.LastDoseAt)
	today := domain.LocalDate(now, u.TZOffset)
	awaiting := u.LastMorningDate == today &&
		u.TakenToday == 0 && u.LastDoseAt == nil && !u.ReminderPending()
	if !awaiting {
		return nil, fmt.Errorf("%w: not awaiting morning check-in", ErrInvalidTransition)
	}

	next := now.Add(plan.Interval)
	u.NextReminderAt = &next
	u.PostponedUntil = nil
	if err := e.repo.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return u, nil
}

// ConfirmDose records one confirmed dose and schedules the next
// reminder if doses remain today. The returned bool reports whether
// the day's quota is now met.
func (e *Engine) ConfirmDose(ctx context.Context, chatID int64, now time.Time) (*domain.User, bool, error) {
	mu := e.locks.acquire(chatID)
	defer mu.Unlock()

	u, err := e.getUser(ctx, chatID)
	if err != nil {
		return nil, false, err
	}
	if u.Completed {
		return nil, false, fmt.Errorf("%w: course completed", ErrInvalidTransition)
	}
	plan, ok := domain.Lookup(u.CurrentDay)
	if !ok {
		return nil, false, fmt.Errorf("%w: day %d past course end", ErrInvalidTransition, u.CurrentDay)
	}
	if u.TakenToday >= plan.Doses {
		return nil, false, fmt.Errorf("%w: day's doses already complete", ErrInvalidTransition)
	}

	now = domain.ClampNow(now.UTC(), u.LastDoseAt)
	u.TakenToday++
	taken := now
	u.LastDoseAt = &taken
	u.LastReminderAt = nil
	u.PostponedUntil = nil
	if u.TakenToday < plan.Doses {
		next := now.Add(plan.Interval)
		u.NextReminderAt = &next
	} else {
		// quota met: nothing further until tomorrow's morning message
		u.NextReminderAt = nil
	}

	if err := e.repo.UpsertUser(ctx, u); err != nil {
		return nil, false, fmt.Errorf("persist: %w", err)
	}
	return u, u.TakenToday >= plan.Doses, nil
}

// Postpone delays a pending or just-fired reminder. The base schedule
// is left untouched; the postponement takes priority once due.
func (e *Engine) Postpone(ctx context.Context, chatID int64, now time.Time, delay time.Duration) (*domain.User, error) {
	if delay <= 0 {
		delay = DefaultPostponeDelay
	}

	mu := e.locks.acquire(chatID)
	defer mu.Unlock()

	u, err := e.getUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u.Completed {
		return nil, fmt.Errorf("%w: course completed", ErrInvalidTransition)
	}
	if !u.ReminderPending() {
		return nil, fmt.Errorf("%w: no reminder pending", ErrInvalidTransition)
	}

	now = domain.ClampNow(now.UTC(), u.LastDoseAt)
	until := now.Add(delay)
	u.PostponedUntil = &until
	if err := e.repo.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return u, nil
}

// ConfirmMissedDoses fills the remainder of the day's quota after the
// 21:00 escalation ("yes, I'll take them now"). The regular rollover
// advances the day once the local date turns.
func (e *Engine) ConfirmMissedDoses(ctx context.Context, chatID int64, now time.Time) (*domain.User, error) {
	mu := e.locks.acquire(chatID)
	defer mu.Unlock()

	u, err := e.getUser(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if u.Completed {
		return nil, fmt.Errorf("%w: course completed", ErrInvalidTransition)
	}
	plan, ok := domain.Lookup(u.CurrentDay)
	if !ok {
		return nil, fmt.Errorf("%w: day %d past course end", ErrInvalidTransition, u.CurrentDay)
	}
	if u.TakenToday >= plan.Doses {
		return nil, fmt.Errorf("%w: day's doses already complete", ErrInvalidTransition)
	}

	now = domain.ClampNow(now.UTC(), u.LastDoseAt)
	u.TakenToday = plan.Doses
	taken := now
	u.LastDoseAt = &taken
	u.ClearReminders()
	if err := e.repo.UpsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("persist: %w", err)
	}
	return u, nil
}

// Status returns the current record for a chat without mutating it.
func (e *Engine) Status(ctx context.Context, chatID int64) (*domain.User, error) {
	return e.getUser(ctx, chatID)
}

func (e *Engine) getUser(ctx context.Context, chatID int64) (*domain.User, error) {
	u, err := e.repo.GetUser(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
