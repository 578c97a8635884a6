package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
	"github.com/aselcrombie/tabex-reminder-bot/internal/store"
)

// memRepo is an in-memory store.Repo for engine tests.
type memRepo struct {
	mu         sync.Mutex
	users      map[int64]domain.User
	failUpsert map[int64]bool
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[int64]domain.User), failUpsert: make(map[int64]bool)}
}

func (m *memRepo) GetUser(_ context.Context, chatID int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (m *memRepo) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUpsert[u.ChatID] {
		return errors.New("simulated write failure")
	}
	m.users[u.ChatID] = *u
	return nil
}

func (m *memRepo) ListActive(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, u := range m.users {
		if !u.Completed {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	res := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		res = append(res, m.users[id])
	}
	return res, nil
}

func (m *memRepo) DeleteUser(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, chatID)
	return nil
}

func (m *memRepo) Close() error { return nil }

// recNotifier records dispatched notifications per chat.
type recNotifier struct {
	mu        sync.Mutex
	morning   []int64
	reminders []int64
	missed    []int64
	complete  []int64
}

func (r *recNotifier) MorningMessage(chatID int64, _, _ int, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.morning = append(r.morning, chatID)
	return nil
}

func (r *recNotifier) DoseReminder(chatID int64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminders = append(r.reminders, chatID)
	return nil
}

func (r *recNotifier) MissedDoseNotice(chatID int64, _, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.missed = append(r.missed, chatID)
	return nil
}

func (r *recNotifier) CourseCompleteNotice(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = append(r.complete, chatID)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *memRepo, *recNotifier) {
	t.Helper()
	repo := newMemRepo()
	notifier := &recNotifier{}
	return New(repo, notifier, zap.NewNop()), repo, notifier
}

func TestScenarioA_FirstDayCycle(t *testing.T) {
	ctx := context.Background()
	eng, _, notifier := newTestEngine(t)

	// Day 1, UTC user. The start registration doubles as the morning
	// check-in for the first day.
	u, err := eng.StartCourse(ctx, 1, 0, "", at(t, 10, 7, 30))
	require.NoError(t, err)
	assert.Equal(t, 1, u.CurrentDay)
	assert.Equal(t, "2025-06-10", u.StartDate)
	assert.Equal(t, "2025-06-10", u.LastMorningDate)

	// Morning check-in at 08:00 schedules the first reminder at 10:00.
	u, err = eng.ConfirmMorning(ctx, 1, at(t, 10, 8, 0))
	require.NoError(t, err)
	require.NotNil(t, u.NextReminderAt)
	assert.True(t, u.NextReminderAt.Equal(at(t, 10, 10, 0)))

	// 10:00 tick fires the reminder.
	eng.Tick(ctx, at(t, 10, 10, 0))
	require.Equal(t, []int64{1}, notifier.reminders)

	// Confirming at 10:05 logs the dose and schedules 12:05.
	u, dayDone, err := eng.ConfirmDose(ctx, 1, at(t, 10, 10, 5))
	require.NoError(t, err)
	assert.False(t, dayDone)
	assert.Equal(t, 1, u.TakenToday)
	require.NotNil(t, u.NextReminderAt)
	assert.True(t, u.NextReminderAt.Equal(at(t, 10, 12, 5)))

	// Re-running the same tick instant does not resend.
	eng.Tick(ctx, at(t, 10, 10, 0))
	assert.Equal(t, []int64{1}, notifier.reminders)
}

func TestConfirmDose_QuotaRejected(t *testing.T) {
	ctx := context.Background()
	eng, repo, _ := newTestEngine(t)
	u := activeUser(21, "2025-06-10") // day 21: 2 doses
	u.ChatID = 7
	repo.users[7] = *u

	_, dayDone, err := eng.ConfirmDose(ctx, 7, at(t, 10, 9, 0))
	require.NoError(t, err)
	assert.False(t, dayDone)

	_, dayDone, err = eng.ConfirmDose(ctx, 7, at(t, 10, 12, 0))
	require.NoError(t, err)
	assert.True(t, dayDone)

	// Quota met: further confirmations are rejected without mutation.
	_, _, err = eng.ConfirmDose(ctx, 7, at(t, 10, 15, 0))
	require.ErrorIs(t, err, ErrInvalidTransition)
	u, err = eng.Status(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, u.TakenToday)
}

func TestConfirmDose_FinalDoseClearsReminders(t *testing.T) {
	ctx := context.Background()
	eng, repo, _ := newTestEngine(t)
	u := activeUser(21, "2025-06-10")
	u.ChatID = 7
	u.TakenToday = 1
	next := at(t, 10, 20, 0)
	u.NextReminderAt = &next
	repo.users[7] = *u

	got, dayDone, err := eng.ConfirmDose(ctx, 7, at(t, 10, 20, 0))
	require.NoError(t, err)
	assert.True(t, dayDone)
	assert.Nil(t, got.NextReminderAt)
	assert.Nil(t, got.PostponedUntil)
}

func TestPostpone(t *testing.T) {
	ctx := context.Background()
	eng, repo, _ := newTestEngine(t)
	u := activeUser(1, "2025-06-10")
	u.ChatID = 3
	next := at(t, 10, 10, 0)
	u.NextReminderAt = &next
	repo.users[3] = *u

	got, err := eng.Postpone(ctx, 3, at(t, 10, 10, 0), 0)
	require.NoError(t, err)
	require.NotNil(t, got.PostponedUntil)
	assert.True(t, got.PostponedUntil.Equal(at(t, 10, 10, 15)))
	// Base schedule is not lost.
	require.NotNil(t, got.NextReminderAt)
	assert.True(t, got.NextReminderAt.Equal(next))
}

func TestPostpone_NothingPending(t *testing.T) {
	ctx := context.Background()
	eng, repo, _ := newTestEngine(t)
	u := activeUser(1, "2025-06-10")
	u.ChatID = 3
	repo.users[3] = *u

	_, err := eng.Postpone(ctx, 3, at(t, 10, 9, 0), 0)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPostpone_ValidAfterReminderFired(t *testing.T) {
	ctx := context.Background()
	eng, repo, notifier := newTestEngine(t)
	u := activeUser(1, "2025-06-10")
	u.ChatID = 3
	next := at(t, 10, 10, 0)
	u.NextReminderAt = &next
	repo.users[3] = *u

	// The tick consumes the timestamp but the reminder is outstanding,
	// so the user's "remind me later" press must still be accepted.
	eng.Tick(ctx, at(t, 10, 10, 0))
	require.Equal(t, []int64{3}, notifier.reminders)

	got, err := eng.Postpone(ctx, 3, at(t, 10, 10, 1), 0)
	require.NoError(t, err)
	require.NotNil(t, got.PostponedUntil)
	assert.True(t, got.PostponedUntil.Equal(at(t, 10, 10, 16)))
}

func TestConfirmMorning_OnlyWhileAwaiting(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)

	_, err := eng.StartCourse(ctx, 5, 0, "", at(t, 10, 7, 30))
	require.NoError(t, err)

	_, err = eng.ConfirmMorning(ctx, 5, at(t, 10, 8, 0))
	require.NoError(t, err)

	// Second acknowledgment has nothing to start.
	_, err = eng.ConfirmMorning(ctx, 5, at(t, 10, 8, 5))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUnknownUserEvents(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)
	now := at(t, 10, 12, 0)

	_, err := eng.ConfirmMorning(ctx, 99, now)
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, _, err = eng.ConfirmDose(ctx, 99, now)
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = eng.Postpone(ctx, 99, now, 0)
	assert.ErrorIs(t, err, ErrUnknownUser)
	_, err = eng.ConfirmMissedDoses(ctx, 99, now)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestStartCourse_AlreadyStarted(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)

	first, err := eng.StartCourse(ctx, 8, 3, "", at(t, 10, 12, 0))
	require.NoError(t, err)

	again, err := eng.StartCourse(ctx, 8, 3, "", at(t, 11, 12, 0))
	require.ErrorIs(t, err, ErrAlreadyStarted)
	require.NotNil(t, again)
	assert.Equal(t, first.StartDate, again.StartDate)
}

func TestStartCourse_Backdated(t *testing.T) {
	ctx := context.Background()
	eng, _, _ := newTestEngine(t)

	u, err := eng.StartCourse(ctx, 9, 0, "2025-06-05", at(t, 10, 12, 0))
	require.NoError(t, err)
	assert.Equal(t, 6, u.CurrentDay)
	assert.False(t, u.Completed)

	// A start date a full course ago lands directly on completion.
	u, err = eng.StartCourse(ctx, 10, 0, "2025-05-01", at(t, 10, 12, 0))
	require.NoError(t, err)
	assert.True(t, u.Completed)
}

func TestConfirmDose_ClockSkewClamped(t *testing.T) {
	ctx := context.Background()
	eng, repo, _ := newTestEngine(t)
	u := activeUser(1, "2025-06-10") // day 1: 2h interval
	u.ChatID = 4
	u.TakenToday = 1
	last := at(t, 10, 12, 0)
	u.LastDoseAt = &last
	repo.users[4] = *u

	// Event clock reads 11:00, before the last-known dose at 12:00:
	// treated as "no time elapsed", never a reminder in the past.
	got, _, err := eng.ConfirmDose(ctx, 4, at(t, 10, 11, 0))
	require.NoError(t, err)
	require.NotNil(t, got.NextReminderAt)
	assert.True(t, got.NextReminderAt.Equal(at(t, 10, 14, 0)))
	assert.True(t, got.LastDoseAt.Equal(last))
}

func TestConfirmMissedDoses(t *testing.T) {
	ctx := context.Background()
	eng, repo, _ := newTestEngine(t)
	u := activeUser(13, "2025-06-10") // 4 doses
	u.ChatID = 6
	u.TakenToday = 1
	next := at(t, 10, 22, 0)
	u.NextReminderAt = &next
	repo.users[6] = *u

	got, err := eng.ConfirmMissedDoses(ctx, 6, at(t, 10, 21, 5))
	require.NoError(t, err)
	assert.Equal(t, 4, got.TakenToday)
	assert.False(t, got.ReminderPending())

	_, err = eng.ConfirmMissedDoses(ctx, 6, at(t, 10, 21, 6))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTick_FaultIsolation(t *testing.T) {
	ctx := context.Background()
	eng, repo, notifier := newTestEngine(t)

	for _, id := range []int64{1, 2} {
		u := activeUser(1, "2025-06-10")
		u.ChatID = id
		next := at(t, 10, 10, 0)
		u.NextReminderAt = &next
		repo.users[id] = *u
	}
	repo.failUpsert[1] = true

	eng.Tick(ctx, at(t, 10, 10, 0))

	// User 1's write failed: nothing was sent to them (persist before
	// send) and user 2 was still processed.
	assert.Equal(t, []int64{2}, notifier.reminders)

	// The failed user's reminder stays due and is retried next tick.
	repo.failUpsert[1] = false
	eng.Tick(ctx, at(t, 10, 11, 0))
	assert.ElementsMatch(t, []int64{1, 2}, notifier.reminders)
}

func TestTick_CompletionNotice(t *testing.T) {
	ctx := context.Background()
	eng, repo, notifier := newTestEngine(t)
	u := activeUser(25, "2025-06-10")
	u.ChatID = 11
	u.TakenToday = 2
	repo.users[11] = *u

	eng.Tick(ctx, at(t, 11, 0, 1))
	assert.Equal(t, []int64{11}, notifier.complete)

	// Completed records drop out of the active set entirely.
	eng.Tick(ctx, at(t, 11, 8, 0))
	eng.Tick(ctx, at(t, 11, 21, 0))
	assert.Empty(t, notifier.morning)
	assert.Empty(t, notifier.missed)
	assert.Equal(t, []int64{11}, notifier.complete)
}
