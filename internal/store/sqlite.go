package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a
// repository. WAL journaling makes single-statement upserts atomic
// under crash and free of torn reads.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

const userColumns = `chat_id, created_at, start_date, tz_offset, current_day,
	taken_today, last_dose_at, completed, last_morning_date,
	last_missed_date, next_reminder_at, postponed_until, last_reminder_at`

// UpsertUser inserts or fully replaces a course record in one statement.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	created := u.CreatedAt.UTC().Unix()
	if u.CreatedAt.IsZero() {
		created = time.Now().UTC().Unix()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			start_date        = excluded.start_date,
			tz_offset         = excluded.tz_offset,
			current_day       = excluded.current_day,
			taken_today       = excluded.taken_today,
			last_dose_at      = excluded.last_dose_at,
			completed         = excluded.completed,
			last_morning_date = excluded.last_morning_date,
			last_missed_date  = excluded.last_missed_date,
			next_reminder_at  = excluded.next_reminder_at,
			postponed_until   = excluded.postponed_until,
			last_reminder_at  = excluded.last_reminder_at`,
		u.ChatID, created, u.StartDate, u.TZOffset, u.CurrentDay,
		u.TakenToday, toNullInt64(u.LastDoseAt), boolToInt(u.Completed),
		toNullString(u.LastMorningDate), toNullString(u.LastMissedDate),
		toNullInt64(u.NextReminderAt), toNullInt64(u.PostponedUntil),
		toNullInt64(u.LastReminderAt),
	)
	return err
}

// GetUser returns a record by chatID or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, chatID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE chat_id = ?`,
		chatID,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListActive returns all records that have not completed the course.
func (r *SQLiteRepo) ListActive(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE completed = 0
		ORDER BY chat_id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// DeleteUser removes a record (explicit opt-out / data retention).
func (r *SQLiteRepo) DeleteUser(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE chat_id = ?`, chatID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		chatID      int64
		createdAt   int64
		startDate   string
		tzOffset    int
		currentDay  int
		takenToday  int
		lastDoseNS  sql.NullInt64
		completed   int
		morningNS   sql.NullString
		missedNS    sql.NullString
		nextNS      sql.NullInt64
		postponedNS sql.NullInt64
		reminderNS  sql.NullInt64
	)

	if err := row.Scan(
		&chatID, &createdAt, &startDate, &tzOffset, &currentDay,
		&takenToday, &lastDoseNS, &completed, &morningNS,
		&missedNS, &nextNS, &postponedNS, &reminderNS,
	); err != nil {
		return nil, err
	}

	return &domain.User{
		ChatID:          chatID,
		StartDate:       startDate,
		TZOffset:        tzOffset,
		CurrentDay:      currentDay,
		TakenToday:      takenToday,
		LastDoseAt:      fromNullInt64(lastDoseNS),
		Completed:       completed != 0,
		LastMorningDate: fromNullString(morningNS),
		LastMissedDate:  fromNullString(missedNS),
		NextReminderAt:  fromNullInt64(nextNS),
		PostponedUntil:  fromNullInt64(postponedNS),
		LastReminderAt:  fromNullInt64(reminderNS),
		CreatedAt:       time.Unix(createdAt, 0).UTC(),
	}, nil
}
