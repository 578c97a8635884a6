package store

import (
	"context"
	"errors"

	"github.com/aselcrombie/tabex-reminder-bot/internal/domain"
)

// ErrNotFound reports that no record exists for the requested chat.
var ErrNotFound = errors.New("user not found")

// Repo defines storage operations for course records.
type Repo interface {
	// GetUser returns the record for a chat, or ErrNotFound.
	GetUser(ctx context.Context, chatID int64) (*domain.User, error)
	// UpsertUser atomically persists a full record.
	UpsertUser(ctx context.Context, u *domain.User) error
	// ListActive returns all records still progressing through the
	// course, ordered by chat id.
	ListActive(ctx context.Context) ([]domain.User, error)
	// DeleteUser removes a record. Deletion is an explicit external
	// operation (opt-out); the engine never calls it.
	DeleteUser(ctx context.Context, chatID int64) error
	Close() error
}
