package app

import (
	"context"

	"ipormac/internal/domain"
)

// ScoreStore is the durable attempt log and streak counter for one site key
// (in-memory, SQLite, Redis, Postgres). Mutating calls persist before returning.
type ScoreStore interface {
	Append(ctx context.Context, attempt domain.Attempt) error
	Clear(ctx context.Context) error
	All(ctx context.Context) ([]domain.Attempt, error)
	Streak(ctx context.Context) (int, error)
	SetStreak(ctx context.Context, n int) error
}

// StoreOpener binds a ScoreStore to a site key.
type StoreOpener func(siteKey string) (ScoreStore, error)
