package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ipormac/internal/app"
	"ipormac/internal/domain"
)

// ScoreStore keeps one site's history in the score_attempts and
// score_streaks tables created by the migrations package.
type ScoreStore struct {
	pool    *pgxpool.Pool
	siteKey string
}

func NewScoreStore(pool *pgxpool.Pool, siteKey string) *ScoreStore {
	return &ScoreStore{pool: pool, siteKey: siteKey}
}

// Opener shares one pool across site keys.
func Opener(pool *pgxpool.Pool) app.StoreOpener {
	return func(siteKey string) (app.ScoreStore, error) {
		return NewScoreStore(pool, siteKey), nil
	}
}

func (s *ScoreStore) Append(ctx context.Context, a domain.Attempt) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO score_attempts (site_key, id, question_id, ts, score, max_score, type, address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.siteKey, a.ID, a.QuestionID, a.Timestamp, a.Score, a.MaxScore, string(a.Type), a.Address,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *ScoreStore) Clear(ctx context.Context) error {
	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM score_attempts WHERE site_key = $1`, s.siteKey)
	batch.Queue(`DELETE FROM score_streaks WHERE site_key = $1`, s.siteKey)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *ScoreStore) All(ctx context.Context) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, question_id, ts, score, max_score, type, address
		 FROM score_attempts WHERE site_key = $1 ORDER BY seq`, s.siteKey)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var (
			a   domain.Attempt
			ts  time.Time
			typ string
		)
		if err := rows.Scan(&a.ID, &a.QuestionID, &ts, &a.Score, &a.MaxScore, &typ, &a.Address); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
		}
		a.Timestamp = ts.UTC()
		a.Type = domain.AddressType(typ)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *ScoreStore) Streak(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT streak FROM score_streaks WHERE site_key = $1`, s.siteKey).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query streak: %w", err)
	}
	return n, nil
}

func (s *ScoreStore) SetStreak(ctx context.Context, n int) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO score_streaks (site_key, streak) VALUES ($1, $2)
		 ON CONFLICT (site_key) DO UPDATE SET streak = EXCLUDED.streak`,
		s.siteKey, n,
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
