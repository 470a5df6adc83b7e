package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ipormac/internal/domain"
)

// ScoreStore is one site's history inside the shared database.
type ScoreStore struct {
	db      *sql.DB
	siteKey string
}

func (s *ScoreStore) Append(ctx context.Context, a domain.Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (site_key, id, question_id, ts, score, max_score, type, address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.siteKey, a.ID, a.QuestionID, a.Timestamp.UnixNano(), a.Score, a.MaxScore, string(a.Type), a.Address,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// Clear removes attempts and streak in one transaction.
func (s *ScoreStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE site_key = ?`, s.siteKey); err != nil {
		return fmt.Errorf("delete attempts: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM streaks WHERE site_key = ?`, s.siteKey); err != nil {
		return fmt.Errorf("delete streak: %w", err)
	}
	return tx.Commit()
}

func (s *ScoreStore) All(ctx context.Context) ([]domain.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, question_id, ts, score, max_score, type, address
		 FROM attempts WHERE site_key = ? ORDER BY seq`, s.siteKey)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.Attempt
	for rows.Next() {
		var (
			a   domain.Attempt
			ts  int64
			typ string
		)
		if err := rows.Scan(&a.ID, &a.QuestionID, &ts, &a.Score, &a.MaxScore, &typ, &a.Address); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
		}
		a.Timestamp = time.Unix(0, ts).UTC()
		a.Type = domain.AddressType(typ)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *ScoreStore) Streak(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT streak FROM streaks WHERE site_key = ?`, s.siteKey).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query streak: %w", err)
	}
	return n, nil
}

func (s *ScoreStore) SetStreak(ctx context.Context, n int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO streaks (site_key, streak) VALUES (?, ?)
		 ON CONFLICT(site_key) DO UPDATE SET streak = excluded.streak`,
		s.siteKey, n,
	)
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
