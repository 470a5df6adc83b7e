package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ipormac/internal/app"
	"ipormac/internal/domain"
)

// ScoreStore keeps one site's history in Redis:
//
//	RPUSH ipormac:scores:{siteKey}:attempts {attempt JSON}
//	SET   ipormac:scores:{siteKey}:streak   {n}
//
// A positive ttl is refreshed on every write so idle histories eventually expire.
type ScoreStore struct {
	client  *redis.Client
	siteKey string
	ttl     time.Duration
}

func NewScoreStore(client *redis.Client, siteKey string, ttl time.Duration) *ScoreStore {
	return &ScoreStore{client: client, siteKey: siteKey, ttl: ttl}
}

// Opener returns an app.StoreOpener sharing one client across site keys.
func Opener(client *redis.Client, ttl time.Duration) app.StoreOpener {
	return func(siteKey string) (app.ScoreStore, error) {
		return NewScoreStore(client, siteKey, ttl), nil
	}
}

func (s *ScoreStore) Append(ctx context.Context, attempt domain.Attempt) error {
	raw, err := json.Marshal(attempt)
	if err != nil {
		return fmt.Errorf("marshal attempt: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, s.attemptsKey(), raw)
		if s.ttl > 0 {
			pipe.Expire(ctx, s.attemptsKey(), s.ttl)
			pipe.Expire(ctx, s.streakKey(), s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append attempt: %w", err)
	}
	return nil
}

func (s *ScoreStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.attemptsKey(), s.streakKey()).Err(); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}
	return nil
}

func (s *ScoreStore) All(ctx context.Context) ([]domain.Attempt, error) {
	rows, err := s.client.LRange(ctx, s.attemptsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	attempts := make([]domain.Attempt, 0, len(rows))
	for i, row := range rows {
		var a domain.Attempt
		if err := json.Unmarshal([]byte(row), &a); err != nil {
			return nil, fmt.Errorf("%w: attempt %d: %v", domain.ErrCorruptState, i, err)
		}
		attempts = append(attempts, a)
	}
	return attempts, nil
}

func (s *ScoreStore) Streak(ctx context.Context) (int, error) {
	raw, err := s.client.Get(ctx, s.streakKey()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load streak: %w", err)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: streak %q", domain.ErrCorruptState, raw)
	}
	return n, nil
}

func (s *ScoreStore) SetStreak(ctx context.Context, n int) error {
	if err := s.client.Set(ctx, s.streakKey(), n, s.ttl).Err(); err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}

func (s *ScoreStore) attemptsKey() string {
	return "ipormac:scores:" + s.siteKey + ":attempts"
}

func (s *ScoreStore) streakKey() string {
	return "ipormac:scores:" + s.siteKey + ":streak"
}
