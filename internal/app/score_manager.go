package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ipormac/internal/domain"
	"ipormac/internal/logger"
)

const (
	streakGlyph    = "🔥"
	streakMaxGlyph = "🏆"
	// StreakGlyphCap is the longest run of streak glyphs before the max glyph is appended.
	StreakGlyphCap = 10
)

// ScoreManager records attempts for one site key and answers aggregate queries.
// The log is loaded once and written through to the store on every change;
// stats are recomputed from the whole log on each call.
type ScoreManager struct {
	store  ScoreStore
	levels []domain.Level
	now    func() time.Time
	newID  func() string

	mu       sync.RWMutex
	attempts []domain.Attempt
	streak   int
}

// ManagerOption configures a ScoreManager.
type ManagerOption func(*ScoreManager)

// WithClock overrides the attempt timestamp source; used for deterministic tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *ScoreManager) { m.now = now }
}

// WithIDGenerator overrides how attempt IDs are minted.
func WithIDGenerator(fn func() string) ManagerOption {
	return func(m *ScoreManager) { m.newID = fn }
}

// NewScoreManager loads the history held by store. Unreadable history is never
// fatal: the manager starts empty, and corrupt records are cleared from the store.
func NewScoreManager(ctx context.Context, store ScoreStore, levels []domain.Level, opts ...ManagerOption) *ScoreManager {
	m := newScoreManager(store, levels, opts)
	if err := m.load(ctx); err != nil {
		logger.WithError(err).Warn("score history unreadable, starting with an empty log")
	}
	return m
}

// LoadScoreManager is NewScoreManager for callers that cache the result.
// Corrupt history is still cleared and replaced by an empty log, but a store
// that cannot be read at all is reported so the load can be retried.
func LoadScoreManager(ctx context.Context, store ScoreStore, levels []domain.Level, opts ...ManagerOption) (*ScoreManager, error) {
	m := newScoreManager(store, levels, opts)
	if err := m.load(ctx); err != nil {
		if errors.Is(err, domain.ErrCorruptState) {
			logger.WithError(err).Warn("score history corrupt, starting with an empty log")
			return m, nil
		}
		return nil, fmt.Errorf("load score history: %w", err)
	}
	return m, nil
}

func newScoreManager(store ScoreStore, levels []domain.Level, opts []ManagerOption) *ScoreManager {
	if err := ValidateLevels(levels); err != nil {
		levels = domain.DefaultLevels()
	}
	m := &ScoreManager{
		store:  store,
		levels: append([]domain.Level(nil), levels...),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// load fills the log from the store. On error the log stays empty; corrupt
// records are cleared from the store before the error is returned.
func (m *ScoreManager) load(ctx context.Context) error {
	attempts, err := m.store.All(ctx)
	streak := 0
	if err == nil {
		streak, err = m.store.Streak(ctx)
	}
	if err == nil {
		for _, a := range attempts {
			if verr := a.Validate(); verr != nil {
				err = fmt.Errorf("%w: attempt %s: %v", domain.ErrCorruptState, a.ID, verr)
				break
			}
		}
	}
	if err == nil && streak < 0 {
		err = fmt.Errorf("%w: negative streak %d", domain.ErrCorruptState, streak)
	}

	if err != nil {
		if errors.Is(err, domain.ErrCorruptState) {
			if cerr := m.store.Clear(ctx); cerr != nil {
				logger.WithError(cerr).Warn("failed to clear corrupt score history")
			}
		}
		return err
	}
	m.attempts = attempts
	m.streak = streak
	return nil
}

// RecordScore validates and appends one attempt. It does not touch the streak.
func (m *ScoreManager) RecordScore(ctx context.Context, questionID string, score, maxScore int, addressType domain.AddressType, address string) (domain.Attempt, error) {
	attempt := domain.Attempt{
		ID:         m.newID(),
		QuestionID: questionID,
		Timestamp:  m.now(),
		Score:      score,
		MaxScore:   maxScore,
		Type:       addressType,
		Address:    address,
	}
	if err := attempt.Validate(); err != nil {
		return domain.Attempt{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Append(ctx, attempt); err != nil {
		return domain.Attempt{}, fmt.Errorf("append attempt: %w", err)
	}
	m.attempts = append(m.attempts, attempt)

	logger.WithFields(logrus.Fields{
		"question": questionID,
		"type":     addressType,
		"score":    score,
		"max":      maxScore,
	}).Debug("attempt recorded")
	return attempt, nil
}

// UpdateStreak extends the streak on a correct answer and resets it otherwise.
func (m *ScoreManager) UpdateStreak(ctx context.Context, wasCorrect bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := 0
	if wasCorrect {
		next = m.streak + 1
	}
	if err := m.store.SetStreak(ctx, next); err != nil {
		return m.streak, fmt.Errorf("save streak: %w", err)
	}
	m.streak = next
	return next, nil
}

// Streak returns the current streak.
func (m *ScoreManager) Streak() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streak
}

// FormatStreakEmojis renders n with the package glyph policy.
func (m *ScoreManager) FormatStreakEmojis(n int) string {
	return FormatStreakEmojis(n)
}

// FormatStreakEmojis repeats a flame per streak point up to StreakGlyphCap and
// appends a trophy beyond it.
func FormatStreakEmojis(n int) string {
	if n <= 0 {
		return ""
	}
	if n <= StreakGlyphCap {
		return strings.Repeat(streakGlyph, n)
	}
	return strings.Repeat(streakGlyph, StreakGlyphCap) + streakMaxGlyph
}

// OverallStats derives totals, accuracy and level from the full log.
func (m *ScoreManager) OverallStats() domain.OverallStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats domain.OverallStats
	for _, a := range m.attempts {
		stats.TotalAttempts++
		stats.TotalPoints += a.Score
		if a.Correct() {
			stats.TotalCorrect++
		}
	}
	stats.Accuracy = accuracy(stats.TotalCorrect, stats.TotalAttempts)

	standing := LevelFor(stats.TotalPoints, stats.Accuracy, m.levels)
	stats.Level = standing.Level
	stats.NextLevel = standing.Next
	stats.Progress = standing.Progress
	if next := standing.Next; next != nil {
		if gap := next.MinPoints - stats.TotalPoints; gap > 0 {
			stats.PointsToNext = gap
		}
		if gap := next.MinAccuracy - stats.Accuracy; gap > 0 {
			stats.AccuracyToNext = gap
		}
	}
	return stats
}

// ScoresByType aggregates the log per address type; every type is present.
func (m *ScoreManager) ScoresByType() map[domain.AddressType]domain.TypeStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[domain.AddressType]domain.TypeStats, len(domain.AddressTypes()))
	for _, t := range domain.AddressTypes() {
		out[t] = domain.TypeStats{}
	}
	for _, a := range m.attempts {
		s := out[a.Type]
		s.Attempts++
		if a.Correct() {
			s.Correct++
		}
		out[a.Type] = s
	}
	for t, s := range out {
		s.Accuracy = accuracy(s.Correct, s.Attempts)
		out[t] = s
	}
	return out
}

// ResetAllScores empties the log and streak. It cannot be undone.
func (m *ScoreManager) ResetAllScores(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear scores: %w", err)
	}
	m.attempts = nil
	m.streak = 0
	return nil
}

// Attempts returns a copy of the log, oldest first.
func (m *ScoreManager) Attempts() []domain.Attempt {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Attempt(nil), m.attempts...)
}

// Levels returns the ladder this manager scores against.
func (m *ScoreManager) Levels() []domain.Level {
	return append([]domain.Level(nil), m.levels...)
}

func accuracy(correct, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return float64(correct) / float64(attempts) * 100
}
