package memory

import (
	"context"
	"sync"

	"ipormac/internal/app"
	"ipormac/internal/domain"
)

// ScoreStore keeps one site's attempts and streak in process memory.
type ScoreStore struct {
	mu       sync.RWMutex
	attempts []domain.Attempt
	streak   int
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{}
}

func (s *ScoreStore) Append(_ context.Context, attempt domain.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, attempt)
	return nil
}

func (s *ScoreStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = nil
	s.streak = 0
	return nil
}

func (s *ScoreStore) All(_ context.Context) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Attempt(nil), s.attempts...), nil
}

func (s *ScoreStore) Streak(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streak, nil
}

func (s *ScoreStore) SetStreak(_ context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streak = n
	return nil
}

// ScoreStores hands out one ScoreStore per site key and returns the same store
// when a key is reopened, which stands in for a reload.
type ScoreStores struct {
	mu     sync.Mutex
	stores map[string]*ScoreStore
}

func NewScoreStores() *ScoreStores {
	return &ScoreStores{stores: make(map[string]*ScoreStore)}
}

// Open satisfies app.StoreOpener.
func (s *ScoreStores) Open(siteKey string) (app.ScoreStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store, ok := s.stores[siteKey]
	if !ok {
		store = NewScoreStore()
		s.stores[siteKey] = store
	}
	return store, nil
}
