package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Managers hands out one ScoreManager per site key, loading each history once.
type Managers struct {
	open  StoreOpener
	sites *Sites
	opts  []ManagerOption
	sf    singleflight.Group

	mu       sync.RWMutex
	managers map[string]*ScoreManager
}

func NewManagers(open StoreOpener, sites *Sites, opts ...ManagerOption) *Managers {
	return &Managers{
		open:     open,
		sites:    sites,
		opts:     opts,
		managers: make(map[string]*ScoreManager),
	}
}

// Get returns the manager for the site key, resolving unknown keys to the default site.
func (r *Managers) Get(ctx context.Context, siteKey string) (*ScoreManager, error) {
	key := r.sites.Lookup(siteKey).Key

	r.mu.RLock()
	if m, ok := r.managers[key]; ok {
		r.mu.RUnlock()
		return m, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		r.mu.RLock()
		if m, ok := r.managers[key]; ok {
			r.mu.RUnlock()
			return m, nil
		}
		r.mu.RUnlock()

		store, err := r.open(key)
		if err != nil {
			return nil, fmt.Errorf("open score store for %s: %w", key, err)
		}
		// A failed load is not cached; the next Get tries the store again.
		m, err := LoadScoreManager(ctx, store, r.sites.LevelsFor(key), r.opts...)
		if err != nil {
			return nil, fmt.Errorf("load scores for %s: %w", key, err)
		}

		r.mu.Lock()
		r.managers[key] = m
		r.mu.Unlock()
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*ScoreManager), nil
}
