package memory

import (
	"context"
	"sync"

	"idiom-battle-service/internal/domain"
)

// ProgressStore keeps per-user progression in memory (dev/test fallback).
type ProgressStore struct {
	mu       sync.RWMutex
	progress map[string]domain.Progress
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{progress: make(map[string]domain.Progress)}
}

func (s *ProgressStore) Load(_ context.Context, userID string) (domain.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.progress[userID]
	if !ok {
		return domain.NewProgress(), nil
	}
	// Copy the cleared set so callers cannot mutate stored state.
	out := domain.Progress{
		ClearedStages: make(map[int]struct{}, len(stored.ClearedStages)),
		MaxTierRank:   stored.MaxTierRank,
	}
	for id := range stored.ClearedStages {
		out.ClearedStages[id] = struct{}{}
	}
	return out, nil
}

func (s *ProgressStore) Save(_ context.Context, userID string, progress domain.Progress) error {
	stored := domain.Progress{
		ClearedStages: make(map[int]struct{}, len(progress.ClearedStages)),
		MaxTierRank:   progress.MaxTierRank,
	}
	for id := range progress.ClearedStages {
		stored.ClearedStages[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The max-tier rank is a ratchet even at the storage layer.
	if prev, ok := s.progress[userID]; ok && prev.MaxTierRank > stored.MaxTierRank {
		stored.MaxTierRank = prev.MaxTierRank
	}
	s.progress[userID] = stored
	return nil
}
