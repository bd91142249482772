package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"idiom-battle-service/internal/domain"
)

// ProgressStore persists per-user progression in Redis:
// cleared stages as a set (SADD battle:progress:{user}:stages) and the
// max-tier ratchet as a string (SET battle:progress:{user}:maxtier).
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Load(ctx context.Context, userID string) (domain.Progress, error) {
	progress := domain.NewProgress()

	members, err := s.client.SMembers(ctx, s.stagesKey(userID)).Result()
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load cleared stages: %w", err)
	}
	for _, member := range members {
		stageID, err := strconv.Atoi(member)
		if err != nil {
			continue
		}
		progress.ClearedStages[stageID] = struct{}{}
	}

	rank, err := s.client.Get(ctx, s.tierKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return domain.Progress{}, fmt.Errorf("load max tier: %w", err)
	}
	progress.MaxTierRank = rank
	return progress, nil
}

func (s *ProgressStore) Save(ctx context.Context, userID string, progress domain.Progress) error {
	if len(progress.ClearedStages) > 0 {
		pipe := s.client.Pipeline()
		for stageID := range progress.ClearedStages {
			pipe.SAdd(ctx, s.stagesKey(userID), strconv.Itoa(stageID))
		}
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("save cleared stages: %w", err)
		}
	}

	// The stored rank is a ratchet: never overwrite with a lower value.
	current, err := s.client.Get(ctx, s.tierKey(userID)).Int()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read max tier: %w", err)
	}
	if progress.MaxTierRank > current {
		if err := s.client.Set(ctx, s.tierKey(userID), progress.MaxTierRank, 0).Err(); err != nil {
			return fmt.Errorf("save max tier: %w", err)
		}
	}
	return nil
}

func (s *ProgressStore) stagesKey(userID string) string {
	return "battle:progress:" + userID + ":stages"
}

func (s *ProgressStore) tierKey(userID string) string {
	return "battle:progress:" + userID + ":maxtier"
}
