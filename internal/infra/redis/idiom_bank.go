package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"idiom-battle-service/internal/domain"
)

// BankLoader fetches idiom records from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error)
}

// IdiomBank caches each tier's idiom slice in Redis as a JSON blob
// (SET bank:{tier}:idioms) and falls back to the loader on cache miss.
// Safe to share across server instances; the data is read-only.
type IdiomBank struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewIdiomBank(client *redis.Client, loader BankLoader, ttl time.Duration) *IdiomBank {
	return &IdiomBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *IdiomBank) FetchByTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error) {
	key := b.tierKey(tier)

	if idioms, ok := b.fromCache(ctx, key); ok {
		return idioms, nil
	}

	result, err, _ := b.sf.Do(string(tier), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if idioms, ok := b.fromCache(ctx, key); ok {
			return idioms, nil
		}

		idioms, err := b.loader.LoadTier(ctx, tier)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(idioms)
		if err != nil {
			return nil, fmt.Errorf("marshal idioms: %w", err)
		}
		// best-effort cache fill
		_ = b.client.Set(ctx, key, data, b.ttlWithJitter()).Err()

		return idioms, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Idiom), nil
}

func (b *IdiomBank) fromCache(ctx context.Context, key string) ([]domain.Idiom, bool) {
	raw, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var idioms []domain.Idiom
	if err := json.Unmarshal(raw, &idioms); err != nil {
		return nil, false
	}
	return idioms, true
}

func (b *IdiomBank) tierKey(tier domain.Tier) string {
	return "bank:" + string(tier) + ":idioms"
}

func (b *IdiomBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
