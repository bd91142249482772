package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"idiom-battle-service/internal/domain"
)

// BankLoader fetches idiom records from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error)
}

// IdiomBank caches per-tier idiom slices with TTL to avoid repeated DB hits.
// Reads are safe for concurrent use; battles only ever read.
type IdiomBank struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[domain.Tier]cachedTier
}

type cachedTier struct {
	idioms    []domain.Idiom
	expiresAt time.Time
}

func NewIdiomBank(loader BankLoader, ttl time.Duration) *IdiomBank {
	return &IdiomBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[domain.Tier]cachedTier),
	}
}

func (b *IdiomBank) FetchByTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[tier]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.idioms, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(string(tier), func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[tier]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.idioms, nil
		}
		b.mu.RUnlock()

		idioms, err := b.loader.LoadTier(ctx, tier)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cache[tier] = cachedTier{
			idioms:    idioms,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return idioms, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Idiom), nil
}

func (b *IdiomBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader is a loader backed by an in-memory map (tests/demos).
type StaticBankLoader struct {
	idioms map[domain.Tier][]domain.Idiom
}

func NewStaticBankLoader(idioms map[domain.Tier][]domain.Idiom) *StaticBankLoader {
	return &StaticBankLoader{idioms: idioms}
}

func (l *StaticBankLoader) LoadTier(_ context.Context, tier domain.Tier) ([]domain.Idiom, error) {
	return l.idioms[tier], nil
}
