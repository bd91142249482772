package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"idiom-battle-service/internal/domain"
	"idiom-battle-service/internal/infra/memory"
)

func TestIdiomBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[domain.Tier][]domain.Idiom{
			domain.TierEasy: sampleIdioms(),
		}),
	}
	bank := NewIdiomBank(client, loader, time.Minute)

	idioms, err := bank.FetchByTier(context.Background(), domain.TierEasy)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(idioms) != 4 {
		t.Fatalf("expected 4 idioms, got %d", len(idioms))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("bank:EASY:idioms") {
		t.Fatalf("expected redis cache key to be set")
	}

	// Second call should hit the redis cache, loader not incremented.
	again, err := bank.FetchByTier(context.Background(), domain.TierEasy)
	if err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(again) != len(idioms) || again[0].Answer != idioms[0].Answer {
		t.Fatalf("cached idioms differ from loaded ones")
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error) {
	l.calls++
	return l.BankLoader.LoadTier(ctx, tier)
}

func sampleIdioms() []domain.Idiom {
	return []domain.Idiom{
		{ID: 1, Prompt: "to delay until later", Answer: "put off", Tier: domain.TierEasy},
		{ID: 2, Prompt: "to tolerate", Answer: "put up with", Tier: domain.TierEasy},
		{ID: 3, Prompt: "to reject an offer", Answer: "turn down", Tier: domain.TierEasy},
		{ID: 4, Prompt: "to investigate", Answer: "look into", Tier: domain.TierEasy},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
