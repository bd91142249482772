package memory

import (
	"context"
	"testing"
	"time"

	"idiom-battle-service/internal/domain"
)

func TestIdiomBankCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[domain.Tier][]domain.Idiom{
			domain.TierEasy: sampleIdioms(),
		}),
	}
	bank := NewIdiomBank(loader, time.Minute)

	idioms, err := bank.FetchByTier(context.Background(), domain.TierEasy)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(idioms) != 4 {
		t.Fatalf("expected 4 idioms, got %d", len(idioms))
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := bank.FetchByTier(context.Background(), domain.TierEasy); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestIdiomBankCachesPerTier(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[domain.Tier][]domain.Idiom{
			domain.TierEasy: sampleIdioms(),
		}),
	}
	bank := NewIdiomBank(loader, time.Minute)

	_, _ = bank.FetchByTier(context.Background(), domain.TierEasy)
	idioms, err := bank.FetchByTier(context.Background(), domain.TierHard)
	if err != nil {
		t.Fatalf("fetch hard: %v", err)
	}
	if len(idioms) != 0 {
		t.Fatalf("expected empty HARD tier, got %d", len(idioms))
	}
	if loader.calls != 2 {
		t.Fatalf("expected separate load per tier, got %d calls", loader.calls)
	}
}

type countingLoader struct {
	BankLoader
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
