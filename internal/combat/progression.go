package combat

import "idiom-battle-service/internal/domain"

// playerTiers is the static progression table, ordered by rank. The top
// rank's threshold equals TotalStages so a full clear always lands there.
var playerTiers = []domain.PlayerTier{
	{Name: "Novice", Rank: 0, MinClearedStages: 0},
	{Name: "Apprentice", Rank: 1, MinClearedStages: 3, MaxHPBonus: 20, AttackPercentBonus: 10},
	{Name: "Adept", Rank: 2, MinClearedStages: 6, MaxHPBonus: 40, AttackPercentBonus: 20, FlatDamageBonus: 2},
	{Name: "Master", Rank: 3, MinClearedStages: 9, MaxHPBonus: 60, AttackPercentBonus: 30, FlatDamageBonus: 5},
	{Name: "Grandmaster", Rank: 4, MinClearedStages: 12, MaxHPBonus: 100, AttackPercentBonus: 50, FlatDamageBonus: 10},
}

// PlayerTiers returns a copy of the progression table.
func PlayerTiers() []domain.PlayerTier {
	out := make([]domain.PlayerTier, len(playerTiers))
	copy(out, playerTiers)
	return out
}

// TierFor returns the highest tier whose threshold is met by clearedCount.
func TierFor(clearedCount int) domain.PlayerTier {
	for i := len(playerTiers) - 1; i >= 0; i-- {
		if clearedCount >= playerTiers[i].MinClearedStages {
			return playerTiers[i]
		}
	}
	return playerTiers[0]
}

// TierByRank returns the tier at the given rank, clamped to the table.
func TierByRank(rank int) domain.PlayerTier {
	if rank < 0 {
		rank = 0
	}
	if rank >= len(playerTiers) {
		rank = len(playerTiers) - 1
	}
	return playerTiers[rank]
}

// ClearResult is the outcome of recording a stage clear.
type ClearResult struct {
	Progress      domain.Progress
	TierUp        *domain.TierTransition
	BonusUnlocked bool
}

// ApplyClear records stageID in the cleared set and advances the max-tier
// ratchet. Idempotent: re-clearing a stage changes nothing. A level-up is
// reported only when the new nominal tier outranks the stored maximum;
// the maximum itself never regresses. The input progress is not mutated.
func ApplyClear(p domain.Progress, stageID int) ClearResult {
	next := domain.Progress{
		ClearedStages: make(map[int]struct{}, len(p.ClearedStages)+1),
		MaxTierRank:   p.MaxTierRank,
	}
	for id := range p.ClearedStages {
		next.ClearedStages[id] = struct{}{}
	}

	if next.Cleared(stageID) {
		return ClearResult{Progress: next, BonusUnlocked: BonusUnlocked(next)}
	}
	next.ClearedStages[stageID] = struct{}{}

	result := ClearResult{Progress: next}
	after := TierFor(next.ClearedCount())
	if after.Rank > p.MaxTierRank {
		result.TierUp = &domain.TierTransition{
			From: TierByRank(p.MaxTierRank).Name,
			To:   after.Name,
		}
		result.Progress.MaxTierRank = after.Rank
	}
	result.BonusUnlocked = BonusUnlocked(result.Progress)
	return result
}

// BonusUnlocked derives the bonus-content flag from the cleared set. It is
// never stored separately, so it cannot drift from the clear count.
func BonusUnlocked(p domain.Progress) bool {
	return p.ClearedCount() >= TotalStages
}
