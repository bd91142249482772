package combat

import (
	"math"

	"idiom-battle-service/internal/domain"
)

// Per-tier tuning tables. These are the single source of truth for both the
// predicting client and the settling server; any copy must match bit-for-bit.
var (
	baseDamage = map[domain.Tier]int{
		domain.TierEasy:   10,
		domain.TierMedium: 20,
		domain.TierHard:   30,
	}
	timeLimitMs = map[domain.Tier]int64{
		domain.TierEasy:   15000,
		domain.TierMedium: 10000,
		domain.TierHard:   5000,
	}
)

// speedBonusMax caps the latency bonus: 10 at zero latency, 0 at the deadline.
const speedBonusMax = 10

// BaseDamage returns the tier's base attack damage.
func BaseDamage(tier domain.Tier) int { return baseDamage[tier] }

// TimeLimit returns the tier's answer deadline in milliseconds.
func TimeLimit(tier domain.Tier) int64 { return timeLimitMs[tier] }

// AttackDamage maps a quiz outcome to attack damage.
//
// The speed bonus is linear in response time and is computed independent of
// correctness, so a fast wrong answer still deals the bonus alone. That
// asymmetry is intentional reference behavior; do not "fix" it here.
func AttackDamage(tier domain.Tier, correct bool, responseMs int64) int {
	base := baseDamage[tier]
	if !correct {
		base = 0
	}

	if responseMs < 0 {
		responseMs = 0
	}
	limit := timeLimitMs[tier]
	bonus := 0
	if responseMs < limit {
		bonus = int((1 - float64(responseMs)/float64(limit)) * speedBonusMax)
	}

	dmg := base + bonus
	if dmg < 0 {
		dmg = 0
	}
	return dmg
}

// defenseMultiplier discounts the boss hit when the defense quiz succeeds.
const defenseMultiplier = 0.3

// DefenseDamage maps a boss counter-attack to damage taken by the player.
func DefenseDamage(bossAttackPower int, success bool) int {
	multiplier := 1.0
	if success {
		multiplier = defenseMultiplier
	}
	dmg := int(math.Ceil(float64(bossAttackPower) * multiplier))
	if dmg < 0 {
		dmg = 0
	}
	return dmg
}
