package domain

import (
	"fmt"
	"time"
)

// Tier is a quiz difficulty band. It controls base damage, the answer
// time limit, and which slice of the idiom bank questions are drawn from.
type Tier string

const (
	TierEasy   Tier = "EASY"
	TierMedium Tier = "MEDIUM"
	TierHard   Tier = "HARD"
)

// Tiers lists all difficulty bands from easiest to hardest.
var Tiers = []Tier{TierEasy, TierMedium, TierHard}

// ParseTier validates a wire-format tier string.
func ParseTier(raw string) (Tier, error) {
	switch Tier(raw) {
	case TierEasy, TierMedium, TierHard:
		return Tier(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTier, raw)
}

// Idiom is one vocabulary record. Reference data; never mutated by the core.
type Idiom struct {
	ID     int64  `json:"id"`
	Prompt string `json:"prompt"`
	Answer string `json:"answer"`
	Tier   Tier   `json:"tier"`
}

// Quiz is a single multiple-choice question built for one combat turn.
// Choices holds exactly ChoiceCount pairwise-distinct strings and
// Choices[CorrectIndex] equals the subject idiom's answer text.
type Quiz struct {
	IdiomID      int64    `json:"idiomId"`
	Prompt       string   `json:"prompt"`
	Choices      []string `json:"choices"`
	CorrectIndex int      `json:"correctIndex"`
	Tier         Tier     `json:"tier"`
	TimeLimitMs  int64    `json:"timeLimitMs"`
}

// ChoiceCount is the fixed number of choices per quiz: one correct answer
// plus three distractors.
const ChoiceCount = 4

// NoAnswer is the sentinel choice index meaning the player let the timer
// run out. Timeouts are a first-class input, not an error.
const NoAnswer = -1

// Stage describes one boss encounter.
type Stage struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	BossName        string `json:"bossName"`
	BossMaxHP       int    `json:"bossMaxHp"`
	BossAttackPower int    `json:"bossAttackPower"`
	PlayerBaseHP    int    `json:"playerBaseHp"`
}

// PlayerTier is one row of the static progression table. Rank orders the
// table; bonuses apply to the player's stats while battling.
type PlayerTier struct {
	Name               string `json:"name"`
	Rank               int    `json:"rank"`
	MinClearedStages   int    `json:"minClearedStages"`
	MaxHPBonus         int    `json:"maxHpBonus"`
	AttackPercentBonus int    `json:"attackPercentBonus"`
	FlatDamageBonus    int    `json:"flatDamageBonus"`
}

// Progress is a player's persisted progression state: the append-only set
// of cleared stage ids plus the highest tier rank ever reached. MaxTierRank
// is a ratchet and never regresses, even if the cleared set is later
// corrected downward.
type Progress struct {
	ClearedStages map[int]struct{}
	MaxTierRank   int
}

// NewProgress returns empty progression state.
func NewProgress() Progress {
	return Progress{ClearedStages: make(map[int]struct{})}
}

// ClearedCount reports how many stages have been cleared.
func (p Progress) ClearedCount() int {
	return len(p.ClearedStages)
}

// Cleared reports whether stageID is in the cleared set.
func (p Progress) Cleared(stageID int) bool {
	_, ok := p.ClearedStages[stageID]
	return ok
}

// ActionType labels a learning-log record by what the quiz was for.
type ActionType string

const (
	ActionAttack ActionType = "ATTACK"
	ActionDefend ActionType = "DEFEND"
	ActionLearn  ActionType = "LEARN"
)

// LearningLog is one append-only analytics record per resolved quiz.
// The core writes these and never reads them back.
type LearningLog struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	StageID    int        `json:"stageId"`
	IdiomID    int64      `json:"idiomId"`
	Action     ActionType `json:"action"`
	Tier       Tier       `json:"tier"`
	Correct    bool       `json:"correct"`
	ResponseMs int64      `json:"responseMs"`
	Damage     int        `json:"damage"`
	CreatedAt  time.Time  `json:"createdAt"`
}
