package combat

import "idiom-battle-service/internal/domain"

// TotalStages is the number of boss encounters; clearing them all unlocks
// the bonus content and the top progression tier.
const TotalStages = 12

var stages = []domain.Stage{
	{ID: 1, Name: "Village Gate", BossName: "Slime King", BossMaxHP: 60, BossAttackPower: 8, PlayerBaseHP: 100},
	{ID: 2, Name: "Old Schoolyard", BossName: "Grammar Goblin", BossMaxHP: 80, BossAttackPower: 10, PlayerBaseHP: 100},
	{ID: 3, Name: "Whispering Library", BossName: "Ink Wraith", BossMaxHP: 100, BossAttackPower: 12, PlayerBaseHP: 100},
	{ID: 4, Name: "Foggy Harbor", BossName: "Tide Serpent", BossMaxHP: 120, BossAttackPower: 14, PlayerBaseHP: 100},
	{ID: 5, Name: "Merchant Quarter", BossName: "Coin Golem", BossMaxHP: 140, BossAttackPower: 15, PlayerBaseHP: 100},
	{ID: 6, Name: "Thorn Forest", BossName: "Briar Witch", BossMaxHP: 160, BossAttackPower: 17, PlayerBaseHP: 100},
	{ID: 7, Name: "Sunken Crypt", BossName: "Bone Scribe", BossMaxHP: 180, BossAttackPower: 18, PlayerBaseHP: 100},
	{ID: 8, Name: "Storm Peak", BossName: "Thunder Roc", BossMaxHP: 200, BossAttackPower: 20, PlayerBaseHP: 100},
	{ID: 9, Name: "Mirror Lake", BossName: "Doppel Drake", BossMaxHP: 220, BossAttackPower: 22, PlayerBaseHP: 100},
	{ID: 10, Name: "Ember Caverns", BossName: "Magma Maw", BossMaxHP: 240, BossAttackPower: 24, PlayerBaseHP: 100},
	{ID: 11, Name: "Sky Bastion", BossName: "Gale Warden", BossMaxHP: 260, BossAttackPower: 26, PlayerBaseHP: 100},
	{ID: 12, Name: "Obsidian Throne", BossName: "Lexicon Tyrant", BossMaxHP: 300, BossAttackPower: 30, PlayerBaseHP: 100},
}

// Stages returns a copy of the stage table.
func Stages() []domain.Stage {
	out := make([]domain.Stage, len(stages))
	copy(out, stages)
	return out
}

// StageByID looks up a stage by id.
func StageByID(id int) (domain.Stage, error) {
	for _, s := range stages {
		if s.ID == id {
			return s, nil
		}
	}
	return domain.Stage{}, domain.ErrStageNotFound
}
