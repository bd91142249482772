package domain

// Event is a fire-and-forget notification emitted by the combat engine for
// the UI and persistence layers. The core never awaits consumers.
type Event interface {
	// Kind returns the wire-level event type.
	Kind() string
}

// QuizPurpose distinguishes which side of a turn a quiz belongs to.
type QuizPurpose string

const (
	PurposeAttack  QuizPurpose = "attack"
	PurposeDefense QuizPurpose = "defense"
)

// QuizPresented announces a freshly generated quiz and starts the answer clock.
type QuizPresented struct {
	Quiz    Quiz        `json:"quiz"`
	Purpose QuizPurpose `json:"purpose"`
}

func (QuizPresented) Kind() string { return "quizPresented" }

// AttackResolved reports the outcome of the player's attack quiz.
type AttackResolved struct {
	Damage     int   `json:"damage"`
	Correct    bool  `json:"correct"`
	ResponseMs int64 `json:"responseMs"`
	BossHP     int   `json:"bossHp"`
}

func (AttackResolved) Kind() string { return "attackResolved" }

// DefenseResolved reports the outcome of the boss counter-attack.
type DefenseResolved struct {
	DamageTaken int   `json:"damageTaken"`
	Success     bool  `json:"success"`
	ResponseMs  int64 `json:"responseMs"`
	PlayerHP    int   `json:"playerHp"`
}

func (DefenseResolved) Kind() string { return "defenseResolved" }

// TierTransition records a progression level-up.
type TierTransition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StageCleared fires after a victory updates progression.
type StageCleared struct {
	StageID       int             `json:"stageId"`
	ClearedCount  int             `json:"clearedCount"`
	BonusUnlocked bool            `json:"bonusUnlocked"`
	TierUp        *TierTransition `json:"tierUp,omitempty"`
}

func (StageCleared) Kind() string { return "stageCleared" }

// Victory is the terminal event for a won battle.
type Victory struct {
	StageID int `json:"stageId"`
}

func (Victory) Kind() string { return "victory" }

// Defeat is the terminal event for a lost battle.
type Defeat struct {
	StageID int `json:"stageId"`
}

func (Defeat) Kind() string { return "defeat" }
