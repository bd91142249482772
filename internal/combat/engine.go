package combat

import (
	"math/rand"
	"time"

	"idiom-battle-service/internal/domain"
)

// Phase is the current state of the turn state machine.
type Phase string

const (
	PhaseAwaitingDifficulty Phase = "awaitingDifficulty"
	PhaseAttackQuiz         Phase = "attackQuiz"
	PhaseBossCounter        Phase = "bossCounter"
	PhaseDefenseQuiz        Phase = "defenseQuiz"
	PhaseVictory            Phase = "victory"
	PhaseDefeat             Phase = "defeat"
)

// Terminal reports whether the phase ends the battle.
func (p Phase) Terminal() bool {
	return p == PhaseVictory || p == PhaseDefeat
}

// DefenseBand weights the defense-quiz tier choice for a range of stage ids.
// The weights are tuning data, not structural rules; they come from config
// with DefaultDefenseBands as the fallback.
type DefenseBand struct {
	MinStage int     `yaml:"minStage"`
	MaxStage int     `yaml:"maxStage"`
	Easy     float64 `yaml:"easy"`
	Medium   float64 `yaml:"medium"`
	Hard     float64 `yaml:"hard"`
}

// DefaultDefenseBands keeps early stages mostly EASY and shifts the weight
// toward MEDIUM/HARD for late stages.
func DefaultDefenseBands() []DefenseBand {
	return []DefenseBand{
		{MinStage: 1, MaxStage: 4, Easy: 0.70, Medium: 0.25, Hard: 0.05},
		{MinStage: 5, MaxStage: 8, Easy: 0.40, Medium: 0.45, Hard: 0.15},
		{MinStage: 9, MaxStage: TotalStages, Easy: 0.15, Medium: 0.45, Hard: 0.40},
	}
}

// Snapshot is a read-only view of the engine for transports and persistence.
type Snapshot struct {
	StageID      int    `json:"stageId"`
	StageName    string `json:"stageName"`
	BossName     string `json:"bossName"`
	Phase        Phase  `json:"phase"`
	PlayerHP     int    `json:"playerHp"`
	PlayerMaxHP  int    `json:"playerMaxHp"`
	BossHP       int    `json:"bossHp"`
	BossMaxHP    int    `json:"bossMaxHp"`
	PlayerTier   string `json:"playerTier"`
	CorrectCount int    `json:"correctCount"`
	WrongCount   int    `json:"wrongCount"`
}

// Engine is the authoritative turn state machine for one battle. It owns the
// session's mutable state and nothing else: no I/O, no timers, no locks. It
// is not safe for concurrent use; the owning layer serializes calls. Timers
// run in the caller, which reports expiry by submitting domain.NoAnswer.
type Engine struct {
	stage      domain.Stage
	playerTier domain.PlayerTier
	pool       []domain.Idiom
	gen        *Generator
	rnd        *rand.Rand
	now        func() time.Time
	sink       func(domain.Event)
	bands      []DefenseBand

	phase       Phase
	playerHP    int
	playerMaxHP int
	bossHP      int

	activeQuiz      *domain.Quiz
	quizPurpose     domain.QuizPurpose
	turnStarted     time.Time
	lastIdiomID     int64
	attackResolved  bool
	defenseResolved bool
	correctCount    int
	wrongCount      int
}

// NewEngine starts a battle session against stage for a player at tier,
// drawing quizzes from pool. HP pools are initialized from the stage data
// plus the tier's max-HP bonus.
func NewEngine(stage domain.Stage, tier domain.PlayerTier, pool []domain.Idiom) *Engine {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return NewEngineWithClock(stage, tier, pool, rnd, time.Now)
}

// NewEngineWithClock is for deterministic tests: both the random source and
// the clock are injected.
func NewEngineWithClock(stage domain.Stage, tier domain.PlayerTier, pool []domain.Idiom, rnd *rand.Rand, now func() time.Time) *Engine {
	maxHP := stage.PlayerBaseHP + tier.MaxHPBonus
	return &Engine{
		stage:       stage,
		playerTier:  tier,
		pool:        pool,
		gen:         NewGeneratorWithRand(rnd),
		rnd:         rnd,
		now:         now,
		bands:       DefaultDefenseBands(),
		phase:       PhaseAwaitingDifficulty,
		playerHP:    maxHP,
		playerMaxHP: maxHP,
		bossHP:      stage.BossMaxHP,
	}
}

// SetSink installs the fire-and-forget event consumer. A nil sink is valid.
func (e *Engine) SetSink(sink func(domain.Event)) { e.sink = sink }

// SetDefenseBands overrides the defense-tier weighting table.
func (e *Engine) SetDefenseBands(bands []DefenseBand) {
	if len(bands) > 0 {
		e.bands = bands
	}
}

// Phase returns the current turn phase.
func (e *Engine) Phase() Phase { return e.phase }

// Stage returns the stage this battle runs on.
func (e *Engine) Stage() domain.Stage { return e.stage }

// ActiveQuiz returns the outstanding quiz and its purpose, if any.
func (e *Engine) ActiveQuiz() (domain.Quiz, domain.QuizPurpose, bool) {
	if e.activeQuiz == nil {
		return domain.Quiz{}, "", false
	}
	return *e.activeQuiz, e.quizPurpose, true
}

// Snapshot returns a read-only view of the session.
func (e *Engine) Snapshot() Snapshot {
	return Snapshot{
		StageID:      e.stage.ID,
		StageName:    e.stage.Name,
		BossName:     e.stage.BossName,
		Phase:        e.phase,
		PlayerHP:     e.playerHP,
		PlayerMaxHP:  e.playerMaxHP,
		BossHP:       e.bossHP,
		BossMaxHP:    e.stage.BossMaxHP,
		PlayerTier:   e.playerTier.Name,
		CorrectCount: e.correctCount,
		WrongCount:   e.wrongCount,
	}
}

func (e *Engine) emit(event domain.Event) {
	if e.sink != nil {
		e.sink(event)
	}
}

// SelectDifficulty begins the player's turn: it generates an attack quiz for
// the chosen tier and starts the answer clock. Valid only in
// PhaseAwaitingDifficulty. On domain.ErrInsufficientPool no quiz is recorded
// and the phase does not change; the caller may retry with another tier.
func (e *Engine) SelectDifficulty(tier domain.Tier) (domain.Quiz, error) {
	if e.phase != PhaseAwaitingDifficulty {
		return domain.Quiz{}, domain.ErrInvalidTransition
	}
	quiz, err := e.gen.Generate(e.pool, tier, e.lastIdiomID)
	if err != nil {
		return domain.Quiz{}, err
	}
	e.activeQuiz = &quiz
	e.quizPurpose = domain.PurposeAttack
	e.turnStarted = e.now()
	e.attackResolved = false
	e.phase = PhaseAttackQuiz
	e.emit(domain.QuizPresented{Quiz: quiz, Purpose: domain.PurposeAttack})
	return quiz, nil
}

// SubmitAttackAnswer resolves the attack quiz with the player's choice, or
// with domain.NoAnswer when the caller's timer expired. Damage is the tier
// formula plus the player-tier bonuses; boss HP floors at zero and boss death
// is checked before anything else can hurt the player.
func (e *Engine) SubmitAttackAnswer(choice int) (domain.AttackResolved, error) {
	if e.phase != PhaseAttackQuiz {
		if e.attackResolved && (e.phase == PhaseBossCounter || e.phase == PhaseDefenseQuiz) {
			return domain.AttackResolved{}, domain.ErrDuplicateSubmission
		}
		return domain.AttackResolved{}, domain.ErrInvalidTransition
	}

	quiz := *e.activeQuiz
	correct, responseMs := e.grade(quiz, choice)

	dmg := AttackDamage(quiz.Tier, correct, responseMs)
	dmg = dmg*(100+e.playerTier.AttackPercentBonus)/100 + e.playerTier.FlatDamageBonus

	e.bossHP -= dmg
	if e.bossHP < 0 {
		e.bossHP = 0
	}
	e.recordAnswer(quiz, correct)
	e.attackResolved = true

	resolution := domain.AttackResolved{
		Damage:     dmg,
		Correct:    correct,
		ResponseMs: responseMs,
		BossHP:     e.bossHP,
	}
	e.emit(resolution)

	if e.bossHP == 0 {
		e.phase = PhaseVictory
		e.emit(domain.Victory{StageID: e.stage.ID})
	} else {
		e.phase = PhaseBossCounter
	}
	return resolution, nil
}

// BeginBossCounter moves the boss counter-attack forward: it picks a defense
// tier by the stage's weighted band, generates the defense quiz, and starts
// the clock. Valid only in PhaseBossCounter. On domain.ErrInsufficientPool
// the engine stays in PhaseBossCounter with no quiz recorded, so the caller
// can retry once the bank recovers or abort the stage.
func (e *Engine) BeginBossCounter() (domain.Quiz, error) {
	if e.phase != PhaseBossCounter {
		return domain.Quiz{}, domain.ErrInvalidTransition
	}

	quiz, err := e.generateDefenseQuiz()
	if err != nil {
		return domain.Quiz{}, err
	}
	e.activeQuiz = &quiz
	e.quizPurpose = domain.PurposeDefense
	e.turnStarted = e.now()
	e.defenseResolved = false
	e.phase = PhaseDefenseQuiz
	e.emit(domain.QuizPresented{Quiz: quiz, Purpose: domain.PurposeDefense})
	return quiz, nil
}

// SubmitDefenseAnswer resolves the defense quiz. A successful defense cuts
// the boss hit to 30%; player HP floors at zero and exactly zero is Defeat.
func (e *Engine) SubmitDefenseAnswer(choice int) (domain.DefenseResolved, error) {
	if e.phase != PhaseDefenseQuiz {
		if e.defenseResolved && e.phase == PhaseAwaitingDifficulty {
			return domain.DefenseResolved{}, domain.ErrDuplicateSubmission
		}
		return domain.DefenseResolved{}, domain.ErrInvalidTransition
	}

	quiz := *e.activeQuiz
	success, responseMs := e.grade(quiz, choice)

	dmg := DefenseDamage(e.stage.BossAttackPower, success)
	e.playerHP -= dmg
	if e.playerHP < 0 {
		e.playerHP = 0
	}
	e.recordAnswer(quiz, success)
	e.defenseResolved = true

	resolution := domain.DefenseResolved{
		DamageTaken: dmg,
		Success:     success,
		ResponseMs:  responseMs,
		PlayerHP:    e.playerHP,
	}
	e.emit(resolution)

	if e.playerHP == 0 {
		e.phase = PhaseDefeat
		e.emit(domain.Defeat{StageID: e.stage.ID})
	} else {
		e.phase = PhaseAwaitingDifficulty
	}
	return resolution, nil
}

// grade computes (correct, responseMs) for a submission against the active
// quiz. A timeout counts as wrong with the response time clamped to the
// tier's limit.
func (e *Engine) grade(quiz domain.Quiz, choice int) (bool, int64) {
	responseMs := e.now().Sub(e.turnStarted).Milliseconds()
	if responseMs < 0 {
		responseMs = 0
	}
	if choice == domain.NoAnswer {
		// The caller's timer may fire a little late; the turn still expired
		// exactly at the deadline.
		return false, quiz.TimeLimitMs
	}
	return choice == quiz.CorrectIndex, responseMs
}

func (e *Engine) recordAnswer(quiz domain.Quiz, correct bool) {
	if correct {
		e.correctCount++
	} else {
		e.wrongCount++
	}
	e.lastIdiomID = quiz.IdiomID
	e.activeQuiz = nil
}

// generateDefenseQuiz draws the defense tier from the stage's band, falling
// back through the remaining tiers when the picked one cannot fill a quiz.
func (e *Engine) generateDefenseQuiz() (domain.Quiz, error) {
	picked := e.pickDefenseTier()
	order := []domain.Tier{picked}
	for _, tier := range domain.Tiers {
		if tier != picked {
			order = append(order, tier)
		}
	}
	for _, tier := range order {
		quiz, err := e.gen.Generate(e.pool, tier, e.lastIdiomID)
		if err == nil {
			return quiz, nil
		}
	}
	return domain.Quiz{}, domain.ErrInsufficientPool
}

func (e *Engine) pickDefenseTier() domain.Tier {
	band := e.bandFor(e.stage.ID)
	total := band.Easy + band.Medium + band.Hard
	if total <= 0 {
		return domain.TierEasy
	}
	r := e.rnd.Float64() * total
	switch {
	case r < band.Easy:
		return domain.TierEasy
	case r < band.Easy+band.Medium:
		return domain.TierMedium
	default:
		return domain.TierHard
	}
}

func (e *Engine) bandFor(stageID int) DefenseBand {
	for _, band := range e.bands {
		if stageID >= band.MinStage && stageID <= band.MaxStage {
			return band
		}
	}
	return e.bands[len(e.bands)-1]
}
