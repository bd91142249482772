package app

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"idiom-battle-service/internal/combat"
	"idiom-battle-service/internal/domain"
)

// SessionRepository abstracts how battle sessions are stored (in-memory,
// Redis-backed, etc). One session per user.
type SessionRepository interface {
	Put(userID string, session *BattleSession)
	Get(userID string) (*BattleSession, bool)
	Delete(userID string)
}

// IdiomBank is the read-only quiz-content contract. Implementations must be
// safe for concurrent readers.
type IdiomBank interface {
	FetchByTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error)
}

// ProgressStore persists per-user progression state.
type ProgressStore interface {
	Load(ctx context.Context, userID string) (domain.Progress, error)
	Save(ctx context.Context, userID string, progress domain.Progress) error
}

// LearningLogAppender receives one analytics record per resolved quiz.
// Appends are best-effort; the core never reads them back.
type LearningLogAppender interface {
	Append(ctx context.Context, record domain.LearningLog) error
}

// BattleService drives battles: it owns session lookup, feeds the combat
// engine, persists progression on stage clears, and streams engine events
// to subscribers.
type BattleService struct {
	sessions SessionRepository
	bank     IdiomBank
	progress ProgressStore
	logs     LearningLogAppender // nil disables logging
	bands    []combat.DefenseBand
	now      func() time.Time
}

func NewBattleService(sessions SessionRepository, bank IdiomBank, progress ProgressStore, logs LearningLogAppender) *BattleService {
	return &BattleService{
		sessions: sessions,
		bank:     bank,
		progress: progress,
		logs:     logs,
		bands:    combat.DefaultDefenseBands(),
		now:      time.Now,
	}
}

// SetDefenseBands overrides the defense-tier weighting used by new battles.
func (s *BattleService) SetDefenseBands(bands []combat.DefenseBand) {
	if len(bands) > 0 {
		s.bands = bands
	}
}

// StartBattle creates a battle session for userID on the given stage. A user
// has at most one live battle; starting over a non-terminal one is rejected,
// while a finished one is replaced.
func (s *BattleService) StartBattle(ctx context.Context, userID string, stageID int) (combat.Snapshot, error) {
	if existing, ok := s.sessions.Get(userID); ok {
		if !existing.Phase().Terminal() {
			return combat.Snapshot{}, domain.ErrBattleInProgress
		}
		s.sessions.Delete(userID)
	}

	stage, err := combat.StageByID(stageID)
	if err != nil {
		return combat.Snapshot{}, err
	}

	pool, err := s.fetchPool(ctx)
	if err != nil {
		return combat.Snapshot{}, err
	}

	progress, err := s.progress.Load(ctx, userID)
	if err != nil {
		return combat.Snapshot{}, err
	}
	tier := effectiveTier(progress)

	engine := combat.NewEngine(stage, tier, pool)
	engine.SetDefenseBands(s.bands)
	session := newBattleSession(userID, engine)
	s.sessions.Put(userID, session)
	return session.Snapshot(), nil
}

// fetchPool assembles the battle's idiom pool across all tiers. A tier the
// bank cannot serve surfaces later as ErrInsufficientPool for that tier only.
func (s *BattleService) fetchPool(ctx context.Context) ([]domain.Idiom, error) {
	var pool []domain.Idiom
	for _, tier := range domain.Tiers {
		idioms, err := s.bank.FetchByTier(ctx, tier)
		if err != nil {
			return nil, err
		}
		pool = append(pool, idioms...)
	}
	return pool, nil
}

// effectiveTier applies the max-tier ratchet: stat bonuses never regress
// below the highest tier the player has reached.
func effectiveTier(p domain.Progress) domain.PlayerTier {
	tier := combat.TierFor(p.ClearedCount())
	if p.MaxTierRank > tier.Rank {
		return combat.TierByRank(p.MaxTierRank)
	}
	return tier
}

// SelectDifficulty starts the player's turn with an attack quiz of the
// chosen tier.
func (s *BattleService) SelectDifficulty(ctx context.Context, userID string, tier domain.Tier) (domain.Quiz, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Quiz{}, domain.ErrBattleNotFound
	}
	return session.selectDifficulty(tier)
}

// SubmitAttack resolves the attack quiz. Pass domain.NoAnswer for a timeout.
// On victory the stage clear is persisted and a StageCleared event is
// broadcast with any tier transition.
func (s *BattleService) SubmitAttack(ctx context.Context, userID string, choice int) (domain.AttackResolved, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.AttackResolved{}, domain.ErrBattleNotFound
	}

	resolution, quiz, err := session.submitAttack(choice)
	if err != nil {
		return domain.AttackResolved{}, err
	}
	s.appendLog(ctx, userID, session, quiz, domain.ActionAttack, resolution.Correct, resolution.ResponseMs, resolution.Damage)

	if session.Phase() == combat.PhaseVictory {
		s.recordStageClear(ctx, userID, session)
	}
	return resolution, nil
}

// ContinueBossCounter generates the boss counter-attack's defense quiz. The
// transport calls it after the windup; it is also the retry point when the
// bank briefly cannot fill a defense quiz.
func (s *BattleService) ContinueBossCounter(ctx context.Context, userID string) (domain.Quiz, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.Quiz{}, domain.ErrBattleNotFound
	}
	return session.beginBossCounter()
}

// SubmitDefense resolves the defense quiz. Pass domain.NoAnswer for a timeout.
func (s *BattleService) SubmitDefense(ctx context.Context, userID string, choice int) (domain.DefenseResolved, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return domain.DefenseResolved{}, domain.ErrBattleNotFound
	}

	resolution, quiz, err := session.submitDefense(choice)
	if err != nil {
		return domain.DefenseResolved{}, err
	}
	s.appendLog(ctx, userID, session, quiz, domain.ActionDefend, resolution.Success, resolution.ResponseMs, resolution.DamageTaken)
	return resolution, nil
}

// Snapshot returns the current view of the user's battle.
func (s *BattleService) Snapshot(userID string) (combat.Snapshot, error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return combat.Snapshot{}, domain.ErrBattleNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel of battle events for the user. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *BattleService) Subscribe(_ context.Context, userID string) (<-chan domain.Event, func(), error) {
	session, ok := s.sessions.Get(userID)
	if !ok {
		return nil, nil, domain.ErrBattleNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

// Abandon destroys the user's battle session without resolving anything:
// no HP changes, no learning-log record, no progression update.
func (s *BattleService) Abandon(_ context.Context, userID string) {
	if _, ok := s.sessions.Get(userID); ok {
		s.sessions.Delete(userID)
	}
}

func (s *BattleService) recordStageClear(ctx context.Context, userID string, session *BattleSession) {
	stageID := session.Stage().ID
	progress, err := s.progress.Load(ctx, userID)
	if err != nil {
		log.Printf("load progress for %s: %v", userID, err)
		return
	}
	result := combat.ApplyClear(progress, stageID)
	if err := s.progress.Save(ctx, userID, result.Progress); err != nil {
		log.Printf("save progress for %s: %v", userID, err)
		return
	}
	session.broadcast(domain.StageCleared{
		StageID:       stageID,
		ClearedCount:  result.Progress.ClearedCount(),
		BonusUnlocked: result.BonusUnlocked,
		TierUp:        result.TierUp,
	})
}

func (s *BattleService) appendLog(ctx context.Context, userID string, session *BattleSession, quiz domain.Quiz, action domain.ActionType, correct bool, responseMs int64, damage int) {
	if s.logs == nil {
		return
	}
	record := domain.LearningLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		StageID:    session.Stage().ID,
		IdiomID:    quiz.IdiomID,
		Action:     action,
		Tier:       quiz.Tier,
		Correct:    correct,
		ResponseMs: responseMs,
		Damage:     damage,
		CreatedAt:  s.now(),
	}
	if err := s.logs.Append(ctx, record); err != nil {
		log.Printf("append learning log for %s: %v", userID, err)
	}
}
