package app

import (
	"sync"

	"github.com/google/uuid"

	"idiom-battle-service/internal/combat"
	"idiom-battle-service/internal/domain"
)

// BattleSession is the single-owner wrapper around one combat engine. The
// engine itself is not concurrency-safe; every call goes through the session
// mutex, which gives each battle the one-caller-at-a-time discipline the
// core requires even under a multi-threaded transport.
type BattleSession struct {
	id     string
	userID string

	mu          sync.Mutex
	engine      *combat.Engine
	subscribers map[chan domain.Event]struct{}
}

func newBattleSession(userID string, engine *combat.Engine) *BattleSession {
	session := &BattleSession{
		id:          uuid.NewString(),
		userID:      userID,
		engine:      engine,
		subscribers: make(map[chan domain.Event]struct{}),
	}
	engine.SetSink(session.broadcastLocked)
	return session
}

// ID returns the session's unique id.
func (s *BattleSession) ID() string { return s.id }

// UserID returns the owning player.
func (s *BattleSession) UserID() string { return s.userID }

// Phase returns the engine's current turn phase.
func (s *BattleSession) Phase() combat.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Phase()
}

// Stage returns the stage this battle runs on.
func (s *BattleSession) Stage() domain.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Stage()
}

// Snapshot returns a read-only view of the battle.
func (s *BattleSession) Snapshot() combat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

func (s *BattleSession) selectDifficulty(tier domain.Tier) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.SelectDifficulty(tier)
}

func (s *BattleSession) submitAttack(choice int) (domain.AttackResolved, domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, _, _ := s.engine.ActiveQuiz()
	resolution, err := s.engine.SubmitAttackAnswer(choice)
	if err != nil {
		return domain.AttackResolved{}, domain.Quiz{}, err
	}
	return resolution, quiz, nil
}

func (s *BattleSession) beginBossCounter() (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.BeginBossCounter()
}

func (s *BattleSession) submitDefense(choice int) (domain.DefenseResolved, domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, _, _ := s.engine.ActiveQuiz()
	resolution, err := s.engine.SubmitDefenseAnswer(choice)
	if err != nil {
		return domain.DefenseResolved{}, domain.Quiz{}, err
	}
	return resolution, quiz, nil
}

func (s *BattleSession) subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 16)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// broadcast is the entry point for events raised outside an engine call,
// such as the stage-clear notification after progression is persisted.
func (s *BattleSession) broadcast(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastLocked(event)
}

// broadcastLocked fans an event out to subscribers without blocking: a slow
// consumer loses its oldest pending event, never stalls the battle. The
// engine invokes it as its sink, always under the session mutex.
func (s *BattleSession) broadcastLocked(event domain.Event) {
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
