package domain

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is invoked in a phase
	// it is not valid in. Integration error; callers should re-query the phase.
	ErrInvalidTransition = errors.New("operation not valid in current turn phase")
	// ErrInsufficientPool is returned when a tier has fewer than ChoiceCount
	// distinct-answer idioms. Recoverable; pick another tier or abort the stage.
	ErrInsufficientPool = errors.New("not enough idioms in tier to build a quiz")
	// ErrDuplicateSubmission is returned for a second answer to an
	// already-resolved quiz. The first resolution stands; HP is untouched.
	ErrDuplicateSubmission = errors.New("quiz already resolved")
	// ErrUnknownTier indicates a tier string outside EASY/MEDIUM/HARD.
	ErrUnknownTier = errors.New("unknown difficulty tier")
	// ErrStageNotFound indicates a stage id outside the stage table.
	ErrStageNotFound = errors.New("stage not found")
	// ErrBattleNotFound is returned when a user has no active battle session.
	ErrBattleNotFound = errors.New("battle session not found")
	// ErrBattleInProgress is returned when starting a battle for a user whose
	// previous battle has not reached a terminal phase.
	ErrBattleInProgress = errors.New("battle already in progress")
)
