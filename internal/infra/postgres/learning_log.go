package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"idiom-battle-service/internal/domain"
)

// LearningLogStore appends quiz-resolution records to the analytics stream.
// Insert-only; nothing in the service reads this table.
type LearningLogStore struct {
	db *bun.DB
}

func NewLearningLogStore(db *bun.DB) *LearningLogStore {
	return &LearningLogStore{db: db}
}

type learningLogRow struct {
	bun.BaseModel `bun:"table:learning_logs"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id"`
	StageID    int       `bun:"stage_id"`
	IdiomID    int64     `bun:"idiom_id"`
	Action     string    `bun:"action"`
	Tier       string    `bun:"tier"`
	Correct    bool      `bun:"correct"`
	ResponseMs int64     `bun:"response_ms"`
	Damage     int       `bun:"damage"`
	CreatedAt  time.Time `bun:"created_at"`
}

func (s *LearningLogStore) Append(ctx context.Context, record domain.LearningLog) error {
	row := &learningLogRow{
		ID:         record.ID,
		UserID:     record.UserID,
		StageID:    record.StageID,
		IdiomID:    record.IdiomID,
		Action:     string(record.Action),
		Tier:       string(record.Tier),
		Correct:    record.Correct,
		ResponseMs: record.ResponseMs,
		Damage:     record.Damage,
		CreatedAt:  record.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("append learning log: %w", err)
	}
	return nil
}
