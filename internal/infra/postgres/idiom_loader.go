package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"idiom-battle-service/internal/domain"
)

// IdiomLoader reads idiom reference data from Postgres.
type IdiomLoader struct {
	pool *pgxpool.Pool
}

func NewIdiomLoader(pool *pgxpool.Pool) *IdiomLoader {
	return &IdiomLoader{pool: pool}
}

func (l *IdiomLoader) LoadTier(ctx context.Context, tier domain.Tier) ([]domain.Idiom, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, prompt, answer, tier FROM idioms WHERE tier=$1 ORDER BY id`, string(tier))
	if err != nil {
		return nil, fmt.Errorf("load idioms: %w", err)
	}
	defer rows.Close()

	var idioms []domain.Idiom
	for rows.Next() {
		var idiom domain.Idiom
		var rawTier string
		if err := rows.Scan(&idiom.ID, &idiom.Prompt, &idiom.Answer, &rawTier); err != nil {
			return nil, fmt.Errorf("scan idiom: %w", err)
		}
		idiom.Tier = domain.Tier(rawTier)
		idioms = append(idioms, idiom)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read idioms: %w", err)
	}
	return idioms, nil
}
