package repository

import (
	"context"

	"gorm.io/gorm"
)

// CounterRepository allocates gapless per-scope document numbers.
type CounterRepository interface {
	// NextTx increments the counter for scope and returns the new value.
	// Concurrent callers serialize on the counter row until their tx ends,
	// and a rolled back tx releases its number.
	NextTx(ctx context.Context, tx *gorm.DB, scope string) (int64, error)
}

type counterRepo struct{ db *gorm.DB }

func NewCounterRepository(db *gorm.DB) CounterRepository { return &counterRepo{db: db} }

func (r *counterRepo) NextTx(ctx context.Context, tx *gorm.DB, scope string) (int64, error) {
	var value int64
	err := conn(ctx, r.db, tx).Raw(`
		INSERT INTO document_counters (scope, value) VALUES (?, 1)
		ON CONFLICT (scope) DO UPDATE SET value = document_counters.value + 1
		RETURNING value`, scope).Scan(&value).Error
	return value, err
}
