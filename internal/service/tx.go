package service

import (
	"context"

	"github.com/FarrelGhozy/Kasir-UTC-02/internal/repository"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// runTx executes fn inside a transaction when a Transactor is available,
// or calls fn(nil) directly when it is nil (unit test mode).
func runTx(ctx context.Context, txr repository.Transactor, fn func(tx *gorm.DB) error) error {
	if txr == nil {
		return fn(nil)
	}
	return txr.Transaction(ctx, fn)
}

// savepoint runs fn under a named savepoint of tx. When fn fails, only its
// own writes are rolled back and its error comes back as failed, leaving tx
// usable. err is set when the savepoint itself could not be set or unwound;
// tx must then be abandoned. A nil tx runs fn directly.
func savepoint(tx *gorm.DB, name string, fn func() error) (failed, err error) {
	if tx == nil {
		return fn(), nil
	}
	if err := tx.SavePoint(name).Error; err != nil {
		return nil, errors.Wrapf(err, "savepoint %s", name)
	}
	if failed = fn(); failed == nil {
		return nil, nil
	}
	if err := tx.RollbackTo(name).Error; err != nil {
		return failed, errors.Wrapf(err, "rollback to savepoint %s", name)
	}
	return failed, nil
}
