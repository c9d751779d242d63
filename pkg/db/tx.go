package db

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner executes a unit of work inside a single database transaction.
// Client satisfies it; tests can wrap a raw connection with NewTxRunner.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewTxRunner adapts a raw GORM connection to the TxRunner interface.
func NewTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return runInTx(ctx, r.db, fn)
}

func runInTx(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
