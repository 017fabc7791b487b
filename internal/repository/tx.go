package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go-pos-backoffice/pkg/apperror"

	"gorm.io/gorm"
)

// TxRunner owns the database transaction boundary for the posting engine.
// Every use-case runs inside exactly one transaction: all row locks taken
// within it are released at commit or rollback.
type TxRunner interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type txRunner struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

func NewTxRunner(db *gorm.DB, lockTimeout time.Duration) TxRunner {
	return &txRunner{db: db, lockTimeout: lockTimeout}
}

func (r *txRunner) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.lockTimeout > 0 {
			timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
			if err := tx.Exec(timeout).Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
	if isLockTimeout(err) {
		return apperror.ErrBusy
	}
	return err
}

// isLockTimeout reports whether err is Postgres aborting a statement because
// lock_timeout elapsed (SQLSTATE 55P03). Safe to retry from scratch: nothing
// committed.
func isLockTimeout(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "55P03") || strings.Contains(msg, "lock timeout")
}
