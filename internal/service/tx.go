// internal/service/tx.go
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
	"wallet-ledger/pkg/db"
)

// TxFuncs is the transaction lifecycle injected into services. Tests replace
// it with fakes.
type TxFuncs struct {
	Begin    db.BeginTxFunc
	Commit   db.CommitTxFunc
	Rollback db.RollbackTxFunc
}

// DefaultTxFuncs returns the sqlx-backed transaction lifecycle from pkg/db.
func DefaultTxFuncs() TxFuncs {
	return TxFuncs{Begin: db.BeginTx, Commit: db.CommitTx, Rollback: db.RollbackTx}
}

type txRunner struct {
	dbBeginner db.DBTxBeginner
	funcs      TxFuncs
}

// within runs fn inside one transaction. fn's error rolls everything back;
// commit happens last.
func (r txRunner) within(ctx context.Context, op string, fn func(q repository.DBExecutor) error) error {
	txController, err := r.funcs.Begin(ctx, r.dbBeginner)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer r.funcs.Rollback(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("%s: transaction controller does not implement DBExecutor", op)
	}

	if err := fn(txExecutor); err != nil {
		return err
	}

	if err := r.funcs.Commit(txController); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}
	return nil
}

func componentLogger(logger *zap.Logger, component string) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger.With(zap.String("component", component))
}

// asUpstream marks processor failures that are not already classified.
func asUpstream(op string, err error) error {
	if util.IsError(err, util.ErrUpstream) || util.IsError(err, util.ErrNotConfigured) || util.IsError(err, util.ErrInvalidInput) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, util.ErrUpstream, err)
}
