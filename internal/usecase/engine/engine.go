package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

// Operation limits, in whole currency units.
const (
	WithdrawMin  int64 = 100
	WithdrawStep int64 = 100
	DepositMin   int64 = 50
	DepositStep  int64 = 50
	TransferMin  int64 = 1
)

// DefaultStatementLimit is the number of records a mini statement shows
// when the caller does not ask for a specific count.
const DefaultStatementLimit = 10

// CredentialRotator rotates an account's credential after verifying the
// old secret.
type CredentialRotator interface {
	Rotate(accountID, oldSecret, newSecret string) error
}

// Engine exposes the validated ledger operations. Every mutating operation
// runs validate → mutate in-memory → save snapshot under one mutex, so
// per-account mutation and durable writes are both serialized. When the
// save fails the in-memory mutation is reverted and the operation reports
// domain.ErrPersistenceFailure: no partial commit is ever observable.
type Engine struct {
	mu     sync.Mutex
	ledger *domain.Ledger
	store  domain.SnapshotStore
	creds  CredentialRotator
	log    *zap.Logger
}

// New creates a transaction engine over the given ledger and store.
func New(ledger *domain.Ledger, store domain.SnapshotStore, creds CredentialRotator, log *zap.Logger) *Engine {
	return &Engine{ledger: ledger, store: store, creds: creds, log: log}
}

// TransferResult holds the two records a successful transfer appends.
type TransferResult struct {
	Out domain.TransactionRecord
	In  domain.TransactionRecord
}

// Account returns a copy of the account for display purposes.
func (e *Engine) Account(ctx context.Context, id string) (domain.Account, error) {
	return e.ledger.Get(id)
}

// Balance returns the current balance of the account.
func (e *Engine) Balance(ctx context.Context, id string) (decimal.Decimal, error) {
	a, err := e.ledger.Get(id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return a.Balance, nil
}

// Statement returns up to limit records, most recent first. A non-positive
// limit falls back to DefaultStatementLimit.
func (e *Engine) Statement(ctx context.Context, id string, limit int) ([]domain.TransactionRecord, error) {
	a, err := e.ledger.Get(id)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultStatementLimit
	}
	history := a.History
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]domain.TransactionRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

// Withdraw removes amount from the account. The amount must be at least
// WithdrawMin and a multiple of WithdrawStep, and may not overdraw the
// account.
func (e *Engine) Withdraw(ctx context.Context, id string, amount int64) (domain.TransactionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a, err := e.ledger.Get(id)
	if err != nil {
		return domain.TransactionRecord{}, err
	}
	if amount < WithdrawMin || amount%WithdrawStep != 0 {
		return domain.TransactionRecord{}, fmt.Errorf("%w: must be at least %d and a multiple of %d",
			domain.ErrInvalidAmount, WithdrawMin, WithdrawStep)
	}
	amt := decimal.NewFromInt(amount)
	if a.Balance.LessThan(amt) {
		return domain.TransactionRecord{}, domain.ErrInsufficientFunds
	}

	prev := e.ledger.Snapshot()
	rec, err := e.ledger.ApplyDelta(id, amt.Neg(), domain.KindWithdraw, "")
	if err != nil {
		return domain.TransactionRecord{}, err
	}
	if err := e.commit(ctx, prev); err != nil {
		return domain.TransactionRecord{}, err
	}
	e.log.Info("withdrawal committed",
		zap.String("account", id),
		zap.Int64("amount", amount),
		zap.String("balance", rec.BalanceAfter.String()))
	return rec, nil
}

// Deposit adds amount to the account. The amount must be at least
// DepositMin and a multiple of DepositStep.
func (e *Engine) Deposit(ctx context.Context, id string, amount int64) (domain.TransactionRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.ledger.Get(id); err != nil {
		return domain.TransactionRecord{}, err
	}
	if amount < DepositMin || amount%DepositStep != 0 {
		return domain.TransactionRecord{}, fmt.Errorf("%w: must be at least %d and a multiple of %d",
			domain.ErrInvalidAmount, DepositMin, DepositStep)
	}

	prev := e.ledger.Snapshot()
	rec, err := e.ledger.ApplyDelta(id, decimal.NewFromInt(amount), domain.KindDeposit, "")
	if err != nil {
		return domain.TransactionRecord{}, err
	}
	if err := e.commit(ctx, prev); err != nil {
		return domain.TransactionRecord{}, err
	}
	e.log.Info("deposit committed",
		zap.String("account", id),
		zap.Int64("amount", amount),
		zap.String("balance", rec.BalanceAfter.String()))
	return rec, nil
}

// Transfer moves amount between two accounts. Both endpoints are validated
// before either side mutates; the two records and the durable write commit
// together or not at all.
func (e *Engine) Transfer(ctx context.Context, fromID, toID string, amount int64) (TransferResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if fromID == toID {
		return TransferResult{}, domain.ErrSameAccountTransfer
	}
	from, err := e.ledger.Get(fromID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("source: %w", err)
	}
	if _, err := e.ledger.Get(toID); err != nil {
		return TransferResult{}, fmt.Errorf("destination: %w", err)
	}
	if amount < TransferMin {
		return TransferResult{}, fmt.Errorf("%w: minimum transfer is %d", domain.ErrInvalidAmount, TransferMin)
	}
	amt := decimal.NewFromInt(amount)
	if from.Balance.LessThan(amt) {
		return TransferResult{}, domain.ErrInsufficientFunds
	}

	prev := e.ledger.Snapshot()
	out, err := e.ledger.ApplyDelta(fromID, amt.Neg(), domain.KindTransferOut, toID)
	if err != nil {
		return TransferResult{}, err
	}
	in, err := e.ledger.ApplyDelta(toID, amt, domain.KindTransferIn, fromID)
	if err != nil {
		e.ledger.RestoreSnapshot(prev)
		return TransferResult{}, err
	}
	if err := e.commit(ctx, prev); err != nil {
		return TransferResult{}, err
	}
	e.log.Info("transfer committed",
		zap.String("from", fromID),
		zap.String("to", toID),
		zap.Int64("amount", amount))
	return TransferResult{Out: out, In: in}, nil
}

// ChangeSecret rotates the account's credential and persists the result.
func (e *Engine) ChangeSecret(ctx context.Context, id, oldSecret, newSecret string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.ledger.Snapshot()
	if err := e.creds.Rotate(id, oldSecret, newSecret); err != nil {
		return err
	}
	if err := e.commit(ctx, prev); err != nil {
		return err
	}
	e.log.Info("credential rotated", zap.String("account", id))
	return nil
}

// RecordLogin appends a zero-amount LOGIN record to the account's history.
func (e *Engine) RecordLogin(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.ledger.Snapshot()
	if _, err := e.ledger.ApplyDelta(id, decimal.Zero, domain.KindLogin, ""); err != nil {
		return err
	}
	return e.commit(ctx, prev)
}

// commit saves the current ledger state; on failure it restores prev so the
// mutation is never observable.
func (e *Engine) commit(ctx context.Context, prev *domain.Snapshot) error {
	if err := e.store.Save(ctx, e.ledger.Snapshot()); err != nil {
		e.ledger.RestoreSnapshot(prev)
		e.log.Error("snapshot save failed, in-memory state reverted", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPersistenceFailure, err)
	}
	return nil
}
