package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger is the authoritative in-memory store of all accounts. A single
// mutex serializes every mutation, so a transfer touching two accounts
// commits both sides in one critical section and snapshot export always
// observes a consistent state. Callers get copies, never internal pointers.
type Ledger struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	byNumber  map[string]string
	cashStock int64
	now       func() time.Time
}

// NewLedger creates an empty ledger. State is normally installed with
// RestoreSnapshot before serving.
func NewLedger() *Ledger {
	return &Ledger{
		accounts: make(map[string]*Account),
		byNumber: make(map[string]string),
		now:      time.Now,
	}
}

// Get returns a copy of the account with the given card number.
func (l *Ledger) Get(id string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return Account{}, ErrUnknownAccount
	}
	return copyAccount(a), nil
}

// GetByNumber returns a copy of the account with the given human-facing
// account number.
func (l *Ledger) GetByNumber(number string) (Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id, ok := l.byNumber[number]
	if !ok {
		return Account{}, ErrUnknownAccount
	}
	return copyAccount(l.accounts[id]), nil
}

// List returns copies of all accounts.
func (l *Ledger) List() []Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Account, 0, len(l.accounts))
	for _, a := range l.accounts {
		out = append(out, copyAccount(a))
	}
	return out
}

// ApplyDelta is the only path by which a balance changes. It mutates the
// balance, appends exactly one record whose BalanceAfter equals the
// post-mutation balance, and trims the history to MaxHistory entries.
//
// ApplyDelta performs no business-rule validation; that is the transaction
// engine's job. A delta that would drive the balance negative means the
// caller failed to validate and yields ErrCorruptState with the ledger
// untouched.
func (l *Ledger) ApplyDelta(id string, delta decimal.Decimal, kind TransactionKind, counterparty string) (TransactionRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.accounts[id]
	if !ok {
		return TransactionRecord{}, ErrUnknownAccount
	}

	newBalance := a.Balance.Add(delta)
	if newBalance.IsNegative() {
		return TransactionRecord{}, fmt.Errorf("%w: delta %s on account %s would leave balance %s",
			ErrCorruptState, delta, id, newBalance)
	}

	// Record times are non-decreasing within one account, even if the wall
	// clock steps backwards.
	ts := l.now()
	if n := len(a.History); n > 0 && ts.Before(a.History[n-1].Time) {
		ts = a.History[n-1].Time
	}

	rec := TransactionRecord{
		ID:           uuid.New(),
		Time:         ts,
		Kind:         kind,
		Amount:       delta.Abs(),
		BalanceAfter: newBalance,
		Counterparty: counterparty,
	}

	a.Balance = newBalance
	a.History = append(a.History, rec)
	if len(a.History) > MaxHistory {
		a.History = a.History[len(a.History)-MaxHistory:]
	}
	return rec, nil
}

// CredentialHash returns the stored hash for an account.
func (l *Ledger) CredentialHash(id string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return "", ErrUnknownAccount
	}
	return a.CredentialHash, nil
}

// SetCredentialHash replaces the stored hash for an account. Used by the
// credential store after the old secret has been verified.
func (l *Ledger) SetCredentialHash(id, hash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[id]
	if !ok {
		return ErrUnknownAccount
	}
	a.CredentialHash = hash
	return nil
}

// Snapshot exports the full ledger state as a persistable document.
func (l *Ledger) Snapshot() *Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	snap := &Snapshot{
		Meta: SnapshotMeta{
			Version:   SnapshotVersion,
			CashStock: l.cashStock,
		},
		Accounts: make(map[string]PersistedAccount, len(l.accounts)),
	}
	for id, a := range l.accounts {
		history := make([]TransactionRecord, len(a.History))
		copy(history, a.History)
		snap.Accounts[id] = PersistedAccount{
			DisplayName:    a.DisplayName,
			AccountNumber:  a.AccountNumber,
			CredentialHash: a.CredentialHash,
			Balance:        a.Balance,
			History:        history,
		}
	}
	return snap
}

// RestoreSnapshot replaces the full ledger state with the given snapshot.
// Also the engine's rollback path after a failed durable write.
func (l *Ledger) RestoreSnapshot(snap *Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cashStock = snap.Meta.CashStock
	l.accounts = make(map[string]*Account, len(snap.Accounts))
	l.byNumber = make(map[string]string, len(snap.Accounts))
	for id, pa := range snap.Accounts {
		history := make([]TransactionRecord, len(pa.History))
		copy(history, pa.History)
		l.accounts[id] = &Account{
			ID:             id,
			DisplayName:    pa.DisplayName,
			AccountNumber:  pa.AccountNumber,
			CredentialHash: pa.CredentialHash,
			Balance:        pa.Balance,
			History:        history,
		}
		l.byNumber[pa.AccountNumber] = id
	}
}

func copyAccount(a *Account) Account {
	cp := *a
	cp.History = make([]TransactionRecord, len(a.History))
	copy(cp.History, a.History)
	return cp
}
