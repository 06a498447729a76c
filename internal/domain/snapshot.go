package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotVersion is the current persisted document version.
const SnapshotVersion = 1

// SnapshotMeta carries auxiliary snapshot state. CashStock mirrors the
// terminal's simulated cash stock; it is informational and never enforced
// against withdrawals.
type SnapshotMeta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	SavedAt   time.Time `json:"saved_at"`
	CashStock int64     `json:"cash_stock"`
}

// PersistedAccount is the serialized form of an account.
type PersistedAccount struct {
	DisplayName    string              `json:"display_name"`
	AccountNumber  string              `json:"account_number"`
	CredentialHash string              `json:"credential_hash"`
	Balance        decimal.Decimal     `json:"balance"`
	History        []TransactionRecord `json:"history"`
}

// Snapshot is the full persisted ledger state, keyed by card number.
type Snapshot struct {
	Meta     SnapshotMeta                `json:"meta"`
	Accounts map[string]PersistedAccount `json:"accounts"`
}

// SnapshotStore persists the whole ledger state. Save overwrites the
// previous snapshot wholesale; Load returns ErrNoSnapshot when nothing has
// been persisted yet.
type SnapshotStore interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}
