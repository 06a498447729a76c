package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies a transaction record.
type TransactionKind string

const (
	KindLogin       TransactionKind = "LOGIN"
	KindWithdraw    TransactionKind = "WITHDRAW"
	KindDeposit     TransactionKind = "DEPOSIT"
	KindTransferOut TransactionKind = "TRANSFER_OUT"
	KindTransferIn  TransactionKind = "TRANSFER_IN"
)

// MaxHistory bounds each account's transaction history. Once exceeded the
// oldest entries are evicted first.
const MaxHistory = 200

// TransactionRecord is one entry of an account's audit trail. BalanceAfter
// always equals the account balance immediately after the record was
// appended, and record times are non-decreasing within one account.
type TransactionRecord struct {
	ID           uuid.UUID       `json:"id"`
	Time         time.Time       `json:"time"`
	Kind         TransactionKind `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	// Counterparty holds the other account's id for transfer records and
	// is empty otherwise.
	Counterparty string `json:"counterparty,omitempty"`
}

// Account represents an account holder known to the ledger.
type Account struct {
	// ID is the card number, the primary external identifier.
	ID             string
	DisplayName    string
	AccountNumber  string
	CredentialHash string
	Balance        decimal.Decimal
	History        []TransactionRecord
}
