package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(&DB{DB: db}), mock
}

func testSnapshot() *domain.Snapshot {
	recID := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return &domain.Snapshot{
		Meta: domain.SnapshotMeta{Version: domain.SnapshotVersion, CashStock: 100000},
		Accounts: map[string]domain.PersistedAccount{
			"card-b": {
				DisplayName:    "Bob Demo",
				AccountNumber:  "AC-10002",
				CredentialHash: "hash-b",
				Balance:        decimal.NewFromInt(12500),
				History:        []domain.TransactionRecord{},
			},
			"card-a": {
				DisplayName:    "Alice Demo",
				AccountNumber:  "AC-10001",
				CredentialHash: "hash-a",
				Balance:        decimal.NewFromInt(34900),
				History: []domain.TransactionRecord{
					{
						ID:           recID,
						Time:         time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
						Kind:         domain.KindWithdraw,
						Amount:       decimal.NewFromInt(100),
						BalanceAfter: decimal.NewFromInt(34900),
					},
				},
			},
		},
	}
}

func TestEnsureSchema(t *testing.T) {
	store, mock := newMockStore(t)

	for i := 0; i < 3; i++ {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_EmptyDatabase(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version, cash_stock, saved_at FROM ledger_meta WHERE id = 1`)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSnapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_Snapshot(t *testing.T) {
	store, mock := newMockStore(t)
	savedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version, cash_stock, saved_at FROM ledger_meta WHERE id = 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "cash_stock", "saved_at"}).
			AddRow(domain.SnapshotVersion, int64(100000), savedAt))

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT card_number, display_name, account_number, credential_hash, balance FROM accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"card_number", "display_name", "account_number", "credential_hash", "balance"}).
			AddRow("card-a", "Alice Demo", "AC-10001", "hash-a", "34900").
			AddRow("card-b", "Bob Demo", "AC-10002", "hash-b", "12500"))

	mock.ExpectQuery("SELECT id, card_number, recorded_at, kind, amount, balance_after, counterparty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "card_number", "recorded_at", "kind", "amount", "balance_after", "counterparty"}).
			AddRow("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "card-a", savedAt, "WITHDRAW", "100", "34900", ""))

	snap, err := store.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.SnapshotVersion, snap.Meta.Version)
	assert.Equal(t, int64(100000), snap.Meta.CashStock)
	assert.Equal(t, "postgres_snapshot", snap.Meta.Storage)
	require.Len(t, snap.Accounts, 2)

	a := snap.Accounts["card-a"]
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(34900)))
	require.Len(t, a.History, 1)
	assert.Equal(t, domain.KindWithdraw, a.History[0].Kind)
	assert.True(t, a.History[0].Amount.Equal(decimal.NewFromInt(100)))

	assert.Empty(t, snap.Accounts["card-b"].History)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_RecordForUnknownAccount(t *testing.T) {
	store, mock := newMockStore(t)
	savedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version, cash_stock, saved_at FROM ledger_meta WHERE id = 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "cash_stock", "saved_at"}).
			AddRow(domain.SnapshotVersion, int64(100000), savedAt))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT card_number, display_name, account_number, credential_hash, balance FROM accounts`)).
		WillReturnRows(sqlmock.NewRows([]string{"card_number", "display_name", "account_number", "credential_hash", "balance"}))
	mock.ExpectQuery("SELECT id, card_number, recorded_at, kind, amount, balance_after, counterparty").
		WillReturnRows(sqlmock.NewRows([]string{"id", "card_number", "recorded_at", "kind", "amount", "balance_after", "counterparty"}).
			AddRow("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "card-x", savedAt, "WITHDRAW", "100", "34900", ""))

	_, err := store.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account")
}

func TestSave_RewritesWholeSnapshot(t *testing.T) {
	store, mock := newMockStore(t)
	snap := testSnapshot()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transaction_records`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO ledger_meta").
		WithArgs(domain.SnapshotVersion, int64(100000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Accounts insert in sorted card order, card-a first.
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("card-a", "Alice Demo", "AC-10001", "hash-a", "34900").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO transaction_records").
		WithArgs("6ba7b810-9dad-11d1-80b4-00c04fd430c8", "card-a", 0, sqlmock.AnyArg(), "WITHDRAW", "100", "34900", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO accounts").
		WithArgs("card-b", "Bob Demo", "AC-10002", "hash-b", "12500").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Save(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_RollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transaction_records`)).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.Save(context.Background(), testSnapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear transaction records")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_CommitFailure(t *testing.T) {
	store, mock := newMockStore(t)
	snap := &domain.Snapshot{
		Meta:     domain.SnapshotMeta{Version: domain.SnapshotVersion},
		Accounts: map[string]domain.PersistedAccount{},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transaction_records`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM accounts`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO ledger_meta").
		WithArgs(domain.SnapshotVersion, int64(0), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), snap)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit snapshot")
}
