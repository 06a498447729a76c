package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger() *Ledger {
	l := NewLedger()
	l.RestoreSnapshot(&Snapshot{
		Meta: SnapshotMeta{Version: SnapshotVersion, CashStock: 100000},
		Accounts: map[string]PersistedAccount{
			"card-a": {
				DisplayName:    "Alice Demo",
				AccountNumber:  "AC-10001",
				CredentialHash: "hash-a",
				Balance:        decimal.NewFromInt(1000),
				History:        []TransactionRecord{},
			},
			"card-b": {
				DisplayName:    "Bob Demo",
				AccountNumber:  "AC-10002",
				CredentialHash: "hash-b",
				Balance:        decimal.NewFromInt(200),
				History:        []TransactionRecord{},
			},
		},
	})
	return l
}

func TestApplyDelta_AppendsMatchingRecord(t *testing.T) {
	l := newTestLedger()

	rec, err := l.ApplyDelta("card-a", decimal.NewFromInt(-100), KindWithdraw, "")
	require.NoError(t, err)

	assert.Equal(t, KindWithdraw, rec.Kind)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(100)), "record amount is the absolute delta")
	assert.True(t, rec.BalanceAfter.Equal(decimal.NewFromInt(900)))
	assert.Empty(t, rec.Counterparty)

	a, err := l.Get("card-a")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(900)))
	require.Len(t, a.History, 1)
	assert.Equal(t, rec.ID, a.History[0].ID)
	assert.True(t, a.History[0].BalanceAfter.Equal(a.Balance), "audit trail matches running balance")
}

func TestApplyDelta_ZeroDeltaLoginRecord(t *testing.T) {
	l := newTestLedger()

	rec, err := l.ApplyDelta("card-a", decimal.Zero, KindLogin, "")
	require.NoError(t, err)
	assert.True(t, rec.Amount.IsZero())
	assert.True(t, rec.BalanceAfter.Equal(decimal.NewFromInt(1000)))
}

func TestApplyDelta_UnknownAccount(t *testing.T) {
	l := newTestLedger()

	_, err := l.ApplyDelta("card-x", decimal.NewFromInt(50), KindDeposit, "")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestApplyDelta_NegativeBalanceIsCorruptState(t *testing.T) {
	l := newTestLedger()

	_, err := l.ApplyDelta("card-b", decimal.NewFromInt(-300), KindWithdraw, "")
	require.ErrorIs(t, err, ErrCorruptState)

	// The failed call must not leave any trace.
	a, err := l.Get("card-b")
	require.NoError(t, err)
	assert.True(t, a.Balance.Equal(decimal.NewFromInt(200)))
	assert.Empty(t, a.History)
}

func TestApplyDelta_HistoryBoundedFIFO(t *testing.T) {
	l := newTestLedger()

	var sixth TransactionRecord
	for i := 0; i < MaxHistory+5; i++ {
		rec, err := l.ApplyDelta("card-a", decimal.NewFromInt(50), KindDeposit, "")
		require.NoError(t, err)
		if i == 5 {
			sixth = rec
		}
	}

	a, err := l.Get("card-a")
	require.NoError(t, err)
	require.Len(t, a.History, MaxHistory)
	// The five oldest entries were evicted, so the sixth append is now first.
	assert.Equal(t, sixth.ID, a.History[0].ID)
}

func TestApplyDelta_RecordTimesNonDecreasing(t *testing.T) {
	l := newTestLedger()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	l.now = func() time.Time {
		ts := times[i]
		i++
		return ts
	}

	for range times {
		_, err := l.ApplyDelta("card-a", decimal.NewFromInt(50), KindDeposit, "")
		require.NoError(t, err)
	}

	a, err := l.Get("card-a")
	require.NoError(t, err)
	for j := 1; j < len(a.History); j++ {
		assert.False(t, a.History[j].Time.Before(a.History[j-1].Time),
			"record %d predates record %d", j, j-1)
	}
}

func TestGetByNumber(t *testing.T) {
	l := newTestLedger()

	a, err := l.GetByNumber("AC-10002")
	require.NoError(t, err)
	assert.Equal(t, "card-b", a.ID)

	_, err = l.GetByNumber("AC-99999")
	assert.ErrorIs(t, err, ErrUnknownAccount)
}

func TestGet_ReturnsCopy(t *testing.T) {
	l := newTestLedger()
	_, err := l.ApplyDelta("card-a", decimal.NewFromInt(50), KindDeposit, "")
	require.NoError(t, err)

	a, err := l.Get("card-a")
	require.NoError(t, err)
	a.Balance = decimal.NewFromInt(0)
	a.History[0].Kind = KindWithdraw

	fresh, err := l.Get("card-a")
	require.NoError(t, err)
	assert.True(t, fresh.Balance.Equal(decimal.NewFromInt(1050)))
	assert.Equal(t, KindDeposit, fresh.History[0].Kind)
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	l := newTestLedger()
	_, err := l.ApplyDelta("card-a", decimal.NewFromInt(-100), KindTransferOut, "card-b")
	require.NoError(t, err)
	_, err = l.ApplyDelta("card-b", decimal.NewFromInt(100), KindTransferIn, "card-a")
	require.NoError(t, err)

	snap := l.Snapshot()
	restored := NewLedger()
	restored.RestoreSnapshot(snap)

	for _, id := range []string{"card-a", "card-b"} {
		orig, err := l.Get(id)
		require.NoError(t, err)
		got, err := restored.Get(id)
		require.NoError(t, err)

		assert.Equal(t, orig.DisplayName, got.DisplayName)
		assert.Equal(t, orig.AccountNumber, got.AccountNumber)
		assert.Equal(t, orig.CredentialHash, got.CredentialHash)
		assert.True(t, got.Balance.Equal(orig.Balance))
		assert.Equal(t, orig.History, got.History)
	}

	// Secondary index survives the round trip.
	byNum, err := restored.GetByNumber("AC-10001")
	require.NoError(t, err)
	assert.Equal(t, "card-a", byNum.ID)
}

func TestSnapshot_IsDetachedFromLedger(t *testing.T) {
	l := newTestLedger()
	snap := l.Snapshot()

	_, err := l.ApplyDelta("card-a", decimal.NewFromInt(500), KindDeposit, "")
	require.NoError(t, err)

	assert.True(t, snap.Accounts["card-a"].Balance.Equal(decimal.NewFromInt(1000)),
		"snapshot must not observe later mutations")
	assert.Empty(t, snap.Accounts["card-a"].History)
}
