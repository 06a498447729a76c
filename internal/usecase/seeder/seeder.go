package seeder

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
	"github.com/cashpoint/cashpoint-backend/internal/usecase/credential"
)

// Fixed identifiers of the demo dataset. These match the original
// deployment so a fresh install is immediately usable with the documented
// demo cards.
const (
	AliceCard   = "1111222233334444"
	AliceNumber = "AC-10001"
	AlicePIN    = "1234"
	BobCard     = "5555666677778888"
	BobNumber   = "AC-10002"
	BobPIN      = "4321"

	seedCashStock int64 = 100000
)

// DemoSnapshot builds the fixed seed dataset: two demo accounts with preset
// balances and hashed PINs, plus the simulated cash stock.
func DemoSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Meta: domain.SnapshotMeta{
			Version:   domain.SnapshotVersion,
			CashStock: seedCashStock,
		},
		Accounts: map[string]domain.PersistedAccount{
			AliceCard: {
				DisplayName:    "Alice Demo",
				AccountNumber:  AliceNumber,
				CredentialHash: credential.HashSecret(AlicePIN),
				Balance:        decimal.NewFromInt(35000),
				History:        []domain.TransactionRecord{},
			},
			BobCard: {
				DisplayName:    "Bob Demo",
				AccountNumber:  BobNumber,
				CredentialHash: credential.HashSecret(BobPIN),
				Balance:        decimal.NewFromInt(12500),
				History:        []domain.TransactionRecord{},
			},
		},
	}
}

// Seeder loads the persisted ledger state, seeding and persisting the demo
// dataset when none exists yet.
type Seeder struct {
	store domain.SnapshotStore
	log   *zap.Logger
}

// NewSeeder creates a Seeder over the given store.
func NewSeeder(store domain.SnapshotStore, log *zap.Logger) *Seeder {
	return &Seeder{store: store, log: log}
}

// EnsureLoaded returns the persisted snapshot. On first run it persists the
// demo dataset before returning it, so the baseline is durable and
// inspectable from the start.
func (s *Seeder) EnsureLoaded(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.store.Load(ctx)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrNoSnapshot) {
		return nil, err
	}

	snap = DemoSnapshot()
	if err := s.store.Save(ctx, snap); err != nil {
		return nil, err
	}
	s.log.Info("no persisted state found, seeded demo dataset",
		zap.Int("accounts", len(snap.Accounts)))
	return snap, nil
}
