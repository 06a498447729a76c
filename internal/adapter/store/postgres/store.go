// Package postgres persists ledger snapshots in PostgreSQL. Each save
// rewrites the snapshot tables wholesale inside one database transaction,
// matching the whole-state overwrite semantics of the file store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

const storageKind = "postgres_snapshot"

// Store is a whole-state snapshot store over Postgres.
type Store struct {
	db *DB
}

// NewStore creates a store over an open connection.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the snapshot tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			version INT NOT NULL,
			cash_stock BIGINT NOT NULL,
			saved_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			card_number TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			account_number TEXT NOT NULL UNIQUE,
			credential_hash TEXT NOT NULL,
			balance NUMERIC NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS transaction_records (
			id UUID PRIMARY KEY,
			card_number TEXT NOT NULL REFERENCES accounts (card_number) ON DELETE CASCADE,
			seq INT NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			balance_after NUMERIC NOT NULL,
			counterparty TEXT NOT NULL DEFAULT '',
			UNIQUE (card_number, seq)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Load reads the persisted snapshot. An empty database reports
// domain.ErrNoSnapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{Accounts: make(map[string]domain.PersistedAccount)}

	metaQuery := `SELECT version, cash_stock, saved_at FROM ledger_meta WHERE id = 1`
	err := s.db.QueryRowContext(ctx, metaQuery).Scan(
		&snap.Meta.Version, &snap.Meta.CashStock, &snap.Meta.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot meta: %w", err)
	}
	snap.Meta.Storage = storageKind

	accountsQuery := `SELECT card_number, display_name, account_number, credential_hash, balance FROM accounts`
	rows, err := s.db.QueryContext(ctx, accountsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var card, balance string
		var pa domain.PersistedAccount
		if err := rows.Scan(&card, &pa.DisplayName, &pa.AccountNumber, &pa.CredentialHash, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		pa.Balance, err = decimal.NewFromString(balance)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance for account %s: %w", card, err)
		}
		pa.History = []domain.TransactionRecord{}
		snap.Accounts[card] = pa
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}

	recordsQuery := `SELECT id, card_number, recorded_at, kind, amount, balance_after, counterparty
		FROM transaction_records ORDER BY card_number, seq`
	recRows, err := s.db.QueryContext(ctx, recordsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction records: %w", err)
	}
	defer recRows.Close()
	for recRows.Next() {
		var idStr, card, kind, amount, balanceAfter string
		var recordedAt time.Time
		var counterparty string
		if err := recRows.Scan(&idStr, &card, &recordedAt, &kind, &amount, &balanceAfter, &counterparty); err != nil {
			return nil, fmt.Errorf("failed to scan transaction record: %w", err)
		}
		rec := domain.TransactionRecord{
			Time:         recordedAt,
			Kind:         domain.TransactionKind(kind),
			Counterparty: counterparty,
		}
		if rec.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("failed to parse record id: %w", err)
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("failed to parse record amount: %w", err)
		}
		if rec.BalanceAfter, err = decimal.NewFromString(balanceAfter); err != nil {
			return nil, fmt.Errorf("failed to parse record balance: %w", err)
		}
		pa, ok := snap.Accounts[card]
		if !ok {
			return nil, fmt.Errorf("transaction record references unknown account %s", card)
		}
		pa.History = append(pa.History, rec)
		snap.Accounts[card] = pa
	}
	if err := recRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction records: %w", err)
	}
	return snap, nil
}

// Save rewrites the whole snapshot in one database transaction.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_records`); err != nil {
		return fmt.Errorf("failed to clear transaction records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts`); err != nil {
		return fmt.Errorf("failed to clear accounts: %w", err)
	}

	metaStmt := `INSERT INTO ledger_meta (id, version, cash_stock, saved_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET version = $1, cash_stock = $2, saved_at = $3`
	if _, err := tx.ExecContext(ctx, metaStmt, domain.SnapshotVersion, snap.Meta.CashStock, time.Now()); err != nil {
		return fmt.Errorf("failed to save snapshot meta: %w", err)
	}

	accountStmt := `INSERT INTO accounts (card_number, display_name, account_number, credential_hash, balance)
		VALUES ($1, $2, $3, $4, $5)`
	recordStmt := `INSERT INTO transaction_records (id, card_number, seq, recorded_at, kind, amount, balance_after, counterparty)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	// Deterministic insert order keeps saves reproducible.
	cards := make([]string, 0, len(snap.Accounts))
	for card := range snap.Accounts {
		cards = append(cards, card)
	}
	sort.Strings(cards)

	for _, card := range cards {
		pa := snap.Accounts[card]
		if _, err := tx.ExecContext(ctx, accountStmt,
			card, pa.DisplayName, pa.AccountNumber, pa.CredentialHash, pa.Balance.String()); err != nil {
			return fmt.Errorf("failed to insert account %s: %w", card, err)
		}
		for seq, rec := range pa.History {
			if _, err := tx.ExecContext(ctx, recordStmt,
				rec.ID.String(), card, seq, rec.Time, string(rec.Kind),
				rec.Amount.String(), rec.BalanceAfter.String(), rec.Counterparty); err != nil {
				return fmt.Errorf("failed to insert transaction record: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}
