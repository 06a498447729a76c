package credential

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

// fixedSalt is the application-wide salt prepended to every secret before
// hashing. It must stay stable: the persisted hashes (including the seeded
// demo accounts) are digests of salt+secret.
const fixedSalt = "atm_salt::"

// HashSecret returns the hex SHA-256 digest of the salted secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(fixedSalt + secret))
	return hex.EncodeToString(sum[:])
}

// Policy decides whether a new secret is acceptable. It returns an error
// wrapping domain.ErrWeakSecret when the secret is rejected.
type Policy func(secret string) error

// DefaultPolicy requires at least 4 characters, digits only.
func DefaultPolicy(secret string) error {
	if len(secret) < 4 {
		return fmt.Errorf("%w: must be at least 4 digits", domain.ErrWeakSecret)
	}
	for _, r := range secret {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: must contain digits only", domain.ErrWeakSecret)
		}
	}
	return nil
}

// Store verifies and rotates account credentials. Plaintext secrets are
// never stored or compared; verification recomputes the salted digest.
type Store struct {
	ledger *domain.Ledger
	policy Policy
}

// NewStore creates a credential store with the default secret policy.
func NewStore(ledger *domain.Ledger) *Store {
	return &Store{ledger: ledger, policy: DefaultPolicy}
}

// NewStoreWithPolicy creates a credential store with a custom secret policy.
func NewStoreWithPolicy(ledger *domain.Ledger, policy Policy) *Store {
	return &Store{ledger: ledger, policy: policy}
}

// Verify reports whether the secret matches the account's stored hash.
func (s *Store) Verify(accountID, secret string) (bool, error) {
	stored, err := s.ledger.CredentialHash(accountID)
	if err != nil {
		return false, err
	}
	return stored == HashSecret(secret), nil
}

// Rotate replaces the account's credential. It fails with
// domain.ErrInvalidCredential when the old secret does not verify and with
// domain.ErrWeakSecret when the new secret violates the policy. No side
// effect occurs on any failure path.
func (s *Store) Rotate(accountID, oldSecret, newSecret string) error {
	ok, err := s.Verify(accountID, oldSecret)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: old secret is incorrect", domain.ErrInvalidCredential)
	}
	if err := s.policy(newSecret); err != nil {
		return err
	}
	return s.ledger.SetCredentialHash(accountID, HashSecret(newSecret))
}
