package account

import (
	"context"
	"errors"
)

// ErrDuplicateExternalID is returned by Insert when another account already
// holds the external account ID. Callers should re-resolve and adopt the
// winner's record.
var ErrDuplicateExternalID = errors.New("account with this external account id already exists")

// Store defines the account storage operations this flow needs. This allows
// for different database backends (e.g., MongoDB, an in-process map in tests).
type Store interface {
	// GetByID returns the account or (nil, nil) when absent.
	GetByID(ctx context.Context, accountID string) (*Account, error)
	// GetByExternalID returns the account joined to the given external
	// identity, or (nil, nil) when absent.
	GetByExternalID(ctx context.Context, externalAccountID string) (*Account, error)
	// Insert persists a new account. The write is conditioned on the
	// uniqueness of ExternalAccountID: losing a creation race yields
	// ErrDuplicateExternalID, never a second record.
	Insert(ctx context.Context, a *Account) error
	// Touch bumps the account's updated_at timestamp.
	Touch(ctx context.Context, accountID string) error
}
