package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resolver maps an external bbauth identity to a local account with
// idempotent semantics: the first resolution creates the account, every
// later one returns it.
type Resolver struct {
	store Store
	now   func() time.Time
}

// NewResolver constructs a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// ResolveOrCreate returns the account joined to externalAccountID, creating
// it if absent. Two simultaneous callbacks for the same external identity
// cannot both create: the store's conditional insert lets only one win, and
// the loser re-resolves and returns the winner's record.
func (r *Resolver) ResolveOrCreate(ctx context.Context, externalAccountID, email string) (*Account, error) {
	if externalAccountID == "" {
		return nil, errors.New("account: empty external account id")
	}

	existing, err := r.store.GetByExternalID(ctx, externalAccountID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := r.store.Touch(ctx, existing.AccountID); err != nil {
			return nil, err
		}
		return existing, nil
	}

	now := r.now().UTC()
	fresh := &Account{
		AccountID:         uuid.NewString(),
		ExternalAccountID: externalAccountID,
		Email:             email,
		Balance:           0,
		Memberships:       map[string]string{},
		JoinedAt:          now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = r.store.Insert(ctx, fresh)
	if err == nil {
		return fresh, nil
	}
	if !errors.Is(err, ErrDuplicateExternalID) {
		return nil, err
	}

	// lost the creation race; adopt the winner's record
	winner, err := r.store.GetByExternalID(ctx, externalAccountID)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, fmt.Errorf("account: duplicate insert for %q but no winner found", externalAccountID)
	}
	return winner, nil
}
