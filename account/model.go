// Package account maps bbauth identities to local flexio accounts, creating
// records on first login and reusing them forever after. The one invariant
// that matters here: a given external account ID resolves to exactly one
// local account, even under concurrent callbacks.
package account

import "time"

// Account is a local flexio account joined to a bbauth identity.
// Balance and Memberships are owned by other subsystems; this flow only
// zeroes them on creation and otherwise preserves them.
type Account struct {
	AccountID         string            `bson:"account_id" json:"account_id"`
	ExternalAccountID string            `bson:"external_account_id" json:"external_account_id"`
	Email             string            `bson:"email,omitempty" json:"email,omitempty"`
	Balance           int64             `bson:"balance" json:"balance"`
	Memberships       map[string]string `bson:"memberships,omitempty" json:"memberships,omitempty"`
	JoinedAt          time.Time         `bson:"joined_at" json:"joined_at"`
	CreatedAt         time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time         `bson:"updated_at" json:"updated_at"`
}
