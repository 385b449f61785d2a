package account

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = &MongoStore{}

// MongoStore implements Store backed by a MongoDB collection. The unique
// index on external_account_id is what closes the concurrent-creation race:
// a losing insert surfaces as a duplicate-key error rather than a second
// account.
type MongoStore struct {
	accounts *mongo.Collection
}

// NewMongoStore creates a MongoStore. Expects a connected mongo.Database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		accounts: db.Collection("accounts"),
	}
}

// EnsureIndexes creates the uniqueness constraint on external_account_id
// and the lookup index on account_id. Call once at startup.
func (m *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := m.accounts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "external_account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to ensure account indexes: %w", err)
	}
	return nil
}

// GetByID retrieves an account by its local ID.
func (m *MongoStore) GetByID(ctx context.Context, accountID string) (*Account, error) {
	var a Account
	err := m.accounts.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return &a, nil
}

// GetByExternalID retrieves the account joined to an external identity.
func (m *MongoStore) GetByExternalID(ctx context.Context, externalAccountID string) (*Account, error) {
	var a Account
	err := m.accounts.FindOne(ctx, bson.M{"external_account_id": externalAccountID}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by external ID: %w", err)
	}
	return &a, nil
}

// Insert creates a new account document. The unique index makes the insert
// atomic with respect to concurrent creations for the same external ID.
func (m *MongoStore) Insert(ctx context.Context, a *Account) error {
	_, err := m.accounts.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateExternalID
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Touch bumps updated_at on every resolution of an existing account.
func (m *MongoStore) Touch(ctx context.Context, accountID string) error {
	_, err := m.accounts.UpdateOne(ctx,
		bson.M{"account_id": accountID},
		bson.M{"$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch account: %w", err)
	}
	return nil
}
