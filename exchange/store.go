// Package exchange holds the short-lived state that correlates a login
// request with its provider callback, plus the cached provider token pair.
// The store is the only place PKCE material lives between the two HTTP
// round trips, so production deployments back it with a shared Redis.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ExchangeTTL bounds how long an abandoned login attempt stays consumable.
const ExchangeTTL = 10 * time.Minute

// DefaultProviderTokenTTL is used when the provider omits expires_in.
const DefaultProviderTokenTTL = time.Hour

const (
	exchangeKeyPrefix = "pkce:"
	tokenKeyPrefix    = "token:"
)

// PendingExchange is created by login and consumed exactly once by callback.
type PendingExchange struct {
	CodeVerifier string    `json:"code_verifier"`
	State        string    `json:"state"`
	ReturnURL    string    `json:"return_url"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProviderToken caches the provider's access/refresh pair for an account.
// It is never used to authenticate the local user, only kept for future
// scoped calls against the provider.
type ProviderToken struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Store is a keyed store with per-entry expiration shared across process
// instances. ConsumeExchange must be atomic: a second consume of the same
// state always reports absent, no matter how far the first caller got.
type Store interface {
	PutExchange(ctx context.Context, pe *PendingExchange) error
	// ConsumeExchange atomically reads and deletes the entry for state.
	// Absent or expired entries return (nil, nil).
	ConsumeExchange(ctx context.Context, state string) (*PendingExchange, error)
	PutProviderToken(ctx context.Context, accountID string, pt *ProviderToken, ttl time.Duration) error
	// GetProviderToken returns (nil, nil) when no cached token exists.
	GetProviderToken(ctx context.Context, accountID string) (*ProviderToken, error)
}

var _ Store = &RedisStore{}

// RedisStore implements Store on any redis.Cmdable (client or cluster).
type RedisStore struct {
	rdb redis.Cmdable
}

// NewRedisStore wraps an already-connected redis client.
func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// PutExchange stores the pending exchange under pkce:<state> with the 10
// minute TTL; the entry silently vanishes if the callback never arrives.
func (s *RedisStore) PutExchange(ctx context.Context, pe *PendingExchange) error {
	data, err := json.Marshal(pe)
	if err != nil {
		return fmt.Errorf("exchange: marshal pending exchange: %w", err)
	}
	if err := s.rdb.Set(ctx, exchangeKeyPrefix+pe.State, data, ExchangeTTL).Err(); err != nil {
		return fmt.Errorf("exchange: store pending exchange: %w", err)
	}
	return nil
}

// ConsumeExchange uses GETDEL so two callbacks racing on the same state can
// never both observe the entry.
func (s *RedisStore) ConsumeExchange(ctx context.Context, state string) (*PendingExchange, error) {
	data, err := s.rdb.GetDel(ctx, exchangeKeyPrefix+state).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exchange: consume pending exchange: %w", err)
	}
	var pe PendingExchange
	if err := json.Unmarshal(data, &pe); err != nil {
		return nil, fmt.Errorf("exchange: decode pending exchange: %w", err)
	}
	return &pe, nil
}

// PutProviderToken caches the provider token pair under token:<accountID>
// with a TTL matching the provider's own expiry.
func (s *RedisStore) PutProviderToken(ctx context.Context, accountID string, pt *ProviderToken, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultProviderTokenTTL
	}
	data, err := json.Marshal(pt)
	if err != nil {
		return fmt.Errorf("exchange: marshal provider token: %w", err)
	}
	if err := s.rdb.Set(ctx, tokenKeyPrefix+accountID, data, ttl).Err(); err != nil {
		return fmt.Errorf("exchange: store provider token: %w", err)
	}
	return nil
}

func (s *RedisStore) GetProviderToken(ctx context.Context, accountID string) (*ProviderToken, error) {
	data, err := s.rdb.Get(ctx, tokenKeyPrefix+accountID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exchange: get provider token: %w", err)
	}
	var pt ProviderToken
	if err := json.Unmarshal(data, &pt); err != nil {
		return nil, fmt.Errorf("exchange: decode provider token: %w", err)
	}
	return &pt, nil
}
