// Package bbauth assembles the federated login service: the bbauth provider
// client, the Redis-backed exchange store, the Mongo account store and the
// HTTP handlers that tie them together.
package bbauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/caarlos0/env/v11"
	redis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/flexio/bbauth/account"
	"github.com/flexio/bbauth/auth"
	"github.com/flexio/bbauth/exchange"
	"github.com/flexio/bbauth/provider"
	"github.com/flexio/bbauth/token"
)

// StoreConfig covers the two backing stores. The exchange state must live in
// Redis so any instance can serve the callback for a login another instance
// started.
type StoreConfig struct {
	MongoURI      string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"flexio"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`
}

// Service owns the store connections behind the auth server.
type Service struct {
	Auth *auth.Server

	mongoClient *mongo.Client
	redisClient *redis.Client
}

// NewService loads configuration from the environment, connects both stores
// and builds the auth server. Callers mount Handler() and Close() on
// shutdown.
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := auth.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceTokenSecret == "" {
		return nil, errors.New("bbauth: SERVICE_TOKEN_SECRET is required")
	}

	var stores StoreConfig
	if err := env.Parse(&stores); err != nil {
		return nil, fmt.Errorf("bbauth: parse store env: %w", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(stores.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("bbauth: connect mongo: %w", err)
	}
	accounts := account.NewMongoStore(mongoClient.Database(stores.MongoDatabase))
	if err := accounts.EnsureIndexes(ctx); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("bbauth: ensure account indexes: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     stores.RedisAddr,
		Password: stores.RedisPassword,
		DB:       stores.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("bbauth: connect redis: %w", err)
	}

	client := provider.NewClient(provider.Config{
		BaseURL:      cfg.ProviderURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scope:        cfg.Scope,
	}, nil)
	issuer := token.NewIssuer(auth.ServiceID, []byte(cfg.ServiceTokenSecret))

	return &Service{
		Auth:        auth.NewServer(cfg, exchange.NewRedisStore(redisClient), client, accounts, issuer),
		mongoClient: mongoClient,
		redisClient: redisClient,
	}, nil
}

// Handler returns a mux with all auth routes mounted.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Auth.RegisterRoutes(mux)
	return mux
}

// Close releases both store connections.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	if err := s.redisClient.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.mongoClient.Disconnect(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
