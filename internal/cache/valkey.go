package cache

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyClient caches member credentials for the BasicAuth middleware.
// Credit balances and confirmed counts are never cached here: both are
// read from Postgres on every call so the engine always sees the current
// persisted value.
type ValkeyClient struct {
	client      *redis.Client
	authHashKey string
}

type Config struct {
	Addr         string
	Password     string
	AuthHashKey  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		DialTimeout:  cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return &ValkeyClient{
		client:      rdb,
		authHashKey: cfg.AuthHashKey,
	}, nil
}

// GetMemberIDByAuth looks up a member id by email and password hash.
func (v *ValkeyClient) GetMemberIDByAuth(ctx context.Context, email, passwordHash string) (int64, error) {
	authString := fmt.Sprintf("%s:%s", email, passwordHash)
	cacheKey := base64.StdEncoding.EncodeToString([]byte(authString))

	memberIDStr, err := v.client.HGet(ctx, v.authHashKey, cacheKey).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, fmt.Errorf("member not found in cache")
		}
		return 0, fmt.Errorf("cache lookup error: %w", err)
	}

	memberID, err := strconv.ParseInt(memberIDStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid member ID in cache: %w", err)
	}

	return memberID, nil
}

// SetMemberAuth stores a member's credentials for later BasicAuth lookups.
// Called on successful database authentication.
func (v *ValkeyClient) SetMemberAuth(ctx context.Context, email, passwordHash string, memberID int64) error {
	authString := fmt.Sprintf("%s:%s", email, passwordHash)
	cacheKey := base64.StdEncoding.EncodeToString([]byte(authString))

	return v.client.HSet(ctx, v.authHashKey, cacheKey, strconv.FormatInt(memberID, 10)).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
