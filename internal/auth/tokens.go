package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/restopro/restopro/internal/shared"
)

// ResetTokenTTL bounds how long a password reset link stays valid.
const ResetTokenTTL = 30 * time.Minute

// TokenStore keeps single-use password reset tokens.
type TokenStore interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Consume(ctx context.Context, token string) (int64, error)
}

// RedisTokenStore stores reset tokens in Redis with a TTL.
type RedisTokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTokenStore constructs a token store; ttl <= 0 uses ResetTokenTTL.
func NewRedisTokenStore(client *redis.Client, ttl time.Duration) *RedisTokenStore {
	if ttl <= 0 {
		ttl = ResetTokenTTL
	}
	return &RedisTokenStore{client: client, ttl: ttl}
}

// Issue creates a token bound to userID.
func (s *RedisTokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	token := uuid.NewString()
	if err := s.client.Set(ctx, tokenKey(token), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// Consume resolves and deletes the token in one step.
func (s *RedisTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	raw, err := s.client.GetDel(ctx, tokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, shared.ErrInvalidToken
		}
		return 0, fmt.Errorf("consume reset token: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, shared.ErrInvalidToken
	}
	return id, nil
}

func tokenKey(token string) string {
	return "auth:reset:" + token
}
