package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"secureauth/api/internal/config"
)

var ErrInvalidSession = errors.New("invalid session")

const (
	keyPrefix       = "session:"
	userIndexPrefix = "user_sessions:"
	tokenBytes      = 32
)

// Manager issues, validates, and destroys opaque session tokens backed by
// Redis. Only the SHA-256 of a token is stored, so a dump of the session
// store cannot be replayed as live cookies. Redis key TTLs carry the two
// lifetime policies; expiry needs no sweeper of its own.
type Manager struct {
	client *redis.Client
	cfg    config.SessionConfig
}

func NewManager(client *redis.Client, cfg config.SessionConfig) *Manager {
	return &Manager{client: client, cfg: cfg}
}

// Issue creates a session bound to userID and returns the bearer token.
// remember selects the extended lifetime. Sessions are independent per
// issuance: a new login never invalidates earlier tokens.
func (m *Manager) Issue(ctx context.Context, userID string, remember bool) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	ttl := m.cfg.DefaultTTL
	if remember {
		ttl = m.cfg.RememberTTL
	}

	key := sessionKey(token)
	pipe := m.client.TxPipeline()
	pipe.Set(ctx, key, userID, ttl)
	pipe.SAdd(ctx, userIndexPrefix+userID, key)
	pipe.Expire(ctx, userIndexPrefix+userID, m.cfg.RememberTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	return token, nil
}

// Validate resolves token to the owning user id. Unknown and expired
// tokens are indistinguishable: both return ErrInvalidSession.
func (m *Manager) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidSession
	}

	userID, err := m.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrInvalidSession
		}
		return "", fmt.Errorf("load session: %w", err)
	}
	return userID, nil
}

// Destroy removes the session unconditionally. Destroying an already-dead
// token is not an error.
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	key := sessionKey(token)
	userID, err := m.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("load session: %w", err)
	}

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, key)
	if userID != "" {
		pipe.SRem(ctx, userIndexPrefix+userID, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// CountActive returns how many live sessions a user currently holds.
func (m *Manager) CountActive(ctx context.Context, userID string) (int, error) {
	keys, err := m.client.SMembers(ctx, userIndexPrefix+userID).Result()
	if err != nil {
		return 0, fmt.Errorf("load session index: %w", err)
	}

	count := 0
	for _, key := range keys {
		exists, err := m.client.Exists(ctx, key).Result()
		if err != nil {
			return 0, err
		}
		if exists > 0 {
			count++
		}
	}
	return count, nil
}

// PruneIndexes drops index entries whose sessions have already expired.
// The sessions themselves expire via TTL; only the per-user bookkeeping
// sets need sweeping. Invoked by the cron scheduler.
func (m *Manager) PruneIndexes(ctx context.Context) (int, error) {
	pruned := 0

	iter := m.client.Scan(ctx, 0, userIndexPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		indexKey := iter.Val()
		keys, err := m.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return pruned, err
		}
		for _, key := range keys {
			exists, err := m.client.Exists(ctx, key).Result()
			if err != nil {
				return pruned, err
			}
			if exists == 0 {
				if err := m.client.SRem(ctx, indexKey, key).Err(); err != nil {
					return pruned, err
				}
				pruned++
			}
		}
	}
	if err := iter.Err(); err != nil {
		return pruned, err
	}
	return pruned, nil
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// TTL reports the configured lifetime for the given remember choice.
func (m *Manager) TTL(remember bool) time.Duration {
	if remember {
		return m.cfg.RememberTTL
	}
	return m.cfg.DefaultTTL
}
