package peruri

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// tokenRefreshSkew is subtracted from the token's expiry before it is cached
// so no call leaves with a token about to lapse.
const tokenRefreshSkew = 30 * time.Second

// TokenCache stores gateway tokens per system id.
type TokenCache interface {
	Get(ctx context.Context, key string) (Token, bool, error)
	Set(ctx context.Context, key string, token Token, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

func tokenCacheKey(systemID string) string {
	return "peruri:token:" + systemID
}

// tokenExpiry resolves when a token stops being usable: the JWT exp claim,
// then the envelope's expiredDate, then now+fallback.
func tokenExpiry(raw, expiredDate string, now time.Time, fallback time.Duration) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if t, ok := ParseExpiredDate(expiredDate); ok {
		return t
	}
	return now.Add(fallback)
}

var expiredDateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// jakarta is the gateway's wall clock for dates without an offset.
var jakarta = time.FixedZone("WIB", 7*60*60)

// ParseExpiredDate reads a gateway date; values without an offset are WIB.
func ParseExpiredDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range expiredDateLayouts {
		if t, err := time.ParseInLocation(layout, s, jakarta); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// LRUTokenCache is the in-process cache used when Redis is not configured.
type LRUTokenCache struct {
	lru *expirable.LRU[string, Token]
}

// NewLRUTokenCache creates an in-process cache. maxTTL bounds every entry.
func NewLRUTokenCache(size int, maxTTL time.Duration) *LRUTokenCache {
	return &LRUTokenCache{lru: expirable.NewLRU[string, Token](size, nil, maxTTL)}
}

func (c *LRUTokenCache) Get(_ context.Context, key string) (Token, bool, error) {
	tok, ok := c.lru.Get(key)
	return tok, ok, nil
}

func (c *LRUTokenCache) Set(_ context.Context, key string, token Token, _ time.Duration) error {
	c.lru.Add(key, token)
	return nil
}

func (c *LRUTokenCache) Delete(_ context.Context, key string) error {
	c.lru.Remove(key)
	return nil
}

// RedisTokenCache shares tokens across replicas.
type RedisTokenCache struct {
	client redis.UniversalClient
}

// NewRedisTokenCache wraps a go-redis client.
func NewRedisTokenCache(client redis.UniversalClient) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (Token, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, fmt.Errorf("get cached token: %w", err)
	}
	var tok Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		// A corrupt entry is treated as a miss and overwritten on refresh.
		return Token{}, false, nil
	}
	return tok, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, token Token, ttl time.Duration) error {
	raw, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache token: %w", err)
	}
	return nil
}

func (c *RedisTokenCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete cached token: %w", err)
	}
	return nil
}
