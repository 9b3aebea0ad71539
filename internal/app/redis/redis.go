package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"licensecloud/internal/app/config"

	"github.com/go-redis/redis/v8"
)

const (
	servicePrefix    = "licensecloud."
	jwtPrefix        = "jwt."
	blacklistedValue = "blacklisted"
)

type Client struct {
	cfg    config.RedisConfig
	client *redis.Client
}

func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	client := &Client{cfg: cfg}

	redisClient := redis.NewClient(&redis.Options{
		Addr:        cfg.Host + ":" + strconv.Itoa(cfg.Port),
		Username:    cfg.User,
		Password:    cfg.Password,
		DB:          0,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})
	client.client = redisClient

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("cant ping redis: %w", err)
	}

	return client, nil
}

// NewFromClient оборачивает готовый клиент (например, поднятый в тестах).
func NewFromClient(c *redis.Client) *Client {
	return &Client{client: c}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// blacklistKey в ключе хранится хеш токена, а не сам токен
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return servicePrefix + jwtPrefix + hex.EncodeToString(sum[:])
}

// WriteJWTToBlacklist кладёт токен в blacklist до истечения его срока.
func (c *Client) WriteJWTToBlacklist(ctx context.Context, jwtStr string, jwtTTL time.Duration) error {
	return c.client.Set(ctx, blacklistKey(jwtStr), blacklistedValue, jwtTTL).Err()
}

// IsJWTBlacklisted возвращает true, если токен был отозван.
func (c *Client) IsJWTBlacklisted(ctx context.Context, jwtStr string) (bool, error) {
	n, err := c.client.Exists(ctx, blacklistKey(jwtStr)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
